package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type jwtSigner struct {
	method *jwt.SigningMethodHMAC
	key    []byte
}

func newJWTSigner(secret, algorithm string) (*jwtSigner, error) {
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
	return &jwtSigner{method: method, key: []byte(secret)}, nil
}

func (j *jwtSigner) sign(c Claims) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   c.Subject,
		IssuedAt:  jwt.NewNumericDate(c.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(c.ExpiresAt),
	}
	return jwt.NewWithClaims(j.method, claims).SignedString(j.key)
}

func (j *jwtSigner) parse(tokenStr string, now time.Time) (*Claims, error) {
	mc := jwt.MapClaims{}

	_, err := jwt.ParseWithClaims(tokenStr, mc,
		func(t *jwt.Token) (any, error) {
			return j.key, nil
		},
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, mapJWTError(err)
	}

	// claims are decoded loosely so a mistyped field is reported as a claims
	// failure rather than a malformed token
	subject, err := mc.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClaimsInvalid, err)
	}
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: exp is invalid", ErrClaimsInvalid)
	}
	iat, err := mc.GetIssuedAt()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClaimsInvalid, err)
	}

	claims := &Claims{
		Subject:   subject,
		ExpiresAt: exp.Time,
	}
	if iat != nil {
		claims.IssuedAt = iat.Time
	}

	return claims, nil
}

// mapJWTError checks expiry first since jwt also marks it as an invalid claim.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	default:
		return fmt.Errorf("%w: %v", ErrClaimsInvalid, err)
	}
}
