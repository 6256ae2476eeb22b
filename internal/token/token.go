// Package token issues and verifies bearer tokens whose subject is an account email.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redmonkez12/account-service/internal/apperr"
)

var (
	ErrSignatureInvalid = apperr.New(apperr.ErrAuthentication, "token signature is invalid")
	ErrTokenExpired     = apperr.New(apperr.ErrAuthentication, "token has expired")
	ErrClaimsInvalid    = apperr.New(apperr.ErrAuthentication, "token claims are invalid")

	ErrInvalidTTL           = apperr.New(apperr.ErrConfiguration, "token ttl must be a positive duration")
	ErrUnsupportedAlgorithm = apperr.New(apperr.ErrConfiguration, "unsupported signing algorithm")
	ErrEmptySecret          = apperr.New(apperr.ErrConfiguration, "secret key must not be empty")

	ErrSigning = errors.New("failed to sign token")
)

// AlgorithmPasetoV4Local selects PASETO v4.local instead of an HMAC JWT.
const AlgorithmPasetoV4Local = "v4.local"

// Claims are the verified contents of a token.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type signer interface {
	sign(c Claims) (string, error)
	parse(token string, now time.Time) (*Claims, error)
}

// Service binds a secret and algorithm, loaded once from configuration.
type Service struct {
	algorithm string
	signer    signer
	now       func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source used for issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService accepts HS256, HS384, HS512 or v4.local.
func NewService(secret, algorithm string, opts ...Option) (*Service, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	var (
		sg  signer
		err error
	)
	switch {
	case strings.EqualFold(algorithm, AlgorithmPasetoV4Local):
		sg, err = newPasetoSigner(secret)
	default:
		sg, err = newJWTSigner(secret, algorithm)
	}
	if err != nil {
		return nil, err
	}

	s := &Service{
		algorithm: algorithm,
		signer:    sg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *Service) Algorithm() string {
	return s.algorithm
}

// Issue signs a token for subject that expires after ttl.
func (s *Service) Issue(subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", ErrInvalidTTL
	}

	now := s.now()
	token, err := s.signer.sign(Claims{
		Subject:   subject,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}

	return token, nil
}

// Verify validates signature, expiry and claims and returns the subject.
// A token without a subject yields an empty subject and no error.
func (s *Service) Verify(token string) (string, error) {
	claims, err := s.Parse(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Parse is Verify returning every claim.
func (s *Service) Parse(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrSignatureInvalid
	}
	return s.signer.parse(token, s.now())
}
