package token

import (
	"strings"
	"testing"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/account-service/internal/apperr"
)

const testSecret = "09d25e094faa6ca2556c818166b7a9563b93f7099f6f0f4caa6cf63b88e8d3e7"

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T, algorithm string) (*Service, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := NewService(testSecret, algorithm, WithClock(clock.now))
	require.NoError(t, err)
	return svc, clock
}

var algorithms = []string{"HS256", "HS384", "HS512", AlgorithmPasetoV4Local}

func TestService_RoundTrip(t *testing.T) {
	for _, alg := range algorithms {
		t.Run(alg, func(t *testing.T) {
			svc, _ := newTestService(t, alg)

			tok, err := svc.Issue("a@x.com", 30*time.Minute)
			require.NoError(t, err)

			subject, err := svc.Verify(tok)
			require.NoError(t, err)
			assert.Equal(t, "a@x.com", subject)

			claims, err := svc.Parse(tok)
			require.NoError(t, err)
			assert.WithinDuration(t, time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC), claims.ExpiresAt, time.Second)
		})
	}
}

func TestService_Expired(t *testing.T) {
	for _, alg := range algorithms {
		t.Run(alg, func(t *testing.T) {
			svc, clock := newTestService(t, alg)

			tok, err := svc.Issue("a@x.com", time.Minute)
			require.NoError(t, err)

			clock.advance(59 * time.Second)
			_, err = svc.Verify(tok)
			require.NoError(t, err)

			clock.advance(2 * time.Second)
			_, err = svc.Verify(tok)
			assert.ErrorIs(t, err, ErrTokenExpired)
			assert.ErrorIs(t, err, apperr.ErrAuthentication)
			assert.NotErrorIs(t, err, ErrSignatureInvalid)
		})
	}
}

func TestService_WrongSecret(t *testing.T) {
	for _, alg := range algorithms {
		t.Run(alg, func(t *testing.T) {
			svc, _ := newTestService(t, alg)
			other, err := NewService("another-secret", alg)
			require.NoError(t, err)

			tok, err := other.Issue("a@x.com", time.Hour)
			require.NoError(t, err)

			_, err = svc.Verify(tok)
			assert.ErrorIs(t, err, ErrSignatureInvalid)
		})
	}
}

func TestService_Garbage(t *testing.T) {
	for _, alg := range algorithms {
		t.Run(alg, func(t *testing.T) {
			svc, _ := newTestService(t, alg)

			for _, tok := range []string{"", "not-a-token", "a.b.c", "v4.local.AAAA"} {
				_, err := svc.Verify(tok)
				assert.ErrorIs(t, err, ErrSignatureInvalid, tok)
			}
		})
	}
}

func TestService_AlgorithmMismatch(t *testing.T) {
	hs256, _ := newTestService(t, "HS256")
	hs512, _ := newTestService(t, "HS512")

	tok, err := hs512.Issue("a@x.com", time.Hour)
	require.NoError(t, err)

	_, err = hs256.Verify(tok)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestService_RejectsNoneAlgorithm(t *testing.T) {
	svc, _ := newTestService(t, "HS256")

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "a@x.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Verify(unsigned)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestService_TamperedPayload(t *testing.T) {
	svc, _ := newTestService(t, "HS256")
	tok, err := svc.Issue("a@x.com", time.Hour)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	other, err := svc.Issue("admin@x.com", time.Hour)
	require.NoError(t, err)
	parts[1] = strings.Split(other, ".")[1]

	_, err = svc.Verify(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestService_JWTClaimsInvalid(t *testing.T) {
	svc, clock := newTestService(t, "HS256")

	sign := func(c jwt.Claims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return s
	}

	t.Run("missing expiry", func(t *testing.T) {
		_, err := svc.Verify(sign(jwt.RegisteredClaims{Subject: "a@x.com"}))
		assert.ErrorIs(t, err, ErrClaimsInvalid)
	})

	t.Run("not valid yet", func(t *testing.T) {
		_, err := svc.Verify(sign(jwt.RegisteredClaims{
			Subject:   "a@x.com",
			ExpiresAt: jwt.NewNumericDate(clock.t.Add(2 * time.Hour)),
			NotBefore: jwt.NewNumericDate(clock.t.Add(time.Hour)),
		}))
		assert.ErrorIs(t, err, ErrClaimsInvalid)
	})

	t.Run("non-string subject", func(t *testing.T) {
		_, err := svc.Verify(sign(jwt.MapClaims{
			"sub": 42,
			"exp": clock.t.Add(time.Hour).Unix(),
		}))
		assert.ErrorIs(t, err, ErrClaimsInvalid)
		assert.NotErrorIs(t, err, ErrSignatureInvalid)
	})

	t.Run("non-numeric expiry", func(t *testing.T) {
		_, err := svc.Verify(sign(jwt.MapClaims{
			"sub": "a@x.com",
			"exp": "tomorrow",
		}))
		assert.ErrorIs(t, err, ErrClaimsInvalid)
	})
}

func TestService_MissingSubject(t *testing.T) {
	for _, alg := range algorithms {
		t.Run(alg, func(t *testing.T) {
			svc, _ := newTestService(t, alg)

			tok, err := svc.Issue("", time.Hour)
			require.NoError(t, err)

			subject, err := svc.Verify(tok)
			require.NoError(t, err)
			assert.Empty(t, subject)
		})
	}
}

func TestService_PasetoClaimsInvalid(t *testing.T) {
	svc, clock := newTestService(t, AlgorithmPasetoV4Local)
	key := svc.signer.(*pasetoSigner).key

	t.Run("missing expiry", func(t *testing.T) {
		tok := paseto.NewToken()
		tok.SetSubject("a@x.com")

		_, err := svc.Verify(tok.V4Encrypt(key, nil))
		assert.ErrorIs(t, err, ErrClaimsInvalid)
	})

	t.Run("non-string subject", func(t *testing.T) {
		tok := paseto.NewToken()
		tok.SetExpiration(clock.t.Add(time.Hour))
		require.NoError(t, tok.Set("sub", 42))

		_, err := svc.Verify(tok.V4Encrypt(key, nil))
		assert.ErrorIs(t, err, ErrClaimsInvalid)
	})
}

func TestService_IssueInvalidTTL(t *testing.T) {
	svc, _ := newTestService(t, "HS256")

	for _, ttl := range []time.Duration{0, -time.Minute} {
		_, err := svc.Issue("a@x.com", ttl)
		assert.ErrorIs(t, err, ErrInvalidTTL)
		assert.ErrorIs(t, err, apperr.ErrConfiguration)
	}
}

func TestNewService_Configuration(t *testing.T) {
	_, err := NewService("", "HS256")
	assert.ErrorIs(t, err, ErrEmptySecret)

	for _, alg := range []string{"", "RS256", "none", "ES256", "v2.local"} {
		_, err := NewService(testSecret, alg)
		assert.ErrorIs(t, err, ErrUnsupportedAlgorithm, alg)
		assert.ErrorIs(t, err, apperr.ErrConfiguration, alg)
	}

	svc, err := NewService(testSecret, "V4.LOCAL")
	require.NoError(t, err)
	assert.Equal(t, "V4.LOCAL", svc.Algorithm())
}
