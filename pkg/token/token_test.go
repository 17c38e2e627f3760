package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-unit-tests-0123456789"

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func newTestService(t *testing.T, clock *fakeClock) *Service {
	t.Helper()
	s, err := NewService(testSecret, "HS256", 30*time.Minute, WithClock(clock.Now))
	require.NoError(t, err)
	return s
}

func TestService_IssueThenValidate(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestService(t, clock)

	tok, err := s.Issue("user-1")
	require.NoError(t, err)

	subject, ok := s.Validate(tok)
	assert.True(t, ok)
	assert.Equal(t, "user-1", subject)
}

func TestService_ExpiredToken(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestService(t, clock)

	tok, err := s.IssueWithTTL("user-1", time.Minute)
	require.NoError(t, err)

	clock.t = clock.t.Add(59 * time.Second)
	_, ok := s.Validate(tok)
	assert.True(t, ok)

	clock.t = clock.t.Add(2 * time.Second)
	subject, ok := s.Validate(tok)
	assert.False(t, ok)
	assert.Empty(t, subject)
}

func TestService_DefaultTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestService(t, clock)
	assert.Equal(t, 30*time.Minute, s.TTL())

	tok, err := s.Issue("user-1")
	require.NoError(t, err)

	clock.t = clock.t.Add(31 * time.Minute)
	_, ok := s.Validate(tok)
	assert.False(t, ok)
}

func TestService_ForeignKeyRejected(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s := newTestService(t, clock)

	other, err := NewService("a-completely-different-secret-value", "HS256", time.Minute, WithClock(clock.Now))
	require.NoError(t, err)

	tok, err := other.Issue("user-1")
	require.NoError(t, err)

	_, ok := s.Validate(tok)
	assert.False(t, ok)
}

func TestService_AlgorithmPinned(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s := newTestService(t, clock)

	hs512, err := NewService(testSecret, "HS512", time.Minute, WithClock(clock.Now))
	require.NoError(t, err)
	tok, err := hs512.Issue("user-1")
	require.NoError(t, err)

	_, ok := s.Validate(tok)
	assert.False(t, ok, "token signed with another algorithm must be rejected")

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Minute)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, ok = s.Validate(none)
	assert.False(t, ok)
}

func TestService_MalformedTokens(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s := newTestService(t, clock)

	tok, err := s.Issue("user-1")
	require.NoError(t, err)

	tampered := tok + "x"
	inputs := []string{"", "garbage", "a.b.c", tampered, strings.Repeat(".", 3)}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			_, ok := s.Validate(in)
			assert.False(t, ok, "token %q", in)
		})
	}
}

func TestService_MissingExpiryOrSubject(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s := newTestService(t, clock)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-1"}).
		SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, ok := s.Validate(noExp)
	assert.False(t, ok)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Minute)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, ok = s.Validate(noSub)
	assert.False(t, ok)
}

func TestNewService_Errors(t *testing.T) {
	_, err := NewService("", "HS256", time.Minute)
	assert.Error(t, err)

	_, err = NewService(testSecret, "RS256", time.Minute)
	assert.Error(t, err)

	s, err := NewService(testSecret, "", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, s.TTL())

	_, err = s.Issue("")
	assert.Error(t, err)
}

func TestNewService_AlgorithmIsCaseInsensitive(t *testing.T) {
	clock := &fakeClock{t: time.Now()}

	lower, err := NewService(testSecret, "hs384", time.Minute, WithClock(clock.Now))
	require.NoError(t, err)
	upper, err := NewService(testSecret, "HS384", time.Minute, WithClock(clock.Now))
	require.NoError(t, err)

	tok, err := lower.Issue("user-1")
	require.NoError(t, err)

	sub, ok := upper.Validate(tok)
	assert.True(t, ok)
	assert.Equal(t, "user-1", sub)

	parsed, _, err := jwt.NewParser().ParseUnverified(tok, &jwt.RegisteredClaims{})
	require.NoError(t, err)
	assert.Equal(t, "HS384", parsed.Method.Alg())
}
