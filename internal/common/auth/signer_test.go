package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret-0123456789"

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestSigner(t *testing.T) (*Signer, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s, err := NewSigner(testSecret, WithClock(clock.Now))
	require.NoError(t, err)
	return s, clock
}

func TestNewSigner_RejectsShortSecret(t *testing.T) {
	_, err := NewSigner("short")
	assert.Error(t, err)
}

func TestSigner_IssueAndVerify(t *testing.T) {
	s, _ := newTestSigner(t)

	token, claims, err := s.Issue(PurposeDownload, "sub-1", "Jane@Example.com", time.Hour)
	require.NoError(t, err)
	assert.Contains(t, token, ".")
	assert.NotContains(t, token, "example.com")

	got, err := s.Verify(PurposeDownload, token)
	require.NoError(t, err)
	assert.Equal(t, claims, got)
	assert.Equal(t, "sub-1", got.Subject)
	assert.True(t, s.MatchesBinding(got, "jane@example.com"))
	assert.False(t, s.MatchesBinding(got, "other@example.com"))
}

func TestSigner_TokensAreUnique(t *testing.T) {
	s, _ := newTestSigner(t)

	a, _, err := s.Issue(PurposeDownload, "sub-1", "a@example.com", time.Hour)
	require.NoError(t, err)
	b, _, err := s.Issue(PurposeDownload, "sub-1", "a@example.com", time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSigner_VerifyFailures(t *testing.T) {
	s, clock := newTestSigner(t)
	token, _, err := s.Issue(PurposeProcess, "sub-1", "", time.Minute)
	require.NoError(t, err)

	other, err := NewSigner("another-secret-0123456789")
	require.NoError(t, err)

	tests := []struct {
		name    string
		verify  func() error
		wantErr error
	}{
		{
			name: "wrong purpose",
			verify: func() error {
				_, err := s.Verify(PurposeDownload, token)
				return err
			},
			wantErr: ErrPurposeMismatch,
		},
		{
			name: "tampered body",
			verify: func() error {
				_, err := s.Verify(PurposeProcess, "x"+token)
				return err
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "missing separator",
			verify: func() error {
				_, err := s.Verify(PurposeProcess, strings.ReplaceAll(token, ".", ""))
				return err
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "different key",
			verify: func() error {
				_, err := other.Verify(PurposeProcess, token)
				return err
			},
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.verify(), tt.wantErr)
		})
	}

	t.Run("expired", func(t *testing.T) {
		clock.t = clock.t.Add(2 * time.Minute)
		_, err := s.Verify(PurposeProcess, token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})
}

func TestSigner_NoExpiry(t *testing.T) {
	s, clock := newTestSigner(t)
	token, claims, err := s.Issue(PurposeProcess, "sub-9", "", 0)
	require.NoError(t, err)
	assert.True(t, claims.Expiry().IsZero())

	clock.t = clock.t.Add(24 * 365 * time.Hour)
	_, err = s.Verify(PurposeProcess, token)
	assert.NoError(t, err)
}
