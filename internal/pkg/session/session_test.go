package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/Tochigi/internal/pkg/config"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.SessionConfig{Secret: "test-secret", Issuer: "tochigi", TTL: time.Hour})
	require.NoError(t, err)
	return m
}

func TestIssueAndParse(t *testing.T) {
	m := testManager(t)
	token, exp, err := m.Issue(Session{SubjectID: "u1", Role: "business", CompanyID: "c1"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	s, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, Session{SubjectID: "u1", Role: "business", CompanyID: "c1"}, s)
}

func TestParseRejectsOtherSecret(t *testing.T) {
	other, err := NewManager(config.SessionConfig{Secret: "other", Issuer: "tochigi"})
	require.NoError(t, err)
	token, _, err := other.Issue(Session{SubjectID: "u1", Role: "admin"})
	require.NoError(t, err)

	_, err = testManager(t).Parse(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestParseRejectsExpired(t *testing.T) {
	m := testManager(t)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := m.Issue(Session{SubjectID: "u1", Role: "admin"})
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := testManager(t).Parse("not-a-token")
	assert.Error(t, err)
}

func TestNewManagerRequiresSecret(t *testing.T) {
	_, err := NewManager(config.SessionConfig{})
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken(""))
}
