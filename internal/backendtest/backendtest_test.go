package backendtest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libranexus/internal/membership"
)

func TestPasswordHashing(t *testing.T) {
	hash, salt, err := hashPassword("library123")
	require.NoError(t, err)

	ok, err := verifyPassword("library123", salt, hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = verifyPassword("library124", salt, hash)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = verifyPassword("library123", "%%%", hash)
	assert.Error(t, err)

	_, salt2, err := hashPassword("library123")
	require.NoError(t, err)
	assert.NotEqual(t, salt, salt2)
}

func TestTokenExpiry(t *testing.T) {
	now := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	ti := &tokenIssuer{secret: []byte("s"), ttl: time.Hour, now: func() time.Time { return now }}

	raw, err := ti.issue("u1", membership.RoleStudent)
	require.NoError(t, err)

	c, err := ti.validate(raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", c.Subject)
	assert.Equal(t, membership.RoleStudent, c.Role)

	now = now.Add(2 * time.Hour)
	_, err = ti.validate(raw)
	assert.Error(t, err)

	other := &tokenIssuer{secret: []byte("other"), ttl: time.Hour, now: time.Now}
	forged, err := other.issue("u1", membership.RoleAdmin)
	require.NoError(t, err)
	_, err = ti.validate(forged)
	assert.Error(t, err)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	s := New()
	_, err := s.Seed()
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/books")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/books/recommended?max=2")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, 1, s.Calls("GET /books"))
	assert.Equal(t, 1, s.Calls("GET /books/recommended"))
}

func TestAddUserRejectsDuplicateEmail(t *testing.T) {
	s := New()
	_, err := s.AddUser(membership.User{Email: "a@b.test", Name: "A", Role: membership.RoleStudent}, "pw")
	require.NoError(t, err)
	_, err = s.AddUser(membership.User{Email: strings.ToUpper("a@b.test"), Name: "A2", Role: membership.RoleStudent}, "pw")
	assert.Error(t, err)
}
