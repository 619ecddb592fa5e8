package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worklink/internal/models"
)

func signedToken(t *testing.T, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte("unit-test-secret"))
	require.NoError(t, err)
	return s
}

func TestSubjectOf(t *testing.T) {
	assert.Equal(t, "user-42", SubjectOf(signedToken(t, "user-42")))
	assert.Equal(t, "", SubjectOf("not.a.token"))
	assert.Equal(t, "", SubjectOf(""))
}

func TestSignInParsesSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"access_token": "` + signedToken(t, "user-1") + `",
			"refresh_token": "refresh-1",
			"expires_in": 3600,
			"user": {"id": "user-1"}
		}`))
	}))
	defer srv.Close()

	c := NewAuthClient(srv.URL, "anon-key", srv.Client())
	sess, err := c.SignIn(context.Background(), "a@example.com", "pw")
	require.NoError(t, err)

	assert.Equal(t, "user-1", sess.UserID)
	assert.Equal(t, "refresh-1", sess.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, time.Minute)
}

func TestSignInFallsBackToTokenSubject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"access_token": "` + signedToken(t, "user-from-token") + `",
			"expires_in": 3600
		}`))
	}))
	defer srv.Close()

	c := NewAuthClient(srv.URL, "anon-key", srv.Client())
	sess, err := c.SignIn(context.Background(), "a@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "user-from-token", sess.UserID)
}

func TestSignInBadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewAuthClient(srv.URL, "anon-key", srv.Client())
	_, err := c.SignIn(context.Background(), "a@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, models.KindUnauthorized, models.KindOf(err))
}

func TestSignOutIgnoresRemoteRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"expired"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewAuthClient(srv.URL, "anon-key", srv.Client())
	assert.NoError(t, c.SignOut(context.Background(), "stale-token"))
}
