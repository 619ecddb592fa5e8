package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"worklink/internal/models"
)

// Session is the credential state returned by the managed auth service.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
}

// AuthClient talks to the managed auth endpoints. Password verification,
// token minting and recovery mail all happen server-side.
type AuthClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewAuthClient creates an auth client against baseURL.
func NewAuthClient(baseURL, apiKey string, httpClient *http.Client) *AuthClient {
	return &AuthClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID string `json:"id"`
	} `json:"user"`
}

// SignIn exchanges credentials for a session.
func (c *AuthClient) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return c.tokenRequest(ctx, "/auth/v1/token?grant_type=password", email, password)
}

// SignUp registers a new account and returns its initial session. The
// caller is responsible for creating the profile row afterwards.
func (c *AuthClient) SignUp(ctx context.Context, email, password string) (*Session, error) {
	return c.tokenRequest(ctx, "/auth/v1/signup", email, password)
}

func (c *AuthClient) tokenRequest(ctx context.Context, path, email, password string) (*Session, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, models.NewTransientError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyAuthStatus(resp)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, models.NewPermanentError("Malformed auth response", err)
	}

	session := &Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
		UserID:       tr.User.ID,
	}
	if session.UserID == "" {
		session.UserID = SubjectOf(tr.AccessToken)
	}
	return session, nil
}

// SignOut revokes the session server-side. A failed revoke is still a
// local sign-out for the caller, so only transport errors are returned.
func (c *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return models.NewInternalError(err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return models.NewTransientError(err)
	}
	_ = resp.Body.Close()
	return nil
}

// ResetPassword requests a recovery mail for email. The outcome carries a
// user-facing message either way.
func (c *AuthClient) ResetPassword(ctx context.Context, email string) (string, error) {
	payload, err := json.Marshal(map[string]string{"email": email})
	if err != nil {
		return "", models.NewInternalError(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/recover", bytes.NewReader(payload))
	if err != nil {
		return "", models.NewInternalError(err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", models.NewTransientError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", classifyAuthStatus(resp)
	}
	return "Password reset instructions were sent to " + email, nil
}

// SubjectOf extracts the subject claim from a bearer token without
// verifying the signature. The client never holds the signing secret; the
// platform (and relayd) verify on their side.
func SubjectOf(token string) string {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return ""
	}
	sub, _ := claims.GetSubject()
	return sub
}

func classifyAuthStatus(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err := fmt.Errorf("auth service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))

	switch {
	case resp.StatusCode >= 500:
		return models.NewTransientError(err)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
		return models.NewUnauthorizedError("Invalid email or password")
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return models.NewValidationError("Email or password not accepted")
	default:
		return models.NewPermanentError("Auth request failed", err)
	}
}
