// Package session holds the signed-in identity and exposes it to every
// controller by explicit injection. There is no ambient global: whoever
// needs the identity takes a *Provider in its constructor.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"worklink/internal/models"
	"worklink/internal/observability"
	"worklink/internal/platform"
)

// ChangeFunc is notified on every session transition (sign-in, sign-out).
// A nil identity means signed out.
type ChangeFunc func(identity *models.Identity)

// Provider owns the session and profile of the signed-in user.
type Provider struct {
	auth    *platform.AuthClient
	records *platform.RecordsClient
	log     *observability.Logger

	mu          sync.RWMutex
	session     *platform.Session
	identity    *models.Identity
	subscribers []ChangeFunc
}

// NewProvider wires the provider into the platform client and installs
// itself as the records token source.
func NewProvider(client *platform.Client) *Provider {
	p := &Provider{
		auth:    client.Auth,
		records: client.Records,
		log:     observability.GlobalLogger,
	}
	client.Records.SetTokenSource(p.AccessToken)
	return p
}

// Current returns the signed-in identity, or nil before sign-in.
func (p *Provider) Current() *models.Identity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.identity
}

// AccessToken returns the bearer credential of the current session, or ""
// when signed out.
func (p *Provider) AccessToken() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.session == nil {
		return ""
	}
	return p.session.AccessToken
}

// OnChange registers a subscriber for session transitions.
func (p *Provider) OnChange(fn ChangeFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, fn)
}

// SignIn authenticates and loads the profile row for the session subject.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*models.Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}

	sess, err := p.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.session = sess
	p.mu.Unlock()

	identity, err := p.fetchProfile(ctx, sess.UserID)
	if err != nil {
		p.mu.Lock()
		p.session = nil
		p.mu.Unlock()
		return nil, err
	}

	p.setIdentity(identity)
	p.log.Info("signed in", "user_id", identity.ID)
	return identity, nil
}

// SignUp registers an account, then explicitly creates the profile row.
// The auth service only stores credentials; the profile is a plain record
// insert under the fresh session's token.
func (p *Provider) SignUp(ctx context.Context, email, password, name, department, position string) (*models.Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, models.NewValidationError("Name is required")
	}

	sess, err := p.auth.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.session = sess
	p.mu.Unlock()

	profile := models.Identity{
		ID:         sess.UserID,
		Name:       name,
		Email:      email,
		Department: department,
		Position:   position,
		Skills:     []string{},
		Interests:  []string{},
		Role:       models.RoleUser,
		JoinedAt:   time.Now().UTC(),
	}
	var created models.Identity
	if err := p.records.Insert(ctx, "profiles", profile, &created); err != nil {
		p.mu.Lock()
		p.session = nil
		p.mu.Unlock()
		return nil, err
	}

	p.setIdentity(&created)
	p.log.Info("signed up", "user_id", created.ID)
	return &created, nil
}

// SignOut revokes the session and clears local identity state. The local
// sign-out happens even when the remote revoke fails.
func (p *Provider) SignOut(ctx context.Context) {
	p.mu.Lock()
	sess := p.session
	p.session = nil
	p.mu.Unlock()

	if sess != nil {
		if err := p.auth.SignOut(ctx, sess.AccessToken); err != nil {
			p.log.Warn("remote sign-out failed", "error", err)
		}
	}
	p.setIdentity(nil)
}

// ResetPassword requests a recovery mail and returns the user-facing
// outcome message.
func (p *Provider) ResetPassword(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return "", models.NewValidationError("Email is required")
	}
	return p.auth.ResetPassword(ctx, email)
}

// UpdateProfile patches the signed-in user's own profile row and refreshes
// the local identity from the canonical response.
func (p *Provider) UpdateProfile(ctx context.Context, patch map[string]any) (*models.Identity, error) {
	current := p.Current()
	if current == nil {
		return nil, models.NewUnauthorizedError("Not signed in")
	}
	var updated models.Identity
	if err := p.records.Update(ctx, "profiles", current.ID, patch, &updated); err != nil {
		return nil, err
	}
	p.setIdentity(&updated)
	return &updated, nil
}

func (p *Provider) fetchProfile(ctx context.Context, userID string) (*models.Identity, error) {
	var profiles []models.Identity
	q := platform.Query{Table: "profiles", Filters: []platform.Filter{platform.Eq("id", userID)}, Limit: 1}
	if err := p.records.Select(ctx, q, &profiles); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, models.NewNotFoundError("Profile", userID)
	}
	return &profiles[0], nil
}

func (p *Provider) setIdentity(identity *models.Identity) {
	p.mu.Lock()
	p.identity = identity
	subs := make([]ChangeFunc, len(p.subscribers))
	copy(subs, p.subscribers)
	p.mu.Unlock()

	for _, fn := range subs {
		fn(identity)
	}
}
