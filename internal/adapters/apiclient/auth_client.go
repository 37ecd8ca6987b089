package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	domainauth "github.com/vaultline/session-engine/internal/domain/auth"
	"github.com/vaultline/session-engine/internal/ports"
)

// AuthClient implements ports.PasswordAuthenticator and ports.IdentityFetcher.
type AuthClient struct {
	transport ports.Transport
}

func NewAuthClient(transport ports.Transport) *AuthClient {
	return &AuthClient{transport: transport}
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// loginResponse is shared by password and biometric login.
type loginResponse struct {
	Token       string               `json:"token"`
	AccessToken string               `json:"access_token"`
	User        *domainauth.Identity `json:"user"`
}

func (r loginResponse) result() (ports.LoginResult, error) {
	token := r.Token
	if token == "" {
		token = r.AccessToken
	}
	if token == "" {
		return ports.LoginResult{}, errors.New("login response has no token")
	}
	if r.User == nil || r.User.UserID == "" {
		return ports.LoginResult{}, errors.New("login response has no user")
	}
	return ports.LoginResult{Token: token, Identity: *r.User}, nil
}

func (c *AuthClient) Login(ctx context.Context, identifier, password string) (ports.LoginResult, error) {
	resp, err := c.transport.Call(ctx, ports.Request{
		Method:    http.MethodPost,
		Path:      "/auth/login",
		Body:      loginRequest{Identifier: identifier, Password: password},
		Anonymous: true,
	})
	if err != nil {
		return ports.LoginResult{}, err
	}
	var out loginResponse
	if err := decodeJSON(resp, &out); err != nil {
		return ports.LoginResult{}, fmt.Errorf("login: %w", err)
	}
	return out.result()
}

// Me fetches the current identity. Both a bare user object and {"user": {...}} are accepted.
func (c *AuthClient) Me(ctx context.Context) (domainauth.Identity, error) {
	resp, err := c.transport.Call(ctx, ports.Request{Method: http.MethodGet, Path: "/users/me"})
	if err != nil {
		return domainauth.Identity{}, err
	}

	var envelope struct {
		User json.RawMessage `json:"user"`
	}
	if err := decodeJSON(resp, &envelope); err != nil {
		return domainauth.Identity{}, fmt.Errorf("me: %w", err)
	}
	raw := resp.Body
	if len(envelope.User) > 0 {
		raw = envelope.User
	}

	var id domainauth.Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return domainauth.Identity{}, fmt.Errorf("me: decode identity: %w", err)
	}
	if id.UserID == "" {
		return domainauth.Identity{}, errors.New("me: identity has no user id")
	}
	return id, nil
}
