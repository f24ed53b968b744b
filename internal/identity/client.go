// Package identity wraps the managed identity provider's HTTP API. The
// provider owns credentials, password verification, and session issuance; this
// package only asks it to create, resolve, or destroy identities.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bacaltosclinic/portal-api/internal/models"
)

var (
	// ErrEmailTaken is returned when the provider rejects a signup because the
	// email is already registered
	ErrEmailTaken = errors.New("email is already registered")
	// ErrInvalidCredentials is returned when the provider rejects a password
	// grant or cannot resolve a token
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Provider is the subset of the identity provider's API this system uses.
// Defined as an interface so the coordinator can be tested against a fake.
type Provider interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]string) (*models.Identity, *models.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*models.Identity, *models.Session, error)
	GetUser(ctx context.Context, accessToken string) (*models.Identity, error)
	AdminDeleteUser(ctx context.Context, id uuid.UUID) error
}

// Client is an HTTP client for the managed identity provider. It carries two
// credential tiers: the restricted anon key for end-user auth calls and the
// privileged service key for admin operations.
type Client struct {
	baseURL    string
	anonKey    string
	serviceKey string
	httpClient *http.Client
}

var _ Provider = (*Client)(nil)

// New constructs a provider client. baseURL and anonKey are always required;
// serviceKey is required for admin operations and validated here so the
// process fails at startup rather than mid-request.
func New(baseURL, anonKey, serviceKey string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("identity provider URL is required")
	}
	if anonKey == "" {
		return nil, fmt.Errorf("identity provider anon key is required")
	}
	if serviceKey == "" {
		return nil, fmt.Errorf("identity provider service key is required")
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// JWKSURL returns the provider's JWKS endpoint used for local token verification
func (c *Client) JWKSURL() string {
	return c.baseURL + "/auth/v1/.well-known/jwks.json"
}

// Issuer returns the issuer string the provider stamps into its tokens
func (c *Client) Issuer() string {
	return c.baseURL + "/auth/v1"
}

type authUser struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Metadata map[string]string `json:"user_metadata"`
}

type authResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	User         *authUser `json:"user"`
	// signup without autoconfirm returns the user at the top level
	ID       string            `json:"id"`
	Metadata map[string]string `json:"user_metadata"`
	Email    string            `json:"email"`
}

type providerError struct {
	Message          string `json:"msg"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
}

func (e *providerError) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.ErrorDescription
}

// SignUp creates a new identity with the given credential. Role metadata is
// attached to the identity so the provider side mirrors the record's role.
// When the provider autoconfirms, a session is returned alongside the identity.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]string) (*models.Identity, *models.Session, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
	}
	if len(metadata) > 0 {
		body["data"] = metadata
	}

	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", c.anonKey, "", body, &resp); err != nil {
		return nil, nil, err
	}

	identity, err := identityFromAuthResponse(&resp)
	if err != nil {
		return nil, nil, err
	}

	var session *models.Session
	if resp.AccessToken != "" {
		session = &models.Session{
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
			TokenType:    resp.TokenType,
			ExpiresIn:    resp.ExpiresIn,
		}
	}

	return identity, session, nil
}

// SignInWithPassword performs the password grant and returns the identity with
// its new session
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*models.Identity, *models.Session, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
	}

	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", c.anonKey, "", body, &resp); err != nil {
		return nil, nil, err
	}

	identity, err := identityFromAuthResponse(&resp)
	if err != nil {
		return nil, nil, err
	}

	session := &models.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		ExpiresIn:    resp.ExpiresIn,
	}

	return identity, session, nil
}

// GetUser resolves a bearer token to the identity it belongs to
func (c *Client) GetUser(ctx context.Context, accessToken string) (*models.Identity, error) {
	if accessToken == "" {
		return nil, ErrInvalidCredentials
	}

	var user authUser
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", c.anonKey, accessToken, nil, &user); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(user.ID)
	if err != nil {
		return nil, fmt.Errorf("provider returned malformed user id: %w", err)
	}

	return &models.Identity{ID: id, Email: user.Email, Metadata: user.Metadata}, nil
}

// AdminDeleteUser destroys an identity using the privileged service key. This
// is both the deprovisioning step and the compensating action for a failed
// record insert.
func (c *Client) AdminDeleteUser(ctx context.Context, id uuid.UUID) error {
	path := "/auth/v1/admin/users/" + id.String()
	return c.do(ctx, http.MethodDelete, path, c.serviceKey, c.serviceKey, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, apiKey, bearer string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("apikey", apiKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.mapError(resp.StatusCode, raw)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode provider response: %w", err)
		}
	}

	return nil
}

// mapError translates provider status codes into the errors callers branch on.
// Raw provider text is kept for logs but never contains credential material.
func (c *Client) mapError(status int, raw []byte) error {
	var pe providerError
	_ = json.Unmarshal(raw, &pe)
	msg := pe.text()

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrInvalidCredentials
	case (status == http.StatusBadRequest || status == http.StatusUnprocessableEntity) &&
		(pe.ErrorCode == "user_already_exists" || strings.Contains(strings.ToLower(msg), "already registered")):
		return ErrEmailTaken
	case msg != "":
		return fmt.Errorf("identity provider error (status %d): %s", status, msg)
	default:
		return fmt.Errorf("identity provider returned status %d", status)
	}
}

func identityFromAuthResponse(resp *authResponse) (*models.Identity, error) {
	user := resp.User
	if user == nil {
		if resp.ID == "" {
			return nil, fmt.Errorf("provider response missing user")
		}
		user = &authUser{ID: resp.ID, Email: resp.Email, Metadata: resp.Metadata}
	}

	id, err := uuid.Parse(user.ID)
	if err != nil {
		return nil, fmt.Errorf("provider returned malformed user id: %w", err)
	}

	return &models.Identity{ID: id, Email: user.Email, Metadata: user.Metadata}, nil
}
