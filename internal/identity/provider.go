package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid document or password")
	ErrProviderRejected   = errors.New("auth provider rejected the request")
)

// Session is the token bundle the auth provider issues on login. The API
// never mints tokens itself; it only verifies the provider's signatures.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

/// Provider is the external identity service: credential storage, password
// checks and recovery mails all live there, never in this codebase.
type Provider interface {
	CreateUser(ctx context.Context, email, password string) (uuid.UUID, error)
	DeleteUser(ctx context.Context, authID uuid.UUID) error
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SendRecovery(ctx context.Context, email string) error
}

// HTTPProvider talks to a GoTrue-compatible auth service over its admin and
// token endpoints.
type HTTPProvider struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

func NewHTTPProvider(baseURL, serviceKey string) *HTTPProvider {
	return &HTTPProvider{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *HTTPProvider) CreateUser(ctx context.Context, email, password string) (uuid.UUID, error) {
	body := map[string]any{
		"email":         email,
		"password":      password,
		"email_confirm": true,
	}

	var out struct {
		ID uuid.UUID `json:"id"`
	}
	if err := p.do(ctx, http.MethodPost, "/admin/users", body, &out); err != nil {
		return uuid.Nil, err
	}
	if out.ID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("auth provider returned no user id")
	}
	return out.ID, nil
}

func (p *HTTPProvider) DeleteUser(ctx context.Context, authID uuid.UUID) error {
	return p.do(ctx, http.MethodDelete, "/admin/users/"+authID.String(), nil, nil)
}

func (p *HTTPProvider) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
	}

	var sess Session
	err := p.do(ctx, http.MethodPost, "/token?grant_type=password", body, &sess)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && (se.code == http.StatusBadRequest || se.code == http.StatusUnauthorized) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return &sess, nil
}

func (p *HTTPProvider) SendRecovery(ctx context.Context, email string) error {
	return p.do(ctx, http.MethodPost, "/recover", map[string]any{"email": email}, nil)
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%v: status %d: %s", ErrProviderRejected, e.code, e.body)
}

func (e *statusError) Unwrap() error { return ErrProviderRejected }

func (p *HTTPProvider) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal auth request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.serviceKey)
	req.Header.Set("apikey", p.serviceKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("call auth provider: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read auth response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &statusError{code: resp.StatusCode, body: string(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode auth response: %w", err)
		}
	}
	return nil
}
