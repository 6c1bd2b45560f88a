package storage

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

	"github.com/golang-jwt/jwt/v5"
)

// Session is a workspace-scoped credential returned by a TokenProvider.
type Session struct {
	Token     string
	Workspace string
}

// TokenProvider exchanges configured credentials for a Session.
type TokenProvider interface {
	Exchange(ctx context.Context) (Session, error)
}

// TokenProviderFunc adapts a function to TokenProvider.
type TokenProviderFunc func(ctx context.Context) (Session, error)

func (f TokenProviderFunc) Exchange(ctx context.Context) (Session, error) { return f(ctx) }

// FixedSession returns a provider that always yields s. Used by backends that
// authenticate with static keys rather than a platform token.
func FixedSession(s Session) TokenProvider {
	return TokenProviderFunc(func(context.Context) (Session, error) { return s, nil })
}

// NewStaticToken wraps a pre-issued workspace token. When workspace is empty it
// is taken from the token's "workspace" claim; the signature is not checked
// here, the backend does that on every write.
func NewStaticToken(token, workspace string) (TokenProvider, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("token is required")
	}
	workspace = strings.TrimSpace(workspace)
	if workspace == "" {
		ws, err := workspaceClaim(token)
		if err != nil {
			return nil, err
		}
		workspace = ws
	}
	return FixedSession(Session{Token: token, Workspace: workspace}), nil
}

func workspaceClaim(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("parse token claims: %w", err)
	}
	ws, _ := claims["workspace"].(string)
	if strings.TrimSpace(ws) == "" {
		return "", errors.New("token carries no workspace claim")
	}
	return ws, nil
}

// AccountsClient logs in to the platform accounts service and selects a
// workspace, yielding a workspace-scoped token.
type AccountsClient struct {
	url       string
	email     string
	password  string
	workspace string
	client    *http.Client
}

// NewAccountsClient returns a TokenProvider backed by the accounts service at
// accountsURL.
func NewAccountsClient(accountsURL, email, password, workspace string, client *http.Client) *AccountsClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &AccountsClient{
		url:       strings.TrimSpace(accountsURL),
		email:     email,
		password:  password,
		workspace: workspace,
		client:    client,
	}
}

type rpcRequest struct {
	Method string `json:"method"`
	Params any    `json:"params"`
}

type rpcError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type loginResult struct {
	Token string `json:"token"`
}

type selectWorkspaceResult struct {
	Token     string `json:"token"`
	Workspace string `json:"workspace"`
}

// Exchange performs login followed by selectWorkspace.
func (c *AccountsClient) Exchange(ctx context.Context) (Session, error) {
	var login loginResult
	err := c.call(ctx, "", "login", map[string]string{
		"email":    c.email,
		"password": c.password,
	}, &login)
	if err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}
	if login.Token == "" {
		return Session{}, errors.New("login failed: accounts service returned no token")
	}

	var ws selectWorkspaceResult
	err = c.call(ctx, login.Token, "selectWorkspace", map[string]string{
		"workspaceUrl": c.workspace,
		"kind":         "external",
	}, &ws)
	if err != nil {
		return Session{}, fmt.Errorf("select workspace %q: %w", c.workspace, err)
	}
	if ws.Token == "" {
		return Session{}, fmt.Errorf("select workspace %q: empty token", c.workspace)
	}
	if ws.Workspace == "" {
		ws.Workspace = c.workspace
	}
	return Session{Token: ws.Token, Workspace: ws.Workspace}, nil
}

func (c *AccountsClient) call(ctx context.Context, token, method string, params, out any) error {
	body, err := json.Marshal(rpcRequest{Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("accounts service returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var envelope rpcResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if envelope.Error != nil {
		msg := strings.TrimSpace(envelope.Error.Message)
		if msg == "" {
			msg = envelope.Error.Code
		}
		return errors.New(msg)
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}
