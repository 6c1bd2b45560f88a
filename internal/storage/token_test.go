package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticTokenUsesConfiguredWorkspace(t *testing.T) {
	p, err := NewStaticToken("opaque-token", "acme")
	require.NoError(t, err)

	s, err := p.Exchange(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Session{Token: "opaque-token", Workspace: "acme"}, s)
}

func TestStaticTokenReadsWorkspaceClaim(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"workspace": "ws-42",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	p, err := NewStaticToken(token, "")
	require.NoError(t, err)
	s, err := p.Exchange(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ws-42", s.Workspace)
}

func TestStaticTokenRejectsMissingWorkspace(t *testing.T) {
	_, err := NewStaticToken("", "acme")
	assert.Error(t, err)

	_, err = NewStaticToken("not-a-jwt", "")
	assert.Error(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = NewStaticToken(token, "")
	assert.Error(t, err)
}

type fakeAccounts struct {
	t        *testing.T
	password string
	methods  []string
}

func (f *fakeAccounts) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string            `json:"method"`
		Params map[string]string `json:"params"`
	}
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
	f.methods = append(f.methods, req.Method)

	switch req.Method {
	case "login":
		if req.Params["password"] != f.password {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"code": "platform:status:Unauthorized", "message": "Invalid password"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]string{"token": "account-token"}})
	case "selectWorkspace":
		if r.Header.Get("Authorization") != "Bearer account-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]string{
			"token":     "workspace-token",
			"workspace": "ws-uuid-" + req.Params["workspaceUrl"],
		}})
	default:
		http.Error(w, "unknown method", http.StatusBadRequest)
	}
}

func TestAccountsClientExchange(t *testing.T) {
	accounts := &fakeAccounts{t: t, password: "hunter2"}
	srv := httptest.NewServer(accounts)
	defer srv.Close()

	c := NewAccountsClient(srv.URL, "me@example.com", "hunter2", "acme", nil)
	s, err := c.Exchange(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Session{Token: "workspace-token", Workspace: "ws-uuid-acme"}, s)
	assert.Equal(t, []string{"login", "selectWorkspace"}, accounts.methods)
}

func TestAccountsClientBadPasswordIsAuthFailure(t *testing.T) {
	srv := httptest.NewServer(&fakeAccounts{t: t, password: "hunter2"})
	defer srv.Close()

	_, err := NewAccountsClient(srv.URL, "me@example.com", "wrong", "acme", nil).Exchange(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuthFailure(err), err.Error())
}

func TestAccountsClientServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewAccountsClient(srv.URL, "me@example.com", "pw", "acme", nil).Exchange(context.Background())
	require.Error(t, err)
	assert.False(t, IsAuthFailure(err), err.Error())
}
