package sso

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestAuthCodeURL(t *testing.T) {
	p := NewProvider(ProviderConfig{
		ClientID:    "client-1",
		AuthURL:     "https://idp.example.com/authorize",
		TokenURL:    "https://idp.example.com/token",
		RedirectURL: "https://edushield.example.com/api/v1/auth/callback",
		Scopes:      []string{"openid", "email"},
	})
	require.True(t, p.Enabled())

	u, err := url.Parse(p.AuthCodeURL("state-123"))
	require.NoError(t, err)
	assert.Equal(t, "idp.example.com", u.Host)
	assert.Equal(t, "state-123", u.Query().Get("state"))
	assert.Equal(t, "client-1", u.Query().Get("client_id"))
}

func TestProviderDisabledWithoutConfig(t *testing.T) {
	assert.False(t, NewProvider(ProviderConfig{}).Enabled())
}

func TestGenerateState(t *testing.T) {
	state, err := GenerateState()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), state)

	other, err := GenerateState()
	require.NoError(t, err)
	assert.NotEqual(t, state, other)
}

func TestFetchUserInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"sub":   "ext-1",
			"name":  "Pat Example",
			"email": "pat@example.edu",
		})
	}))
	defer srv.Close()

	p := NewProvider(ProviderConfig{
		ClientID:    "client-1",
		AuthURL:     srv.URL + "/authorize",
		TokenURL:    srv.URL + "/token",
		UserInfoURL: srv.URL + "/userinfo",
	})

	info, err := p.FetchUserInfo(context.Background(), &oauth2.Token{AccessToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, "ext-1", info.Subject)
	assert.Equal(t, "Pat Example", info.Name)
	assert.Equal(t, "pat@example.edu", info.Email)
}

func TestFetchUserInfoMissingSubject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"name": "No Subject"})
	}))
	defer srv.Close()

	p := NewProvider(ProviderConfig{
		ClientID:    "client-1",
		AuthURL:     srv.URL + "/authorize",
		TokenURL:    srv.URL + "/token",
		UserInfoURL: srv.URL + "/userinfo",
	})

	_, err := p.FetchUserInfo(context.Background(), &oauth2.Token{AccessToken: "tok"})
	assert.Error(t, err)
}
