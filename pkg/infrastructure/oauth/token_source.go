package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GmailSendScope is the only scope the notifier needs.
const GmailSendScope = "https://www.googleapis.com/auth/gmail.send"

// RefreshExchanger trades a stored refresh token for a short-lived access
// token. It keeps no token state: every Exchange performs a new refresh.
type RefreshExchanger struct {
	Endpoint oauth2.Endpoint
	// HTTPClient is used for the token request; nil means a client with a
	// 30s timeout.
	HTTPClient *http.Client
}

// NewGoogleExchanger returns an exchanger for Google's token endpoint.
func NewGoogleExchanger() *RefreshExchanger {
	return &RefreshExchanger{Endpoint: google.Endpoint}
}

// Config builds the OAuth2 client configuration for the given app credentials.
func (e *RefreshExchanger) Config(clientID, clientSecret string, scopes ...string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     e.Endpoint,
		Scopes:       scopes,
	}
}

// Exchange performs one refresh-token grant.
func (e *RefreshExchanger) Exchange(ctx context.Context, clientID, clientSecret, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, errors.New("refresh token is empty")
	}

	httpClient := e.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)

	// A token with no access token is never valid, so the source refreshes
	// on the first call.
	src := e.Config(clientID, clientSecret, GmailSendScope).TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return nil, fmt.Errorf("refresh failed with status %d: %s", re.Response.StatusCode, re.ErrorCode)
		}
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	return tok, nil
}
