package google

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// CalendarScopes are the OAuth scopes requested when a business connects
// its calendar.
var CalendarScopes = []string{
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/calendar.events",
}

// placeholder values shipped in sample env files.
var placeholders = map[string]bool{
	"YOUR_CLIENT_ID":     true,
	"YOUR_CLIENT_SECRET": true,
	"YOUR_REDIRECT_URI":  true,
}

// ErrNotConfigured is returned by Validate when settings are absent or
// still hold placeholder values.
var ErrNotConfigured = errors.New("google oauth client is not configured")

// OAuthSettings identifies the OAuth client registered with Google.
type OAuthSettings struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Validate reports which settings are missing or placeholders.
func (s OAuthSettings) Validate() error {
	var problems []string
	check := func(name, value string) {
		v := strings.TrimSpace(value)
		switch {
		case v == "":
			problems = append(problems, name+" is empty")
		case placeholders[v]:
			problems = append(problems, name+" is a placeholder")
		}
	}
	check("GOOGLE_CLIENT_ID", s.ClientID)
	check("GOOGLE_CLIENT_SECRET", s.ClientSecret)
	check("GOOGLE_REDIRECT_URI", s.RedirectURI)

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrNotConfigured, strings.Join(problems, ", "))
	}
	return nil
}

// Config returns the oauth2 configuration for the Google endpoint.
func (s OAuthSettings) Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		RedirectURL:  s.RedirectURI,
		Endpoint:     google.Endpoint,
		Scopes:       CalendarScopes,
	}
}

// StoredToken is the credential material persisted for a business.
type StoredToken struct {
	RefreshToken string
	AccessToken  string
	Expiry       *time.Time
}

// Token converts the stored fields to an oauth2 token. A missing expiry is
// treated as already expired so the first call refreshes.
func (t StoredToken) Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    "Bearer",
	}
	if t.Expiry != nil {
		tok.Expiry = *t.Expiry
	} else {
		tok.Expiry = time.Unix(1, 0)
	}
	return tok
}

// TokenSource returns a refreshing token source for a stored credential.
func TokenSource(ctx context.Context, settings OAuthSettings, stored StoredToken) oauth2.TokenSource {
	return settings.Config().TokenSource(ctx, stored.Token())
}
