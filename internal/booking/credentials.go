package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teemow/agendabot/internal/calendar"
	"github.com/teemow/agendabot/internal/google"
	"github.com/teemow/agendabot/internal/logging"
	"github.com/teemow/agendabot/internal/store"
)

// DefaultCalendarID is used when a business has not chosen a calendar.
const DefaultCalendarID = "primary"

// Credential is the resolved calendar credential of a business. It is
// rebuilt on every resolution and never persisted.
type Credential struct {
	BusinessID   string
	BusinessName string
	RefreshToken string
	AccessToken  string
	Expiry       *time.Time
	CalendarID   string
	OAuth        google.OAuthSettings
}

// ResolveCredential loads the business's calendar credential and checks
// that it is usable.
func (e *Engine) ResolveCredential(ctx context.Context, businessID string) (*Credential, error) {
	logger := logging.WithBusiness(e.logger, businessID)

	cfg, err := e.store.GetBusinessConfig(ctx, businessID)
	if errors.Is(err, store.ErrNotFound) {
		logger.Info("calendar credential unavailable", "reason", CodeBusinessNotFound)
		return nil, CredentialError(CodeBusinessNotFound, "business %s is not configured", businessID)
	}
	if err != nil {
		return nil, PersistenceError("read_failed", err, "failed to load business configuration")
	}

	var reason string
	switch {
	case !cfg.CalendarEnabled:
		reason = CodeCalendarDisabled
	case cfg.NeedsReauth:
		reason = CodeNeedsReauth
	case cfg.RefreshToken == "":
		reason = CodeMissingRefreshToken
	}
	if reason != "" {
		logger.Info("calendar credential unavailable", "reason", reason)
		return nil, CredentialError(reason, "calendar credential unavailable: %s", reason)
	}

	if err := e.oauth.Validate(); err != nil {
		logger.Error("calendar oauth client is not configured", logging.Err(err))
		return nil, ConfigurationError("oauth_not_configured", err, "calendar integration is not configured")
	}

	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}
	return &Credential{
		BusinessID:   cfg.ID,
		BusinessName: cfg.Name,
		RefreshToken: cfg.RefreshToken,
		AccessToken:  cfg.AccessToken,
		Expiry:       cfg.TokenExpiry,
		CalendarID:   calendarID,
		OAuth:        e.oauth,
	}, nil
}

// MarkNeedsReauth flags the business's credential as rejected. Marking an
// already flagged business has no further effect.
func (e *Engine) MarkNeedsReauth(ctx context.Context, businessID string) error {
	if err := e.store.MarkCalendarNeedsReauth(ctx, businessID, e.now()); err != nil {
		return fmt.Errorf("failed to mark calendar for re-authorization: %w", err)
	}
	e.metrics.RecordReauthMarked(ctx)
	e.logger.Warn("calendar marked as needing re-authorization", logging.Business(businessID))
	return nil
}

// provider builds a calendar client authorized by cred.
func (e *Engine) provider(ctx context.Context, cred *Credential) (calendar.Provider, error) {
	ts := google.TokenSource(ctx, cred.OAuth, google.StoredToken{
		RefreshToken: cred.RefreshToken,
		AccessToken:  cred.AccessToken,
		Expiry:       cred.Expiry,
	})
	p, err := e.calendars.NewProvider(ctx, ts)
	if err != nil {
		return nil, ExternalProviderError("client_failed", err, "failed to create calendar client")
	}
	return p, nil
}

// providerFailure converts a calendar error into an *Error, flagging the
// credential when the provider rejected it.
func (e *Engine) providerFailure(ctx context.Context, businessID, operation string, err error) *Error {
	if calendar.IsAuthError(err) {
		if markErr := e.MarkNeedsReauth(ctx, businessID); markErr != nil {
			e.logger.Error("failed to flag rejected credential",
				logging.Business(businessID), logging.Err(markErr))
		}
		return ExternalProviderError(CodeAuthRejected, err, "calendar rejected the credential during %s", operation)
	}
	return ExternalProviderError("provider_error", err, "calendar %s failed", operation)
}
