// Package calendar is the external calendar provider used by the booking
// engine.
//
// The engine depends only on the Provider interface: list events in a time
// window, insert an event and delete an event. GoogleFactory builds a
// Google Calendar implementation per business credential from an OAuth2
// token source; every call is traced and counted through the
// instrumentation package.
//
// IsAuthError recognizes provider failures that mean the stored credential
// was rejected, so callers can flag the business for re-authorization.
package calendar
