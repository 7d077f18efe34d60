package calendar

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// authErrorPatterns are substrings of provider or token-refresh errors that
// mean the stored credential is no longer accepted.
var authErrorPatterns = []string{
	"invalid_grant",
	"invalid credentials",
	"no access",
	"refresh token",
	"unauthorized_client",
	"invalid_client",
}

// IsAuthError reports whether err means the business's credential was
// rejected and needs re-authorization.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
		return true
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		switch retrieveErr.ErrorCode {
		case "invalid_grant", "unauthorized_client", "invalid_client":
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, p := range authErrorPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsGone reports whether err means the event no longer exists upstream.
func IsGone(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
	}
	return false
}
