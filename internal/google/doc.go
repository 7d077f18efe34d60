// Package google holds the Google OAuth client settings agendabot uses to
// refresh each business's stored calendar credential.
//
// Every business authorizes its own calendar once through the setup flow;
// agendabot only keeps the refresh token and builds a token source from it
// on demand.
package google
