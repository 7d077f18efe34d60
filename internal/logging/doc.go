// Package logging provides structured logging utilities for agendabot.
//
// All components log through log/slog. This package builds the process
// logger and centralizes attribute naming so that log lines from the
// booking engine, the router and the dispatch loop can be correlated.
//
// # Usage Patterns
//
//	logger := logging.WithBusiness(slog.Default(), businessID)
//	logger.Info("booking created",
//	    logging.Operation("create_calendar_event"),
//	    logging.PhoneHash(phone))
//
// # Security Considerations
//
//   - Customer phone numbers are hashed before they reach a log line
//   - OAuth tokens are never logged, only their length
package logging
