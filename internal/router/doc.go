// Package router maps operation names requested by the conversational agent
// (or an MCP client, or the CLI) to booking engine calls.
//
// Every call returns an Envelope: a JSON object with "success" plus the
// operation's fields, or "success": false with "error" and "error_kind".
// Unknown names, malformed arguments, engine failures and panics all come
// back as envelopes, so a caller always has exactly one answer per call.
package router
