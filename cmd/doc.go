// Package cmd implements the command-line interface for agendabot.
//
// This package provides the following commands:
//   - serve: Start the MCP server exposing the booking operations as tools
//   - chat: Answer customer messages through the conversational agent
//   - call: Invoke one booking operation and print its result
//   - hours: Show or import a business's weekly opening hours
//   - migrate: Apply the database migrations
//   - generate-docs: Generate markdown documentation for all operations
//   - version: Display version information
package cmd
