// Package agent drives conversational-agent runs for inbound messages.
//
// A Dispatcher finds or creates the sender's thread, appends the message,
// starts a run with the router's operations as function tools and follows
// the run until it completes. Whenever the run asks for tool calls, every
// call is answered through the router, so the run is never left waiting.
//
// Service abstracts the agent platform; OpenAIService implements it on the
// OpenAI Assistants API.
package agent
