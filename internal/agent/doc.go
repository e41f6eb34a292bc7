// Package agent is the gateway to the remote inference endpoint.
//
// # Overview
//
// One user turn is one HTTP POST. The body carries the composed context,
// the configured agent and user identifiers, and the conversation ID as the
// session correlator:
//
//	{"message": "...", "agent_id": "...", "user_id": "...", "session_id": "<conversation id>"}
//
// # Responses
//
// Endpoints fill different subsets of an optional-field record:
//
//	{"success": bool, "response": {"result"|"answer"|"response": ...} | "text", "raw_response": "..."}
//
// Normalize picks the first non-empty candidate in a fixed order (see its
// doc comment). An absent success flag counts as success.
//
// # Errors
//
// Network failures, non-2xx statuses and undecodable bodies are returned as
// *TransportError. Nothing is retried and no partial text is returned; the
// caller decides how to recover.
package agent
