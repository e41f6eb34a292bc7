// Package chat runs the send protocol for a user turn.
//
// An Orchestrator is Idle or Sending. Submit admits a send only when Idle,
// a conversation is active and the draft is not blank; anything else is
// declined with ErrBusy or ErrEmptyInput and changes nothing. An admitted
// send:
//
//  1. appends the user message to the store before any network activity
//  2. clears the draft
//  3. composes the context from the history as it was before step 1
//  4. calls the gateway
//  5. appends the agent reply, or on any failure appends ErrorReplyText and
//     sets LastMessage to ErrorMarker
//  6. returns to Idle, whichever branch ran
//
// In-flight sends cannot be cancelled; a timeout is the gateway's concern
// and surfaces as a failure.
package chat
