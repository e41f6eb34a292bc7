// ABOUTME: Send Orchestrator - the Idle/Sending state machine behind every user turn
// ABOUTME: Optimistic user append, composed context, gateway call, then exactly one reply or error placeholder

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/Lyzr-Apps/ultimate-super-space/internal/composer"
	"github.com/Lyzr-Apps/ultimate-super-space/internal/conversation"
)

// ErrorReplyText is the agent message appended when a send fails
const ErrorReplyText = "Sorry, I encountered an error processing your request. Please try again."

// ErrorMarker replaces LastMessage after a failed send
const ErrorMarker = "Error occurred"

var (
	// ErrBusy is returned when a send is already in flight. Nothing changes.
	ErrBusy = errors.New("send already in progress")

	// ErrEmptyInput is returned for blank input or when no conversation is
	// active. Nothing changes.
	ErrEmptyInput = errors.New("empty input or no active conversation")
)

// State is the orchestrator's admission state
type State int

const (
	Idle State = iota
	Sending
)

func (s State) String() string {
	if s == Sending {
		return "sending"
	}
	return "idle"
}

// ConversationStore is what the orchestrator needs from the store
type ConversationStore interface {
	Active() *conversation.Conversation
	AppendMessage(conversationID string, msg *conversation.Message) bool
	MarkError(conversationID, marker string) bool
}

// Gateway sends composed text for a session and returns the reply text
type Gateway interface {
	Send(ctx context.Context, message, sessionID string) (string, error)
}

// Result describes one completed send
type Result struct {
	ConversationID string
	UserMessage    *conversation.Message
	Reply          *conversation.Message

	// Err is the gateway or internal failure when the error placeholder
	// was appended instead of a reply.
	Err error
}

// Failed reports whether the error placeholder was appended
func (r *Result) Failed() bool {
	return r.Err != nil
}

// Orchestrator runs at most one send at a time. A send while another is in
// flight is rejected with ErrBusy, never queued.
type Orchestrator struct {
	store   ConversationStore
	gateway Gateway
	logger  *slog.Logger

	slot *semaphore.Weighted
	busy atomic.Bool

	mu    sync.Mutex
	draft string
}

// New creates an Orchestrator. Pass nil logger for default.
func New(store ConversationStore, gateway Gateway, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:   store,
		gateway: gateway,
		logger:  logger.With("component", "chat"),
		slot:    semaphore.NewWeighted(1),
	}
}

// State returns Sending while a send is in flight, otherwise Idle.
func (o *Orchestrator) State() State {
	if o.busy.Load() {
		return Sending
	}
	return Idle
}

// Busy reports whether a send is in flight.
func (o *Orchestrator) Busy() bool {
	return o.State() == Sending
}

// SetDraft replaces the pending-input buffer.
func (o *Orchestrator) SetDraft(text string) {
	o.mu.Lock()
	o.draft = text
	o.mu.Unlock()
}

// Draft returns the pending-input buffer.
func (o *Orchestrator) Draft() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.draft
}

// Send sets the draft to text and submits it.
func (o *Orchestrator) Send(ctx context.Context, text string) (*Result, error) {
	o.SetDraft(text)
	return o.Submit(ctx)
}

// Submit sends the draft to the active conversation and waits for the
// reply. It returns ErrBusy or ErrEmptyInput when the send is declined;
// otherwise the send always completes, appending the user message and
// exactly one follow-up message.
func (o *Orchestrator) Submit(ctx context.Context) (*Result, error) {
	p, err := o.begin()
	if err != nil {
		return nil, err
	}
	return o.finish(ctx, p), nil
}

// SubmitAsync admits the send and appends the user message before
// returning, then waits for the gateway on a goroutine. The channel
// receives exactly one Result and is then closed.
func (o *Orchestrator) SubmitAsync(ctx context.Context) (<-chan *Result, error) {
	p, err := o.begin()
	if err != nil {
		return nil, err
	}
	done := make(chan *Result, 1)
	go func() {
		defer close(done)
		done <- o.finish(ctx, p)
	}()
	return done, nil
}

// pendingSend is a send that has been admitted and optimistically applied
type pendingSend struct {
	conversationID string
	history        []*conversation.Message
	userMessage    *conversation.Message
}

// begin performs admission and the optimistic update. On success the slot
// is held and must be released by finish.
func (o *Orchestrator) begin() (*pendingSend, error) {
	if !o.slot.TryAcquire(1) {
		o.logger.Debug("send rejected, already sending")
		return nil, ErrBusy
	}
	o.busy.Store(true)

	text := strings.TrimSpace(o.Draft())
	conv := o.store.Active()
	if text == "" || conv == nil {
		o.release()
		return nil, ErrEmptyInput
	}

	// History is captured before the append so the composer never sees the
	// triggering message twice.
	p := &pendingSend{
		conversationID: conv.ID,
		history:        conv.Messages,
		userMessage:    conversation.NewMessage(conversation.SenderUser, text),
	}
	if !o.store.AppendMessage(conv.ID, p.userMessage) {
		o.release()
		return nil, ErrEmptyInput
	}
	o.SetDraft("")

	o.logger.Debug("user message appended",
		"conversation_id", p.conversationID,
		"message_id", p.userMessage.ID)
	return p, nil
}

// finish composes, calls the gateway and appends the outcome. The slot is
// released on every path.
func (o *Orchestrator) finish(ctx context.Context, p *pendingSend) (res *Result) {
	defer o.release()

	res = &Result{
		ConversationID: p.conversationID,
		UserMessage:    p.userMessage,
	}

	text, err := o.exchange(context.WithoutCancel(ctx), p)
	if err != nil {
		o.logger.Error("agent send failed",
			"conversation_id", p.conversationID,
			"error", err)
		res.Err = err
		res.Reply = conversation.NewMessage(conversation.SenderAgent, ErrorReplyText)
		o.store.AppendMessage(p.conversationID, res.Reply)
		o.store.MarkError(p.conversationID, ErrorMarker)
		return res
	}

	res.Reply = conversation.NewMessage(conversation.SenderAgent, text)
	o.store.AppendMessage(p.conversationID, res.Reply)
	o.logger.Debug("agent reply appended",
		"conversation_id", p.conversationID,
		"message_id", res.Reply.ID)
	return res
}

// exchange builds the context and calls the gateway, turning a panic in
// either into an error.
func (o *Orchestrator) exchange(ctx context.Context, p *pendingSend) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("send panicked: %v", r)
		}
	}()

	composed := composer.BuildContext(p.history, p.userMessage.Text)
	return o.gateway.Send(ctx, composed, p.conversationID)
}

func (o *Orchestrator) release() {
	o.busy.Store(false)
	o.slot.Release(1)
}
