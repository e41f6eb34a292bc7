// ABOUTME: Tests for the interactive chat loop
// ABOUTME: Feeds scripted input through the loop against an in-memory store and stub gateway

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lyzr-Apps/ultimate-super-space/internal/chat"
	"github.com/Lyzr-Apps/ultimate-super-space/internal/conversation"
	"github.com/Lyzr-Apps/ultimate-super-space/internal/store"
)

type stubGateway struct {
	mu    sync.Mutex
	reply string
	err   error
	sent  []string

	// When block is set, Send closes entered and waits for block to close.
	block   chan struct{}
	entered chan struct{}
}

func (g *stubGateway) Send(ctx context.Context, message, sessionID string) (string, error) {
	g.mu.Lock()
	g.sent = append(g.sent, message)
	g.mu.Unlock()

	if g.block != nil {
		close(g.entered)
		<-g.block
	}
	return g.reply, g.err
}

func (g *stubGateway) sentCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sent)
}

// syncBuffer is an output sink safe to read while the loop writes to it
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestApp(t *testing.T, input string, gw *stubGateway) (*app, *syncBuffer) {
	t.Helper()
	return newTestAppFrom(t, strings.NewReader(input), gw)
}

func newTestAppFrom(t *testing.T, in io.Reader, gw *stubGateway) (*app, *syncBuffer) {
	t.Helper()
	color.NoColor = true

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	convs := conversation.Open(context.Background(), store.NewMemoryStore(), logger)
	t.Cleanup(convs.Close)

	out := &syncBuffer{}
	return newApp(in, out, convs, chat.New(convs, gw, logger)), out
}

func TestRunSendsAndPrintsReply(t *testing.T) {
	gw := &stubGateway{reply: "**hi** there"}
	a, out := newTestApp(t, "/new\nhello\n", gw)

	require.NoError(t, a.run(context.Background()))

	assert.Contains(t, out.String(), "hi there")
	require.Len(t, gw.sent, 1)
	assert.Equal(t, "hello", gw.sent[0])

	c := a.convs.Active()
	require.NotNil(t, c)
	require.Len(t, c.Messages, 2)
	assert.Equal(t, "hello", c.Title)
	assert.Equal(t, "**hi** there", c.LastMessage)
}

func TestRunWithoutConversationDoesNotSend(t *testing.T) {
	gw := &stubGateway{reply: "unused"}
	a, out := newTestApp(t, "hello\n", gw)

	require.NoError(t, a.run(context.Background()))

	assert.Empty(t, gw.sent)
	assert.Contains(t, out.String(), "No conversation selected")
}

func TestRunGatewayFailureShowsPlaceholder(t *testing.T) {
	gw := &stubGateway{err: errors.New("connection refused")}
	a, out := newTestApp(t, "/new\nhello\n/list\n", gw)

	require.NoError(t, a.run(context.Background()))

	assert.Contains(t, out.String(), chat.ErrorReplyText)
	assert.Contains(t, out.String(), chat.ErrorMarker)
	assert.Equal(t, chat.ErrorMarker, a.convs.Active().LastMessage)
}

func TestRunQuitStopsReading(t *testing.T) {
	gw := &stubGateway{reply: "ok"}
	a, _ := newTestApp(t, "/new\n/quit\nhello\n", gw)

	require.NoError(t, a.run(context.Background()))
	assert.Empty(t, gw.sent)
}

func TestListFilterAndUse(t *testing.T) {
	gw := &stubGateway{reply: "ok"}
	a, out := newTestApp(t, "/new\nalpha topic\n/new\nbeta topic\n/list ALPHA\n/use 1\n", gw)

	require.NoError(t, a.run(context.Background()))

	assert.Contains(t, out.String(), "1. alpha topic")
	assert.NotContains(t, out.String(), "2. ")
	assert.Equal(t, "alpha topic", a.convs.Active().Title)
}

func TestDeleteByIndex(t *testing.T) {
	gw := &stubGateway{reply: "ok"}
	a, _ := newTestApp(t, "/new\n/new\n/list\n/delete 2\n", gw)

	require.NoError(t, a.run(context.Background()))
	assert.Equal(t, 1, a.convs.Len())
}

func TestResolveRejectsUnknown(t *testing.T) {
	a, _ := newTestApp(t, "", &stubGateway{})

	_, ok := a.resolve("")
	assert.False(t, ok)
	_, ok = a.resolve("3")
	assert.False(t, ok)
	_, ok = a.resolve("no-such-id")
	assert.False(t, ok)

	id := a.convs.Create()
	got, ok := a.resolve(id)
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestUnknownCommand(t *testing.T) {
	a, out := newTestApp(t, "/bogus\n", &stubGateway{})

	require.NoError(t, a.run(context.Background()))
	assert.Contains(t, out.String(), "Unknown command /bogus")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

func TestRunReportsReadError(t *testing.T) {
	readErr := errors.New("terminal gone")
	in := io.MultiReader(strings.NewReader("/help\n"), iotest.ErrReader(readErr))
	a, out := newTestAppFrom(t, in, &stubGateway{})

	err := a.run(context.Background())
	require.ErrorIs(t, err, readErr)
	assert.Contains(t, out.String(), "Commands:")
}

func TestRunInterruptWaitsForPendingReply(t *testing.T) {
	gw := &stubGateway{
		reply:   "late answer",
		block:   make(chan struct{}),
		entered: make(chan struct{}),
	}
	a, out := newTestApp(t, "/new\nhello\n", gw)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- a.run(ctx) }()

	<-gw.entered
	cancel()

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Reply still pending")
	}, time.Second, 10*time.Millisecond)

	select {
	case <-runErr:
		t.Fatal("loop returned before the reply arrived")
	default:
	}

	close(gw.block)
	select {
	case err := <-runErr:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after the reply arrived")
	}

	assert.Contains(t, out.String(), "late answer")
	c := a.convs.Active()
	require.NotNil(t, c)
	assert.Len(t, c.Messages, 2)
}

func TestSendWhileBusyIsDeclined(t *testing.T) {
	gw := &stubGateway{
		reply:   "ok",
		block:   make(chan struct{}),
		entered: make(chan struct{}),
	}
	a, out := newTestApp(t, "", gw)
	a.convs.Create()

	a.orch.SetDraft("first")
	done, err := a.orch.SubmitAsync(context.Background())
	require.NoError(t, err)
	<-gw.entered

	a.send(context.Background(), "second")
	assert.Contains(t, out.String(), "Still waiting for the previous reply")

	close(gw.block)
	<-done
	assert.Equal(t, 1, gw.sentCount())
	assert.False(t, a.orch.Busy())
}

func TestCreateAndDeleteResetListedNumbers(t *testing.T) {
	a, out := newTestApp(t, "/new\n/new\n/list\n/new\n/use 1\n", &stubGateway{})

	require.NoError(t, a.run(context.Background()))

	assert.Contains(t, out.String(), `No conversation "1"`)
	assert.Equal(t, a.convs.List()[0].ID, a.convs.ActiveID())
}

func TestReplyForOtherConversationIsAnnounced(t *testing.T) {
	a, out := newTestApp(t, "", &stubGateway{})
	a.events = a.convs.Subscribe(t.Context(), "")

	other := a.convs.Create()
	a.convs.AppendMessage(other, conversation.NewMessage(conversation.SenderUser, "background topic"))
	a.convs.Create()
	a.convs.AppendMessage(other, conversation.NewMessage(conversation.SenderAgent, "done"))

	a.drain()
	assert.Contains(t, out.String(), `New reply in "background topic"`)
	assert.NotContains(t, out.String(), "agent ›")
}
