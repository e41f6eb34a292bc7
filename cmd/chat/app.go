// ABOUTME: Interactive read-eval loop over the conversation store and send orchestrator
// ABOUTME: Slash commands manage conversations; any other line is sent to the agent

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/Lyzr-Apps/ultimate-super-space/internal/chat"
	"github.com/Lyzr-Apps/ultimate-super-space/internal/conversation"
	"github.com/Lyzr-Apps/ultimate-super-space/internal/render"
)

// previewLen bounds the last-message preview in /list
const previewLen = 40

type app struct {
	in    io.Reader
	out   io.Writer
	convs *conversation.Store
	orch  *chat.Orchestrator

	// lastList remembers the IDs shown by the latest /list so commands can
	// refer to conversations by their listed number. Store events that
	// reorder the collection reset it.
	lastList []string

	events <-chan conversation.Event
}

func newApp(in io.Reader, out io.Writer, convs *conversation.Store, orch *chat.Orchestrator) *app {
	return &app{in: in, out: out, convs: convs, orch: orch}
}

// inputLine is one line read from the user, or the error that ended input
type inputLine struct {
	text string
	err  error
}

func (a *app) run(ctx context.Context) error {
	// The subscription outlives an interrupt so a reply still in flight is
	// shown before the loop exits.
	watchCtx, stopWatching := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWatching()
	a.events = a.convs.Subscribe(watchCtx, "")

	scanner := bufio.NewScanner(a.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	// lines is closed only on clean EOF; a read error is delivered as a value
	// so it can never be mistaken for end of input.
	lines := make(chan inputLine, 1)
	next := make(chan struct{}, 1)

	go func() {
		for range next {
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					lines <- inputLine{err: err}
					return
				}
				close(lines)
				return
			}
			lines <- inputLine{text: scanner.Text()}
		}
	}()
	defer close(next)

	for {
		a.drain()
		a.prompt()
		next <- struct{}{}

		var input string
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line.err != nil {
				return fmt.Errorf("reading input: %w", line.err)
			}
			input = line.text
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := a.command(input); quit {
				return nil
			}
			fmt.Fprintln(a.out)
			continue
		}

		a.send(ctx, input)
		fmt.Fprintln(a.out)
	}
}

// drain applies every store event received since the last call.
func (a *app) drain() {
	for a.events != nil {
		select {
		case ev, ok := <-a.events:
			if !ok {
				a.events = nil
				return
			}
			a.apply(ev)
		default:
			return
		}
	}
}

func (a *app) apply(ev conversation.Event) {
	switch ev.Type {
	case conversation.EventCreated, conversation.EventDeleted:
		// Listed numbers no longer match the collection.
		a.lastList = nil
	case conversation.EventAppended:
		if ev.Message == nil || ev.Message.Sender != conversation.SenderAgent {
			return
		}
		if ev.ConversationID == a.convs.ActiveID() {
			a.printMessage(ev.Message)
			return
		}
		if c := a.convs.Get(ev.ConversationID); c != nil {
			fmt.Fprintln(a.out, color.HiBlackString("New reply in %q", c.Title))
		}
	}
}

func (a *app) prompt() {
	c := a.convs.Active()
	if c == nil {
		fmt.Fprint(a.out, "> ")
		return
	}
	fmt.Fprintf(a.out, "[%s]> ", truncate(c.Title, 24))
}

// command runs a slash command and reports whether the loop should exit.
func (a *app) command(input string) bool {
	name, args, _ := strings.Cut(input, " ")
	args = strings.TrimSpace(args)

	switch name {
	case "/quit", "/exit", "/q":
		return true
	case "/help":
		a.printHelp()
	case "/new":
		a.convs.Create()
		fmt.Fprintln(a.out, color.GreenString("Started a new conversation"))
	case "/list", "/ls":
		a.list(args)
	case "/use":
		id, ok := a.resolve(args)
		if !ok {
			fmt.Fprintf(a.out, "No conversation %q. Use /list to see them.\n", args)
			return false
		}
		a.convs.Select(id)
		a.history()
	case "/delete", "/rm":
		id, ok := a.resolve(args)
		if !ok {
			fmt.Fprintf(a.out, "No conversation %q. Use /list to see them.\n", args)
			return false
		}
		a.convs.Delete(id)
		fmt.Fprintln(a.out, "Deleted.")
	case "/history":
		a.history()
	default:
		fmt.Fprintf(a.out, "Unknown command %s. /help lists commands.\n", name)
	}
	return false
}

func (a *app) printHelp() {
	fmt.Fprintln(a.out, "Commands:")
	fmt.Fprintln(a.out, "  /new              Start a new conversation")
	fmt.Fprintln(a.out, "  /list [search]    List conversations, optionally filtered by title")
	fmt.Fprintln(a.out, "  /use <n|id>       Switch to a conversation")
	fmt.Fprintln(a.out, "  /delete <n|id>    Delete a conversation")
	fmt.Fprintln(a.out, "  /history          Show the current conversation")
	fmt.Fprintln(a.out, "  /help             Show this help")
	fmt.Fprintln(a.out, "  /quit             Exit")
}

func (a *app) list(query string) {
	activeID := a.convs.ActiveID()
	a.lastList = a.lastList[:0]

	for c := range a.convs.Filter(query) {
		a.lastList = append(a.lastList, c.ID)
		marker := "  "
		if c.ID == activeID {
			marker = color.CyanString("* ")
		}
		preview := c.LastMessage
		if preview == chat.ErrorMarker {
			preview = color.RedString(preview)
		} else {
			preview = truncate(strings.ReplaceAll(preview, "\n", " "), previewLen)
		}
		fmt.Fprintf(a.out, "%s%2d. %s %s %s\n",
			marker,
			len(a.lastList),
			c.Title,
			color.HiBlackString(c.CreatedAt.Local().Format(time.DateTime)),
			color.HiBlackString(preview))
	}

	if len(a.lastList) == 0 {
		if query == "" {
			fmt.Fprintln(a.out, "No conversations yet. /new starts one.")
		} else {
			fmt.Fprintf(a.out, "No conversations match %q\n", query)
		}
	}
}

// resolve maps a listed number or a conversation ID to an ID.
func (a *app) resolve(arg string) (string, bool) {
	if arg == "" {
		return "", false
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(a.lastList) {
			return "", false
		}
		arg = a.lastList[n-1]
	}
	if a.convs.Get(arg) == nil {
		return "", false
	}
	return arg, true
}

func (a *app) history() {
	c := a.convs.Active()
	if c == nil {
		fmt.Fprintln(a.out, "No conversation selected. /new starts one.")
		return
	}

	fmt.Fprintln(a.out, color.New(color.Bold).Sprint(c.Title))
	fmt.Fprintln(a.out, strings.Repeat("-", 60))
	if len(c.Messages) == 0 {
		fmt.Fprintln(a.out, color.HiBlackString("(empty)"))
	}
	for _, m := range c.Messages {
		a.printMessage(m)
	}
	fmt.Fprintln(a.out, strings.Repeat("-", 60))
}

func (a *app) printMessage(m *conversation.Message) {
	stamp := color.HiBlackString(m.Timestamp.Local().Format("15:04"))
	switch {
	case m.Sender == conversation.SenderUser:
		fmt.Fprintf(a.out, "%s %s %s\n", stamp, color.BlueString("you ›"), m.Text)
	case m.Text == chat.ErrorReplyText:
		fmt.Fprintf(a.out, "%s %s %s\n", stamp, color.RedString("agent ›"), color.RedString(m.Text))
	default:
		fmt.Fprintf(a.out, "%s %s %s\n", stamp, color.GreenString("agent ›"), render.PlainText(m.Text))
	}
}

func (a *app) send(ctx context.Context, text string) {
	if a.orch.Busy() {
		fmt.Fprintln(a.out, color.HiBlackString("Still waiting for the previous reply."))
		return
	}

	a.orch.SetDraft(text)
	done, err := a.orch.SubmitAsync(ctx)
	switch {
	case errors.Is(err, chat.ErrEmptyInput):
		if a.convs.Active() == nil {
			fmt.Fprintln(a.out, color.HiBlackString("No conversation selected. /new starts one."))
		}
		return
	case errors.Is(err, chat.ErrBusy):
		fmt.Fprintln(a.out, color.HiBlackString("Still waiting for the previous reply."))
		return
	case err != nil:
		fmt.Fprintf(a.out, "[error] %v\n", err)
		return
	}

	a.await(ctx, done)
	a.drain()
}

// await shows a busy indicator until the send completes. The send is never
// abandoned: an interrupt only reports that the reply is still on its way,
// since the store must not close before the reply is appended.
func (a *app) await(ctx context.Context, done <-chan *chat.Result) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	start := time.Now()
	interrupted := ctx.Done()
	a.status("thinking...")

	for {
		select {
		case <-done:
			a.status("")
			return
		case <-ticker.C:
			if a.orch.Busy() {
				a.status(fmt.Sprintf("thinking... %ds", int(time.Since(start).Seconds())))
			}
		case <-interrupted:
			interrupted = nil
			a.status("")
			fmt.Fprintln(a.out, color.YellowString("Reply still pending; exiting once it arrives."))
			a.status("thinking...")
		}
	}
}

// status rewrites the current line; an empty text just clears it.
func (a *app) status(text string) {
	fmt.Fprint(a.out, "\r\033[K")
	if text != "" {
		fmt.Fprint(a.out, color.HiBlackString(text))
	}
}

// truncate shortens a string to maxLen characters, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
