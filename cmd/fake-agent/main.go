// ABOUTME: Minimal fake inference endpoint for manual end-to-end runs of the chat client
// ABOUTME: Usage: fake-agent [-addr localhost:8787] [-shape result|answer|nested|string|raw|empty|fail]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/Lyzr-Apps/ultimate-super-space/internal/agent"
)

// shapes lists the response bodies the endpoint can emit
var shapes = []string{"result", "answer", "nested", "string", "raw", "empty", "fail"}

func main() {
	addr := flag.String("addr", "localhost:8787", "HTTP listen address")
	shape := flag.String("shape", "result", "Response shape: "+strings.Join(shapes, "|"))
	delay := flag.Duration("delay", 300*time.Millisecond, "Artificial latency before replying")
	apiKey := flag.String("api-key", "", "Require this x-api-key header when set")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(*addr, *shape, *delay, *apiKey, logger); err != nil {
		logger.Error("fake agent failed", "error", err)
		os.Exit(1)
	}
}

func run(addr, shape string, delay time.Duration, apiKey string, logger *slog.Logger) error {
	if !validShape(shape) {
		return fmt.Errorf("unknown shape %q", shape)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	mux := http.NewServeMux()
	mux.Handle("POST /chat", &handler{shape: shape, delay: delay, apiKey: apiKey, logger: logger})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("fake agent listening", "addr", addr, "shape", shape)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

func validShape(shape string) bool {
	for _, s := range shapes {
		if s == shape {
			return true
		}
	}
	return false
}

type handler struct {
	shape  string
	delay  time.Duration
	apiKey string
	logger *slog.Logger
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.apiKey != "" && r.Header.Get("x-api-key") != h.apiKey {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
		return
	}

	var req agent.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	h.logger.Info("received message",
		"session_id", req.SessionID,
		"agent_id", req.AgentID,
		"user_id", req.UserID,
		"length", len(req.Message))

	if h.delay > 0 {
		select {
		case <-time.After(h.delay):
		case <-r.Context().Done():
			return
		}
	}

	if h.shape == "fail" {
		http.Error(w, "agent unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(responseBody(h.shape, echoReply(lastUserLine(req.Message)))); err != nil {
		h.logger.Warn("write response failed", "error", err)
	}
}

// responseBody wraps reply in the envelope for the given shape.
func responseBody(shape, reply string) map[string]any {
	switch shape {
	case "answer":
		return map[string]any{"success": true, "response": map[string]any{"answer": reply}}
	case "nested":
		return map[string]any{"success": true, "response": map[string]any{"response": reply}}
	case "string":
		return map[string]any{"success": true, "response": reply}
	case "raw":
		return map[string]any{"raw_response": reply}
	case "empty":
		return map[string]any{"success": true, "response": map[string]any{}}
	default:
		return map[string]any{"success": true, "response": map[string]any{"result": reply}}
	}
}

// lastUserLine extracts the newest user turn from a composed prompt.
func lastUserLine(message string) string {
	lines := strings.Split(message, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if text, ok := strings.CutPrefix(lines[i], "User: "); ok {
			return text
		}
	}
	return message
}

func echoReply(input string) string {
	lower := strings.ToLower(input)
	if strings.Contains(lower, "markdown") || strings.Contains(lower, "bullet") || strings.Contains(lower, "list") {
		return "Here is a **markdown** response:\n\n- First item\n- Second item with `code`\n- Third item\n\n> This is a blockquote.\n"
	}
	return fmt.Sprintf("Echo: **%s**\n\nI received your message and am responding with some *formatted* text.", input)
}
