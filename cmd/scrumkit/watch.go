package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/scrumkit/scrumkit/internal/events"
	"github.com/spf13/cobra"
)

var (
	watchTimeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	watchAddStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E")).Bold(true)
	watchDelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	watchOtherStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA")).Bold(true)
)

func newWatchCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "watch <session-id>",
		Short: "Stream a session's changes in real-time",
		Long:  "Connects to a running server's event stream for one session and prints each change as it arrives.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runWatch(ctx, cmd.OutOrStdout(), serverURL, args[0])
		},
	}

	cmd.Flags().StringVar(&serverURL, "url", "http://localhost:8080", "base URL of the Scrumkit server")
	return cmd
}

func runWatch(ctx context.Context, out io.Writer, serverURL, sessionID string) error {
	url := strings.TrimRight(serverURL, "/") + "/api/retrospective/" + sessionID + "/events"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("watch: connect to %s: %w", serverURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		if body.Error == "" {
			body.Error = resp.Status
		}
		return fmt.Errorf("watch: %s", body.Error)
	}

	fmt.Fprintf(out, "Watching session %s... (Ctrl+C to stop)\n", sessionID)
	err = readEvents(resp.Body, func(evt events.Event, raw json.RawMessage) {
		printWatchEvent(out, evt, raw)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// readEvents decodes SSE data frames from r until it ends. Comment frames
// and malformed frames are skipped.
func readEvents(r io.Reader, fn func(events.Event, json.RawMessage)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		payload, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var frame struct {
			events.Event
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			continue
		}
		fn(frame.Event, frame.Data)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("watch: read stream: %w", err)
	}
	return nil
}

func printWatchEvent(out io.Writer, evt events.Event, data json.RawMessage) {
	ts := time.UnixMilli(evt.Timestamp).Format("15:04:05")
	fmt.Fprintf(out, "%s %s %s\n", watchTimeStyle.Render("["+ts+"]"), eventStyle(evt.Type).Render(evt.Type), summarize(evt.Type, data))
}

func eventStyle(typ string) lipgloss.Style {
	switch {
	case strings.HasSuffix(typ, ":added"):
		return watchAddStyle
	case strings.HasSuffix(typ, ":deleted"), strings.HasSuffix(typ, ":removed"):
		return watchDelStyle
	default:
		return watchOtherStyle
	}
}

// summarize picks the human-relevant fields out of an event payload.
func summarize(typ string, data json.RawMessage) string {
	var f struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		Status        string `json:"status"`
		Category      string `json:"category"`
		Content       string `json:"content"`
		Description   string `json:"description"`
		ItemID        string `json:"itemId"`
		ParticipantID string `json:"participantId"`
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return ""
	}
	switch typ {
	case events.TypeConnected:
		return "stream open"
	case events.TypeItemAdded, events.TypeItemUpdated:
		return fmt.Sprintf("[%s] %s", f.Category, truncate(f.Content, 80))
	case events.TypeVoteAdded, events.TypeVoteRemoved:
		return fmt.Sprintf("%s on item %s", f.ParticipantID, f.ItemID)
	case events.TypeSessionUpdated:
		return fmt.Sprintf("%s is now %s", f.Name, f.Status)
	case events.TypeActionAdded, events.TypeActionUpdated:
		return fmt.Sprintf("%s (%s)", truncate(f.Description, 80), f.Status)
	default:
		return f.ID
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
