package events

import (
	"encoding/json"
	"fmt"
	"io"
)

// heartbeatFrame is an SSE comment. Conformant clients ignore it.
const heartbeatFrame = ": heartbeat\n\n"

// Encode writes evt to w as a single SSE data frame.
func Encode(w io.Writer, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("events: encode %s: %w", evt.Type, err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("events: write %s: %w", evt.Type, err)
	}
	return nil
}

// WriteHeartbeat writes a keep-alive comment frame to w.
func WriteHeartbeat(w io.Writer) error {
	if _, err := io.WriteString(w, heartbeatFrame); err != nil {
		return fmt.Errorf("events: write heartbeat: %w", err)
	}
	return nil
}
