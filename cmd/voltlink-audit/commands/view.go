// Package commands implements the voltlink-audit CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/voltlink/voltlink-go/pkg/audit"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Kind         *audit.Kind
	AttemptID    string
	SerialNumber string
}

// RunView reads the trail file and writes matching events to w in
// human-readable format.
func RunView(path string, filter ViewFilter, w io.Writer) error {
	reader, err := audit.NewFilteredReader(path, audit.Filter{
		Kind:         filter.Kind,
		AttemptID:    filter.AttemptID,
		SerialNumber: filter.SerialNumber,
	})
	if err != nil {
		return fmt.Errorf("failed to open trail file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(w, event)
	}
	return nil
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event audit.Event) {
	// Header line: timestamp [attempt:id] KIND
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	fmt.Fprintf(w, "%s [attempt:%s] %s\n", ts, shortenAttemptID(event.AttemptID), event.Kind)

	if event.Step != "" {
		fmt.Fprintf(w, "  Step:   %s\n", event.Step)
	}
	if event.Host != "" {
		fmt.Fprintf(w, "  Host:   %s\n", event.Host)
	}
	if event.SerialNumber != "" {
		fmt.Fprintf(w, "  Serial: %s\n", event.SerialNumber)
	}
	if event.ErrorCode != "" {
		fmt.Fprintf(w, "  Code:   %s\n", event.ErrorCode)
	}
	if event.AbortReason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", event.AbortReason)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenAttemptID returns the first 8 characters of the attempt ID.
func shortenAttemptID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// ParseKindFlag parses a kind name from a CLI flag.
func ParseKindFlag(s string) (audit.Kind, error) {
	switch strings.ToLower(s) {
	case "started":
		return audit.KindStarted, nil
	case "auth_failed", "auth-failed":
		return audit.KindAuthFailed, nil
	case "completed":
		return audit.KindCompleted, nil
	case "aborted":
		return audit.KindAborted, nil
	case "abandoned":
		return audit.KindAbandoned, nil
	default:
		return 0, fmt.Errorf("unknown kind: %s (supported: started, auth_failed, completed, aborted, abandoned)", s)
	}
}
