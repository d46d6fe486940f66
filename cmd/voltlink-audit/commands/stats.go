package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/voltlink/voltlink-go/pkg/audit"
)

// Stats holds aggregate statistics about a trail file.
type Stats struct {
	TotalEvents  int
	EventsByKind map[audit.Kind]int
	Attempts     map[string]*AttemptStats
	TimeRange    struct {
		Start time.Time
		End   time.Time
	}
}

// AttemptStats holds statistics for a single onboarding attempt.
type AttemptStats struct {
	FirstSeen    time.Time
	LastSeen     time.Time
	Events       int
	SerialNumber string
	AuthFailures int
	Outcome      string
}

// RunStats analyzes the trail file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := audit.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open trail file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByKind: make(map[audit.Kind]int),
		Attempts:     make(map[string]*AttemptStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByKind[event.Kind]++

		// Track time range
		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		// Track per-attempt stats
		attempt, ok := stats.Attempts[event.AttemptID]
		if !ok {
			attempt = &AttemptStats{
				FirstSeen: event.Timestamp,
				LastSeen:  event.Timestamp,
			}
			stats.Attempts[event.AttemptID] = attempt
		}
		attempt.Events++
		if event.Timestamp.After(attempt.LastSeen) {
			attempt.LastSeen = event.Timestamp
		}
		if event.SerialNumber != "" && attempt.SerialNumber == "" {
			attempt.SerialNumber = event.SerialNumber
		}

		switch event.Kind {
		case audit.KindAuthFailed:
			attempt.AuthFailures++
		case audit.KindCompleted, audit.KindAborted, audit.KindAbandoned:
			attempt.Outcome = event.Kind.String()
		}
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Onboarding Trail Statistics ===")
	fmt.Fprintln(w)

	// Time range
	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	// Events by kind
	fmt.Fprintln(w, "Events by Kind:")
	for _, kind := range []audit.Kind{audit.KindStarted, audit.KindAuthFailed, audit.KindCompleted, audit.KindAborted, audit.KindAbandoned} {
		if count := stats.EventsByKind[kind]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", kind.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	// Attempts, sorted by first seen
	fmt.Fprintf(w, "Attempts: %d\n", len(stats.Attempts))
	if len(stats.Attempts) > 0 {
		type attemptInfo struct {
			id    string
			stats *AttemptStats
		}
		attempts := make([]attemptInfo, 0, len(stats.Attempts))
		for id, a := range stats.Attempts {
			attempts = append(attempts, attemptInfo{id, a})
		}
		sort.Slice(attempts, func(i, j int) bool {
			return attempts[i].stats.FirstSeen.Before(attempts[j].stats.FirstSeen)
		})

		for _, a := range attempts {
			outcome := a.stats.Outcome
			if outcome == "" {
				outcome = "IN_PROGRESS"
			}
			fmt.Fprintf(w, "  %s  %-11s events=%d auth_failures=%d",
				shortenAttemptID(a.id), outcome, a.stats.Events, a.stats.AuthFailures)
			if a.stats.SerialNumber != "" {
				fmt.Fprintf(w, " serial=%s", a.stats.SerialNumber)
			}
			fmt.Fprintln(w)
		}
	}
}
