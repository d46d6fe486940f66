package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/voltlink/voltlink-go/pkg/audit"
)

// FilterOptions specifies filtering criteria for the filter command.
type FilterOptions struct {
	Output       string
	AttemptID    string
	SerialNumber string
	TimeStart    string
	TimeEnd      string
	Kind         string
}

// RunFilter filters the trail file and writes matching events to a new file.
func RunFilter(path string, opts FilterOptions) error {
	filter := audit.Filter{
		AttemptID:    opts.AttemptID,
		SerialNumber: opts.SerialNumber,
	}

	if opts.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeStart)
		if err != nil {
			return fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}

	if opts.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeEnd)
		if err != nil {
			return fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}

	if opts.Kind != "" {
		k, err := ParseKindFlag(opts.Kind)
		if err != nil {
			return err
		}
		filter.Kind = &k
	}

	reader, err := audit.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open trail file: %w", err)
	}
	defer reader.Close()

	trail, err := audit.NewFileTrail(opts.Output)
	if err != nil {
		return fmt.Errorf("failed to create output trail: %w", err)
	}
	defer trail.Close()

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		trail.Record(event)
		count++
	}

	fmt.Printf("Filtered %d events to %s\n", count, opts.Output)
	return nil
}
