package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/voltlink/voltlink-go/pkg/audit"
)

// exportEvent is the JSON shape of one exported event.
type exportEvent struct {
	Timestamp    string `json:"timestamp"`
	AttemptID    string `json:"attempt_id"`
	Kind         string `json:"kind"`
	Step         string `json:"step,omitempty"`
	Host         string `json:"host,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	AbortReason  string `json:"abort_reason,omitempty"`
}

// RunExport exports the trail file to the specified format.
func RunExport(path, format, output string) error {
	reader, err := audit.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open trail file: %w", err)
	}
	defer reader.Close()

	// Determine output writer
	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(reader *audit.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(toExportEvent(event)); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

func exportCSV(reader *audit.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "attempt_id", "kind", "step", "host", "serial_number", "error_code", "abort_reason"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		e := toExportEvent(event)
		row := []string{e.Timestamp, e.AttemptID, e.Kind, e.Step, e.Host, e.SerialNumber, e.ErrorCode, e.AbortReason}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}

func toExportEvent(event audit.Event) exportEvent {
	return exportEvent{
		Timestamp:    event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
		AttemptID:    event.AttemptID,
		Kind:         event.Kind.String(),
		Step:         event.Step,
		Host:         event.Host,
		SerialNumber: event.SerialNumber,
		ErrorCode:    event.ErrorCode,
		AbortReason:  event.AbortReason,
	}
}
