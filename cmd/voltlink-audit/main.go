// Command voltlink-audit is a tool for viewing and analyzing onboarding
// audit trail files.
//
// Trail files are created by voltlink-onboard with the -audit flag or the
// audit_path config setting.
//
// Usage:
//
//	voltlink-audit <command> [flags] <file.vlog>
//
// Commands:
//
//	view     View trail file in human-readable format
//	export   Export trail file to JSON or CSV format
//	filter   Filter trail file and write to new file
//	stats    Show statistics about the trail file
//
// Examples:
//
//	# View all events
//	voltlink-audit view onboarding.vlog
//
//	# View only aborted attempts
//	voltlink-audit view --kind aborted onboarding.vlog
//
//	# Export to JSONL
//	voltlink-audit export --format jsonl onboarding.vlog
//
//	# Filter by attempt and save to new file
//	voltlink-audit filter --attempt abc12345 -o filtered.vlog onboarding.vlog
//
//	# Show statistics
//	voltlink-audit stats onboarding.vlog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/voltlink/voltlink-go/cmd/voltlink-audit/commands"
)

const usage = `voltlink-audit - Onboarding Trail Analyzer

Usage:
  voltlink-audit <command> [flags] <file.vlog>

Commands:
  view     View trail file in human-readable format
  export   Export trail file to JSON or CSV format
  filter   Filter trail file and write to new file
  stats    Show statistics about the trail file

Use "voltlink-audit <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `voltlink-audit view - View trail file in human-readable format

Usage:
  voltlink-audit view [flags] <file.vlog>

Flags:
`)
		fs.PrintDefaults()
	}

	kind := fs.String("kind", "", "Filter by kind (started, auth_failed, completed, aborted, abandoned)")
	attempt := fs.String("attempt", "", "Filter by attempt ID")
	serial := fs.String("serial", "", "Filter by charger serial number")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trail file path required")
		fs.Usage()
		os.Exit(1)
	}

	path := fs.Arg(0)

	var filter commands.ViewFilter
	filter.AttemptID = *attempt
	filter.SerialNumber = *serial

	if *kind != "" {
		k, err := commands.ParseKindFlag(*kind)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		filter.Kind = &k
	}

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `voltlink-audit export - Export trail file to JSON or CSV format

Usage:
  voltlink-audit export [flags] <file.vlog>

Flags:
`)
		fs.PrintDefaults()
	}

	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trail file path required")
		fs.Usage()
		os.Exit(1)
	}

	path := fs.Arg(0)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runFilter(args []string) {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `voltlink-audit filter - Filter trail file and write to new file

Usage:
  voltlink-audit filter [flags] <file.vlog>

Flags:
`)
		fs.PrintDefaults()
	}

	output := fs.String("o", "", "Output file (required)")
	attempt := fs.String("attempt", "", "Filter by attempt ID")
	serial := fs.String("serial", "", "Filter by charger serial number")
	timeStart := fs.String("time-start", "", "Filter by start time (RFC3339)")
	timeEnd := fs.String("time-end", "", "Filter by end time (RFC3339)")
	kind := fs.String("kind", "", "Filter by kind (started, auth_failed, completed, aborted, abandoned)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trail file path required")
		fs.Usage()
		os.Exit(1)
	}

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	path := fs.Arg(0)

	opts := commands.FilterOptions{
		Output:       *output,
		AttemptID:    *attempt,
		SerialNumber: *serial,
		TimeStart:    *timeStart,
		TimeEnd:      *timeEnd,
		Kind:         *kind,
	}

	if err := commands.RunFilter(path, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `voltlink-audit stats - Show statistics about the trail file

Usage:
  voltlink-audit stats <file.vlog>

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trail file path required")
		fs.Usage()
		os.Exit(1)
	}

	path := fs.Arg(0)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
