package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
)

// ErrUsage reports an unknown or malformed command line.
var ErrUsage = errors.New("usage: facturier jobs [-json] trigger <task> | inspect | scheduled [n]")

// JobsOptions configures a jobs command execution.
type JobsOptions struct {
	Stdout io.Writer
}

// RunJobs executes a jobs subcommand.
func RunJobs(ctx context.Context, c *JobsCLI, args []string, opts JobsOptions) error {
	fs := flag.NewFlagSet("jobs", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	jsonOutput := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return ErrUsage
	}
	out := opts.Stdout
	if out == nil {
		out = io.Discard
	}

	switch rest[0] {
	case "trigger":
		if len(rest) != 2 {
			return ErrUsage
		}
		info, err := c.Trigger(ctx, rest[1])
		if err != nil {
			return err
		}
		if *jsonOutput {
			return writeJSON(out, map[string]string{"id": info.ID, "type": info.Type, "queue": info.Queue})
		}
		_, err = fmt.Fprintf(out, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return err
	case "inspect":
		stats, err := c.InspectQueue(ctx)
		if err != nil {
			return err
		}
		if *jsonOutput {
			return writeJSON(out, stats)
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY")
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return tw.Flush()
	case "scheduled":
		size := 0
		if len(rest) == 2 {
			n, err := strconv.Atoi(rest[1])
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUsage, err)
			}
			size = n
		}
		tasks, err := c.ListScheduled(ctx, size)
		if err != nil {
			return err
		}
		if *jsonOutput {
			rows := make([]map[string]string, 0, len(tasks))
			for _, t := range tasks {
				rows = append(rows, map[string]string{"id": t.ID, "type": t.Type, "next": t.NextProcessAt.UTC().Format("2006-01-02T15:04:05Z")})
			}
			return writeJSON(out, rows)
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTYPE\tNEXT RUN")
		for _, t := range tasks {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ID, t.Type, t.NextProcessAt.UTC().Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	default:
		return ErrUsage
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
