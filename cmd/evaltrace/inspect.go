package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"fortio.org/safecast"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"evaltrace/internal/observ"
	"evaltrace/internal/trace"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [dump]",
	Short: "Print the entries of a buffer dump",
	Long: `Inspect reads a buffer dump written by "evaltrace record" (or Buffer.Dump)
and prints one line per entry, or per-type statistics with --stats.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().String("format", "text", "entry format (text|ndjson)")
	inspectCmd.Flags().Bool("stats", false, "print per-type statistics instead of entries")
	inspectCmd.Flags().Bool("json", false, "with --stats, print the report as JSON")
}

func runInspect(cmd *cobra.Command, args []string) error {
	formatStr, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return err
	}
	withStats, err := cmd.Flags().GetBool("stats")
	if err != nil {
		return fmt.Errorf("failed to get stats flag: %w", err)
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to get json flag: %w", err)
	}
	styled, err := resolveColor(cmd)
	if err != nil {
		return err
	}

	in, err := openInput(inputArg(args), cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer in.Close()

	dump, err := trace.ReadDump(in)
	if err != nil {
		return err
	}
	entries := dump.EntryList()
	out := cmd.OutOrStdout()

	if withStats {
		report, err := entryStats(entries)
		if err != nil {
			return err
		}
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		return report.Render(out, styled)
	}

	if format == trace.FormatText {
		color.New(color.FgCyan, color.Bold).Fprintf(out, "%d entries in %d chunks (chunk size %d)\n",
			len(entries), dump.Chunks, dump.ChunkSize)
	}
	return writeEntries(out, entries, format)
}

func writeEntries(out io.Writer, entries []trace.Entry, format trace.Format) error {
	invalid := color.New(color.FgRed)
	for i := range entries {
		line := trace.FormatEntry(entries[i], format)
		var err error
		if format == trace.FormatText && entries[i].Data.Invalid {
			_, err = invalid.Fprint(out, string(line))
		} else {
			_, err = out.Write(line)
		}
		if err != nil {
			return fmt.Errorf("failed to write entry: %w", err)
		}
	}
	return nil
}

// entryStats aggregates completed entries by expression type.
func entryStats(entries []trace.Entry) (observ.Report, error) {
	stats := observ.NewStats()
	for i := range entries {
		e := &entries[i]
		switch {
		case !e.Complete():
			stats.AddOpen()
		case e.Data.Invalid:
			stats.AddInvalid()
		default:
			ns, err := safecast.Conv[int64](e.Duration())
			if err != nil {
				return observ.Report{}, fmt.Errorf("entry %d: %w", e.Data.ID, err)
			}
			stats.Add(observ.Sample{Type: e.Data.Type, File: e.Data.File, Duration: time.Duration(ns)})
		}
	}
	return stats.Report(), nil
}
