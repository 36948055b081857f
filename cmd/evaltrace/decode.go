package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"fortio.org/safecast"
	"github.com/spf13/cobra"

	"evaltrace/internal/observ"
	"evaltrace/internal/probe"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [stream]",
	Short: "Convert a binary probe stream into text lines",
	Long: `Decode reads an EVTP probe stream and prints one collector line per event:

  <ts> <expr_id> <probe_name> <line>:<column> <file>

With --stats the events are correlated by expression id and summarized per type instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().Bool("stats", false, "correlate events and print per-type statistics")
	decodeCmd.Flags().Bool("json", false, "with --stats, print the report as JSON")
}

func runDecode(cmd *cobra.Command, args []string) error {
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

	src, err := probe.NewReader(in)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if !withStats {
		_, err := copyLines(out, src)
		return err
	}

	records, err := readRecords(src)
	if err != nil {
		return err
	}
	report, err := spanStats(probe.Correlate(records))
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

// copyLines writes every record of src as a text line and returns the count.
func copyLines(out io.Writer, src probe.Source) (int, error) {
	bw := bufio.NewWriter(out)
	n := 0
	for {
		rec, err := src.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, err
		}
		if _, err := fmt.Fprintln(bw, probe.FormatLine(rec)); err != nil {
			return n, fmt.Errorf("failed to write line: %w", err)
		}
		n++
	}
	return n, bw.Flush()
}

func readRecords(src probe.Source) ([]probe.Record, error) {
	var records []probe.Record
	for {
		rec, err := src.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
}

// spanStats aggregates correlated spans by expression type. Entries
// without an exit count as open.
func spanStats(c probe.Correlation) (observ.Report, error) {
	stats := observ.NewStats()
	for _, span := range c.Spans {
		if span.Invalid {
			stats.AddInvalid()
			continue
		}
		ns, err := safecast.Conv[int64](span.Duration())
		if err != nil {
			return observ.Report{}, fmt.Errorf("expression %d: %w", span.ExprID, err)
		}
		stats.Add(observ.Sample{Type: span.Type, File: span.File, Duration: time.Duration(ns)})
	}
	for range c.UnmatchedEntries {
		stats.AddOpen()
	}
	return stats.Report(), nil
}
