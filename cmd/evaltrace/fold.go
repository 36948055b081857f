package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"evaltrace/internal/probe"
)

var foldCmd = &cobra.Command{
	Use:   "fold [lines]",
	Short: "Fold collector lines into flamegraph stacks",
	Long: `Fold reads collector lines (as written by "collect" or "decode") in timestamp order
and prints one folded stack per finished expression:

  type:file:line:col;type:file:line:col <self_ns>

The output feeds flamegraph.pl or any tool accepting folded stacks.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFold,
}

func init() {
	foldCmd.Flags().Bool("binary", false, "read an EVTP probe stream instead of text lines")
}

func runFold(cmd *cobra.Command, args []string) error {
	binary, err := cmd.Flags().GetBool("binary")
	if err != nil {
		return fmt.Errorf("failed to get binary flag: %w", err)
	}

	in, err := openInput(inputArg(args), cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer in.Close()

	out := bufio.NewWriter(cmd.OutOrStdout())
	folder := probe.NewFolder(out)

	if binary {
		src, err := probe.NewReader(in)
		if err != nil {
			return err
		}
		records, err := readRecords(src)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if err := folder.Push(rec); err != nil {
				return err
			}
		}
	} else {
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()
			if strings.TrimSpace(line) == "" {
				continue
			}
			rec, err := probe.ParseLine(line)
			if err != nil {
				return fmt.Errorf("line %d: %w", lineNo, err)
			}
			if err := folder.Push(rec); err != nil {
				return fmt.Errorf("line %d: %w", lineNo, err)
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
	}

	if err := out.Flush(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if depth := folder.Depth(); depth > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d expressions never exited\n", depth)
	}
	return nil
}
