package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"evaltrace/internal/probe"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Read probe events from a pinned perf event array",
	Long: `Collect attaches to the perf event array pinned by the kernel-side tracer and writes
one collector line per event until interrupted. Lines can be folded with "evaltrace fold".`,
	Args: cobra.NoArgs,
	RunE: runCollectCmd,
}

func init() {
	collectCmd.Flags().String("map", "", "bpffs path of the pinned events map (overrides [collect].map_path)")
	collectCmd.Flags().Int("per-cpu-buffer", 0, "per-CPU perf ring size in bytes (overrides [collect].per_cpu_buffer)")
	collectCmd.Flags().StringP("output", "o", "", "output file (default stdout, overrides [collect].output)")
}

func runCollectCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cc := cfg.Collect
	if cmd.Flags().Changed("map") {
		cc.MapPath, _ = cmd.Flags().GetString("map")
	}
	if cmd.Flags().Changed("per-cpu-buffer") {
		cc.PerCPUBuffer, _ = cmd.Flags().GetInt("per-cpu-buffer")
	}
	if cmd.Flags().Changed("output") {
		cc.Output, _ = cmd.Flags().GetString("output")
	}
	if cc.MapPath == "" {
		return errors.New("no events map: pass --map or set [collect].map_path")
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	out := cmd.OutOrStdout()
	if cc.Output != "" && cc.Output != "-" {
		f, err := os.Create(cc.Output)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	src, err := probe.OpenPerf(cc.perf(), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := runCollect(ctx, src, out, logger)
	logger.Info("collector stopped",
		zap.Int("events", n),
		zap.Uint64("lost", src.Lost()),
	)
	return err
}

// runCollect copies records from src to out as text lines until src is
// exhausted or ctx is done. src is closed on return.
func runCollect(ctx context.Context, src probe.Source, out io.Writer, logger *zap.Logger) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	records := make(chan probe.Record, 4096)
	readerDone := make(chan struct{})
	written := 0

	// Closing the source is the only way to unblock a pending Read.
	g.Go(func() error {
		select {
		case <-gctx.Done():
			logger.Debug("closing probe source")
		case <-readerDone:
		}
		return src.Close()
	})

	g.Go(func() error {
		defer close(readerDone)
		defer close(records)
		for {
			rec, err := src.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read probe event: %w", err)
			}
			select {
			case records <- rec:
			case <-gctx.Done():
				return nil
			}
		}
	})

	g.Go(func() error {
		bw := bufio.NewWriter(out)
		for rec := range records {
			if _, err := fmt.Fprintln(bw, probe.FormatLine(rec)); err != nil {
				return fmt.Errorf("failed to write line: %w", err)
			}
			written++
		}
		if err := bw.Flush(); err != nil {
			return fmt.Errorf("failed to flush output: %w", err)
		}
		return nil
	})

	err := g.Wait()
	return written, err
}
