package main

import (
	"fmt"
	"os"
	"strings"

	"fortio.org/safecast"
	"github.com/spf13/cobra"

	"evaltrace/internal/probe"
	"evaltrace/internal/prof"
	"evaltrace/internal/source"
	"evaltrace/internal/trace"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Trace a synthetic nested evaluation",
	Long: `Record evaluates a generated expression tree under instrumentation and writes the
buffer as a dump (--dump) and, optionally, the probe stream (--probe-output).
It is a self-contained workload for exercising the tracing pipeline end to end.`,
	Args: cobra.NoArgs,
	RunE: runRecordCmd,
}

func init() {
	recordCmd.Flags().Int("depth", 4, "depth of the generated expression tree")
	recordCmd.Flags().Int("fanout", 3, "children per generated expression")
	recordCmd.Flags().String("origin", "file", "origin of the generated source (file|string|stdin)")
	recordCmd.Flags().StringP("dump", "o", "", "write the buffer dump to this file (default: print entries)")
	recordCmd.Flags().Int("chunk-size", 0, "slots per chunk (overrides [trace].chunk_size)")
	recordCmd.Flags().String("probe-output", "", "write the probe stream to this file (overrides [trace].probe_output)")
	recordCmd.Flags().String("schema", "", "probe stream schema (split|combined, overrides [trace].schema)")
	recordCmd.Flags().String("cpu-profile", "", "write a CPU profile of the traced evaluation")
	recordCmd.Flags().String("mem-profile", "", "write a heap profile after the traced evaluation")
	recordCmd.Flags().String("runtime-trace", "", "write a Go runtime trace of the traced evaluation")
}

type recordOptions struct {
	depth  int
	fanout int
	origin source.Origin
}

func runRecordCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	tc := cfg.Trace
	tc.Enabled = true
	if cmd.Flags().Changed("chunk-size") {
		tc.ChunkSize, _ = cmd.Flags().GetInt("chunk-size")
	}
	if cmd.Flags().Changed("probe-output") {
		tc.ProbeOutput, _ = cmd.Flags().GetString("probe-output")
	}
	if cmd.Flags().Changed("schema") {
		s, _ := cmd.Flags().GetString("schema")
		if tc.Schema, err = probe.ParseSchema(s); err != nil {
			return err
		}
	}

	var opts recordOptions
	opts.depth, _ = cmd.Flags().GetInt("depth")
	opts.fanout, _ = cmd.Flags().GetInt("fanout")
	originStr, _ := cmd.Flags().GetString("origin")
	if opts.origin, err = parseOrigin(originStr); err != nil {
		return err
	}
	dumpPath, _ := cmd.Flags().GetString("dump")

	var paths prof.Paths
	paths.CPU, _ = cmd.Flags().GetString("cpu-profile")
	paths.Mem, _ = cmd.Flags().GetString("mem-profile")
	paths.Trace, _ = cmd.Flags().GetString("runtime-trace")
	session, err := prof.Start(paths)
	if err != nil {
		return err
	}
	buf, n, err := runRecord(tc, opts)
	if stopErr := session.Stop(); stopErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "failed to finish profiles: %v\n", stopErr)
	}
	if err != nil {
		return err
	}

	if dumpPath == "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "evaluated %d expressions\n", n)
		return writeEntries(cmd.OutOrStdout(), buf.Snapshot(), trace.FormatText)
	}
	f, err := os.Create(dumpPath)
	if err != nil {
		return fmt.Errorf("failed to create dump: %w", err)
	}
	if err := buf.Dump(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close dump: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "evaluated %d expressions into %d chunks, dump written to %s\n",
		n, len(buf.Chunks()), dumpPath)
	return nil
}

func parseOrigin(s string) (source.Origin, error) {
	switch strings.ToLower(s) {
	case "file", "":
		return source.OriginFile, nil
	case "string":
		return source.OriginString, nil
	case "stdin":
		return source.OriginStdin, nil
	default:
		return source.OriginNone, fmt.Errorf("unknown origin %q (expected: file|string|stdin)", s)
	}
}

// runRecord builds the synthetic tree, evaluates it under a buffer made from
// cfg and returns the buffer with the number of evaluated expressions.
func runRecord(cfg trace.Config, opts recordOptions) (*trace.Buffer, int, error) {
	if opts.depth < 1 || opts.fanout < 1 {
		return nil, 0, fmt.Errorf("depth and fanout must be positive (got %d, %d)", opts.depth, opts.fanout)
	}
	buf, closer, err := trace.New(cfg)
	if err != nil {
		return nil, 0, err
	}

	positions := source.NewPosTable()
	root, err := buildSynthetic(positions, opts)
	if err != nil {
		_ = closer.Close()
		return nil, 0, err
	}

	top := trace.PointTop(buf, positions, root)
	n := evalSynthetic(buf, positions, root)
	top.End()

	if err := closer.Close(); err != nil {
		return nil, 0, fmt.Errorf("failed to close probe stream: %w", err)
	}
	return buf, n, nil
}

var syntheticTypes = []string{"attrs", "call", "let", "select", "if", "lambda", "var"}

// syntheticExpr is one node of the generated tree. Each node sits on its own
// source line.
type syntheticExpr struct {
	pos      source.PosIdx
	typ      string
	children []*syntheticExpr
}

func (e *syntheticExpr) Pos() source.PosIdx { return e.pos }
func (e *syntheticExpr) ExprType() string  { return e.typ }

func buildSynthetic(positions *source.PosTable, opts recordOptions) (*syntheticExpr, error) {
	var sb strings.Builder
	var offsets []int
	var types []string
	var gen func(level int)
	gen = func(level int) {
		typ := syntheticTypes[len(types)%len(syntheticTypes)]
		offsets = append(offsets, sb.Len())
		types = append(types, typ)
		fmt.Fprintf(&sb, "%s%s\n", strings.Repeat("  ", level), typ)
		if level+1 < opts.depth {
			for range opts.fanout {
				gen(level + 1)
			}
		}
	}
	gen(0)

	var id source.FileID
	switch opts.origin {
	case source.OriginString:
		id = positions.AddString(sb.String())
	case source.OriginStdin:
		id = positions.AddStdin([]byte(sb.String()))
	default:
		id = positions.Add(source.OriginFile, "synthetic.expr", []byte(sb.String()))
	}

	next := 0
	var link func(level int) (*syntheticExpr, error)
	link = func(level int) (*syntheticExpr, error) {
		i := next
		next++
		off, err := safecast.Conv[uint32](offsets[i] + 2*level)
		if err != nil {
			return nil, fmt.Errorf("synthetic source too large: %w", err)
		}
		e := &syntheticExpr{pos: positions.At(id, off), typ: types[i]}
		if level+1 < opts.depth {
			for range opts.fanout {
				child, err := link(level + 1)
				if err != nil {
					return nil, err
				}
				e.children = append(e.children, child)
			}
		}
		return e, nil
	}
	return link(0)
}

func evalSynthetic(buf *trace.Buffer, positions source.Resolver, e *syntheticExpr) int {
	g := trace.Point(buf, positions, e)
	defer g.End()
	n := 1
	for _, child := range e.children {
		n += evalSynthetic(buf, positions, child)
	}
	return n
}
