package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"evaltrace/internal/probe"
	"evaltrace/internal/trace"
	"evaltrace/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the CLI version and the trace formats it reads and writes",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().Bool("json", false, "print as JSON")
}

// buildInfo pairs the CLI build with the on-disk and wire formats it speaks,
// so a stream or dump can be checked against the tool reading it.
type buildInfo struct {
	Version       string `json:"version"`
	GitCommit     string `json:"git_commit,omitempty"`
	BuildDate     string `json:"build_date,omitempty"`
	StreamVersion uint16 `json:"probe_stream_version"`
	ProbeSchema   string `json:"default_probe_schema"`
	EventSize     int    `json:"event_size"`
	ExitEventSize int    `json:"exit_event_size"`
	DumpSchema    uint16 `json:"dump_schema"`
	ChunkSize     int    `json:"default_chunk_size"`
}

func currentBuildInfo() buildInfo {
	v := strings.TrimSpace(version.Version)
	if v == "" {
		v = "dev"
	}
	cfg := trace.DefaultConfig()
	return buildInfo{
		Version:       v,
		GitCommit:     strings.TrimSpace(version.GitCommit),
		BuildDate:     strings.TrimSpace(version.BuildDate),
		StreamVersion: probe.StreamVersion,
		ProbeSchema:   cfg.Schema.String(),
		EventSize:     probe.EventSize,
		ExitEventSize: probe.ExitEventSize,
		DumpSchema:    trace.DumpSchemaVersion,
		ChunkSize:     cfg.ChunkSize,
	}
}

func runVersion(cmd *cobra.Command, args []string) error {
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to get json flag: %w", err)
	}
	colored, err := resolveColor(cmd)
	if err != nil {
		return err
	}

	info := currentBuildInfo()
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	renderBuildInfo(out, info, colored)
	return nil
}

func renderBuildInfo(out io.Writer, info buildInfo, colored bool) {
	v := info.Version
	if colored && v == version.Version {
		v = version.Colored()
	}
	fmt.Fprintf(out, "evaltrace %s", v)
	if info.GitCommit != "" {
		fmt.Fprintf(out, " (%s)", info.GitCommit)
	}
	if info.BuildDate != "" {
		fmt.Fprintf(out, " built %s", info.BuildDate)
	}
	fmt.Fprintln(out)

	label := color.New(color.Faint)
	label.Fprint(out, "probe stream  ")
	fmt.Fprintf(out, "EVTP v%d, default schema %s\n", info.StreamVersion, info.ProbeSchema)
	label.Fprint(out, "probe event   ")
	fmt.Fprintf(out, "%d bytes, split exit %d bytes\n", info.EventSize, info.ExitEventSize)
	label.Fprint(out, "buffer dump   ")
	fmt.Fprintf(out, "msgpack schema %d, default chunk size %d\n", info.DumpSchema, info.ChunkSize)
}
