package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// resolveColor applies the --color flag to fatih/color and reports whether
// styled output should be produced.
func resolveColor(cmd *cobra.Command) (bool, error) {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}

	var enabled bool
	switch strings.ToLower(mode) {
	case "on":
		enabled = true
	case "off":
		enabled = false
	case "auto", "":
		enabled = isTerminal(os.Stdout)
	default:
		return false, fmt.Errorf("invalid color mode %q (expected: auto|on|off)", mode)
	}
	color.NoColor = !enabled
	return enabled, nil
}
