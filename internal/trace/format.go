package trace

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Format represents the output format for entries.
type Format uint8

const (
	FormatText   Format = iota // human-readable text
	FormatNDJSON               // newline-delimited JSON
)

// ParseFormat converts a string to Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "text", "":
		return FormatText, nil
	case "ndjson", "json":
		return FormatNDJSON, nil
	default:
		return FormatText, fmt.Errorf("invalid format: %q (expected: text|ndjson)", s)
	}
}

// FormatEntry formats an entry according to the specified format.
func FormatEntry(e Entry, format Format) []byte {
	switch format {
	case FormatNDJSON:
		return formatNDJSON(e)
	default:
		return formatText(e)
	}
}

// formatNDJSON formats an entry as newline-delimited JSON.
func formatNDJSON(e Entry) []byte {
	type jsonEntry struct {
		ID       uint64 `json:"id"`
		File     string `json:"file"`
		Type     string `json:"type,omitempty"`
		Line     uint32 `json:"line"`
		Column   uint32 `json:"column,omitempty"`
		TSEntry  uint64 `json:"ts_entry"`
		TSExit   uint64 `json:"ts_exit,omitempty"`
		Duration uint64 `json:"duration_ns"`
		Open     bool   `json:"open,omitempty"`
		Invalid  bool   `json:"invalid,omitempty"`
	}

	j := jsonEntry{
		ID:       e.Data.ID,
		File:     e.Data.File,
		Type:     e.Data.Type,
		Line:     e.Data.Line,
		Column:   e.Data.Column,
		TSEntry:  e.TSEntry,
		TSExit:   e.TSExit,
		Duration: e.Duration(),
		Open:     !e.Complete(),
		Invalid:  e.Data.Invalid,
	}

	data, _ := json.Marshal(j)
	data = append(data, '\n')
	return data
}

// formatText formats an entry as the record line followed by its timing:
// "<record> <ts_entry> <ts_exit|open> <duration>ns".
func formatText(e Entry) []byte {
	var sb strings.Builder
	sb.WriteString(e.Data.String())
	if e.Complete() {
		fmt.Fprintf(&sb, " %d %d %dns\n", e.TSEntry, e.TSExit, e.Duration())
	} else {
		fmt.Fprintf(&sb, " %d open\n", e.TSEntry)
	}
	return []byte(sb.String())
}
