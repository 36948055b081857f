package probe

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// FormatLine renders a record as one collector log line:
//
//	<ts> <expr_id> <probe_name> <line>:<column> <file>
//
// Split-schema exits have no probe name; they are written as "__out".
func FormatLine(rec Record) string {
	probe := rec.Probe
	if probe == "" {
		probe = "__" + rec.Dir.String()
	}
	return fmt.Sprintf("%d %d %s %d:%d %s", rec.TS, rec.ExprID, probe, rec.Line, rec.Column, rec.File)
}

// ParseLine parses a line produced by FormatLine. The file is everything
// after the fourth space, so paths may contain spaces.
func ParseLine(line string) (Record, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.SplitN(line, " ", 5)
	if len(fields) < 4 {
		return Record{}, fmt.Errorf("malformed probe line %q: want at least 4 fields", line)
	}
	ts, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("malformed timestamp in %q: %w", line, err)
	}
	id, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("malformed expression id in %q: %w", line, err)
	}
	rec := Record{TS: ts, ExprID: id, Probe: fields[2]}
	_, rec.Dir = SplitName(rec.Probe)
	if rec.Dir == 0 {
		return Record{}, fmt.Errorf("probe %q in %q has no direction suffix", rec.Probe, line)
	}
	if strings.HasPrefix(rec.Probe, "__") {
		rec.Probe = ""
	}

	lineStr, colStr, ok := strings.Cut(fields[3], ":")
	if !ok {
		return Record{}, fmt.Errorf("malformed line:column %q", fields[3])
	}
	if rec.Line, err = parseUint32(lineStr); err != nil {
		return Record{}, fmt.Errorf("malformed line in %q: %w", line, err)
	}
	if rec.Column, err = parseUint32(colStr); err != nil {
		return Record{}, fmt.Errorf("malformed column in %q: %w", line, err)
	}
	if len(fields) == 5 {
		rec.File = fields[4]
	}
	return rec, nil
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return safecast.Conv[uint32](v)
}
