package observ

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Sample is one timed expression.
type Sample struct {
	Type     string
	File     string
	Duration time.Duration
}

type typeStats struct {
	count int
	total time.Duration
	max   time.Duration
}

// Stats aggregates inclusive expression timings per expression type.
// Nested expressions are counted in their parents as well, so totals of
// different types overlap.
type Stats struct {
	byType  map[string]*typeStats
	open    int
	invalid int
}

// NewStats creates an empty Stats.
func NewStats() *Stats { return &Stats{byType: make(map[string]*typeStats)} }

// Add records one completed expression.
func (s *Stats) Add(sample Sample) {
	typ := sample.Type
	if typ == "" {
		typ = "n/a"
	}
	ts, ok := s.byType[typ]
	if !ok {
		ts = &typeStats{}
		s.byType[typ] = ts
	}
	ts.count++
	ts.total += sample.Duration
	if sample.Duration > ts.max {
		ts.max = sample.Duration
	}
}

// AddOpen counts an expression that never finished.
func (s *Stats) AddOpen() { s.open++ }

// AddInvalid counts an expression whose timing was discarded.
func (s *Stats) AddInvalid() { s.invalid++ }

// TypeReport summarizes one expression type.
type TypeReport struct {
	Type    string  `json:"type"`
	Count   int     `json:"count"`
	TotalMS float64 `json:"total_ms"`
	MeanMS  float64 `json:"mean_ms"`
	MaxMS   float64 `json:"max_ms"`
}

// Report is the serializable form of Stats.
type Report struct {
	Count   int          `json:"count"`
	Open    int          `json:"open,omitempty"`
	Invalid int          `json:"invalid,omitempty"`
	Types   []TypeReport `json:"types"`
}

// Report returns per-type summaries ordered by total time, largest first.
func (s *Stats) Report() Report {
	report := Report{
		Open:    s.open,
		Invalid: s.invalid,
		Types:   make([]TypeReport, 0, len(s.byType)),
	}
	for typ, ts := range s.byType {
		report.Count += ts.count
		report.Types = append(report.Types, TypeReport{
			Type:    typ,
			Count:   ts.count,
			TotalMS: durationToMillis(ts.total),
			MeanMS:  durationToMillis(ts.total / time.Duration(ts.count)),
			MaxMS:   durationToMillis(ts.max),
		})
	}
	sort.Slice(report.Types, func(i, j int) bool {
		a, b := report.Types[i], report.Types[j]
		if a.TotalMS != b.TotalMS {
			return a.TotalMS > b.TotalMS
		}
		return a.Type < b.Type
	})
	return report
}

const typeColumnWidth = 20

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))

// Render writes the report as an aligned table. styled enables terminal
// styling of the header.
func (r Report) Render(w io.Writer, styled bool) error {
	header := fmt.Sprintf("%s %8s %12s %12s %12s",
		runewidth.FillRight("type", typeColumnWidth), "count", "total ms", "mean ms", "max ms")
	if styled {
		header = headerStyle.Render(header)
	}

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteByte('\n')
	for _, tr := range r.Types {
		fmt.Fprintf(&sb, "%s %8d %12.3f %12.3f %12.3f\n",
			fitColumn(tr.Type, typeColumnWidth), tr.Count, tr.TotalMS, tr.MeanMS, tr.MaxMS)
	}
	fmt.Fprintf(&sb, "%d expressions", r.Count)
	if r.Open > 0 {
		fmt.Fprintf(&sb, ", %d unfinished", r.Open)
	}
	if r.Invalid > 0 {
		fmt.Fprintf(&sb, ", %d invalid", r.Invalid)
	}
	sb.WriteByte('\n')

	_, err := io.WriteString(w, sb.String())
	return err
}

func fitColumn(value string, width int) string {
	if runewidth.StringWidth(value) > width {
		value = runewidth.Truncate(value, width, "...")
	}
	return runewidth.FillRight(value, width)
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
