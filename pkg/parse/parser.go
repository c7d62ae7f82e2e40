// Package parse reads captured benchmark logs into a sweep.Dataset.
//
// A log is the concatenated output of one generated script. TABLE delimiter
// lines name the active table. Header lines beginning with "#i" name the
// columns. Data lines carry one trial each. The benchmark binaries interleave
// free-form diagnostics with their tables, so any line that fits none of
// these shapes is skipped and counted.
package parse

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/justjake/tablebench/pkg/sweep"
)

const (
	// TableMarker prefixes delimiter lines: "TABLE: <name>".
	TableMarker = "TABLE"
	// HeaderMarker prefixes header lines once leading whitespace is trimmed.
	HeaderMarker = "#i"
	// ThreadsColumn is the header column carrying the thread count.
	ThreadsColumn = "p"
)

// State is the parser's position in the log grammar.
type State int

const (
	AwaitTable State = iota
	AwaitHeader
	AwaitData
)

func (s State) String() string {
	switch s {
	case AwaitTable:
		return "await-table"
	case AwaitHeader:
		return "await-header"
	case AwaitData:
		return "await-data"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Record is one data line zipped against the active header.
type Record struct {
	Table  string
	Fields map[string]string
}

// Threads returns the record's thread-count field.
func (r Record) Threads() (int, error) {
	v, ok := r.Fields[ThreadsColumn]
	if !ok {
		return 0, fmt.Errorf("record has no %q column", ThreadsColumn)
	}
	return strconv.Atoi(v)
}

// Float returns a numeric column.
func (r Record) Float(column string) (float64, error) {
	v, ok := r.Fields[column]
	if !ok {
		return 0, fmt.Errorf("record has no %q column", column)
	}
	return strconv.ParseFloat(v, 64)
}

// Stats counts what happened to every line of a log.
type Stats struct {
	Lines      int `json:"lines"`
	Delimiters int `json:"delimiters"`
	Headers    int `json:"headers"`
	Records    int `json:"records"`
	// Skipped lines matched no part of the grammar in the current state.
	Skipped int `json:"skipped"`
	// Malformed records had the right shape but a non-numeric value.
	Malformed int `json:"malformed"`
	// Unrouted records named a table or thread count the sweep has no series for.
	Unrouted int `json:"unrouted"`
}

// Parser is the state machine for one benchmark kind's log.
type Parser struct {
	sweep *sweep.Sweep
	kind  sweep.Kind
	data  *sweep.Dataset

	state  State
	table  string
	header []string
	stats  Stats
}

// NewParser creates a parser that appends kind's records to data.
func NewParser(s *sweep.Sweep, kind sweep.Kind, data *sweep.Dataset) *Parser {
	return &Parser{sweep: s, kind: kind, data: data}
}

// State returns the current state.
func (p *Parser) State() State { return p.state }

// Stats returns the line accounting so far.
func (p *Parser) Stats() Stats { return p.stats }

// Feed consumes one line.
func (p *Parser) Feed(line string) {
	p.stats.Lines++
	fields := strings.Fields(line)
	trimmed := strings.TrimSpace(line)

	switch {
	case strings.HasPrefix(trimmed, TableMarker):
		p.stats.Delimiters++
		name := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(trimmed, TableMarker), ":"))
		if name == "" {
			p.stats.Skipped++
			return
		}
		p.table = name
		p.header = nil
		p.state = AwaitHeader

	case strings.HasPrefix(trimmed, HeaderMarker) && p.state != AwaitTable:
		p.stats.Headers++
		p.header = fields
		p.state = AwaitData

	case p.state == AwaitData && len(fields) == len(p.header):
		p.record(fields)

	default:
		p.stats.Skipped++
	}
}

func (p *Parser) record(fields []string) {
	rec := Record{Table: p.table, Fields: make(map[string]string, len(fields))}
	for i, name := range p.header {
		rec.Fields[name] = fields[i]
	}

	threads, err := rec.Threads()
	if err != nil {
		p.stats.Malformed++
		return
	}
	values := make([]float64, len(p.kind.Columns))
	for i, col := range p.kind.Columns {
		v, err := rec.Float(col)
		if err != nil {
			p.stats.Malformed++
			return
		}
		values[i] = v
	}

	v, ok := p.sweep.VariantByName(rec.Table)
	if !ok || len(p.kind.Columns) == 0 {
		p.stats.Unrouted++
		return
	}
	// every column of a kind has the same set of series
	first := sweep.Key{Kind: p.kind.ID, Column: p.kind.Columns[0], Variant: v.ID, Threads: threads}
	if _, ok := p.data.Series(first); !ok {
		p.stats.Unrouted++
		return
	}

	p.stats.Records++
	for i, col := range p.kind.Columns {
		p.data.Append(sweep.Key{Kind: p.kind.ID, Column: col, Variant: v.ID, Threads: threads}, values[i])
	}
}

// Parse streams r through a new parser and returns its accounting.
func Parse(r io.Reader, s *sweep.Sweep, kind sweep.Kind, data *sweep.Dataset) (Stats, error) {
	p := NewParser(s, kind, data)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.Feed(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return p.Stats(), fmt.Errorf("failed to read %s log: %w", kind.Name, err)
	}
	return p.Stats(), nil
}

// ParseFile parses the log at path.
func ParseFile(path string, s *sweep.Sweep, kind sweep.Kind, data *sweep.Dataset) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to open %s log: %w", kind.Name, err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f, s, kind, data)
}
