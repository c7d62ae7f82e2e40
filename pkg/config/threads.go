package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Threads selects the swept thread counts: either an explicit list or a
// [start, end] range that doubles from start while not exceeding end.
//
// In a config file it is written as a bare list ([1, 2, 4]), as
// {"list": [1, 2, 4]}, or as {"range": [1, 64]}.
type Threads struct {
	List  []int   `json:"list,omitempty" yaml:"list,omitempty"`
	Range *[2]int `json:"range,omitempty" yaml:"range,omitempty"`
}

// IsZero reports whether no thread counts were configured.
func (t Threads) IsZero() bool {
	return len(t.List) == 0 && t.Range == nil
}

// Counts resolves the thread counts.
func (t Threads) Counts() ([]int, error) {
	switch {
	case len(t.List) > 0 && t.Range != nil:
		return nil, errors.New("threads: list and range are mutually exclusive")
	case len(t.List) > 0:
		return append([]int(nil), t.List...), nil
	case t.Range != nil:
		return DoublingRange(t.Range[0], t.Range[1])
	default:
		return nil, errors.New("threads: no thread counts specified")
	}
}

// DoublingRange returns start, 2*start, 4*start, ... up to and including end.
func DoublingRange(start, end int) ([]int, error) {
	if start < 1 {
		return nil, fmt.Errorf("threads: range start must be positive, got %d", start)
	}
	if end < start {
		return nil, fmt.Errorf("threads: range end %d is below start %d", end, start)
	}
	var out []int
	for n := start; n <= end; n *= 2 {
		out = append(out, n)
	}
	return out, nil
}

// ParseThreadList parses a CLI list like "1,2,4" or "1 2 4".
func ParseThreadList(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty thread list")
	}
	out := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid thread count %q: %w", f, err)
		}
		out[i] = n
	}
	return out, nil
}

// ParseThreadRange parses a CLI range like "1,64" or "1:64".
func ParseThreadRange(s string) (*[2]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ':' || r == ' ' })
	if len(fields) != 2 {
		return nil, fmt.Errorf("invalid thread range %q: expected start,end", s)
	}
	var r [2]int
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid thread range %q: %w", s, err)
		}
		r[i] = n
	}
	return &r, nil
}

func (t *Threads) UnmarshalJSON(data []byte) error {
	var list []int
	if err := json.Unmarshal(data, &list); err == nil {
		*t = Threads{List: list}
		return nil
	}
	type plain Threads
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("expected thread list or {\"list\"|\"range\": ...}, got %s", string(data))
	}
	*t = Threads(p)
	return nil
}

func (t *Threads) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var list []int
		if err := node.Decode(&list); err != nil {
			return err
		}
		*t = Threads{List: list}
		return nil
	}
	type plain Threads
	var p plain
	if err := node.Decode(&p); err != nil {
		return fmt.Errorf("line %d: expected thread list or list/range mapping: %w", node.Line, err)
	}
	*t = Threads(p)
	return nil
}
