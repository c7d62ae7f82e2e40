// Package sweep models a hash-table benchmark sweep: which tables run which
// benchmark kinds at which thread counts, and the dataset keyed by those axes.
package sweep

import (
	"errors"
	"fmt"
	"slices"
)

// Class tags a table variant with how it participates in the sweep.
type Class int

const (
	// Measured variants run at every thread count in the sweep.
	Measured Class = iota
	// ReferenceOnly variants run single-threaded only; their serial result
	// stands in for every other thread count.
	ReferenceOnly
)

func (c Class) String() string {
	switch c {
	case Measured:
		return "measured"
	case ReferenceOnly:
		return "reference"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// Variant is one hash-table implementation under test.
type Variant struct {
	ID    string
	Name  string
	Class Class
}

// Params are the fixed per-kind parameters passed to every invocation.
type Params struct {
	ElementCount int64 `json:"elements"`
	// Capacity is the initial table capacity. Zero leaves the binary's default.
	Capacity     int64   `json:"capacity"`
	StreamSize   int64   `json:"stream_size"`
	WritePercent float64 `json:"write_percent"`
	// Iterations is the number of measured trials. One extra warm-up trial is always run.
	Iterations int    `json:"iterations"`
	DistFile   string `json:"dist_file,omitempty"`
	BinDir     string `json:"bin_dir,omitempty"`
}

// Trials is the number of trials each invocation runs, warm-up included.
func (p Params) Trials() int {
	return p.Iterations + 1
}

// Spec is the unvalidated input to New.
type Spec struct {
	Kinds    []string // kind IDs
	Variants []string // variant IDs, in report order
	Threads  []int
	Params   Params

	// Reference is the ID of the single-threaded reference variant ("" for none).
	Reference string
	// Baseline is the ID of the comparison anchor ("" for none).
	Baseline string
}

// Sweep is an immutable, validated parameter sweep.
type Sweep struct {
	kinds     []Kind
	variants  []Variant
	threads   []int
	params    Params
	reference string
	baseline  string
}

// New validates spec and builds a Sweep. All problems are reported together.
func New(spec Spec) (*Sweep, error) {
	var errs []error
	s := &Sweep{params: spec.Params}

	seenKinds := make(map[string]bool)
	for _, id := range spec.Kinds {
		k, err := LookupKind(id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if seenKinds[id] {
			errs = append(errs, fmt.Errorf("benchmark kind %q selected twice", id))
			continue
		}
		seenKinds[id] = true
		s.kinds = append(s.kinds, k)
	}
	if len(spec.Kinds) == 0 {
		errs = append(errs, errors.New("no benchmark kinds selected"))
	}

	seenVariants := make(map[string]bool)
	for _, id := range spec.Variants {
		name, err := LookupVariantName(id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if seenVariants[id] {
			errs = append(errs, fmt.Errorf("table variant %q selected twice", id))
			continue
		}
		seenVariants[id] = true
		class := Measured
		if id == spec.Reference {
			class = ReferenceOnly
		}
		s.variants = append(s.variants, Variant{ID: id, Name: name, Class: class})
	}
	if len(spec.Variants) == 0 {
		errs = append(errs, errors.New("no table variants selected"))
	}

	if len(spec.Threads) == 0 {
		errs = append(errs, errors.New("no thread counts specified"))
	}
	for i, p := range spec.Threads {
		if p < 1 {
			errs = append(errs, fmt.Errorf("threads[%d]: thread count must be positive, got %d", i, p))
		}
		if i > 0 && p <= spec.Threads[i-1] {
			errs = append(errs, fmt.Errorf("threads[%d]: thread counts must be strictly increasing (%d after %d)", i, p, spec.Threads[i-1]))
		}
	}
	s.threads = slices.Clone(spec.Threads)

	for _, role := range []struct{ name, id string }{
		{"reference", spec.Reference},
		{"baseline", spec.Baseline},
	} {
		if role.id == "" {
			continue
		}
		if _, err := LookupVariantName(role.id); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", role.name, err))
		}
	}
	if spec.Reference != "" && spec.Reference == spec.Baseline {
		errs = append(errs, fmt.Errorf("reference and baseline must differ, both are %q", spec.Reference))
	}
	if seenVariants[spec.Reference] && len(spec.Threads) > 0 && spec.Threads[0] != 1 {
		errs = append(errs, fmt.Errorf("reference variant %q requires thread count 1 in the sweep", spec.Reference))
	}
	if spec.Params.Iterations < 1 {
		errs = append(errs, fmt.Errorf("iterations must be at least 1, got %d", spec.Params.Iterations))
	}

	if seenVariants[spec.Reference] {
		s.reference = spec.Reference
	}
	if seenVariants[spec.Baseline] {
		s.baseline = spec.Baseline
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return s, nil
}

// Kinds returns the selected benchmark kinds in selection order.
func (s *Sweep) Kinds() []Kind { return slices.Clone(s.kinds) }

// Variants returns the selected table variants in selection order.
func (s *Sweep) Variants() []Variant { return slices.Clone(s.variants) }

// Threads returns the swept thread counts in increasing order.
func (s *Sweep) Threads() []int { return slices.Clone(s.threads) }

// Params returns the fixed invocation parameters.
func (s *Sweep) Params() Params { return s.params }

// MaxThreads returns the highest swept thread count.
func (s *Sweep) MaxThreads() int { return s.threads[len(s.threads)-1] }

// HasThreads reports whether p is one of the swept thread counts.
func (s *Sweep) HasThreads(p int) bool { return slices.Contains(s.threads, p) }

// ThreadsFor returns the thread counts a variant is actually executed at.
func (s *Sweep) ThreadsFor(v Variant) []int {
	if v.Class != ReferenceOnly {
		return s.Threads()
	}
	var out []int
	for _, p := range s.threads {
		if p <= 1 {
			out = append(out, p)
		}
	}
	return out
}

// MeasuredVariants returns the variants that are run at every thread count.
func (s *Sweep) MeasuredVariants() []Variant {
	var out []Variant
	for _, v := range s.variants {
		if v.Class == Measured {
			out = append(out, v)
		}
	}
	return out
}

// Reference returns the reference variant, if it is part of the sweep.
func (s *Sweep) Reference() (Variant, bool) { return s.variant(s.reference) }

// Baseline returns the baseline variant, if it is part of the sweep.
func (s *Sweep) Baseline() (Variant, bool) { return s.variant(s.baseline) }

func (s *Sweep) variant(id string) (Variant, bool) {
	if id == "" {
		return Variant{}, false
	}
	for _, v := range s.variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// VariantByName resolves a display name (as printed in TABLE delimiters).
func (s *Sweep) VariantByName(name string) (Variant, bool) {
	for _, v := range s.variants {
		if v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}

// Metrics returns every (kind, column) pair of the sweep in report order.
func (s *Sweep) Metrics() []Metric {
	var out []Metric
	for _, k := range s.kinds {
		for _, col := range k.Columns {
			out = append(out, Metric{Kind: k, Column: col})
		}
	}
	return out
}
