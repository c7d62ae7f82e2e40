package sweep

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownKind is returned when a benchmark kind identifier is not in the catalog.
	ErrUnknownKind = errors.New("unknown benchmark kind")
	// ErrUnknownVariant is returned when a table identifier is not in the catalog.
	ErrUnknownVariant = errors.New("unknown table variant")
)

// Workload identifies which sweep parameter a kind's elapsed time is measured against.
type Workload int

const (
	// ElementWorkload measures throughput over the element count.
	ElementWorkload Workload = iota
	// StreamWorkload measures throughput over the mixed-operation stream size.
	StreamWorkload
)

// Kind describes one benchmark binary family.
type Kind struct {
	// ID is the single-letter selector used on the command line (e.g. "i").
	ID string
	// Name is the short name used for binaries, scripts and logs (e.g. "ins").
	Name string
	// Columns are the timing columns reported for this kind, in header order.
	Columns []string
	// Workload selects the numerator of the throughput conversion.
	Workload Workload
	// OpsMultiplier scales throughput for kinds that perform paired operations per event.
	OpsMultiplier float64
}

// ScriptName is the generated script file name for this kind.
func (k Kind) ScriptName() string {
	return k.Name + "_benchmark.sh"
}

// LogName is the captured output file name for this kind.
func (k Kind) LogName() string {
	return k.Name + "_benchmark.out"
}

func (k Kind) String() string {
	return k.Name
}

var kinds = []Kind{
	{
		ID:            "i",
		Name:          "ins",
		Columns:       []string{"t_ins", "t_find_-", "t_find_+"},
		Workload:      ElementWorkload,
		OpsMultiplier: 1,
	},
	{
		ID:      "d",
		Name:    "del",
		Columns: []string{"t_del", "t_val"},
		// every event is a delete paired with an insert
		Workload:      ElementWorkload,
		OpsMultiplier: 2,
	},
	{
		ID:            "m",
		Name:          "mix",
		Columns:       []string{"t_mix"},
		Workload:      StreamWorkload,
		OpsMultiplier: 1,
	},
	{
		ID:            "c",
		Name:          "con",
		Columns:       []string{"t_ins_or", "t_updt_c", "t_find_c"},
		Workload:      ElementWorkload,
		OpsMultiplier: 1,
	},
}

var variantNames = []struct {
	ID   string
	Name string
}{
	{"f", "folly"},
	{"c", "cuckoo"},
	{"r", "robinhood"},
	{"s", "ska"},
	{"g", "paGrowT"},
	{"j", "junction"},
	{"t", "tbb"},
}

// LookupKind returns the catalog entry for a kind identifier.
func LookupKind(id string) (Kind, error) {
	for _, k := range kinds {
		if k.ID == id {
			return k, nil
		}
	}
	return Kind{}, fmt.Errorf("%w: %q", ErrUnknownKind, id)
}

// LookupVariantName returns the display name for a table identifier.
func LookupVariantName(id string) (string, error) {
	for _, v := range variantNames {
		if v.ID == id {
			return v.Name, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVariant, id)
}

// Kinds returns every known benchmark kind in catalog order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}
