package config

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Count is an element count that can be unmarshaled from human-readable strings
// like "10M", "16Mi", "1.5k", or plain numbers.
type Count int64

// Common count constants
const (
	Kilo Count = 1000
	Kibi Count = 1024
	Mega Count = 1000 * 1000
	Mebi Count = 1024 * 1024
	Giga Count = 1000 * 1000 * 1000
	Gibi Count = 1024 * 1024 * 1024
)

// Int64 returns the count as an int64.
func (c Count) Int64() int64 {
	return int64(c)
}

// String returns a human-readable representation.
func (c Count) String() string {
	switch {
	case c >= Gibi && c%Gibi == 0:
		return fmt.Sprintf("%dGi", c/Gibi)
	case c >= Mebi && c%Mebi == 0:
		return fmt.Sprintf("%dMi", c/Mebi)
	case c >= Kibi && c%Kibi == 0 && c%Kilo != 0:
		return fmt.Sprintf("%dKi", c/Kibi)
	case c >= Giga && c%Giga == 0:
		return fmt.Sprintf("%dG", c/Giga)
	case c >= Mega && c%Mega == 0:
		return fmt.Sprintf("%dM", c/Mega)
	case c >= Kilo && c%Kilo == 0:
		return fmt.Sprintf("%dK", c/Kilo)
	default:
		return strconv.FormatInt(int64(c), 10)
	}
}

// Set implements flag.Value.
func (c *Count) Set(s string) error {
	parsed, err := ParseCount(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Count) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Count) UnmarshalJSON(data []byte) error {
	// Try parsing as string first
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Try parsing as number
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("expected count string or number, got %s", string(data))
		}
		if n < 0 || n != math.Trunc(n) {
			return fmt.Errorf("invalid count %s: must be a non-negative integer", string(data))
		}
		*c = Count(n)
		return nil
	}

	return c.Set(s)
}

func (c *Count) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected count, got a collection", node.Line)
	}
	if err := c.Set(node.Value); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	return nil
}

var countRegex = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?(?:e\d+)?)\s*(k|ki|m|mi|g|gi)?$`)

// ParseCount parses a human-readable count.
// Supported formats: "1000", "1e6", "10k", "10M", "16Mi", "1.5G", etc.
// Case insensitive. Binary suffixes (Ki, Mi, Gi) use 1024, decimal ones (k, M, G) use 1000.
func ParseCount(s string) (Count, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "_", ""))
	if s == "" {
		return 0, fmt.Errorf("empty count string")
	}

	matches := countRegex.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("invalid count %q: expected format like '10M', '16Mi', or '1000'", s)
	}

	num, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid count %q: %w", s, err)
	}

	var multiplier Count
	switch strings.ToLower(matches[2]) {
	case "":
		multiplier = 1
	case "k":
		multiplier = Kilo
	case "ki":
		multiplier = Kibi
	case "m":
		multiplier = Mega
	case "mi":
		multiplier = Mebi
	case "g":
		multiplier = Giga
	case "gi":
		multiplier = Gibi
	}

	n := num * float64(multiplier)
	if n != math.Trunc(n) {
		return 0, fmt.Errorf("invalid count %q: not a whole number", s)
	}
	return Count(n), nil
}
