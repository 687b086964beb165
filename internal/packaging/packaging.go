// Package packaging converts hierarchical package counts (case ⊃ box ⊃ piece)
// into a single base-unit quantity.
package packaging

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxCount bounds the number of packages accepted for any one level.
const MaxCount = 1_000_000_000

var (
	ErrInvalidMultiplier = errors.New("packaging multiplier must be a positive integer")
	ErrCountOutOfRange   = fmt.Errorf("package count must be between 0 and %d", MaxCount)
)

// Level is one packaging level. Units is the number of base units one package
// of this level holds.
type Level struct {
	Name  string
	Units int
}

// Structure describes how a product is packed. The case and box levels are
// both optional; pieces (the base unit) are always present.
type Structure struct {
	BaseUnit string
	caseLvl  *Level
	boxLvl   *Level
}

type Option func(*Structure) error

func WithCase(name string, units int) Option {
	return func(s *Structure) error {
		if units <= 0 {
			return ErrInvalidMultiplier
		}
		s.caseLvl = &Level{Name: name, Units: units}
		return nil
	}
}

func WithBox(name string, units int) Option {
	return func(s *Structure) error {
		if units <= 0 {
			return ErrInvalidMultiplier
		}
		s.boxLvl = &Level{Name: name, Units: units}
		return nil
	}
}

func NewStructure(baseUnit string, opts ...Option) (*Structure, error) {
	if baseUnit == "" {
		baseUnit = "piece"
	}
	s := &Structure{BaseUnit: baseUnit}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// FromContains builds a structure from "contains" multipliers: a case holds
// boxesPerCase boxes and a box holds piecesPerBox pieces. A zero multiplier
// means the level does not exist. A case without a box level holds
// boxesPerCase pieces directly.
func FromContains(baseUnit string, boxesPerCase, piecesPerBox int) (*Structure, error) {
	if boxesPerCase < 0 || piecesPerBox < 0 {
		return nil, ErrInvalidMultiplier
	}
	var opts []Option
	if piecesPerBox > 0 {
		opts = append(opts, WithBox("box", piecesPerBox))
	}
	if boxesPerCase > 0 {
		perCase := boxesPerCase
		if piecesPerBox > 0 {
			if boxesPerCase > math.MaxInt/piecesPerBox {
				return nil, ErrInvalidMultiplier
			}
			perCase *= piecesPerBox
		}
		opts = append(opts, WithCase("case", perCase))
	}
	return NewStructure(baseUnit, opts...)
}

func (s *Structure) HasCase() bool { return s != nil && s.caseLvl != nil }
func (s *Structure) HasBox() bool  { return s != nil && s.boxLvl != nil }

// Case returns the case level, if defined.
func (s *Structure) Case() (Level, bool) {
	if !s.HasCase() {
		return Level{}, false
	}
	return *s.caseLvl, true
}

// Box returns the box level, if defined.
func (s *Structure) Box() (Level, bool) {
	if !s.HasBox() {
		return Level{}, false
	}
	return *s.boxLvl, true
}

// Convert returns the total number of base units for the given counts.
// Counts for levels the structure does not define are ignored, and negative
// counts are treated as zero. A nil structure counts pieces only. The total
// saturates at math.MaxInt instead of wrapping.
func Convert(s *Structure, cases, boxes, pieces int) int {
	total := clamp(pieces)
	if s.HasCase() {
		total = mulAdd(total, clamp(cases), s.caseLvl.Units)
	}
	if s.HasBox() {
		total = mulAdd(total, clamp(boxes), s.boxLvl.Units)
	}
	return total
}

// CheckCounts rejects package counts outside [0, MaxCount].
func CheckCounts(counts ...int) error {
	for _, n := range counts {
		if n < 0 || n > MaxCount {
			return fmt.Errorf("%w: got %d", ErrCountOutOfRange, n)
		}
	}
	return nil
}

// mulAdd returns total + n*units for non-negative operands, saturating at
// math.MaxInt.
func mulAdd(total, n, units int) int {
	if n == 0 {
		return total
	}
	if units > (math.MaxInt-total)/n {
		return math.MaxInt
	}
	return total + n*units
}

// ConvertInput is Convert over raw operator input.
func ConvertInput(s *Structure, cases, boxes, pieces string) int {
	return Convert(s, ParseCount(cases), ParseCount(boxes), ParseCount(pieces))
}

// ParseCount parses a count typed by an operator. Blank, unparseable and NaN
// input yields 0; negative values are clamped to 0; fractions are truncated.
// Values above MaxCount are capped at MaxCount.
func ParseCount(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return min(clamp(n), MaxCount)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	if f >= MaxCount {
		return MaxCount
	}
	return clamp(int(f))
}

// Breakdown splits a base-unit total into the largest defined packages first.
func Breakdown(s *Structure, total int) (cases, boxes, pieces int) {
	rest := clamp(total)
	if s.HasCase() {
		cases = rest / s.caseLvl.Units
		rest %= s.caseLvl.Units
	}
	if s.HasBox() {
		boxes = rest / s.boxLvl.Units
		rest %= s.boxLvl.Units
	}
	return cases, boxes, rest
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
