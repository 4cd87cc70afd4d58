// Package typography picks the title font size.
//
// The policy is data: a [Table] of ordered length thresholds for each hero
// layout, and a [Scale] mapping each [TitleSize] to pixels. Both can be
// loaded from configuration; [Table.Validate] guarantees the resulting step
// function never grows as the title gets longer.
package typography

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/matzehuels/wnft/pkg/errors"
)

// TitleSize is a step on the title scale. Larger values are larger type.
type TitleSize int

// Title sizes, smallest first.
const (
	Smallest TitleSize = iota
	Small
	Medium
	Large
	Largest
)

var sizeNames = [...]string{"smallest", "small", "medium", "large", "largest"}

func (s TitleSize) String() string {
	if s < Smallest || s > Largest {
		return fmt.Sprintf("TitleSize(%d)", int(s))
	}
	return sizeNames[s]
}

// Valid reports whether s is on the scale.
func (s TitleSize) Valid() bool { return s >= Smallest && s <= Largest }

// ParseTitleSize parses a lower-case size name.
func ParseTitleSize(name string) (TitleSize, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range sizeNames {
		if n == name {
			return TitleSize(i), nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "invalid title size: %q (must be one of: %s)", name, strings.Join(sizeNames[:], ", "))
}

// MarshalText implements encoding.TextMarshaler.
func (s TitleSize) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid title size %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so sizes can be written
// by name in TOML.
func (s *TitleSize) UnmarshalText(b []byte) error {
	v, err := ParseTitleSize(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Threshold applies Size to titles of at most MaxLength characters.
type Threshold struct {
	MaxLength int       `toml:"max_length"`
	Size      TitleSize `toml:"size"`
}

// Steps is an ordered threshold list plus the size used past its end.
type Steps struct {
	Thresholds []Threshold `toml:"thresholds"`
	Overflow   TitleSize   `toml:"overflow"`
}

func (st Steps) lookup(length int) TitleSize {
	for _, t := range st.Thresholds {
		if length <= t.MaxLength {
			return t.Size
		}
	}
	return st.Overflow
}

func (st Steps) validate(layout string) error {
	prevLen := -1
	prevSize := Largest
	for i, t := range st.Thresholds {
		if !t.Size.Valid() {
			return errors.New(errors.ErrCodeInvalidInput, "%s: threshold %d has invalid size %d", layout, i, int(t.Size))
		}
		if t.MaxLength <= prevLen {
			return errors.New(errors.ErrCodeInvalidInput, "%s: threshold %d max_length %d must exceed %d", layout, i, t.MaxLength, prevLen)
		}
		if t.Size > prevSize {
			return errors.New(errors.ErrCodeInvalidInput, "%s: threshold %d size %s is larger than the previous %s", layout, i, t.Size, prevSize)
		}
		prevLen, prevSize = t.MaxLength, t.Size
	}
	if !st.Overflow.Valid() {
		return errors.New(errors.ErrCodeInvalidInput, "%s: invalid overflow size %d", layout, int(st.Overflow))
	}
	if st.Overflow > prevSize {
		return errors.New(errors.ErrCodeInvalidInput, "%s: overflow size %s is larger than %s", layout, st.Overflow, prevSize)
	}
	return nil
}

// Table holds the steps for both hero layouts.
type Table struct {
	WithImage    Steps `toml:"with_image"`
	WithoutImage Steps `toml:"without_image"`
}

// DefaultTable returns the built-in thresholds. The image layout is one step
// smaller at every length since the featured image takes half the card.
func DefaultTable() Table {
	return Table{
		WithImage: Steps{
			Thresholds: []Threshold{
				{MaxLength: 12, Size: Large},
				{MaxLength: 24, Size: Medium},
				{MaxLength: 48, Size: Small},
				{MaxLength: 80, Size: Smallest},
			},
			Overflow: Smallest,
		},
		WithoutImage: Steps{
			Thresholds: []Threshold{
				{MaxLength: 12, Size: Largest},
				{MaxLength: 24, Size: Large},
				{MaxLength: 48, Size: Medium},
				{MaxLength: 80, Size: Small},
			},
			Overflow: Smallest,
		},
	}
}

// Validate checks both step lists are strictly increasing in length and
// non-increasing in size.
func (t Table) Validate() error {
	if err := t.WithImage.validate("with_image"); err != nil {
		return err
	}
	return t.WithoutImage.validate("without_image")
}

// Scale maps title sizes to pixel font sizes.
type Scale map[TitleSize]float64

// DefaultScale returns the built-in pixel sizes.
func DefaultScale() Scale {
	return Scale{
		Largest:  150,
		Large:    128,
		Medium:   104,
		Small:    84,
		Smallest: 68,
	}
}

// Validate checks every size has a positive, ordered pixel value.
func (s Scale) Validate() error {
	prev := 0.0
	for ts := Smallest; ts <= Largest; ts++ {
		px, ok := s[ts]
		if !ok {
			return errors.New(errors.ErrCodeInvalidInput, "scale is missing %s", ts)
		}
		if px <= 0 || px < prev {
			return errors.New(errors.ErrCodeInvalidInput, "scale %s = %v must be positive and not below %v", ts, px, prev)
		}
		prev = px
	}
	return nil
}

// Pixels returns the font size for ts.
func (s Scale) Pixels(ts TitleSize) float64 { return s[ts] }

// Sizer applies a Table. The zero value is not usable; use New or Default.
type Sizer struct {
	table Table
	scale Scale
}

// New returns a Sizer for a validated table and scale.
func New(table Table, scale Scale) (*Sizer, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if err := scale.Validate(); err != nil {
		return nil, err
	}
	return &Sizer{table: table, scale: scale}, nil
}

// Default returns a Sizer over DefaultTable and DefaultScale.
func Default() *Sizer {
	s, err := New(DefaultTable(), DefaultScale())
	if err != nil {
		panic(err)
	}
	return s
}

// Size returns the title size for a title of titleLength characters. Negative
// lengths are treated as zero.
func (s *Sizer) Size(hasFeaturedImage bool, titleLength int) TitleSize {
	if titleLength < 0 {
		titleLength = 0
	}
	if hasFeaturedImage {
		return s.table.WithImage.lookup(titleLength)
	}
	return s.table.WithoutImage.lookup(titleLength)
}

// Pixels is Size followed by a scale lookup.
func (s *Sizer) Pixels(hasFeaturedImage bool, titleLength int) float64 {
	return s.scale.Pixels(s.Size(hasFeaturedImage, titleLength))
}

// Length counts the code points of title after NFC normalization, so a
// precomposed and a decomposed "é" have the same length.
func Length(title string) int {
	return utf8.RuneCountInString(norm.NFC.String(title))
}
