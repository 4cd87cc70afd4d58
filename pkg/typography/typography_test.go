package typography

import (
	"testing"

	"github.com/BurntSushi/toml"
)

func TestDefaultTable(t *testing.T) {
	s := Default()

	tests := []struct {
		hasImage bool
		length   int
		want     TitleSize
	}{
		{false, 0, Largest},
		{false, 5, Largest},
		{false, 12, Largest},
		{false, 13, Large},
		{false, 24, Large},
		{false, 25, Medium},
		{false, 48, Medium},
		{false, 80, Small},
		{false, 81, Smallest},
		{false, 10000, Smallest},
		{true, 0, Large},
		{true, 12, Large},
		{true, 13, Medium},
		{true, 30, Small},
		{true, 80, Smallest},
		{true, 500, Smallest},
		{false, -5, Largest},
		{true, -1, Large},
	}

	for _, tt := range tests {
		if got := s.Size(tt.hasImage, tt.length); got != tt.want {
			t.Errorf("Size(%v, %d) = %s, want %s", tt.hasImage, tt.length, got, tt.want)
		}
	}
}

func TestSizeMonotone(t *testing.T) {
	s := Default()
	for _, hasImage := range []bool{false, true} {
		prev := Largest
		for n := 0; n <= 200; n++ {
			got := s.Size(hasImage, n)
			if got > prev {
				t.Fatalf("Size(%v, %d) = %s grew from %s", hasImage, n, got, prev)
			}
			prev = got
		}
	}
}

func TestImageLayoutNeverLarger(t *testing.T) {
	s := Default()
	for n := 0; n <= 200; n++ {
		if s.Size(true, n) > s.Size(false, n) {
			t.Fatalf("length %d: image layout %s larger than centered %s", n, s.Size(true, n), s.Size(false, n))
		}
	}
}

func TestTableValidate(t *testing.T) {
	tests := []struct {
		name    string
		steps   Steps
		wantErr bool
	}{
		{"default", DefaultTable().WithoutImage, false},
		{"empty", Steps{Overflow: Medium}, false},
		{"length not increasing", Steps{
			Thresholds: []Threshold{{10, Large}, {10, Medium}},
		}, true},
		{"size grows", Steps{
			Thresholds: []Threshold{{10, Medium}, {20, Large}},
		}, true},
		{"overflow grows", Steps{
			Thresholds: []Threshold{{10, Medium}},
			Overflow:   Largest,
		}, true},
		{"invalid size", Steps{
			Thresholds: []Threshold{{10, TitleSize(9)}},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := Table{WithImage: DefaultTable().WithImage, WithoutImage: tt.steps}
			err := table.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestScale(t *testing.T) {
	s := Default()
	if got := s.Pixels(false, 5); got != 150 {
		t.Errorf("Pixels(false, 5) = %v, want 150", got)
	}
	if got := s.Pixels(true, 100); got != 68 {
		t.Errorf("Pixels(true, 100) = %v, want 68", got)
	}

	bad := DefaultScale()
	bad[Small] = 200
	if err := bad.Validate(); err == nil {
		t.Error("expected error for unordered scale")
	}
	delete(bad, Small)
	if err := bad.Validate(); err == nil {
		t.Error("expected error for missing size")
	}
}

func TestLength(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"Hello", 5},
		{"caf\u00e9", 4},
		{"cafe\u0301", 4},
		{"日本語", 3},
	}
	for _, tt := range tests {
		if got := Length(tt.in); got != tt.want {
			t.Errorf("Length(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTableFromTOML(t *testing.T) {
	const doc = `
[with_image]
overflow = "smallest"
thresholds = [
  { max_length = 20, size = "medium" },
  { max_length = 60, size = "small" },
]

[without_image]
overflow = "small"
thresholds = [
  { max_length = 30, size = "largest" },
]
`
	var table Table
	if _, err := toml.Decode(doc, &table); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	s, err := New(table, DefaultScale())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := s.Size(true, 21); got != Small {
		t.Errorf("Size(true, 21) = %s, want small", got)
	}
	if got := s.Size(false, 31); got != Small {
		t.Errorf("Size(false, 31) = %s, want small", got)
	}
}
