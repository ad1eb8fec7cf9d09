package models

// ColorTable is a per-channel color map of arbitrary length.
type ColorTable struct {
	Name  string
	Red   []uint8
	Green []uint8
	Blue  []uint8
}

// NewRampTable builds a 256-entry ramp from black to the given color.
func NewRampTable(name string, r, g, b uint8) *ColorTable {
	t := &ColorTable{
		Name:  name,
		Red:   make([]uint8, 256),
		Green: make([]uint8, 256),
		Blue:  make([]uint8, 256),
	}
	for i := 0; i < 256; i++ {
		t.Red[i] = uint8(i * int(r) / 255)
		t.Green[i] = uint8(i * int(g) / 255)
		t.Blue[i] = uint8(i * int(b) / 255)
	}
	return t
}

var (
	RedTable     = NewRampTable("red", 255, 0, 0)
	GreenTable   = NewRampTable("green", 0, 255, 0)
	BlueTable    = NewRampTable("blue", 0, 0, 255)
	CyanTable    = NewRampTable("cyan", 0, 255, 255)
	MagentaTable = NewRampTable("magenta", 255, 0, 255)
	YellowTable  = NewRampTable("yellow", 255, 255, 0)
	GrayTable    = NewRampTable("gray", 255, 255, 255)
)

var defaultTables = []*ColorTable{RedTable, GreenTable, BlueTable, CyanTable, MagentaTable, YellowTable, GrayTable}

// DefaultColorTable returns the conventional table for channel c.
func DefaultColorTable(c int) *ColorTable {
	if c < 0 {
		c = 0
	}
	return defaultTables[c%len(defaultTables)]
}

// Len is the number of entries.
func (t *ColorTable) Len() int { return len(t.Red) }

// IsGray reports whether the table is a monotone gray ramp over 0..255.
func (t *ColorTable) IsGray() bool {
	n := t.Len()
	if n < 2 {
		return false
	}
	for i := 0; i < n; i++ {
		if t.Red[i] != t.Green[i] || t.Green[i] != t.Blue[i] {
			return false
		}
	}
	return t.Red[0] == 0 && t.Red[n-1] == 255
}

// Equal compares entries; names are ignored.
func (t *ColorTable) Equal(o *ColorTable) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Len() != o.Len() {
		return false
	}
	for i := range t.Red {
		if t.Red[i] != o.Red[i] || t.Green[i] != o.Green[i] || t.Blue[i] != o.Blue[i] {
			return false
		}
	}
	return true
}
