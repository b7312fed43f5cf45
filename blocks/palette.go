package blocks

// Palette is an ordered list of unique descriptors referenced by index.  Index 0 is
// always Air and new descriptors are appended in first-seen order.
type Palette struct {
	entries []Descriptor
	index   map[string]uint32
}

// NewPalette returns a palette pre-seeded with Air at index 0.
func NewPalette() *Palette {
	p := &Palette{
		entries: make([]Descriptor, 1, 8),
		index:   make(map[string]uint32, 8),
	}
	p.entries[0] = Air
	p.index[Air.ID()] = 0
	return p
}

// Index returns the index for the descriptor, appending it if not yet present.
func (p *Palette) Index(d Descriptor) (idx uint32, added bool) {
	key := d.ID()
	if idx, found := p.index[key]; found {
		return idx, false
	}
	idx = uint32(len(p.entries))
	p.entries = append(p.entries, d)
	p.index[key] = idx
	return idx, true
}

// At returns the descriptor at the given index.
func (p *Palette) At(i uint32) Descriptor {
	return p.entries[i]
}

// Len returns the number of entries including Air.
func (p *Palette) Len() int {
	return len(p.entries)
}

// Entries returns a copy of the palette entries in index order.
func (p *Palette) Entries() []Descriptor {
	entries := make([]Descriptor, len(p.entries))
	copy(entries, p.entries)
	return entries
}
