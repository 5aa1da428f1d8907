package catalog

// Locations is the immutable directory mapping raw machine or location
// identifiers to canonical display names.
type Locations struct {
	byRawName map[string]string
}

// NewLocations builds a directory from raw_name -> display_name pairs.
func NewLocations(m map[string]string) *Locations {
	if m == nil {
		m = make(map[string]string)
	}
	return &Locations{byRawName: m}
}

// Lookup returns the display name for a raw identifier.
func (l *Locations) Lookup(raw string) (string, bool) {
	name, ok := l.byRawName[raw]
	return name, ok
}

// Len returns the number of directory entries.
func (l *Locations) Len() int {
	return len(l.byRawName)
}
