package source

import (
	"fmt"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"
)

// StringID identifies an interned name. NoStringID is the empty name.
type StringID uint32

const NoStringID StringID = 0

// Interner maps declaration names to dense IDs. Names are stored in NFC so
// that composed and decomposed spellings of the same identifier share an ID.
// It is not safe for concurrent use; each fixture owns its own interner.
type Interner struct {
	names []string
	ids   map[string]StringID
}

func NewInterner() *Interner {
	return &Interner{
		names: []string{""},
		ids:   map[string]StringID{"": NoStringID},
	}
}

// Intern returns the ID of s, adding it on first use.
func (in *Interner) Intern(s string) StringID {
	s = norm.NFC.String(s)
	if id, ok := in.ids[s]; ok {
		return id
	}
	id, err := safecast.Conv[StringID](len(in.names))
	if err != nil {
		panic(fmt.Errorf("name interner overflow: %w", err))
	}
	s = string([]byte(s)) // detach from the caller's buffer
	in.names = append(in.names, s)
	in.ids[s] = id
	return id
}

// Find reports the ID of s without interning it.
func (in *Interner) Find(s string) (StringID, bool) {
	id, ok := in.ids[norm.NFC.String(s)]
	return id, ok
}

func (in *Interner) Lookup(id StringID) (string, bool) {
	if int(id) >= len(in.names) {
		return "", false
	}
	return in.names[id], true
}

// MustLookup panics on IDs this interner never issued.
func (in *Interner) MustLookup(id StringID) string {
	s, ok := in.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("source: unknown string id %d", id))
	}
	return s
}

// Len counts interned names, NoStringID included.
func (in *Interner) Len() int { return len(in.names) }
