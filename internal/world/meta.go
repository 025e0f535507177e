package world

// Visibility controls who may observe a record.
type Visibility string

const (
	// VisibilityPublic records follow the spatial observation rules.
	VisibilityPublic Visibility = "public"
	// VisibilityHidden records additionally require the observer in known_by.
	VisibilityHidden Visibility = "hidden"
	// VisibilityGMOnly records are never observable by players.
	VisibilityGMOnly Visibility = "gm_only"
)

// Valid reports whether v is a known visibility level. The empty value
// is treated as public.
func (v Visibility) Valid() bool {
	switch v {
	case "", VisibilityPublic, VisibilityHidden, VisibilityGMOnly:
		return true
	}
	return false
}

// Source records where a record came from.
type Source string

const (
	SourceManual    Source = "manual"
	SourceGenerated Source = "generated"
	SourceImported  Source = "imported"
)

// Meta is the out-of-world sub-record carried by every record. It is never
// exposed raw through redaction.
type Meta struct {
	Visibility Visibility `json:"visibility,omitempty"`
	KnownBy    Set        `json:"known_by,omitempty"`
	Source     Source     `json:"source,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  string     `json:"created_at,omitempty"`
	ChangedAt  string     `json:"changed_at,omitempty"`
}

// GMOnly reports whether the record is restricted to the game master.
func (m Meta) GMOnly() bool {
	return m.Visibility == VisibilityGMOnly
}

// Hidden reports whether the record is hidden from observers not in known_by.
func (m Meta) Hidden() bool {
	return m.Visibility == VisibilityHidden
}

// Knows reports whether observer is in known_by.
func (m Meta) Knows(observer string) bool {
	return observer != "" && m.KnownBy.Has(observer)
}

// Clone returns a deep copy.
func (m Meta) Clone() Meta {
	m.KnownBy = m.KnownBy.Clone()
	return m
}
