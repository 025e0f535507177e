package world

import "slices"

// Exit is a directed connection from one zone to another.
type Exit struct {
	To      string `json:"to"`
	Label   string `json:"label,omitempty"`
	Blocked bool   `json:"blocked,omitempty"`
	OneWay  bool   `json:"one_way,omitempty"`
}

// Zone is a location entities may occupy.
type Zone struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Exits       []Exit `json:"exits,omitempty"`
	Tags        Set    `json:"tags,omitempty"`
	Meta        Meta   `json:"meta"`
}

// ExitTo returns the index of the first exit leading to dest, or -1.
func (z *Zone) ExitTo(dest string) int {
	return slices.IndexFunc(z.Exits, func(e Exit) bool { return e.To == dest })
}

// Adjacent reports whether an unblocked exit leads to dest.
func (z *Zone) Adjacent(dest string) bool {
	i := z.ExitTo(dest)
	return i >= 0 && !z.Exits[i].Blocked
}

// Clone returns a deep copy of the zone.
func (z *Zone) Clone() *Zone {
	c := *z
	c.Exits = slices.Clone(z.Exits)
	c.Tags = z.Tags.Clone()
	c.Meta = z.Meta.Clone()
	return &c
}

// RecordID implements Record.
func (z *Zone) RecordID() string { return z.ID }

// RecordKind implements Record.
func (z *Zone) RecordKind() string { return "zone" }

// RecordMeta implements Record.
func (z *Zone) RecordMeta() Meta { return z.Meta }
