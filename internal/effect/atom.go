package effect

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/ags/internal/world"
)

// Kind names an effect atom variant.
type Kind string

// Built-in atom kinds.
const (
	KindHP           Kind = "hp"
	KindResource     Kind = "resource"
	KindPosition     Kind = "position"
	KindClock        Kind = "clock"
	KindGuard        Kind = "guard"
	KindMark         Kind = "mark"
	KindTag          Kind = "tag"
	KindRelationship Kind = "relationship"
	KindReveal       Kind = "reveal"
	KindVisibility   Kind = "visibility"
	KindExit         Kind = "exit"
	KindInventory    Kind = "inventory"
	KindSpawn        Kind = "spawn"
	KindRemove       Kind = "remove"
	KindTurn         Kind = "turn"
	KindSchedule     Kind = "schedule"
	KindChoice       Kind = "choice"
)

// Atom is a single minimal state mutation. It is a closed tagged variant:
// Kind selects the handler and which of the optional fields it reads.
//
//	hp           target, delta | dice
//	resource     target, resource, delta | dice
//	position     target, to (remove=true leaves the zone)
//	clock        target, delta | dice, max and name when creating
//	guard        target, delta | dice, duration
//	mark         target, mark, remove
//	tag          target (entity, zone or "scene"), tag | key+value, remove
//	relationship source, target, rel_kind, delta | dice | set
//	reveal       target, observer, remove
//	visibility   target, level
//	exit         target (zone), to, blocked
//	inventory    target (holder), item, delta, equip, remove
//	spawn        entity
//	remove       target
//	turn         (no fields)
//	schedule     effect, delay; or id + remove to cancel
//	choice       prompt, options, actor; remove clears
type Atom struct {
	Kind     Kind             `json:"kind"`
	Target   string           `json:"target,omitempty"`
	Delta    int              `json:"delta,omitempty"`
	Dice     string           `json:"dice,omitempty"`
	Set      *int             `json:"set,omitempty"`
	To       string           `json:"to,omitempty"`
	Duration int              `json:"duration,omitempty"`
	Mark     string           `json:"mark,omitempty"`
	Tag      string           `json:"tag,omitempty"`
	Key      string           `json:"key,omitempty"`
	Value    string           `json:"value,omitempty"`
	Remove   bool             `json:"remove,omitempty"`
	Resource string           `json:"resource,omitempty"`
	Name     string           `json:"name,omitempty"`
	Max      int              `json:"max,omitempty"`
	Source   string           `json:"source,omitempty"`
	RelKind  world.RelKind    `json:"rel_kind,omitempty"`
	Observer string           `json:"observer,omitempty"`
	Level    world.Visibility `json:"level,omitempty"`
	Blocked  *bool            `json:"blocked,omitempty"`
	Item     string           `json:"item,omitempty"`
	Equip    *bool            `json:"equip,omitempty"`
	Entity   *world.Entity    `json:"entity,omitempty"`
	Effect   *Atom            `json:"effect,omitempty"`
	Delay    int              `json:"delay,omitempty"`
	ID       string           `json:"id,omitempty"`
	Prompt   string           `json:"prompt,omitempty"`
	Options  []string         `json:"options,omitempty"`
	Actor    string           `json:"actor,omitempty"`
}

// String renders a short form for logs.
func (a Atom) String() string {
	switch {
	case a.Dice != "":
		return fmt.Sprintf("%s{%s %s}", a.Kind, a.Target, a.Dice)
	case a.Delta != 0:
		return fmt.Sprintf("%s{%s %+d}", a.Kind, a.Target, a.Delta)
	case a.To != "":
		return fmt.Sprintf("%s{%s -> %s}", a.Kind, a.Target, a.To)
	case a.Target != "":
		return fmt.Sprintf("%s{%s}", a.Kind, a.Target)
	default:
		return string(a.Kind)
	}
}

// Marshal encodes the atom as JSON for logs and persistence.
func (a Atom) Marshal() (json.RawMessage, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal %s atom: %w", a.Kind, err)
	}
	return data, nil
}

// Unmarshal decodes an atom. Unknown fields are rejected.
func Unmarshal(data []byte) (Atom, error) {
	var a Atom
	if err := strictUnmarshal(data, &a); err != nil {
		return Atom{}, fmt.Errorf("unmarshal atom: %w", err)
	}
	return a, nil
}

// MarshalAll encodes a batch of atoms.
func MarshalAll(atoms []Atom) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(atoms))
	for _, a := range atoms {
		raw, err := a.Marshal()
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

// UnmarshalAll decodes a batch of atoms.
func UnmarshalAll(raws []json.RawMessage) ([]Atom, error) {
	out := make([]Atom, 0, len(raws))
	for i, raw := range raws {
		a, err := Unmarshal(raw)
		if err != nil {
			return nil, fmt.Errorf("effect %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}
