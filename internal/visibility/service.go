package visibility

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/ags/internal/ir"
	"github.com/roach88/ags/internal/world"
)

// ErrUnboundedQuery is returned when a projection spec names neither
// entities nor a zone. GetState never dumps the whole world.
var ErrUnboundedQuery = errors.New("projection spec must name entity ids or a zone")

// Source supplies the last committed world. The engine implements it.
type Source interface {
	Current() *world.World
}

// ProjectionSpec selects the slice of state a consumer wants.
type ProjectionSpec struct {
	// Observer is the entity id the projections are computed for.
	Observer string `json:"observer"`
	// EntityIDs lists the entities to project. Ids that do not exist are
	// absent from the result.
	EntityIDs []string `json:"entity_ids,omitempty"`
	// Zone restricts the result to visible entities in that zone. With no
	// EntityIDs it selects every visible occupant.
	Zone string `json:"zone,omitempty"`
	// Fields is the entity field allow-list. Empty means all of EntityFields.
	Fields []string `json:"fields,omitempty"`
	// Clocks adds projections of the scene's active clocks.
	Clocks bool `json:"clocks,omitempty"`
}

// State is the answer to a GetState call.
type State struct {
	Observer string       `json:"observer"`
	Revision int64        `json:"revision"`
	Round    int          `json:"round"`
	Actor    string       `json:"actor,omitempty"`
	Zone     *Projection  `json:"zone,omitempty"`
	Entities []Projection `json:"entities"`
	Clocks   []Projection `json:"clocks,omitempty"`
}

// Service is the outbound read contract.
type Service struct {
	src      Source
	redactor *Redactor
	cache    *Cache
}

// NewService returns a read service over src. A nil cache disables caching.
func NewService(src Source, p Policy, cache *Cache) *Service {
	return &Service{src: src, redactor: NewRedactor(p), cache: cache}
}

// Cache returns the projection cache, or nil.
func (s *Service) Cache() *Cache {
	return s.cache
}

// Invalidate forwards a committed change to the cache. It is meant to be
// subscribed to the engine's event bus.
func (s *Service) Invalidate(w *world.World, ch world.Change) {
	if s.cache != nil {
		s.cache.Invalidate(w, ch)
	}
}

// GetState returns the redacted slice of the current world described by
// spec.
func (s *Service) GetState(spec ProjectionSpec) (*State, error) {
	if len(spec.EntityIDs) == 0 && spec.Zone == "" {
		return nil, ErrUnboundedQuery
	}
	fields, err := allowList(spec.Fields)
	if err != nil {
		return nil, err
	}

	var gen uint64
	if s.cache != nil {
		gen = s.cache.Generation()
	}
	w := s.src.Current()

	out := &State{
		Observer: spec.Observer,
		Revision: w.Revision,
		Round:    w.Scene.Round,
		Entities: []Projection{},
	}
	if CanObserve(spec.Observer, entityRecord(w, w.Scene.CurrentActor()), w) {
		out.Actor = w.Scene.CurrentActor()
	}

	if spec.Zone != "" {
		if z, ok := w.Zones[spec.Zone]; ok {
			p := s.project(spec.Observer, z, w, gen)
			out.Zone = &p
		}
	}

	ids := spec.EntityIDs
	if len(ids) == 0 {
		ids = w.Occupants(spec.Zone)
	}
	for _, id := range ids {
		e, ok := w.Entities[id]
		if !ok {
			continue
		}
		p := s.project(spec.Observer, e, w, gen)
		if spec.Zone != "" && (!p.Visible || e.Zone != spec.Zone) {
			continue
		}
		out.Entities = append(out.Entities, filterFields(p, fields))
	}

	if spec.Clocks {
		for _, id := range w.Scene.Clocks {
			if c, ok := w.Clocks[id]; ok {
				if p := s.project(spec.Observer, c, w, gen); p.Visible {
					out.Clocks = append(out.Clocks, p)
				}
			}
		}
	}
	return out, nil
}

func (s *Service) project(observer string, rec world.Record, w *world.World, gen uint64) Projection {
	if s.cache == nil {
		return s.redactor.Redact(observer, rec, w)
	}
	if p, ok := s.cache.Get(observer, rec.RecordID()); ok {
		return p
	}
	p := s.redactor.Redact(observer, rec, w)
	s.cache.Put(observer, p, gen)
	return p
}

func entityRecord(w *world.World, id string) world.Record {
	if e, ok := w.Entities[id]; ok {
		return e
	}
	return nil
}

func allowList(fields []string) ([]string, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	for _, f := range fields {
		if !slices.Contains(EntityFields, f) {
			return nil, fmt.Errorf("unknown projection field %q", f)
		}
	}
	return fields, nil
}

// filterFields narrows a visible projection to the allow-list. The cached
// projection is never modified.
func filterFields(p Projection, fields []string) Projection {
	if fields == nil || !p.Visible {
		return p
	}
	narrowed := make(map[string]bool, len(fields))
	for _, f := range fields {
		narrowed[f] = true
	}
	out := p
	out.Fields = ir.Object{}
	for k, v := range p.Fields {
		if narrowed[k] {
			out.Fields[k] = v
		}
	}
	return out
}
