package provider

import (
	"context"
	"sort"
)

// Registry maps provider names to slots.
//
// A registry is built once at startup (or config reload) and is
// read-only thereafter; reload swaps in a whole new registry rather
// than mutating this one, so no locking is needed at this level.
type Registry struct {
	slots map[string]*Slot
}

// NewRegistry creates a registry from the given slots.
func NewRegistry(slots ...*Slot) *Registry {
	m := make(map[string]*Slot, len(slots))
	for _, s := range slots {
		m[s.Name()] = s
	}
	return &Registry{slots: m}
}

// Refresh fetches fresh data for the named provider.
// Returns ErrNotFound for unknown names. A fetch already in flight for
// the slot is treated as authoritative and Refresh returns nil.
func (r *Registry) Refresh(ctx context.Context, name string) error {
	slot, ok := r.slots[name]
	if !ok {
		return ErrNotFound
	}
	return slot.Refresh(ctx)
}

// Read returns the named provider's cached value and staleness.
// Returns ErrNotFound for unknown names; never triggers a fetch.
func (r *Registry) Read(name string) (Payload, Staleness, error) {
	slot, ok := r.slots[name]
	if !ok {
		return nil, StalenessAbsent, ErrNotFound
	}
	value, staleness := slot.Read()
	return value, staleness, nil
}

// ListStatus returns a health snapshot for every slot, sorted by name.
func (r *Registry) ListStatus() []Status {
	statuses := make([]Status, 0, len(r.slots))
	for _, slot := range r.slots {
		statuses = append(statuses, slot.Status())
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Name < statuses[j].Name
	})
	return statuses
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.slots))
	for name := range r.slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
