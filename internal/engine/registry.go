package engine

import (
	"sort"

	"opsched/internal/domain"
)

// Registry keeps exactly one Diary per registered provider identity.
type Registry struct {
	providers map[string]domain.Provider
	diaries   map[string]*domain.Diary
}

func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]domain.Provider),
		diaries:   make(map[string]*domain.Diary),
	}
}

func (r *Registry) Add(p domain.Provider) error {
	if !p.Valid() {
		return ErrInvalidProvider
	}
	if _, ok := r.providers[p.Identity]; ok {
		return ErrProviderExists
	}
	r.providers[p.Identity] = p
	r.diaries[p.Identity] = domain.NewDiary()
	return nil
}

func (r *Registry) Remove(identity string) (domain.Provider, *domain.Diary, error) {
	p, ok := r.providers[identity]
	if !ok {
		return domain.Provider{}, nil, ErrProviderNotFound
	}
	d := r.diaries[identity]
	delete(r.providers, identity)
	delete(r.diaries, identity)
	return p, d, nil
}

// Edit replaces the record stored under oldIdentity with p. When the identity
// changes the diary moves with it. Renaming onto an identity owned by another
// provider is rejected.
func (r *Registry) Edit(oldIdentity string, p domain.Provider) (domain.Provider, error) {
	prev, ok := r.providers[oldIdentity]
	if !ok {
		return domain.Provider{}, ErrProviderNotFound
	}
	if !p.Valid() {
		return domain.Provider{}, ErrInvalidProvider
	}
	if p.Identity == oldIdentity {
		r.providers[oldIdentity] = p
		return prev, nil
	}
	if _, taken := r.providers[p.Identity]; taken {
		return domain.Provider{}, ErrProviderExists
	}

	d := r.diaries[oldIdentity]
	delete(r.providers, oldIdentity)
	delete(r.diaries, oldIdentity)
	r.providers[p.Identity] = p
	r.diaries[p.Identity] = d
	return prev, nil
}

// Restore reinstates a provider together with the diary it owned. Any live
// entry under the same identity is replaced.
func (r *Registry) Restore(p domain.Provider, d *domain.Diary) {
	if d == nil {
		d = domain.NewDiary()
	}
	r.providers[p.Identity] = p
	r.diaries[p.Identity] = d
}

func (r *Registry) Get(identity string) (domain.Provider, bool) {
	p, ok := r.providers[identity]
	return p, ok
}

func (r *Registry) Diary(identity string) (*domain.Diary, bool) {
	d, ok := r.diaries[identity]
	return d, ok
}

func (r *Registry) List() []domain.Provider {
	out := make([]domain.Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Identity < out[j].Identity
	})
	return out
}

func (r *Registry) Len() int {
	return len(r.providers)
}
