// Package repo maps the typed entities onto the key-value store.
// Records are validated at this boundary so handlers never see
// half-formed entities.
package repo

import (
	"encoding/json"
	"fmt"

	"github.com/Octopus-DP/octopus-privacy-sub001/internal/cache"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/errs"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/model"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/store"
)

// Templates persists template records, with an optional read-through
// cache (templates are read once per dispatch run and on every admin
// page load).
type Templates struct {
	store store.Store
	cache *cache.Cache
}

// NewTemplates creates a template repository. cache may be nil.
func NewTemplates(s store.Store, c *cache.Cache) *Templates {
	return &Templates{store: s, cache: c}
}

// Save validates and stores a template, invalidating its cache entry.
func (r *Templates) Save(t *model.Template) error {
	if err := t.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(t)
	if err != nil {
		return errs.Store("marshal template", err)
	}
	if err := r.store.Set(store.TemplateKey(t.ID), data); err != nil {
		return errs.Store("store template", err)
	}
	if r.cache != nil {
		r.cache.Delete(store.TemplateKey(t.ID))
	}
	return nil
}

// Get returns a template by id, or a NotFound error. The cache holds
// templates by value so every caller gets its own copy; an in-place
// mutation by one caller never leaks into later reads.
func (r *Templates) Get(id string) (*model.Template, error) {
	key := store.TemplateKey(id)

	if r.cache != nil {
		if v, ok := r.cache.Get(key); ok {
			t := v.(model.Template)
			return &t, nil
		}
	}

	data, err := r.store.Get(key)
	if err != nil {
		return nil, errs.Store("load template", err)
	}
	if data == nil {
		return nil, errs.NotFound("template %s not found", id)
	}

	var t model.Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, errs.Store("decode template", err)
	}
	if r.cache != nil {
		r.cache.Set(key, t)
	}
	return &t, nil
}

// List returns the templates visible to a tenant: global ones plus the
// tenant's own.
func (r *Templates) List(tenantCode string) ([]*model.Template, error) {
	values, err := r.store.GetByPrefix(store.PrefixTemplate)
	if err != nil {
		return nil, errs.Store("scan templates", err)
	}

	templates := make([]*model.Template, 0, len(values))
	for _, data := range values {
		var t model.Template
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, errs.Store(fmt.Sprintf("decode template record (%d bytes)", len(data)), err)
		}
		if t.VisibleTo(tenantCode) {
			templates = append(templates, &t)
		}
	}
	return templates, nil
}

// Delete removes a template record.
func (r *Templates) Delete(id string) error {
	if err := r.store.Delete(store.TemplateKey(id)); err != nil {
		return errs.Store("delete template", err)
	}
	if r.cache != nil {
		r.cache.Delete(store.TemplateKey(id))
	}
	return nil
}
