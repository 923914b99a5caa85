package env

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/depotpm/depot/internal/model"
	"github.com/depotpm/depot/internal/semverx"
)

// AddDep records a new declared dependency, failing if name or id collides
// with an existing entry (spec.md §3 P4).
func (c *Cache) AddDep(name string, id uuid.UUID) error {
	if err := model.ValidateName(name); err != nil {
		return err
	}
	if existing, ok := c.Project.Deps[name]; ok && existing != id {
		return errors.Errorf("dependency %q already declared with a different uuid", name)
	}
	for otherName, otherID := range c.Project.Deps {
		if otherID == id && otherName != name {
			return errors.Errorf("uuid %s already used by dependency %q", id, otherName)
		}
	}
	c.Project.Deps[name] = id
	c.MarkMutated()
	return nil
}

// RemoveDep deletes a declared dependency and, if present, its manifest
// entry and any compat entry naming it.
func (c *Cache) RemoveDep(name string) error {
	id, ok := c.Project.Deps[name]
	if !ok {
		return errors.Errorf("no such dependency %q", name)
	}
	delete(c.Project.Deps, name)
	delete(c.Project.Compat, name)
	if c.Manifest != nil {
		delete(c.Manifest.Deps, id)
	}
	c.MarkMutated()
	return nil
}

// SetCompat parses and records a compat expression for name.
func (c *Cache) SetCompat(name, expr string) error {
	if name != "julia" {
		_, declared := c.Project.Deps[name]
		_, extra := c.Project.Extras[name]
		if !declared && !extra {
			return errors.Errorf("compat entry %q does not name a declared dep or extra", name)
		}
	}
	parsed, err := semverx.ParseCompat(expr)
	if err != nil {
		return err
	}
	c.Project.Compat[name] = parsed
	c.MarkMutated()
	return nil
}

// Pin marks a dependency's manifest entry immune to future upgrades.
func (c *Cache) Pin(name string) error {
	id, ok := c.Project.Deps[name]
	if !ok {
		return errors.Errorf("no such dependency %q", name)
	}
	if c.Manifest == nil {
		return errors.Errorf("no manifest to pin %q in", name)
	}
	entry, ok := c.Manifest.Deps[id]
	if !ok {
		return errors.Errorf("no manifest entry for %q", name)
	}
	entry.Pinned = true
	c.Manifest.Deps[id] = entry
	c.MarkMutated()
	return nil
}

// Free releases a pin, allowing the resolver to move the dependency freely.
func (c *Cache) Free(name string) error {
	id, ok := c.Project.Deps[name]
	if !ok {
		return errors.Errorf("no such dependency %q", name)
	}
	if c.Manifest == nil {
		return nil
	}
	entry, ok := c.Manifest.Deps[id]
	if !ok {
		return nil
	}
	entry.Pinned = false
	c.Manifest.Deps[id] = entry
	c.MarkMutated()
	return nil
}
