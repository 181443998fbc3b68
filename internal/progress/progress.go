// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

// Package progress derives per-step completion flags and an overall
// completion percentage from a draft's opaque form payload.
//
// Each wizard type declares an ordered set of named steps, each with a
// predicate over the form data. Adding a wizard type is a data change
// (register a new step list), not a code change. Unknown wizard types
// fall back to a generic two-step heuristic.
package progress

import (
	"math"
	"sort"
	"sync"

	"github.com/casaflow/draftsync/internal/models"
)

// Predicate decides whether a step's required data is present.
type Predicate func(data models.FormData) bool

// Step pairs a step name with its completion predicate.
type Step struct {
	Name     string
	Complete Predicate
}

// Calculator is a pure registry-based progress calculator. It has no side
// effects and no storage access; a zero-value Calculator is not usable,
// construct with NewCalculator.
type Calculator struct {
	mu       sync.RWMutex
	registry map[string][]Step
	fallback []Step
}

// NewCalculator returns a calculator pre-loaded with the built-in wizard
// step definitions (property, land, blog) and the generic fallback.
func NewCalculator() *Calculator {
	c := &Calculator{
		registry: make(map[string][]Step),
		fallback: []Step{
			{Name: "general", Complete: HasFields("title")},
			{Name: "details", Complete: HasFields("description")},
		},
	}
	c.Register(models.WizardProperty, PropertySteps())
	c.Register(models.WizardLand, LandSteps())
	c.Register(models.WizardBlog, BlogSteps())
	return c
}

// Register installs (or replaces) the ordered step list for a wizard type.
func (c *Calculator) Register(wizardType string, steps []Step) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry[wizardType] = steps
}

// Steps returns the step names for a wizard type, in declared order.
// Unknown types return the fallback step names.
func (c *Calculator) Steps(wizardType string) []string {
	steps := c.stepsFor(wizardType)
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name
	}
	return names
}

func (c *Calculator) stepsFor(wizardType string) []Step {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if steps, ok := c.registry[wizardType]; ok {
		return steps
	}
	return c.fallback
}

// Calculate computes the step progress map and completion percentage for
// the given wizard type and payload. totalSteps is clamped to at least 1
// so an empty step list cannot divide by zero.
func (c *Calculator) Calculate(wizardType string, data models.FormData) (map[string]bool, int) {
	steps := c.stepsFor(wizardType)

	stepProgress := make(map[string]bool, len(steps))
	completed := 0
	for _, step := range steps {
		done := data != nil && step.Complete(data)
		stepProgress[step.Name] = done
		if done {
			completed++
		}
	}

	total := len(steps)
	if total < 1 {
		total = 1
	}
	percentage := int(math.Round(100 * float64(completed) / float64(total)))
	return stepProgress, percentage
}

// HasFields returns a predicate that is true when every named field is
// present and non-empty in the payload.
func HasFields(fields ...string) Predicate {
	return func(data models.FormData) bool {
		for _, field := range fields {
			if !fieldPresent(data, field) {
				return false
			}
		}
		return true
	}
}

// HasAny returns a predicate that is true when at least one named field
// is present and non-empty.
func HasAny(fields ...string) Predicate {
	return func(data models.FormData) bool {
		for _, field := range fields {
			if fieldPresent(data, field) {
				return true
			}
		}
		return false
	}
}

// fieldPresent reports whether a field holds a usable value. Empty
// strings, empty slices/maps and nil all count as absent; numeric zero is
// present (a price of 0 is still a filled field).
func fieldPresent(data models.FormData, field string) bool {
	v, ok := data[field]
	if !ok || v == nil {
		return false
	}
	switch tv := v.(type) {
	case string:
		return tv != ""
	case []interface{}:
		return len(tv) > 0
	case map[string]interface{}:
		return len(tv) > 0
	default:
		return true
	}
}

// PropertySteps is the ordered step list for the property wizard.
func PropertySteps() []Step {
	return []Step{
		{Name: "general", Complete: HasFields("title", "description", "price")},
		{Name: "location", Complete: HasFields("address", "city")},
		{Name: "details", Complete: HasFields("rooms", "area")},
		{Name: "media", Complete: HasAny("images", "videoUrl")},
		{Name: "pricing", Complete: HasFields("price", "currency")},
	}
}

// LandSteps is the ordered step list for the land wizard.
func LandSteps() []Step {
	return []Step{
		{Name: "general", Complete: HasFields("title", "description")},
		{Name: "location", Complete: HasFields("address", "city")},
		{Name: "details", Complete: HasFields("area", "zoning")},
		{Name: "pricing", Complete: HasFields("price", "currency")},
	}
}

// BlogSteps is the ordered step list for the blog wizard.
func BlogSteps() []Step {
	return []Step{
		{Name: "general", Complete: HasFields("title")},
		{Name: "content", Complete: HasFields("content")},
		{Name: "seo", Complete: HasAny("metaTitle", "metaDescription", "tags")},
	}
}

// RegisteredTypes returns the wizard types with explicit step lists,
// sorted for stable output in diagnostics.
func (c *Calculator) RegisteredTypes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	types := make([]string, 0, len(c.registry))
	for t := range c.registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
