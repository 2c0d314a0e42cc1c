// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package output

import "sync"

// Projection is what the output pane shows.
type Projection struct {
	Content  string
	Category Category
}

// IsEmpty reports whether nothing has been projected.
func (p Projection) IsEmpty() bool {
	return p.Content == ""
}

// Projector holds the latest projection. Each update overwrites the previous
// one; there is no history.
type Projector struct {
	mu       sync.RWMutex
	current  Projection
	observer func(Projection)
}

// NewProjector creates an empty projector.
func NewProjector() *Projector {
	return &Projector{current: Projection{Category: CategoryText}}
}

// SetObserver registers fn to receive every new projection.
func (p *Projector) SetObserver(fn func(Projection)) {
	p.mu.Lock()
	p.observer = fn
	p.mu.Unlock()
}

// Update replaces the projection.
func (p *Projector) Update(content string, category Category) {
	next := Projection{Content: content, Category: category}

	p.mu.Lock()
	p.current = next
	fn := p.observer
	p.mu.Unlock()

	if fn != nil {
		fn(next)
	}
}

// Current returns the latest projection.
func (p *Projector) Current() Projection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Reset clears the projection.
func (p *Projector) Reset() {
	p.Update("", CategoryText)
}
