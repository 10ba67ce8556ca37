// Package constants holds the in-memory copy of the scoring constants.
package constants

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/vijay-prabhu/matchcompat/internal/scoring"
)

// Source loads the current constants from durable storage.
type Source interface {
	GetControls(ctx context.Context) (scoring.Constants, error)
}

// Provider lazily loads constants from a Source and keeps them until
// Invalidate is called. Concurrent misses share a single load.
type Provider struct {
	source Source

	mu     sync.RWMutex
	cached *scoring.Constants
	group  singleflight.Group
}

// NewProvider creates a provider backed by source.
func NewProvider(source Source) *Provider {
	return &Provider{source: source}
}

// Current returns the cached constants, loading them on first use.
func (p *Provider) Current(ctx context.Context) (scoring.Constants, error) {
	p.mu.RLock()
	if p.cached != nil {
		c := *p.cached
		p.mu.RUnlock()
		return c, nil
	}
	p.mu.RUnlock()

	v, err, _ := p.group.Do("constants", func() (interface{}, error) {
		c, err := p.source.GetControls(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load constants: %w", err)
		}
		p.mu.Lock()
		p.cached = &c
		p.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return scoring.Constants{}, err
	}
	return v.(scoring.Constants), nil
}

// Calculator returns a RequiredCalculator bound to the current constants.
func (p *Provider) Calculator(ctx context.Context) (*scoring.RequiredCalculator, error) {
	c, err := p.Current(ctx)
	if err != nil {
		return nil, err
	}
	return scoring.NewRequiredCalculator(scoring.NewCalculator(c)), nil
}

// Invalidate drops the cached copy so the next read reloads it.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}
