// Package fields is the domain layer on top of the healing engine: a
// registry of semantic targets (named UI fields) mapped to curated locator
// candidate lists, with optional business-rule validation and value
// normalization. It adds no resolution logic of its own.
package fields

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/crediq/selfheal/internal/healing"
	"go.uber.org/zap"
)

// Validator rejects a value before any interaction is attempted. A non-nil
// return must be (or wrap) a *ValidationError.
type Validator func(value string) error

// Normalizer canonicalizes a value prior to filling.
type Normalizer func(value string) string

// Field describes one semantic UI target. Entries are immutable once
// registered.
type Field struct {
	Name       string
	Candidates healing.CandidateList
	Validate   Validator
	Normalize  Normalizer
}

// Registry holds the semantic-field catalog for one application domain.
type Registry struct {
	mu     sync.RWMutex
	fields map[string]Field
	log    *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		fields: make(map[string]Field),
		log:    log.Named("fields"),
	}
}

// Register adds a field. The candidate list must be non-empty; the first
// entry is the primary locator.
func (r *Registry) Register(f Field) error {
	if f.Name == "" {
		return fmt.Errorf("field name is required")
	}
	if len(f.Candidates) == 0 {
		return fmt.Errorf("field %q has no locator candidates", f.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.fields[f.Name]; exists {
		return fmt.Errorf("field %q is already registered", f.Name)
	}
	r.fields[f.Name] = f
	return nil
}

// Lookup returns the field registered under name.
func (r *Registry) Lookup(name string) (Field, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fields[name]
	return f, ok
}

// Names returns the registered field names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.fields))
	for name := range r.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Candidates returns the current candidate list for name.
func (r *Registry) Candidates(name string) (healing.CandidateList, error) {
	f, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown field %q", name)
	}
	return f.Candidates, nil
}

// Fill validates and normalizes value for the named field, then writes it
// through the executor. A validation rejection happens before any driver
// call, so a clearly invalid value never consumes a resolution attempt and
// is distinguishable (*ValidationError) from automation failures.
func (r *Registry) Fill(ctx context.Context, exec *healing.Executor, name, value string) (string, error) {
	f, ok := r.Lookup(name)
	if !ok {
		return "", fmt.Errorf("unknown field %q", name)
	}

	if f.Normalize != nil {
		value = f.Normalize(value)
	}
	if f.Validate != nil {
		if err := f.Validate(value); err != nil {
			return "", fmt.Errorf("field %q: %w", name, err)
		}
	}

	return exec.Fill(ctx, f.Candidates, value)
}

// Click resolves and clicks the named field.
func (r *Registry) Click(ctx context.Context, exec *healing.Executor, name string) (string, error) {
	f, ok := r.Lookup(name)
	if !ok {
		return "", fmt.Errorf("unknown field %q", name)
	}
	return exec.Click(ctx, f.Candidates)
}

// SeedFromSnapshot reorders candidate lists using a previous session's
// learning snapshot: when a field's primary locator has a known working
// fallback, that fallback is promoted to the front so the next resolution
// tries it first. Unknown mappings are ignored.
func (r *Registry) SeedFromSnapshot(snap *healing.Snapshot) int {
	if snap == nil || len(snap.WorkingFallbacks) == 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	promoted := 0
	for name, f := range r.fields {
		matched, ok := snap.WorkingFallbacks[f.Candidates.Primary()]
		if !ok || matched == f.Candidates.Primary() {
			continue
		}

		reordered := healing.CandidateList{matched}
		for _, c := range f.Candidates {
			if c != matched {
				reordered = append(reordered, c)
			}
		}
		if len(reordered) == len(f.Candidates) {
			f.Candidates = reordered
			r.fields[name] = f
			promoted++
			r.log.Info("promoted learned fallback",
				zap.String("field", name),
				zap.String("locator", matched))
		}
	}
	return promoted
}
