package diskstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry holds the open datastores of an application by identity.
//
// Options passed to NewRegistry apply to every datastore and can be
// overridden per Register call.
type Registry struct {
	defaults []Option

	mu     sync.Mutex
	stores map[string]*Datastore
}

// NewRegistry returns an empty registry.
func NewRegistry(defaults ...Option) *Registry {
	return &Registry{
		defaults: defaults,
		stores:   make(map[string]*Datastore),
	}
}

// Register opens the datastore identity and adds it to the registry.
func (r *Registry) Register(ctx context.Context, identity string, optFns ...Option) (*Datastore, error) {
	if identity == "" {
		return nil, errors.New("diskstore: identity is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.stores[identity]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDatastoreExists, identity)
	}

	opts := make([]Option, 0, len(r.defaults)+len(optFns))
	opts = append(opts, r.defaults...)
	opts = append(opts, optFns...)

	ds, err := Open(ctx, identity, opts...)
	if err != nil {
		return nil, err
	}
	r.stores[identity] = ds
	return ds, nil
}

// Datastore returns the registered datastore identity.
func (r *Registry) Datastore(identity string) (*Datastore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ds, ok := r.stores[identity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatastoreNotRegistered, identity)
	}
	return ds, nil
}

// Identities returns the registered identities, sorted.
func (r *Registry) Identities() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.stores))
	for id := range r.stores {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Teardown closes and removes the datastore identity. An empty identity
// tears down every registered datastore.
func (r *Registry) Teardown(identity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if identity != "" {
		ds, ok := r.stores[identity]
		if !ok {
			return fmt.Errorf("%w: %s", ErrDatastoreNotRegistered, identity)
		}
		delete(r.stores, identity)
		return ds.Close()
	}

	var errs []error
	for id, ds := range r.stores {
		if err := ds.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
		delete(r.stores, id)
	}
	return errors.Join(errs...)
}
