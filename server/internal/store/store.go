package store

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// KeyField is the object field that identifies an object in the store.
const KeyField = "uuid"

var (
	// ErrNotFound is returned by Delete when no object carries the given uuid.
	ErrNotFound = errors.New("object not found")

	// ErrConflict is returned by Create when the caller-supplied uuid is
	// already held by another object.
	ErrConflict = errors.New("object already exists")

	// ErrInvalidUUID is returned by Create when the uuid field is present but
	// is not a JSON string.
	ErrInvalidUUID = errors.New("uuid must be a string")
)

// Object is an open-ended JSON object. Values are whatever encoding/json
// decodes into an interface{} (with json.Number for numbers when the caller
// decodes with UseNumber).
type Object map[string]any

// ID returns the object's uuid and whether it is present as a string.
func (o Object) ID() (string, bool) {
	id, ok := o[KeyField].(string)
	return id, ok
}

// Store is a thread-safe, insertion-ordered object collection.
type Store struct {
	mu      sync.RWMutex
	objects []Object
	newID   func() string // injectable for deterministic tests
}

// New creates an empty Store that assigns version-4 UUIDs.
func New() *Store {
	return &Store{
		newID: func() string { return uuid.New().String() },
	}
}

// Create appends obj to the store and returns the uuid it is stored under.
// A missing uuid field is filled with a freshly generated one. obj is copied,
// so the caller may reuse it afterwards.
func (s *Store) Create(obj Object) (string, error) {
	item := maps.Clone(obj)
	if item == nil {
		item = Object{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, present := item[KeyField]
	if !present {
		item[KeyField] = s.newID()
	} else if _, ok := raw.(string); !ok {
		return "", fmt.Errorf("create: %w", ErrInvalidUUID)
	}

	id, _ := item.ID()
	if s.indexOf(id) >= 0 {
		return "", fmt.Errorf("create %q: %w", id, ErrConflict)
	}

	s.objects = append(s.objects, item)
	slog.Debug("store: object added", "uuid", id, "count", len(s.objects))
	return id, nil
}

// List returns shallow copies of all objects in insertion order. The result is
// never nil.
func (s *Store) List() []Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Object, 0, len(s.objects))
	for _, o := range s.objects {
		out = append(out, maps.Clone(o))
	}
	return out
}

// Get returns a copy of the object stored under id.
func (s *Store) Get(id string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, false
	}
	return maps.Clone(s.objects[i]), true
}

// Delete removes the object stored under id. It returns ErrNotFound if no
// such object exists, including when it was already deleted.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("delete %q: %w", id, ErrNotFound)
	}
	s.objects = slices.Delete(s.objects, i, i+1)
	slog.Debug("store: object deleted", "uuid", id, "count", len(s.objects))
	return nil
}

// Count returns the number of stored objects.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// indexOf returns the position of the object with the given uuid, or -1.
// Callers must hold s.mu.
func (s *Store) indexOf(id string) int {
	for i, o := range s.objects {
		if oid, ok := o.ID(); ok && oid == id {
			return i
		}
	}
	return -1
}
