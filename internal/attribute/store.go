package attribute

import (
	"slices"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/framepipe/internal/errs"
)

// Key identifies an attribute. Both parts are NFC-normalized on entry so
// that canonically equivalent spellings address the same attribute.
type Key struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// NewKey returns the normalized key for (namespace, name).
func NewKey(namespace, name string) Key {
	return Key{Namespace: norm.NFC.String(namespace), Name: norm.NFC.String(name)}
}

func (k Key) String() string {
	return k.Namespace + "/" + k.Name
}

// Attribute is a named, ordered sequence of values.
type Attribute struct {
	Namespace string  `json:"namespace"`
	Name      string  `json:"name"`
	Values    []Value `json:"values"`
	// Hint records which producer wrote the attribute (model, tracker, ...).
	Hint string `json:"hint,omitempty"`
	// Hidden attributes are kept but not listed by Keys or Find.
	Hidden bool `json:"hidden,omitempty"`
}

// Key returns the normalized key of the attribute.
func (a Attribute) Key() Key {
	return NewKey(a.Namespace, a.Name)
}

func (a Attribute) clone() Attribute {
	out := a
	out.Values = make([]Value, len(a.Values))
	for i, v := range a.Values {
		out.Values[i] = v.clone()
	}
	return out
}

// Query selects attributes for Find. Empty fields match anything.
type Query struct {
	Namespace string
	Names     []string
	Hint      string
}

// Store holds the attributes of one object or frame in insertion order.
//
// Store is not safe for concurrent use; the owning Object or Frame guards it.
// The zero value is an empty store ready for use.
type Store struct {
	order []Key
	attrs map[Key]*Attribute
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Len returns the number of attributes, hidden ones included.
func (s *Store) Len() int {
	return len(s.order)
}

// Get returns value idx of the attribute (namespace, name).
// Returns a NOT_FOUND error when the key or the index is absent.
func (s *Store) Get(namespace, name string, idx int) (Value, error) {
	key := NewKey(namespace, name)
	a, ok := s.attrs[key]
	if !ok {
		return Value{}, errs.New(errs.CodeNotFound, "attribute not found").With("key", key.String())
	}
	if idx < 0 || idx >= len(a.Values) {
		return Value{}, errs.New(errs.CodeNotFound, "attribute value index %d out of range", idx).
			With("key", key.String())
	}
	return a.Values[idx].clone(), nil
}

// Set replaces the whole value sequence of (namespace, name), creating the
// attribute if needed. Hint and Hidden of an existing attribute are kept.
func (s *Store) Set(namespace, name string, values ...Value) {
	a := s.ensure(NewKey(namespace, name))
	a.Values = cloneValues(values)
}

// Append adds v to the end of the value sequence of (namespace, name).
func (s *Store) Append(namespace, name string, v Value) {
	a := s.ensure(NewKey(namespace, name))
	a.Values = append(a.Values, v.clone())
}

// Put stores a copy of attr, replacing any attribute with the same key.
// Returns the replaced attribute, if any.
func (s *Store) Put(attr Attribute) (Attribute, bool) {
	key := attr.Key()
	prev, had := s.Attribute(key.Namespace, key.Name)
	a := s.ensure(key)
	*a = attr.clone()
	a.Namespace, a.Name = key.Namespace, key.Name
	return prev, had
}

// Attribute returns a copy of the attribute (namespace, name).
func (s *Store) Attribute(namespace, name string) (Attribute, bool) {
	a, ok := s.attrs[NewKey(namespace, name)]
	if !ok {
		return Attribute{}, false
	}
	return a.clone(), true
}

// Delete removes the attribute (namespace, name) and returns it.
func (s *Store) Delete(namespace, name string) (Attribute, bool) {
	key := NewKey(namespace, name)
	a, ok := s.attrs[key]
	if !ok {
		return Attribute{}, false
	}
	delete(s.attrs, key)
	s.order = slices.DeleteFunc(s.order, func(k Key) bool { return k == key })
	return *a, true
}

// Keys returns the keys of visible attributes in insertion order.
func (s *Store) Keys() []Key {
	keys := make([]Key, 0, len(s.order))
	for _, k := range s.order {
		if !s.attrs[k].Hidden {
			keys = append(keys, k)
		}
	}
	return keys
}

// Find returns the keys of visible attributes matching q, in insertion order.
func (s *Store) Find(q Query) []Key {
	ns := norm.NFC.String(q.Namespace)
	names := make([]string, len(q.Names))
	for i, n := range q.Names {
		names[i] = norm.NFC.String(n)
	}
	var keys []Key
	for _, k := range s.order {
		a := s.attrs[k]
		if a.Hidden {
			continue
		}
		if ns != "" && k.Namespace != ns {
			continue
		}
		if len(names) > 0 && !slices.Contains(names, k.Name) {
			continue
		}
		if q.Hint != "" && a.Hint != q.Hint {
			continue
		}
		keys = append(keys, k)
	}
	return keys
}

// All returns copies of every attribute, hidden ones included, in insertion order.
func (s *Store) All() []Attribute {
	out := make([]Attribute, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.attrs[k].clone())
	}
	return out
}

// Clone returns a deep copy of the store.
func (s *Store) Clone() *Store {
	c := &Store{order: slices.Clone(s.order)}
	if len(s.attrs) > 0 {
		c.attrs = make(map[Key]*Attribute, len(s.attrs))
		for k, a := range s.attrs {
			cp := a.clone()
			c.attrs[k] = &cp
		}
	}
	return c
}

func (s *Store) ensure(key Key) *Attribute {
	if a, ok := s.attrs[key]; ok {
		return a
	}
	if s.attrs == nil {
		s.attrs = make(map[Key]*Attribute)
	}
	a := &Attribute{Namespace: key.Namespace, Name: key.Name}
	s.attrs[key] = a
	s.order = append(s.order, key)
	return a
}

func cloneValues(values []Value) []Value {
	out := make([]Value, len(values))
	for i, v := range values {
		out[i] = v.clone()
	}
	return out
}
