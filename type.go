// Versioned types and migration resolution.
//
// A Type is registered with its current tag and a flat list of edges, one
// per prior variant it can be migrated from. Each edge decodes the prior
// variant and converts it in a single step. Edges are never chained: a
// prior variant that should stay readable must have its own edge to the
// current type.
package varia

import (
	"fmt"

	"github.com/jpl-au/varia/codec"
)

// Resolution reports how a record's tag was matched.
type Resolution int

const (
	Unresolved Resolution = iota
	DirectMatch
	MigrateFromEdge
)

func (r Resolution) String() string {
	switch r {
	case DirectMatch:
		return "direct"
	case MigrateFromEdge:
		return "migrated"
	default:
		return "unresolved"
	}
}

// Resolved is a decoded value together with how it was obtained.
type Resolved[T any] struct {
	Value T
	Tag   Tag // tag found in the record
	Via   Resolution
}

// Edge migrates one prior variant into T.
type Edge[T any] struct {
	from   Tag
	decode func(c codec.Codec, data []byte) (T, error)
}

// From returns the edge that decodes records of prior and converts them
// with convert.
func From[P, T any](prior *Type[P], convert func(P) T) Edge[T] {
	return Edge[T]{
		from: prior.tag,
		decode: func(c codec.Codec, data []byte) (T, error) {
			p, err := unseal[P](c, data)
			if err != nil {
				var zero T
				return zero, err
			}
			return convert(p), nil
		},
	}
}

// Type is the current variant of a versioned type.
type Type[T any] struct {
	tag   Tag
	edges map[Tag]Edge[T]
	order []Tag
}

// Register declares T as the variant tagged tag, readable from each edge's
// prior variant. An edge with the current tag or a tag already used by
// another edge is ErrDuplicateTag.
func Register[T any](tag Tag, edges ...Edge[T]) (*Type[T], error) {
	t := &Type[T]{tag: tag, edges: make(map[Tag]Edge[T], len(edges))}
	for _, e := range edges {
		if e.from == tag {
			return nil, fmt.Errorf("%w: edge from %d is the current tag", ErrDuplicateTag, e.from)
		}
		if _, ok := t.edges[e.from]; ok {
			return nil, fmt.Errorf("%w: two edges from %d", ErrDuplicateTag, e.from)
		}
		t.edges[e.from] = e
		t.order = append(t.order, e.from)
	}
	return t, nil
}

// MustRegister is like Register but panics on error. It is meant for
// package-level variables.
func MustRegister[T any](tag Tag, edges ...Edge[T]) *Type[T] {
	t, err := Register(tag, edges...)
	if err != nil {
		panic(err)
	}
	return t
}

// Tag returns the current variant's tag.
func (t *Type[T]) Tag() Tag { return t.tag }

// Variants returns every tag t can decode: the current tag first, then the
// edges in registration order.
func (t *Type[T]) Variants() []Tag {
	return append([]Tag{t.tag}, t.order...)
}

// Encode returns v as a codec record under the current tag.
func (t *Type[T]) Encode(c codec.Codec, v T) ([]byte, error) {
	return seal(c, t.tag, v)
}

// Decode returns the value held in data, migrating it if it was written
// by a registered prior variant.
func (t *Type[T]) Decode(c codec.Codec, data []byte) (T, error) {
	r, err := t.Resolve(c, data)
	return r.Value, err
}

// Resolve decodes data like Decode and also reports the tag found and
// whether a migration took place.
func (t *Type[T]) Resolve(c codec.Codec, data []byte) (Resolved[T], error) {
	var r Resolved[T]
	tag, err := peek(c, data)
	if err != nil {
		return r, err
	}
	r.Tag = tag

	if tag == t.tag {
		v, err := unseal[T](c, data)
		if err != nil {
			return r, err
		}
		r.Value, r.Via = v, DirectMatch
		return r, nil
	}

	e, ok := t.edges[tag]
	if !ok {
		return r, fmt.Errorf("%w: %d (current %d)", ErrVariantNotFound, tag, t.tag)
	}
	v, err := e.decode(c, data)
	if err != nil {
		return r, err
	}
	r.Value = v
	r.Via = MigrateFromEdge
	return r, nil
}
