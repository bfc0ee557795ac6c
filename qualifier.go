package container

import (
	"fmt"
	"reflect"
	"sync"
)

// Qualifier is a tagged, hashable, equality-comparable run-time annotation
// carrying an optional typed payload. Two qualifiers with the same tag but
// different payloads are said to be "similar" but not equal.
//
// Qualifier values are immutable after construction and are safe to share
// by value; construction opportunistically interns equal representations
// so that later equality checks are usually a pointer comparison rather
// than a deep payload comparison.
type Qualifier struct {
	data *qualifierData
}

type qualifierData struct {
	tag     reflect.Type
	payload any
	hash    uint64
	all     bool
}

// qualifierEqual is implemented by payload types that know how to compare
// themselves to another value of arbitrary type. Payloads that don't
// implement it are compared with reflect.DeepEqual.
type qualifierEqual interface {
	Equal(other any) bool
}

var (
	internMu    sync.Mutex
	internTable = make(map[string]*qualifierData)
)

func internQualifier(tag reflect.Type, payload any, all bool) *qualifierData {
	// %#v, not %v: a %v-based key collapses distinct payloads of different
	// types to the same string (5 and "5" both render "5"), which would
	// intern them to the same *qualifierData. %#v is Go-syntax and
	// type-preserving, matching hashQualifier below.
	key := fmt.Sprintf("%s|%#v|%t", tag, payload, all)

	internMu.Lock()
	defer internMu.Unlock()

	if d, ok := internTable[key]; ok {
		return d
	}

	d := &qualifierData{
		tag:     tag,
		payload: payload,
		hash:    hashQualifier(tag, payload),
		all:     all,
	}
	internTable[key] = d

	return d
}

func hashQualifier(tag reflect.Type, payload any) uint64 {
	h := fnvOffset
	h = fnvMix(h, tag.String())

	if payload != nil {
		h = fnvMix(h, fmt.Sprintf("%#v", payload))
	}

	return h
}

const fnvOffset uint64 = 14695981039346656037
const fnvPrime uint64 = 1099511628211

func fnvMix(h uint64, s string) uint64 {
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime
	}

	return h
}

// tagOf returns the reflect.Type used to identify qualifiers created with
// tag type parameter Tag.
func tagOf[Tag any]() reflect.Type {
	return reflect.TypeOf((*Tag)(nil)).Elem()
}

// NewQualifier creates a qualifier tagged by the type parameter Tag,
// carrying payload. Tag identifies the qualifier kind (e.g. a Name tag,
// an Environment tag); payload is compared for equality with reflect
// .DeepEqual unless it implements Equal(any) bool.
//
// Example:
//
//	type nameTag struct{}
//	func Name(s string) Qualifier { return NewQualifier[nameTag](s) }
func NewQualifier[Tag any](payload any) Qualifier {
	return Qualifier{data: internQualifier(tagOf[Tag](), payload, false)}
}

// NewZeroQualifier creates a qualifier tagged by Tag with no payload; tag
// identity alone determines equality and similarity.
func NewZeroQualifier[Tag any]() Qualifier {
	return NewQualifier[Tag](nil)
}

type allTag struct{}
type defaultTag struct{}
type nullTag struct{}

// All is the distinguished qualifier that matches every other qualifier.
var All = Qualifier{data: internQualifier(tagOf[allTag](), nil, true)}

// Default is a distinguished zero-payload qualifier used as a sentinel for
// "the unqualified variant of this resource".
var Default = NewZeroQualifier[defaultTag]()

// Null is a distinguished zero-payload qualifier used as a sentinel for
// "explicitly no qualifier of this kind".
var Null = NewZeroQualifier[nullTag]()

// Tag returns the qualifier's tag type-key.
func (q Qualifier) Tag() reflect.Type {
	if q.data == nil {
		return nil
	}

	return q.data.tag
}

// Payload returns the qualifier's payload, or nil if it has none.
func (q Qualifier) Payload() any {
	if q.data == nil {
		return nil
	}

	return q.data.payload
}

// Hash returns the qualifier's cached hash.
func (q Qualifier) Hash() uint64 {
	if q.data == nil {
		return 0
	}

	return q.data.hash
}

// IsZero reports whether q is the zero Qualifier value (no tag at all,
// distinct from a zero-payload qualifier which still has a tag).
func (q Qualifier) IsZero() bool {
	return q.data == nil
}

// Similar reports whether q and other share the same tag-key, regardless
// of payload.
func (q Qualifier) Similar(other Qualifier) bool {
	if q.data == nil || other.data == nil {
		return q.data == other.data
	}

	return q.data.tag == other.data.tag
}

// Equal reports whether q and other are equal: same tag-key and
// (DeepEqual or custom Equal) payloads.
func (q Qualifier) Equal(other Qualifier) bool {
	if q.data == other.data {
		return true
	}

	if q.data == nil || other.data == nil {
		return false
	}

	if q.data.tag != other.data.tag {
		return false
	}

	return payloadsEqual(q.data.payload, other.data.payload)
}

func payloadsEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if eq, ok := a.(qualifierEqual); ok {
		return eq.Equal(b)
	}

	return reflect.DeepEqual(a, b)
}

// Matches reports whether q matches other. Matching is equality, except
// that All matches every qualifier (in either position) and a qualifier
// always matches itself.
func (q Qualifier) Matches(other Qualifier) bool {
	if q.data != nil && q.data.all {
		return true
	}

	if other.data != nil && other.data.all {
		return true
	}

	return q.Equal(other)
}

// String renders the qualifier for diagnostics.
func (q Qualifier) String() string {
	if q.data == nil {
		return "<zero-qualifier>"
	}

	if q.data.payload == nil {
		return q.data.tag.String()
	}

	return fmt.Sprintf("%s(%v)", q.data.tag, q.data.payload)
}
