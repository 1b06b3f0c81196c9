package gridmap

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a continuous 2D coordinate in metres.
type Point = r2.Vec

// Pointcloud is an ordered sequence of measurement endpoints in the global
// frame.
type Pointcloud []Point

// Key addresses a single grid cell. Each component lies in
// [0, 2*gridMaxVal).
type Key [2]uint16

func (k Key) String() string {
	return fmt.Sprintf("(%d,%d)", k[0], k[1])
}

// packed folds the key into a single uint32 for bitmap membership.
func (k Key) packed() uint32 {
	return uint32(k[0])<<16 | uint32(k[1])
}

func unpackKey(v uint32) Key {
	return Key{uint16(v >> 16), uint16(v)}
}

// KeyRay is a reusable buffer of the keys visited by one ray traversal.
// Its capacity is fixed at construction; overflowing it is a programming
// error and panics.
type KeyRay struct {
	keys []Key
}

// NewKeyRay returns an empty buffer able to hold capacity keys.
func NewKeyRay(capacity int) *KeyRay {
	return &KeyRay{keys: make([]Key, 0, capacity)}
}

// Reset empties the buffer while keeping its storage.
func (r *KeyRay) Reset() {
	r.keys = r.keys[:0]
}

// AddKey appends a key to the buffer.
func (r *KeyRay) AddKey(k Key) {
	if len(r.keys) == cap(r.keys) {
		panic(fmt.Sprintf("gridmap: key ray capacity %d exceeded", cap(r.keys)))
	}
	r.keys = append(r.keys, k)
}

// Keys returns the keys in traversal order. The slice is only valid until
// the next Reset.
func (r *KeyRay) Keys() []Key { return r.keys }

// Len returns the number of keys in the buffer.
func (r *KeyRay) Len() int { return len(r.keys) }

// Cap returns the fixed capacity of the buffer.
func (r *KeyRay) Cap() int { return cap(r.keys) }
