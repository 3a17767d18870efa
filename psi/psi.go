package psi

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"
)

// An opaque 128-bit representation of an input string. Items are what the
// PSI protocol actually operates on; the originating string is never stored
// here.
type Item [16]byte

// Derive an `Item` from an input string
func NewItem(s string) Item {
	h := xxh3.Hash128([]byte(s))

	var item Item
	binary.LittleEndian.PutUint64(item[0:8], h.Lo)
	binary.LittleEndian.PutUint64(item[8:16], h.Hi)
	return item
}

// The raw payload bytes associated with an item in a labeled database
type Label []byte

// A single labeled record
type ItemLabel struct {
	Item  Item
	Label Label
}

// The narrow interface the data-loading layer uses to talk to a sender
// database. `*SenderDB` satisfies this; tests substitute fakes.
type Store interface {
	// Ingest an unlabeled item set
	SetData(items []Item) error

	// Ingest a labeled item set
	SetLabeledData(data []ItemLabel) error

	// Export the OPRF key scoped to this store instance
	OPRFKey() OPRFKey

	// Introspection
	ItemCount() uint64
	PackingRate() float64
}
