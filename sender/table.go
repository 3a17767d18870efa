package sender

import (
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/ryanleh/labeled-psi/psi"
)

// One row of the public lookup table: a record's identifier and its payload
// XOR-masked under the record's OPRF keystream. Safe to store or transmit
// without the OPRF key.
type MaskedEntry struct {
	UID    []byte
	Masked []byte
}

// The uppercase-hex form of the identifier, used as the table key by
// external storage
func (e MaskedEntry) Key() string {
	return strings.ToUpper(hex.EncodeToString(e.UID))
}

// Ingest `data` into `store` keyed by sequential identifiers and build the
// masked lookup table.
//
// Each record gets a minimal fixed-width big-endian identifier (1-based, in
// input order), which is what the store sees as the record's label. The
// store's OPRF is then evaluated once over the whole item batch, and each
// original payload is XORed against its evaluation to produce the table.
// Any store failure aborts the build; there is no partial table.
func BuildMaskedTable(store psi.Store, data []psi.ItemLabel) ([]MaskedEntry, error) {
	total := uint64(len(data))
	if total == 0 {
		return nil, ErrEmptyDataset
	}
	width := uidByteCount(total)

	// Ingest (item, identifier) pairs
	items := make([]psi.Item, total)
	pairs := make([]psi.ItemLabel, total)
	for i := range data {
		items[i] = data[i].Item
		pairs[i] = psi.ItemLabel{
			Item:  data[i].Item,
			Label: encodeUID(uint64(i)+1, width),
		}
	}
	if err := store.SetLabeledData(pairs); err != nil {
		return nil, fmt.Errorf("sender: masked table ingest: %w", err)
	}

	// One OPRF batch for the whole dataset
	hashes, err := psi.ComputeHashes(items, store.OPRFKey())
	if err != nil {
		return nil, fmt.Errorf("sender: masked table OPRF batch: %w", err)
	}

	table := make([]MaskedEntry, total)
	for i := range data {
		table[i] = MaskedEntry{
			UID:    pairs[i].Label,
			Masked: maskLabel(data[i].Label, hashes[i]),
		}
	}
	return table, nil
}

// XOR `label` against `keystream`, cycling the keystream if the label is
// longer. XOR is self-inverse, so applying this twice with the same
// keystream recovers the original.
func maskLabel(label psi.Label, keystream psi.Hash) []byte {
	masked := make([]byte, len(label))
	for j := range label {
		masked[j] = label[j] ^ keystream[j%len(keystream)]
	}
	return masked
}

// The smallest byte width that can represent every identifier in a dataset
// of `total` records
func uidByteCount(total uint64) uint64 {
	width := uint64(math.Ceil(math.Log2(float64(total)+1) / 8.0))
	if width < 1 {
		width = 1
	}
	return width
}

// Big-endian encoding of `idx`, zero-padded on the left to `width` bytes
func encodeUID(idx uint64, width uint64) []byte {
	uid := make([]byte, width)
	for b := uint64(0); b < width && b < 8; b++ {
		uid[width-1-b] = byte(idx >> (8 * b))
	}
	return uid
}
