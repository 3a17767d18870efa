package psi

import (
	"errors"
	"fmt"
)

var ErrIngest = errors.New("psi: ingestion failed")

// The sender's half of the labeled PSI protocol: an in-memory database of
// items (and optionally labels) together with the OPRF key bound to it.
//
// A SenderDB is built once by a single caller and is safe for concurrent
// reads afterwards; there is no support for concurrent mutation.
type SenderDB struct {
	params Params
	key    OPRFKey

	labeled bool
	items   []Item
	labels  []Label

	// Cuckoo bin packing of the item set
	bins     map[uint32]uint32
	binCount uint64
	packSeed uint64
}

// Construct an empty SenderDB with the given parameters. A fresh OPRF key is
// generated and scoped to this instance.
func NewSenderDB(params Params) (*SenderDB, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	key, err := NewOPRFKey()
	if err != nil {
		return nil, err
	}

	return &SenderDB{params: params, key: key}, nil
}

// Ingest an unlabeled item set, replacing any previous contents
func (db *SenderDB) SetData(items []Item) error {
	if err := checkDuplicates(items); err != nil {
		return err
	}

	db.labeled = false
	db.items = items
	db.labels = nil
	return db.pack()
}

// Ingest a labeled item set, replacing any previous contents. Labels may be
// shorter than the configured label width but never longer.
func (db *SenderDB) SetLabeledData(data []ItemLabel) error {
	items := make([]Item, len(data))
	labels := make([]Label, len(data))
	for i, pair := range data {
		if uint64(len(pair.Label)) > db.params.LabelByteCount {
			return fmt.Errorf(
				"%w: label of %d bytes exceeds configured width %d",
				ErrIngest, len(pair.Label), db.params.LabelByteCount,
			)
		}
		items[i] = pair.Item
		labels[i] = pair.Label
	}

	if err := checkDuplicates(items); err != nil {
		return err
	}

	db.labeled = true
	db.items = items
	db.labels = labels
	return db.pack()
}

// Export the OPRF key for this database
func (db *SenderDB) OPRFKey() OPRFKey {
	return db.key
}

func (db *SenderDB) Params() Params {
	return db.params
}

func (db *SenderDB) Labeled() bool {
	return db.labeled
}

func (db *SenderDB) ItemCount() uint64 {
	return uint64(len(db.items))
}

// Fraction of bins occupied by the current item set
func (db *SenderDB) PackingRate() float64 {
	if db.binCount == 0 {
		return 0
	}
	return float64(len(db.items)) / float64(db.binCount)
}

// Look up the bin an item was packed into. Second return is false if the
// item is not in the database.
func (db *SenderDB) Bin(item Item) (uint32, bool) {
	if db.binCount == 0 {
		return 0, false
	}
	for _, bin := range binChoices(item, db.packSeed, db.binCount) {
		if idx, ok := db.bins[bin]; ok && db.items[idx] == item {
			return bin, true
		}
	}
	return 0, false
}

func (db *SenderDB) pack() error {
	if len(db.items) == 0 {
		db.bins = nil
		db.binCount = 0
		return nil
	}

	bins, binCount, seed, ok := packBins(db.items)
	if !ok {
		return fmt.Errorf(
			"%w: bin packing failed after %d attempts", ErrIngest, maxPackAttempts,
		)
	}
	db.bins = bins
	db.binCount = binCount
	db.packSeed = seed
	return nil
}

func checkDuplicates(items []Item) error {
	seen := make(map[Item]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			return fmt.Errorf("%w: duplicate item", ErrIngest)
		}
		seen[item] = struct{}{}
	}
	return nil
}
