package sender

import (
	"errors"
	"fmt"
	"log"

	"github.com/ryanleh/labeled-psi/psi"
	"github.com/ryanleh/labeled-psi/reader"
)

var (
	ErrEmptyDataset  = errors.New("sender: dataset has no records")
	ErrUnlabeledData = errors.New("sender: dataset has no labels")
)

// Build a SenderDB from parsed source data. For labeled data the label
// width is sized to the longest label in the set.
func CreateSenderDB(
	data reader.DBData,
	nonceByteCount uint64,
	compress bool,
) (*psi.SenderDB, error) {
	switch data := data.(type) {
	case reader.UnlabeledData:
		db, err := psi.NewSenderDB(psi.Params{Compressed: compress})
		if err != nil {
			return nil, err
		}
		if err := db.SetData(data); err != nil {
			return nil, err
		}

		log.Printf("Created unlabeled SenderDB with %d items", db.ItemCount())
		return db, nil

	case reader.LabeledData:
		// Size the label width off the longest label in the set
		labelByteCount := uint64(0)
		for _, pair := range data {
			if uint64(len(pair.Label)) > labelByteCount {
				labelByteCount = uint64(len(pair.Label))
			}
		}

		db, err := psi.NewSenderDB(psi.Params{
			LabelByteCount: labelByteCount,
			NonceByteCount: nonceByteCount,
			Compressed:     compress,
		})
		if err != nil {
			return nil, err
		}
		if err := db.SetLabeledData(data); err != nil {
			return nil, err
		}

		log.Printf(
			"Created labeled SenderDB with %d items and %d-byte labels (%d-byte nonces)",
			db.ItemCount(), labelByteCount, nonceByteCount,
		)
		log.Printf("SenderDB packing rate: %0.3f", db.PackingRate())
		return db, nil

	default:
		return nil, fmt.Errorf("sender: database is in an invalid state")
	}
}

// Read a source file and build a SenderDB from its contents
func LoadDB(path string, nonceByteCount uint64, compress bool) (*psi.SenderDB, error) {
	data, _, err := reader.NewReader(path).ReadFile()
	if err != nil {
		return nil, err
	}
	return CreateSenderDB(data, nonceByteCount, compress)
}

// Read a labeled source file, build a SenderDB keyed by compact sequential
// identifiers, and return the masked lookup table alongside it. The
// original payloads live only in the table, XOR-masked under per-record
// OPRF keystreams; the SenderDB itself stores the identifiers.
func LoadMaskedDB(
	path string,
	nonceByteCount uint64,
	compress bool,
) (*psi.SenderDB, []MaskedEntry, error) {
	data, _, err := reader.NewReader(path).ReadFile()
	if err != nil {
		return nil, nil, err
	}

	labeled, ok := data.(reader.LabeledData)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnlabeledData, path)
	}
	if len(labeled) == 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrEmptyDataset, path)
	}

	db, err := psi.NewSenderDB(psi.Params{
		LabelByteCount: uidByteCount(uint64(len(labeled))),
		NonceByteCount: nonceByteCount,
		Compressed:     compress,
	})
	if err != nil {
		return nil, nil, err
	}

	table, err := BuildMaskedTable(db, labeled)
	if err != nil {
		return nil, nil, err
	}

	log.Printf("Loaded masked DB from %s: %d entries", path, len(table))
	return db, table, nil
}
