package psi

import (
	"errors"
	"fmt"
)

// Hard caps on the per-record byte widths a SenderDB will accept. Labels
// longer than this should be split across multiple records upstream.
const (
	MaxLabelByteCount = 1024
	MaxNonceByteCount = 16
)

var ErrInvalidParams = errors.New("psi: invalid parameters")

// Construction parameters for a SenderDB
type Params struct {
	// Width of the stored labels in bytes. Zero for an unlabeled database.
	LabelByteCount uint64

	// Width of the per-label nonce in bytes
	NonceByteCount uint64

	// Whether to compress the in-memory representation
	Compressed bool
}

func (p Params) Validate() error {
	if p.LabelByteCount > MaxLabelByteCount {
		return fmt.Errorf(
			"%w: label byte count %d exceeds %d",
			ErrInvalidParams, p.LabelByteCount, MaxLabelByteCount,
		)
	}
	if p.NonceByteCount > MaxNonceByteCount {
		return fmt.Errorf(
			"%w: nonce byte count %d exceeds %d",
			ErrInvalidParams, p.NonceByteCount, MaxNonceByteCount,
		)
	}
	if p.LabelByteCount == 0 && p.NonceByteCount != 0 {
		return fmt.Errorf(
			"%w: nonce byte count set on an unlabeled database",
			ErrInvalidParams,
		)
	}
	return nil
}
