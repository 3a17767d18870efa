package psi

import (
	"crypto/rand"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"
)

// Width of a single OPRF evaluation in bytes
const HashByteCount = 32

// A secret key for the batched OPRF. The key is scoped to a single SenderDB
// instance and is generated when the database is constructed.
type OPRFKey [32]byte

// A single OPRF evaluation. The slice always has length `HashByteCount`, but
// consumers should size their reads off `len` rather than the constant.
type Hash []byte

// Generate a fresh OPRF key
func NewOPRFKey() (OPRFKey, error) {
	var key OPRFKey
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return key, fmt.Errorf("psi: key generation failed: %w", err)
	}
	return key, nil
}

// Evaluate the OPRF on a batch of items under `key`. Results are returned in
// input order, one fixed-width hash per item. The whole batch is evaluated in
// a single call so the key never has to be re-derived per record; internally
// the batch is split across workers.
func ComputeHashes(items []Item, key OPRFKey) ([]Hash, error) {
	hashes := make([]Hash, len(items))
	if len(items) == 0 {
		return hashes, nil
	}

	// Back all hashes with one allocation
	buf := make([]byte, len(items)*HashByteCount)
	for i := range hashes {
		hashes[i] = buf[i*HashByteCount : (i+1)*HashByteCount]
	}

	workers := runtime.NumCPU()
	if workers > len(items) {
		workers = len(items)
	}
	chunk := (len(items) + workers - 1) / workers

	var g errgroup.Group
	for start := 0; start < len(items); start += chunk {
		start := start
		end := start + chunk
		if end > len(items) {
			end = len(items)
		}

		g.Go(func() error {
			h, err := blake2b.New256(key[:])
			if err != nil {
				return fmt.Errorf("psi: OPRF evaluation failed: %w", err)
			}
			for i := start; i < end; i++ {
				h.Reset()
				h.Write(items[i][:])
				h.Sum(hashes[i][:0])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return hashes, nil
}
