package service

import (
	"github.com/ryanleh/labeled-psi/sender"
)

// Info structs
type InfoRequest struct{}

type InfoResponse struct {
	ItemCount      uint64
	PackingRate    float64
	LabelByteCount uint64
	NonceByteCount uint64
	TableSize      uint64
}

// Lookup structs
type LookupRequest struct {
	// Uppercase-hex identifier key
	Key string
}

type LookupResponse struct {
	Found  bool
	Masked []byte
}

// Table dump structs
type TableRequest struct{}

type TableResponse struct {
	Entries []sender.MaskedEntry
}
