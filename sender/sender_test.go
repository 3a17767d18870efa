package sender

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"golang.org/x/exp/maps"

	"github.com/ryanleh/labeled-psi/psi"
	"github.com/ryanleh/labeled-psi/reader"
)

// A minimal in-memory stand-in for a SenderDB
type fakeStore struct {
	key       psi.OPRFKey
	items     []psi.Item
	labels    []psi.Label
	ingestErr error
}

func (s *fakeStore) SetData(items []psi.Item) error {
	s.items = items
	return s.ingestErr
}

func (s *fakeStore) SetLabeledData(data []psi.ItemLabel) error {
	if s.ingestErr != nil {
		return s.ingestErr
	}
	for _, pair := range data {
		s.items = append(s.items, pair.Item)
		s.labels = append(s.labels, pair.Label)
	}
	return nil
}

func (s *fakeStore) OPRFKey() psi.OPRFKey { return s.key }
func (s *fakeStore) ItemCount() uint64    { return uint64(len(s.items)) }
func (s *fakeStore) PackingRate() float64 { return 1.0 }

func labeledData(n int, labelLen int) reader.LabeledData {
	data := make(reader.LabeledData, n)
	for i := range data {
		label := make(psi.Label, labelLen)
		for j := range label {
			label[j] = byte(i + j)
		}
		data[i] = psi.ItemLabel{Item: psi.NewItem(fmt.Sprintf("item-%d", i)), Label: label}
	}
	return data
}

func TestUIDByteCount(t *testing.T) {
	tests := []struct {
		total uint64
		width uint64
	}{
		{1, 1},
		{2, 1},
		{255, 1},
		{256, 2},
		{257, 2},
		{65535, 2},
		{65536, 3},
		{1 << 24, 4},
	}
	for _, test := range tests {
		if w := uidByteCount(test.total); w != test.width {
			t.Fatalf("uidByteCount(%d) = %d, expected %d", test.total, w, test.width)
		}
	}
}

func TestEncodeUID(t *testing.T) {
	tests := []struct {
		idx      uint64
		width    uint64
		expected []byte
	}{
		{1, 1, []byte{0x01}},
		{255, 1, []byte{0xff}},
		{1, 2, []byte{0x00, 0x01}},
		{256, 2, []byte{0x01, 0x00}},
		{0x0102, 2, []byte{0x01, 0x02}},
		{0x010203, 4, []byte{0x00, 0x01, 0x02, 0x03}},
	}
	for _, test := range tests {
		if uid := encodeUID(test.idx, test.width); !bytes.Equal(uid, test.expected) {
			t.Fatalf("encodeUID(%d, %d) = %x, expected %x", test.idx, test.width, uid, test.expected)
		}
	}
}

func TestBuildMaskedTable(t *testing.T) {
	key, err := psi.NewOPRFKey()
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}
	store := &fakeStore{key: key}
	data := labeledData(300, 8)

	table, err := BuildMaskedTable(store, data)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if len(table) != 300 {
		t.Fatalf("expected 300 entries, got %d", len(table))
	}

	// The store sees the identifiers as labels, in order
	if store.ItemCount() != 300 {
		t.Fatalf("store ingested %d items", store.ItemCount())
	}
	width := uidByteCount(300)
	for i, uid := range store.labels {
		if !bytes.Equal(uid, encodeUID(uint64(i)+1, width)) {
			t.Fatalf("store label %d is not the record's identifier", i)
		}
	}

	// Identifiers are a contiguous big-endian run with the dataset's width
	for i, entry := range table {
		if uint64(len(entry.UID)) != width {
			t.Fatalf("entry %d has width %d, expected %d", i, len(entry.UID), width)
		}
		if !bytes.Equal(entry.UID, encodeUID(uint64(i)+1, width)) {
			t.Fatalf("entry %d has UID %x", i, entry.UID)
		}
		if len(entry.Masked) != len(data[i].Label) {
			t.Fatalf("entry %d masked length %d != label length %d",
				i, len(entry.Masked), len(data[i].Label))
		}
	}

	// Unmasking with the keystream recovers the original payload
	hashes, err := psi.ComputeHashes([]psi.Item{data[0].Item}, key)
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	recovered := maskLabel(psi.Label(table[0].Masked), hashes[0])
	if !bytes.Equal(recovered, data[0].Label) {
		t.Fatalf("mask round-trip failed: %x != %x", recovered, data[0].Label)
	}
}

// Labels longer than the keystream cycle it
func TestMaskLongLabel(t *testing.T) {
	keystream := make(psi.Hash, psi.HashByteCount)
	for i := range keystream {
		keystream[i] = byte(i + 1)
	}

	label := make(psi.Label, 3*psi.HashByteCount+5)
	for i := range label {
		label[i] = byte(i * 7)
	}

	masked := maskLabel(label, keystream)
	for j := range label {
		if masked[j] != label[j]^keystream[j%len(keystream)] {
			t.Fatalf("keystream not cycled at %d", j)
		}
	}
	if !bytes.Equal(maskLabel(psi.Label(masked), keystream), label) {
		t.Fatal("mask is not self-inverse")
	}
}

func TestBuildMaskedTableDeterministic(t *testing.T) {
	key, _ := psi.NewOPRFKey()
	data := labeledData(100, 16)

	table1, err := BuildMaskedTable(&fakeStore{key: key}, data)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	table2, err := BuildMaskedTable(&fakeStore{key: key}, data)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	for i := range table1 {
		if !bytes.Equal(table1[i].UID, table2[i].UID) ||
			!bytes.Equal(table1[i].Masked, table2[i].Masked) {
			t.Fatalf("entry %d differs between identical loads", i)
		}
	}
}

func TestBuildMaskedTableEmpty(t *testing.T) {
	key, _ := psi.NewOPRFKey()
	_, err := BuildMaskedTable(&fakeStore{key: key}, nil)
	if !errors.Is(err, ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
}

func TestBuildMaskedTableIngestFailure(t *testing.T) {
	key, _ := psi.NewOPRFKey()
	store := &fakeStore{key: key, ingestErr: errors.New("rejected")}
	_, err := BuildMaskedTable(store, labeledData(10, 4))
	if err == nil {
		t.Fatal("expected the ingest failure to propagate")
	}
}

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.csv")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return path
}

func TestLoadDB(t *testing.T) {
	path := writeTemp(t, "a,1\nb,22\nc,333\n")
	db, err := LoadDB(path, 16, false)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if db.ItemCount() != 3 || !db.Labeled() {
		t.Fatalf("unexpected DB state")
	}
	// Label width is sized off the longest label
	if db.Params().LabelByteCount != 3 {
		t.Fatalf("expected 3-byte labels, got %d", db.Params().LabelByteCount)
	}
}

func TestLoadDBUnlabeled(t *testing.T) {
	path := writeTemp(t, "a\nb\nc\n")
	db, err := LoadDB(path, 0, false)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if db.ItemCount() != 3 || db.Labeled() {
		t.Fatalf("unexpected DB state")
	}
}

func TestLoadMaskedDB(t *testing.T) {
	path := writeTemp(t, "a,secret-1\nb,secret-2\nc,secret-3\n")
	db, table, err := LoadMaskedDB(path, 16, false)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if db.ItemCount() != 3 || len(table) != 3 {
		t.Fatalf("expected 3 records, got %d / %d", db.ItemCount(), len(table))
	}

	// The table keys are distinct uppercase-hex identifiers
	keys := make(map[string][]byte, len(table))
	for _, entry := range table {
		keys[entry.Key()] = entry.Masked
	}
	if len(keys) != 3 {
		t.Fatalf("duplicate table keys: %v", maps.Keys(keys))
	}
	if !slices.Contains(maps.Keys(keys), "01") {
		t.Fatalf("expected key 01 in %v", maps.Keys(keys))
	}

	// Unmasking against the DB's key recovers the payloads
	hashes, err := psi.ComputeHashes([]psi.Item{psi.NewItem("b")}, db.OPRFKey())
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	recovered := maskLabel(psi.Label(keys["02"]), hashes[0])
	if string(recovered) != "secret-2" {
		t.Fatalf("recovered %q", recovered)
	}
}

func TestLoadMaskedDBUnlabeled(t *testing.T) {
	path := writeTemp(t, "a\nb\n")
	_, _, err := LoadMaskedDB(path, 16, false)
	if !errors.Is(err, ErrUnlabeledData) {
		t.Fatalf("expected ErrUnlabeledData, got %v", err)
	}
}

func TestLoadMaskedDBMissingFile(t *testing.T) {
	_, _, err := LoadMaskedDB(filepath.Join(t.TempDir(), "missing.csv"), 16, false)
	if err == nil {
		t.Fatal("expected an error")
	}
}
