package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/ryanleh/labeled-psi/psi"
	"github.com/ryanleh/labeled-psi/reader"
	"github.com/ryanleh/labeled-psi/sender"
)

var numRecords *uint64
var labelBytes *uint64

// Generate a synthetic labeled CSV source with `n` records
func genSource(n, labelLen uint64) string {
	rng := rand.New(rand.NewSource(0))
	var b strings.Builder
	label := make([]byte, labelLen)
	for i := uint64(0); i < n; i++ {
		rng.Read(label)
		fmt.Fprintf(&b, "item-%d-%d,%x\n", i, rng.Uint64(), label)
	}
	return b.String()
}

func benchmarkParse() testing.BenchmarkResult {
	source := genSource(*numRecords, *labelBytes)
	r := reader.NewReader("bench")

	return testing.Benchmark(func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, _, err := r.Read(strings.NewReader(source)); err != nil {
				panic(err)
			}
		}
	})
}

func benchmarkOPRF() testing.BenchmarkResult {
	items := make([]psi.Item, *numRecords)
	for i := range items {
		items[i] = psi.NewItem(fmt.Sprintf("item-%d", i))
	}
	key, err := psi.NewOPRFKey()
	if err != nil {
		panic(err)
	}

	return testing.Benchmark(func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := psi.ComputeHashes(items, key); err != nil {
				panic(err)
			}
		}
	})
}

func benchmarkMask() testing.BenchmarkResult {
	source := genSource(*numRecords, *labelBytes)
	data, _, err := reader.NewReader("bench").Read(strings.NewReader(source))
	if err != nil {
		panic(err)
	}
	labeled := data.(reader.LabeledData)

	return testing.Benchmark(func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			db, err := psi.NewSenderDB(psi.Params{
				LabelByteCount: 8,
				NonceByteCount: 16,
			})
			if err != nil {
				panic(err)
			}
			if _, err := sender.BuildMaskedTable(db, labeled); err != nil {
				panic(err)
			}
		}
	})
}

func main() {
	// Required to call this before flag.Parse for testing flags to work
	testing.Init()
	numRecords = flag.Uint64("n", 1<<16, "# of records")
	labelBytes = flag.Uint64("label", 32, "label bytes per record")
	benchType := flag.String("bench", "mask", "(parse/oprf/mask)")
	memprofile := flag.String("memprofile", "", "write memory profile to `file`")
	flag.Parse()

	var result testing.BenchmarkResult
	switch *benchType {
	case "parse":
		result = benchmarkParse()
	case "oprf":
		result = benchmarkOPRF()
	case "mask":
		result = benchmarkMask()
	default:
		panic(fmt.Sprintf("Invalid bench name %s", *benchType))
	}

	// Print Results
	avgTimeMs := float64(result.T.Microseconds()) / float64(result.N) / 1000.0
	recsPerSec := float64(*numRecords) / (avgTimeMs / 1000.0)
	fmt.Printf("%d iters\n", result.N)
	fmt.Printf(
		"Avg. Latency(%s, n=%d, label=%d): %0.2fms (%0.0f records/s)\n",
		*benchType, *numRecords, *labelBytes, avgTimeMs, recsPerSec,
	)

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			log.Fatal("could not create memory profile: ", err)
		}
		defer f.Close()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal("could not write memory profile: ", err)
		}
	}
}
