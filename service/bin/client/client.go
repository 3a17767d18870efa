package main

import (
	"flag"
	"log"
	"time"

	"github.com/ryanleh/labeled-psi/service"
)

func main() {
	addr := flag.String("addr", "0.0.0.0:8728", "server address")
	key := flag.String("key", "", "hex identifier key to look up (empty = dump table)")
	flag.Parse()

	// Initialize Client
	log.Print("Initializing client...")
	start := time.Now()
	client := service.MakeClient(*addr)
	defer client.Close()
	log.Printf("\tTook: %dms", time.Since(start).Milliseconds())

	info := client.Info()
	log.Printf(
		"Server DB: %d items, %d table entries, packing rate %0.3f",
		info.ItemCount, info.TableSize, info.PackingRate,
	)

	if *key != "" {
		masked, found := client.Lookup(*key)
		if !found {
			log.Fatalf("Key %s not found", *key)
		}
		log.Printf("Masked payload for %s: %x", *key, masked)
	} else {
		table := client.Table()
		for _, entry := range table {
			log.Printf("%s -> %x", entry.Key(), entry.Masked)
		}
	}

	sent, recv := client.GetConn().GetCounts()
	log.Printf("Comm: sent %d bytes, received %d bytes", sent, recv)
}
