package main

import (
	"bufio"
	"log"
	"os"
	"strconv"

	"github.com/ryanleh/labeled-psi/sender"
	"github.com/ryanleh/labeled-psi/service"
)

const (
	defaultListenAddr     = ":8728"
	defaultNonceByteCount = 16
)

type config struct {
	csvPath        string
	listenAddr     string
	nonceByteCount uint64
	compress       bool
}

func loadConfig() config {
	cfg := config{
		listenAddr:     defaultListenAddr,
		nonceByteCount: defaultNonceByteCount,
	}

	cfg.csvPath = os.Getenv("PSI_DB_PATH")
	if cfg.csvPath == "" {
		log.Fatal("PSI_DB_PATH must be set")
	}
	if v := os.Getenv("PSI_LISTEN_ADDR"); v != "" {
		cfg.listenAddr = v
	}
	if v := os.Getenv("PSI_NONCE_BYTES"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			log.Fatalf("Invalid PSI_NONCE_BYTES: %v", err)
		}
		cfg.nonceByteCount = n
	}
	if v := os.Getenv("PSI_COMPRESS"); v == "1" || v == "true" {
		cfg.compress = true
	}
	return cfg
}

func main() {
	cfg := loadConfig()

	db, table, err := sender.LoadMaskedDB(cfg.csvPath, cfg.nonceByteCount, cfg.compress)
	if err != nil {
		log.Fatalf("Failed to load masked DB: %v", err)
	}

	server := service.StartServer(db, table, cfg.listenAddr)
	defer server.StopServer()
	log.Printf("Serving %d table entries on %s", len(table), server.Addr())

	buf := bufio.NewReader(os.Stdin)
	log.Println("Press any button to kill server...")
	buf.ReadBytes('\n')
}
