package service

import (
	"log"
	"net"
	"net/rpc"
)

import (
	"github.com/ryanleh/labeled-psi/psi"
	"github.com/ryanleh/labeled-psi/sender"
)

// Serves a built masked lookup table (and the introspection surface of the
// store behind it) to downstream query services over gob-encoded RPC.
type Server struct {
	store    psi.Store
	entries  []sender.MaskedEntry
	table    map[string][]byte
	listener net.Listener
}

// Create a new RPC server for the given artifacts. `addr` may use port 0 to
// pick a free port; see Addr.
func StartServer(store psi.Store, entries []sender.MaskedEntry, addr string) *Server {
	table := make(map[string][]byte, len(entries))
	for _, entry := range entries {
		table[entry.Key()] = entry.Masked
	}
	server := &Server{store: store, entries: entries, table: table}

	// Start RPC server
	rpcHandler := rpc.NewServer()
	rpcHandler.Register(server)
	l, err := net.Listen("tcp", addr)
	if err != nil {
		panic("Failed to start listener")
	}
	server.listener = l
	go func() {
		for {
			conn, err := server.listener.Accept()
			if err != nil {
				return
			}
			go rpcHandler.ServeConn(conn)
		}
	}()

	return server
}

// Shutdown the RPC server
func (s *Server) StopServer() {
	s.listener.Close()
}

// The address the server is listening on
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// RPC called to fetch database info
func (s *Server) InfoRPC(args InfoRequest, response *InfoResponse) error {
	log.Printf("Got Info RPC Call")

	response.ItemCount = s.store.ItemCount()
	response.PackingRate = s.store.PackingRate()
	response.TableSize = uint64(len(s.entries))
	if db, ok := s.store.(*psi.SenderDB); ok {
		response.LabelByteCount = db.Params().LabelByteCount
		response.NonceByteCount = db.Params().NonceByteCount
	}
	return nil
}

// RPC called to look up a masked payload by identifier key
func (s *Server) LookupRPC(args LookupRequest, response *LookupResponse) error {
	log.Printf("Got Lookup RPC Call")

	masked, ok := s.table[args.Key]
	response.Found = ok
	if ok {
		response.Masked = masked
	}
	return nil
}

// RPC called to dump the full lookup table
func (s *Server) TableRPC(args TableRequest, response *TableResponse) error {
	log.Printf("Got Table RPC Call")

	response.Entries = s.entries
	return nil
}
