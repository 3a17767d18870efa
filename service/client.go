package service

import (
	"log"
	"net"
	"net/rpc"
)

import (
	"github.com/ryanleh/labeled-psi/sender"
)

type Client struct {
	conn      *CountingIO
	rpcClient *rpc.Client
	info      InfoResponse
}

func MakeClient(addr string) *Client {
	// Connect to the table server
	socket, err := net.Dial("tcp", addr)
	if err != nil {
		log.Println("Error connecting to server")
		panic(err)
	}
	conn := NewCountingIO(socket)
	rpcClient := rpc.NewClient(conn)

	// Fetch database info from the server
	var reply InfoResponse
	err = rpcClient.Call("Server.InfoRPC", InfoRequest{}, &reply)
	if err != nil {
		log.Println("Error initializing client")
		panic(err)
	}

	return &Client{conn, rpcClient, reply}
}

func (c *Client) Close() {
	c.rpcClient.Close()
}

// Look up the masked payload for an identifier key
func (c *Client) Lookup(key string) ([]byte, bool) {
	var reply LookupResponse
	err := c.rpcClient.Call("Server.LookupRPC", LookupRequest{Key: key}, &reply)
	if err != nil {
		log.Printf("Error making lookup")
		panic(err)
	}
	return reply.Masked, reply.Found
}

// Fetch the full lookup table
func (c *Client) Table() []sender.MaskedEntry {
	var reply TableResponse
	err := c.rpcClient.Call("Server.TableRPC", TableRequest{}, &reply)
	if err != nil {
		log.Printf("Error fetching table")
		panic(err)
	}
	return reply.Entries
}

func (c *Client) Info() InfoResponse {
	return c.info
}

func (c *Client) GetConn() *CountingIO {
	return c.conn
}
