package service

import (
	"net"
)

// A connection wrapper that tracks bytes sent / received, used to account
// for the communication cost of serving tables
type CountingIO struct {
	conn net.Conn

	sent uint64
	recv uint64
}

func NewCountingIO(conn net.Conn) *CountingIO {
	return &CountingIO{conn: conn}
}

func (c *CountingIO) Read(p []byte) (int, error) {
	n, err := c.conn.Read(p)
	c.recv += uint64(n)
	return n, err
}

func (c *CountingIO) Write(p []byte) (int, error) {
	n, err := c.conn.Write(p)
	c.sent += uint64(n)
	return n, err
}

func (c *CountingIO) Close() error {
	return c.conn.Close()
}

func (c *CountingIO) GetCounts() (uint64, uint64) {
	return c.sent, c.recv
}

func (c *CountingIO) Reset() {
	c.sent = 0
	c.recv = 0
}
