// Package dblock serializes tests that share one Postgres database across
// packages run in parallel by go test.
package dblock

import (
	"net"
	"os"
	"time"
)

const defaultLockAddr = "127.0.0.1:45433"

// Acquire blocks until the process holds the lock and returns its release.
// FCY_TEST_DB_LOCK overrides the loopback address used as the lock.
func Acquire() func() {
	addr := os.Getenv("FCY_TEST_DB_LOCK")
	if addr == "" {
		addr = defaultLockAddr
	}
	for {
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return func() { _ = ln.Close() }
		}
		time.Sleep(50 * time.Millisecond)
	}
}
