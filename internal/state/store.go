// Package state caches printed stubs in SQLite.
//
// Entries are keyed by source path. A cached stub is reused only while the
// source content hash and the printer options it was produced with match.
package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Entry is one cached stub.
type Entry struct {
	Path        string
	ContentHash string
	OptionsKey  string
	Stub        string
	UpdatedAt   time.Time
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries     int
	StubBytes   int64
	LastUpdated time.Time // zero when the cache is empty
}

// Store is the stub cache used by the CLI.
type Store interface {
	// Get returns the cached stub for path when it was produced from the
	// same content and options.
	Get(ctx context.Context, path, contentHash, optionsKey string) (stub string, ok bool, err error)
	// Put stores or replaces the entry for e.Path.
	Put(ctx context.Context, e Entry) error
	Stats(ctx context.Context) (Stats, error)
	// Clear removes every entry and reports how many were removed.
	Clear(ctx context.Context) (int64, error)
	Close() error
}

// HashContent returns the hex SHA-256 of a source document.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// OptionsKey encodes the printer options that affect output.
func OptionsKey(multilineArgs, sortSignatures bool) string {
	return fmt.Sprintf("multiline=%t;sort_signatures=%t", multilineArgs, sortSignatures)
}
