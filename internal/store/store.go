// Package store provides the key-value capability the catalog broadcast is
// persisted in. Every backend is safe for concurrent use.
package store

import (
	"errors"
	"io"
	"strings"
)

const (
	TypeMemory = "memory"
	TypeBolt   = "bolt"
	TypeRedis  = "redis"
	TypeSQL    = "sql"
)

// ErrNotFound is returned by Get when the key does not exist
var ErrNotFound = errors.New("store: key not found")

// Entry a raw key/value pair returned by ScanPrefix
type Entry struct {
	Key   string
	Value []byte
}

// Store is a flat key-value namespace with prefix enumeration.
// Set overwrites silently. ScanPrefix order is backend-defined.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	ScanPrefix(prefix string) ([]Entry, error)
	Close() error
}

// Backuper is implemented by stores that can write a consistent snapshot
type Backuper interface {
	Backup(w io.Writer) (int64, error)
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

// escapeGlob escapes redis MATCH metacharacters
func escapeGlob(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}

// escapeLike escapes SQL LIKE metacharacters using backslash as the escape char
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
