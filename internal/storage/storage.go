// Package storage is the on-disk key-value layer used when a grouped write
// session spills its index out of memory.
package storage

import "errors"

// ErrClosed is returned by operations on a closed storage.
var ErrClosed = errors.New("storage is closed")

// Table namespaces keys inside one database.
type Table byte

const (
	// TableRows holds grouped statement rows keyed by graph, subject and sequence.
	TableRows Table = iota + 1
)

func (t Table) String() string {
	switch t {
	case TableRows:
		return "rows"
	default:
		return "unknown"
	}
}

// PrefixKey adds a table prefix to a key
func PrefixKey(table Table, key []byte) []byte {
	result := make([]byte, 1+len(key))
	result[0] = byte(table)
	copy(result[1:], key)
	return result
}
