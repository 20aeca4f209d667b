package storage

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStorage is a BadgerDB database addressed by Table-prefixed keys.
type BadgerStorage struct {
	db     *badger.DB
	dir    string
	remove bool
	closed bool
}

// NewBadgerStorage opens (or creates) a database at path. Badger's own
// diagnostics go to logger at debug level and above; a nil logger silences them.
func NewBadgerStorage(path string, logger *log.Logger) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(path)
	if logger != nil {
		opts.Logger = badgerLogger{logger.WithPrefix("badger")}
	} else {
		opts.Logger = nil
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	return &BadgerStorage{db: db, dir: path}, nil
}

// NewTempStorage opens a fresh database in a new directory below parent
// (the system temp dir if empty). The directory is removed on Close.
func NewTempStorage(parent string, logger *log.Logger) (*BadgerStorage, error) {
	dir, err := os.MkdirTemp(parent, "rdfio-spill-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create spill dir: %w", err)
	}
	s, err := NewBadgerStorage(dir, logger)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	s.remove = true
	return s, nil
}

// Dir returns the database directory.
func (s *BadgerStorage) Dir() string { return s.dir }

// NewBatch starts a write batch. Batches are not transactional and have no
// size limit.
func (s *BadgerStorage) NewBatch() (*Batch, error) {
	if s.closed {
		return nil, ErrClosed
	}
	return &Batch{wb: s.db.NewWriteBatch()}, nil
}

// Begin starts a read-only transaction.
func (s *BadgerStorage) Begin() (*Transaction, error) {
	if s.closed {
		return nil, ErrClosed
	}
	return &Transaction{txn: s.db.NewTransaction(false)}, nil
}

// Close closes the storage and removes temporary directories. Closing twice
// returns ErrClosed.
func (s *BadgerStorage) Close() error {
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	err := s.db.Close()
	if s.remove {
		if rmErr := os.RemoveAll(s.dir); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	return err
}

// Batch buffers writes and commits them in the background.
type Batch struct {
	wb *badger.WriteBatch
}

// Set stores a key-value pair
func (b *Batch) Set(table Table, key, value []byte) error {
	return b.wb.Set(PrefixKey(table, key), value)
}

// Flush waits for all pending writes.
func (b *Batch) Flush() error {
	return b.wb.Flush()
}

// Cancel discards pending writes.
func (b *Batch) Cancel() {
	b.wb.Cancel()
}

// Transaction is a read-only snapshot.
type Transaction struct {
	txn *badger.Txn
}

// Scan iterates over every key of table that starts with prefix, in key order.
func (t *Transaction) Scan(table Table, prefix []byte) *Iterator {
	scanPrefix := PrefixKey(table, prefix)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = scanPrefix
	return &Iterator{
		it:         t.txn.NewIterator(opts),
		scanPrefix: scanPrefix,
	}
}

// Discard ends the transaction.
func (t *Transaction) Discard() {
	t.txn.Discard()
}

// Iterator walks a prefix scan.
type Iterator struct {
	it         *badger.Iterator
	scanPrefix []byte
	started    bool
}

// Next advances to the next item
func (i *Iterator) Next() bool {
	if !i.started {
		i.it.Seek(i.scanPrefix)
		i.started = true
	} else {
		i.it.Next()
	}
	return i.it.ValidForPrefix(i.scanPrefix)
}

// Key returns the current key without the table prefix. The slice is only
// valid until the next call to Next.
func (i *Iterator) Key() []byte {
	return i.it.Item().Key()[1:]
}

// Value calls fn with the current value. The slice is only valid inside fn.
func (i *Iterator) Value(fn func(val []byte) error) error {
	return i.it.Item().Value(fn)
}

// Close closes the iterator
func (i *Iterator) Close() {
	i.it.Close()
}

// badgerLogger routes badger.Logger calls to a charm logger. Badger is
// chatty at info level, so its info lines are demoted to debug.
type badgerLogger struct {
	l *log.Logger
}

func (b badgerLogger) Errorf(format string, args ...interface{}) {
	b.l.Errorf(strings.TrimSpace(format), args...)
}

func (b badgerLogger) Warningf(format string, args ...interface{}) {
	b.l.Warnf(strings.TrimSpace(format), args...)
}

func (b badgerLogger) Infof(format string, args ...interface{}) {
	b.l.Debugf(strings.TrimSpace(format), args...)
}

func (b badgerLogger) Debugf(format string, args ...interface{}) {
	b.l.Debugf(strings.TrimSpace(format), args...)
}
