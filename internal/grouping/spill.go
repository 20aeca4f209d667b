package grouping

import (
	"encoding/binary"
	"fmt"

	"github.com/aleksaelezovic/rdfio/internal/intern"
	"github.com/aleksaelezovic/rdfio/internal/storage"
	"github.com/charmbracelet/log"
)

// spillIndex keeps rows in a temporary badger database. Graph and subject
// ordering stay in memory; keys are graph|subject|seq in big-endian so a
// prefix scan returns a bucket in append order.
type spillIndex struct {
	width    int
	store    *storage.BadgerStorage
	batch    *storage.Batch
	dirty    bool
	graphs   []intern.ID
	subjects map[intern.ID][]intern.ID
	seq      map[[2]intern.ID]uint64
	n        int
	buf      []byte
}

func newSpillIndex(width int, dir string, logger *log.Logger) (*spillIndex, error) {
	store, err := storage.NewTempStorage(dir, logger)
	if err != nil {
		return nil, err
	}
	batch, err := store.NewBatch()
	if err != nil {
		store.Close()
		return nil, err
	}
	if logger != nil {
		logger.Debug("spilling grouped rows", "dir", store.Dir())
	}
	return &spillIndex{
		width:    width,
		store:    store,
		batch:    batch,
		subjects: make(map[intern.ID][]intern.ID),
		seq:      make(map[[2]intern.ID]uint64),
	}, nil
}

func (x *spillIndex) Append(g, s intern.ID, row []intern.ID) error {
	if x.batch == nil {
		return storage.ErrClosed
	}
	bucket := [2]intern.ID{g, s}
	seq, ok := x.seq[bucket]
	if !ok {
		subjects, seen := x.subjects[g]
		if !seen {
			x.graphs = append(x.graphs, g)
		}
		x.subjects[g] = append(subjects, s)
	}
	x.seq[bucket] = seq + 1

	key := make([]byte, 24)
	binary.BigEndian.PutUint64(key[0:], uint64(g))
	binary.BigEndian.PutUint64(key[8:], uint64(s))
	binary.BigEndian.PutUint64(key[16:], seq)

	x.buf = x.buf[:0]
	for _, id := range row[:x.width] {
		x.buf = binary.AppendUvarint(x.buf, uint64(id))
	}
	if err := x.batch.Set(storage.TableRows, key, append([]byte(nil), x.buf...)); err != nil {
		return fmt.Errorf("spill row: %w", err)
	}
	x.dirty = true
	x.n++
	return nil
}

func (x *spillIndex) Graphs() []intern.ID { return x.graphs }

func (x *spillIndex) Subjects(g intern.ID) []intern.ID { return x.subjects[g] }

func (x *spillIndex) Has(g, s intern.ID) bool {
	_, ok := x.seq[[2]intern.ID{g, s}]
	return ok
}

func (x *spillIndex) flush() error {
	if !x.dirty {
		return nil
	}
	if err := x.batch.Flush(); err != nil {
		return fmt.Errorf("flush spill batch: %w", err)
	}
	batch, err := x.store.NewBatch()
	if err != nil {
		x.batch = nil
		return err
	}
	x.batch = batch
	x.dirty = false
	return nil
}

func (x *spillIndex) Rows(g, s intern.ID, fn func(row []intern.ID) error) error {
	if err := x.flush(); err != nil {
		return err
	}
	prefix := make([]byte, 16)
	binary.BigEndian.PutUint64(prefix[0:], uint64(g))
	binary.BigEndian.PutUint64(prefix[8:], uint64(s))

	txn, err := x.store.Begin()
	if err != nil {
		return err
	}
	defer txn.Discard()
	it := txn.Scan(storage.TableRows, prefix)
	defer it.Close()

	row := make([]intern.ID, x.width)
	var want uint64
	for it.Next() {
		if seq := binary.BigEndian.Uint64(it.Key()[16:]); seq != want {
			return fmt.Errorf("corrupt spill bucket %d/%d: row %d where %d was expected", g, s, seq, want)
		}
		want++
		err := it.Value(func(val []byte) error {
			for i := range row {
				v, n := binary.Uvarint(val)
				if n <= 0 {
					return fmt.Errorf("corrupt spill row for bucket %d/%d", g, s)
				}
				row[i] = intern.ID(v)
				val = val[n:]
			}
			return nil
		})
		if err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

func (x *spillIndex) Len() int { return x.n }

func (x *spillIndex) Close() error {
	if x.store == nil {
		return nil
	}
	if x.batch != nil {
		x.batch.Cancel()
	}
	err := x.store.Close()
	x.store = nil
	x.subjects = nil
	x.seq = nil
	return err
}
