// Package ledger persists the outcome of every run: which files succeeded,
// which failed and why, and which batches were written.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/kristyvitulova/Publication/internal/batch"
	"github.com/kristyvitulova/Publication/internal/logging"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("ledger: run not found")

// Run is the header record of one pipeline run.
type Run struct {
	ID         string    `msgpack:"id"`
	RootDir    string    `msgpack:"root_dir"`
	Channel    string    `msgpack:"channel"`
	StartedAt  time.Time `msgpack:"started_at"`
	FinishedAt time.Time `msgpack:"finished_at"`
	FilesFound int       `msgpack:"files_found"`
	Segments   int       `msgpack:"segments"`
	Err        string    `msgpack:"error,omitempty"`
}

// Finished reports whether FinishRun was recorded.
func (r Run) Finished() bool { return !r.FinishedAt.IsZero() }

// File is the outcome of one input file.
type File struct {
	Seq      int    `msgpack:"seq"`
	Path     string `msgpack:"path"`
	OK       bool   `msgpack:"ok"`
	Kind     string `msgpack:"kind,omitempty"`
	Err      string `msgpack:"error,omitempty"`
	Segments int    `msgpack:"segments"`
}

// Report is everything recorded for one run.
type Report struct {
	Run     Run
	Files   []File
	Batches []batch.Record
}

// Ledger is a badger-backed run store. It is safe for concurrent use.
type Ledger struct {
	db *badger.DB
}

// Open opens the ledger in dir, or an in-memory ledger when dir is empty.
func Open(dir string, log *zap.SugaredLogger) (*Ledger, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	opts := badger.DefaultOptions(dir).WithLogger(logging.Badger{L: log})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open ledger %q: %w", dir, err)
	}
	return &Ledger{db: db}, nil
}

// Close releases the underlying store.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func runKey(id string) []byte            { return []byte("run/" + id) }
func filePrefix(id string) []byte        { return []byte("file/" + id + "/") }
func batchPrefix(id string) []byte       { return []byte("batch/" + id + "/") }
func fileKey(id string, seq int) []byte  { return fmt.Appendf(filePrefix(id), "%08d", seq) }
func batchKey(id string, idx int) []byte { return fmt.Appendf(batchPrefix(id), "%08d", idx) }

func (l *Ledger) put(key []byte, v any) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// StartRun records the run header.
func (l *Ledger) StartRun(_ context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("ledger: run id is required")
	}
	return l.put(runKey(run.ID), run)
}

// RecordFile records the outcome of one input file.
func (l *Ledger) RecordFile(_ context.Context, runID string, f File) error {
	return l.put(fileKey(runID, f.Seq), f)
}

// RecordBatch records a persisted batch.
func (l *Ledger) RecordBatch(_ context.Context, runID string, rec batch.Record) error {
	return l.put(batchKey(runID, rec.Index), rec)
}

// FinishRun updates the run header with its final counters. runErr is the
// fatal error that ended the run, if any.
func (l *Ledger) FinishRun(ctx context.Context, runID string, filesFound, segments int, runErr error) error {
	run, err := l.Run(ctx, runID)
	if err != nil {
		return err
	}
	run.FinishedAt = time.Now().UTC()
	run.FilesFound = filesFound
	run.Segments = segments
	if runErr != nil {
		run.Err = runErr.Error()
	}
	return l.put(runKey(runID), run)
}

// Run returns the header of one run.
func (l *Ledger) Run(_ context.Context, runID string) (Run, error) {
	var run Run
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(runID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &run)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return run, err
}

// Runs lists every recorded run, most recent first.
func (l *Ledger) Runs(_ context.Context) ([]Run, error) {
	var runs []Run
	err := scan(l.db, []byte("run/"), func(val []byte) error {
		var r Run
		if err := msgpack.Unmarshal(val, &r); err != nil {
			return err
		}
		runs = append(runs, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(runs, func(a, b Run) int { return b.StartedAt.Compare(a.StartedAt) })
	return runs, nil
}

// Report loads the header, file outcomes and batches of one run. Files and
// batches are in recording order.
func (l *Ledger) Report(ctx context.Context, runID string) (*Report, error) {
	run, err := l.Run(ctx, runID)
	if err != nil {
		return nil, err
	}
	rep := &Report{Run: run}

	err = scan(l.db, filePrefix(runID), func(val []byte) error {
		var f File
		if err := msgpack.Unmarshal(val, &f); err != nil {
			return err
		}
		rep.Files = append(rep.Files, f)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = scan(l.db, batchPrefix(runID), func(val []byte) error {
		var b batch.Record
		if err := msgpack.Unmarshal(val, &b); err != nil {
			return err
		}
		rep.Batches = append(rep.Batches, b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// scan calls fn with every value under prefix in key order.
func scan(db *badger.DB, prefix []byte, fn func(val []byte) error) error {
	return db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}
