package batch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kristyvitulova/Publication/internal/storage"
)

// DefaultPrefix is the artifact file name prefix.
const DefaultPrefix = "waveform_batch"

// ErrStorageWrite is wrapped by every error returned from Writer.Write.
var ErrStorageWrite = errors.New("batch: storage write failed")

// Record describes a persisted batch.
type Record struct {
	Index    int    `json:"index" msgpack:"index"`
	Count    int    `json:"count" msgpack:"count"`
	Path     string `json:"path" msgpack:"path"`
	Location string `json:"location" msgpack:"location"`
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithFormat selects the artifact encoding. Default is FormatNPY.
func WithFormat(f Format) WriterOption {
	return func(w *Writer) { w.format = f }
}

// WithPrefix sets the artifact file name prefix. Default is DefaultPrefix.
func WithPrefix(prefix string) WriterOption {
	return func(w *Writer) {
		if prefix != "" {
			w.prefix = prefix
		}
	}
}

// WithLogger sets the logger used to report saved batches.
func WithLogger(l *zap.SugaredLogger) WriterOption {
	return func(w *Writer) {
		if l != nil {
			w.log = l
		}
	}
}

// Writer persists batches to a FileStore, one artifact per batch.
type Writer struct {
	store      storage.FileStore
	format     Format
	prefix     string
	sampleRate float64
	log        *zap.SugaredLogger
}

// NewWriter returns a Writer saving to store. sampleRate is recorded in
// self-describing formats.
func NewWriter(store storage.FileStore, sampleRate float64, opts ...WriterOption) *Writer {
	w := &Writer{
		store:      store,
		format:     FormatNPY,
		prefix:     DefaultPrefix,
		sampleRate: sampleRate,
		log:        zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Format returns the artifact encoding in use.
func (w *Writer) Format() Format { return w.format }

// Name returns the artifact name for a batch index, e.g.
// "waveform_batch_003.npy".
func (w *Writer) Name(index int) string {
	return fmt.Sprintf("%s_%03d.%s", w.prefix, index, w.format.Extension())
}

// Write encodes b and stores it under Name(b.Index). An existing artifact
// of the same name is replaced.
func (w *Writer) Write(ctx context.Context, b Batch) (Record, error) {
	name := w.Name(b.Index)
	rec := Record{
		Index:    b.Index,
		Count:    b.Len(),
		Path:     name,
		Location: w.store.Location(name),
	}
	if b.Len() == 0 {
		return rec, fmt.Errorf("%w: batch %d is empty", ErrStorageWrite, b.Index)
	}

	if exists, err := w.store.Exists(ctx, name); err == nil && exists {
		w.log.Warnw("Overwriting existing artifact", "path", rec.Location)
	}

	out, err := w.store.Write(ctx, name)
	if err != nil {
		return rec, fmt.Errorf("%w: open %s: %w", ErrStorageWrite, rec.Location, err)
	}
	if err := Encode(out, w.format, b, w.sampleRate); err != nil {
		_ = out.Close()
		return rec, fmt.Errorf("%w: encode %s: %w", ErrStorageWrite, rec.Location, err)
	}
	if err := out.Close(); err != nil {
		return rec, fmt.Errorf("%w: close %s: %w", ErrStorageWrite, rec.Location, err)
	}

	w.log.Infow("Saved batch",
		"index", b.Index,
		"segments", rec.Count,
		"path", rec.Location,
	)
	return rec, nil
}

// Read loads a previously written artifact by batch index.
func (w *Writer) Read(ctx context.Context, index int) (*Artifact, error) {
	name := w.Name(index)
	r, err := w.store.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	a, err := Decode(r, w.format)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	a.Index = index
	return a, nil
}
