// Package pipeline drives a run: it discovers recordings, conditions every
// segment and persists the resulting batches, isolating per-file failures.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/kristyvitulova/Publication/dsp/filter/highpass"
	"github.com/kristyvitulova/Publication/dsp/spectrum"
	"github.com/kristyvitulova/Publication/dsp/whiten"
	"github.com/kristyvitulova/Publication/dsp/window"
	"github.com/kristyvitulova/Publication/internal/batch"
	"github.com/kristyvitulova/Publication/internal/config"
	"github.com/kristyvitulova/Publication/internal/ledger"
	"github.com/kristyvitulova/Publication/internal/recording"
	"github.com/kristyvitulova/Publication/internal/segment"
	"github.com/kristyvitulova/Publication/internal/storage"
)

// Deps are the driver's collaborators. Nil fields get defaults: the OS
// filesystem, a msgpack reader over Fs, a store built from the config, no
// ledger and a no-op logger.
type Deps struct {
	Fs     afero.Fs
	Reader recording.Reader
	Store  storage.FileStore
	Ledger *ledger.Ledger
	Log    *zap.SugaredLogger
}

// Driver processes a file set sequentially. It is not safe for concurrent
// use; each Run starts a fresh accumulator.
type Driver struct {
	cfg    config.Config
	fs     afero.Fs
	reader recording.Reader
	writer *batch.Writer
	ledger *ledger.Ledger
	log    *zap.SugaredLogger

	filter *highpass.Filter
	welch  []spectrum.WelchOption
}

// New validates cfg and wires the driver. Invalid configuration is
// rejected before any file is touched.
func New(cfg *config.Config, deps Deps) (*Driver, error) {
	if cfg == nil {
		return nil, errors.New("pipeline: config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	filter, err := highpass.New(cfg.HighpassCutoffHz, cfg.SampleRate, cfg.FilterOrder)
	if err != nil {
		return nil, err
	}
	win, err := window.Parse(cfg.PSD.Window)
	if err != nil {
		return nil, err
	}
	format, err := batch.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	if deps.Reader == nil {
		deps.Reader = recording.NewMsgpackReader(deps.Fs)
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop().Sugar()
	}
	if deps.Store == nil {
		deps.Store, err = NewStore(cfg, deps.Fs)
		if err != nil {
			return nil, err
		}
	}

	return &Driver{
		cfg:    *cfg,
		fs:     deps.Fs,
		reader: deps.Reader,
		writer: batch.NewWriter(deps.Store, cfg.SampleRate,
			batch.WithFormat(format),
			batch.WithPrefix(cfg.Output.Prefix),
			batch.WithLogger(deps.Log),
		),
		ledger: deps.Ledger,
		log:    deps.Log,
		filter: filter,
		welch: []spectrum.WelchOption{
			spectrum.WithSegmentLength(cfg.PSD.FFTLength),
			spectrum.WithOverlap(cfg.PSD.Overlap),
			spectrum.WithWindow(win),
		},
	}, nil
}

// NewStore builds the artifact store the configuration asks for: an S3
// bucket when output.s3.bucket is set, otherwise output_dir on fsys.
func NewStore(cfg *config.Config, fsys afero.Fs) (storage.FileStore, error) {
	if cfg.UsesS3() {
		s3cfg := storage.S3Config{
			Bucket:    cfg.Output.S3.Bucket,
			Prefix:    cfg.Output.S3.Prefix,
			Region:    cfg.Output.S3.Region,
			Endpoint:  cfg.Output.S3.Endpoint,
			PathStyle: cfg.Output.S3.PathStyle,
		}
		return storage.NewS3(storage.NewS3Client(s3cfg), s3cfg.Bucket, s3cfg.Prefix), nil
	}
	store, err := storage.NewLocal(fsys, cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", cfg.OutputDir, err)
	}
	return store, nil
}

// Discover lists the input files under root_dir whose extension matches
// the configured one, case-insensitively, depth-first in lexical order.
func (d *Driver) Discover(ctx context.Context) ([]string, error) {
	ext := d.cfg.Extension
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	if _, err := d.fs.Stat(d.cfg.RootDir); err != nil {
		return nil, fmt.Errorf("root_dir %s: %w", d.cfg.RootDir, err)
	}

	var files []string
	err := afero.Walk(d.fs, d.cfg.RootDir, func(path string, info fs.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			d.log.Warnw("Skipping unreadable path", "path", path, "error", err)
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.IsDir() && strings.EqualFold(filepath.Ext(path), ext) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Run processes every discovered file and persists the batches. Per-file
// failures are recorded in the summary and the run continues. A storage
// write failure or context cancellation ends the run; the partial summary
// is returned with the error.
func (d *Driver) Run(ctx context.Context) (*Summary, error) {
	started := time.Now()
	sum := &Summary{RunID: uuid.NewString()}

	acc, err := batch.NewAccumulator(d.cfg.BatchSize)
	if err != nil {
		return sum, err
	}

	d.startLedger(ctx, sum.RunID, started)

	runErr := d.run(ctx, sum, acc)
	sum.Duration = time.Since(started)

	d.finishLedger(ctx, sum, runErr)
	if runErr != nil {
		d.log.Errorw("Run aborted",
			"run", sum.RunID,
			"error", runErr,
			"batches", len(sum.Batches),
		)
		return sum, runErr
	}

	d.log.Infow("Run complete",
		"run", sum.RunID,
		"files", sum.FilesFound,
		"succeeded", len(sum.Succeeded),
		"failed", sum.Failed(),
		"segments", sum.Segments,
		"batches", len(sum.Batches),
		"duration", sum.Duration,
	)
	return sum, nil
}

func (d *Driver) run(ctx context.Context, sum *Summary, acc *batch.Accumulator) error {
	files, err := d.Discover(ctx)
	if err != nil {
		return err
	}
	sum.FilesFound = len(files)
	d.log.Infow("Discovered recordings", "root", d.cfg.RootDir, "files", len(files))

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		d.log.Infow("Processing file", "index", i+1, "total", len(files), "path", path)

		segs, err := d.ProcessFile(ctx, path)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			fe := FileError{Path: path, Kind: Classify(err), Err: err}
			sum.Failures = append(sum.Failures, fe)
			d.log.Errorw("File failed", "path", path, "kind", fe.Kind.String(), "error", err)
			d.recordFile(ctx, sum.RunID, ledger.File{
				Seq:  i,
				Path: path,
				Kind: fe.Kind.String(),
				Err:  err.Error(),
			})
			continue
		}

		for _, seg := range segs {
			if b, ok := acc.Append(seg); ok {
				if err := d.persist(ctx, sum, b); err != nil {
					return err
				}
			}
		}
		sum.Succeeded = append(sum.Succeeded, path)
		sum.Segments += len(segs)
		d.recordFile(ctx, sum.RunID, ledger.File{Seq: i, Path: path, OK: true, Segments: len(segs)})
	}

	if b, ok := acc.Flush(); ok {
		if err := d.persist(ctx, sum, b); err != nil {
			return err
		}
	}
	return nil
}

// ProcessFile reads path and returns its conditioned segments: each is
// high-passed then whitened against the Welch PSD of the whole recording.
// Nothing is returned unless every segment succeeded.
func (d *Driver) ProcessFile(ctx context.Context, path string) ([]segment.Segment, error) {
	rec, err := d.reader.Read(ctx, path, d.cfg.Channel)
	if err != nil {
		return nil, err
	}
	if rec.SampleRate != d.cfg.SampleRate {
		return nil, fmt.Errorf("%w: sample rate %v Hz does not match configured %v Hz",
			recording.ErrRead, rec.SampleRate, d.cfg.SampleRate)
	}

	psd, err := spectrum.Welch(rec.Samples, rec.SampleRate, d.welch...)
	if err != nil {
		return nil, err
	}
	w, err := whiten.New(psd, rec.SampleRate, whiten.WithEpsilon(d.cfg.Whiten.Epsilon))
	if err != nil {
		return nil, err
	}

	want := segment.Count(rec, d.cfg.SegmentDuration)
	staged := make([]segment.Segment, 0, want)
	for seg := range segment.Split(rec, d.cfg.SegmentDuration) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		filtered, err := d.filter.Apply(seg.Samples)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", seg.Index, err)
		}
		whitened, err := w.Whiten(filtered)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", seg.Index, err)
		}
		seg.Samples = whitened
		staged = append(staged, seg)
	}

	if len(staged) != want {
		d.log.Warnw("Dropped segments extending past the recording",
			"path", path,
			"planned", want,
			"produced", len(staged),
		)
	}
	d.log.Debugw("File processed",
		"path", path,
		"segments", len(staged),
		"psd_bins", psd.Len(),
		"discarded_samples", segment.Remainder(rec, d.cfg.SegmentDuration),
	)
	return staged, nil
}

func (d *Driver) persist(ctx context.Context, sum *Summary, b batch.Batch) error {
	rec, err := d.writer.Write(ctx, b)
	if err != nil {
		return &FileError{Path: rec.Location, Kind: KindStorageWrite, Err: err}
	}
	sum.Batches = append(sum.Batches, rec)
	if d.ledger != nil {
		if err := d.ledger.RecordBatch(ctx, sum.RunID, rec); err != nil {
			d.log.Warnw("Ledger write failed", "batch", rec.Index, "error", err)
		}
	}
	return nil
}

func (d *Driver) startLedger(ctx context.Context, runID string, started time.Time) {
	if d.ledger == nil {
		return
	}
	err := d.ledger.StartRun(ctx, ledger.Run{
		ID:        runID,
		RootDir:   d.cfg.RootDir,
		Channel:   d.cfg.Channel,
		StartedAt: started.UTC(),
	})
	if err != nil {
		d.log.Warnw("Ledger write failed", "run", runID, "error", err)
	}
}

func (d *Driver) recordFile(ctx context.Context, runID string, f ledger.File) {
	if d.ledger == nil {
		return
	}
	if err := d.ledger.RecordFile(ctx, runID, f); err != nil {
		d.log.Warnw("Ledger write failed", "path", f.Path, "error", err)
	}
}

func (d *Driver) finishLedger(ctx context.Context, sum *Summary, runErr error) {
	if d.ledger == nil {
		return
	}
	// Record the outcome even when the run was canceled.
	ctx = context.WithoutCancel(ctx)
	if err := d.ledger.FinishRun(ctx, sum.RunID, sum.FilesFound, sum.Segments, runErr); err != nil {
		d.log.Warnw("Ledger write failed", "run", sum.RunID, "error", err)
	}
}
