package pipeline

import (
	"context"
	"errors"
	"io"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/kristyvitulova/Publication/dsp/filter/highpass"
	"github.com/kristyvitulova/Publication/internal/batch"
	"github.com/kristyvitulova/Publication/internal/config"
	"github.com/kristyvitulova/Publication/internal/ledger"
	"github.com/kristyvitulova/Publication/internal/recording"
	"github.com/kristyvitulova/Publication/internal/storage"
	"github.com/kristyvitulova/Publication/internal/testutil"
)

const (
	testRate     = 256.0
	testDuration = 0.25 // 64 samples per segment
	testChannel  = "H1:STRAIN"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.RootDir = "/data"
	cfg.Channel = testChannel
	cfg.SampleRate = testRate
	cfg.SegmentDuration = testDuration
	cfg.BatchSize = 1000
	cfg.OutputDir = "/out"
	cfg.PSD.FFTLength = 256
	return &cfg
}

// writeRecording stores a file holding segments whole segments of noise.
func writeRecording(t *testing.T, fs afero.Fs, path string, segments int, seed int64) {
	t.Helper()
	n := segments * int(testRate*testDuration)
	rec := &recording.Recording{
		Channel:    testChannel,
		SampleRate: testRate,
		Start:      1126259462,
		Samples:    testutil.GaussianNoise(seed, 1e-21, n),
	}
	if err := recording.WriteFile(fs, path, rec); err != nil {
		t.Fatal(err)
	}
}

func newDriver(t *testing.T, fs afero.Fs, cfg *config.Config, store storage.FileStore, l *ledger.Ledger) *Driver {
	t.Helper()
	d, err := New(cfg, Deps{Fs: fs, Store: store, Ledger: l})
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestRun_BatchesSpanFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeRecording(t, fs, "/data/a.msgpack", 1500, 1)
	writeRecording(t, fs, "/data/b.msgpack", 700, 2)

	l, err := ledger.Open("", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	d := newDriver(t, fs, testConfig(), nil, l)
	sum, err := d.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if got := sum.BatchSizes(); len(got) != 3 || got[0] != 1000 || got[1] != 1000 || got[2] != 200 {
		t.Fatalf("batch sizes=%v, want [1000 1000 200]", got)
	}
	for i, b := range sum.Batches {
		want := []string{"waveform_batch_000.npy", "waveform_batch_001.npy", "waveform_batch_002.npy"}[i]
		if b.Index != i || b.Path != want {
			t.Fatalf("batch %d: index=%d path=%q", i, b.Index, b.Path)
		}
		if ok, _ := afero.Exists(fs, filepath.Join("/out", want)); !ok {
			t.Fatalf("artifact %s not written", want)
		}
	}
	if sum.Segments != 2200 || sum.FilesFound != 2 || len(sum.Succeeded) != 2 || sum.Failed() != 0 {
		t.Fatalf("summary=%+v", sum)
	}
	if sum.RunID == "" {
		t.Fatal("missing run id")
	}

	rep, err := l.Report(context.Background(), sum.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Files) != 2 || len(rep.Batches) != 3 || rep.Run.Segments != 2200 || !rep.Run.Finished() {
		t.Fatalf("ledger report: files=%d batches=%d run=%+v", len(rep.Files), len(rep.Batches), rep.Run)
	}
}

func TestRun_ArtifactsHoldConditionedSegments(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeRecording(t, fs, "/data/a.msgpack", 40, 3)

	cfg := testConfig()
	cfg.BatchSize = 16
	store, err := storage.NewLocal(fs, "/out")
	if err != nil {
		t.Fatal(err)
	}
	sum, err := newDriver(t, fs, cfg, store, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := sum.BatchSizes(); len(got) != 3 || got[2] != 8 {
		t.Fatalf("batch sizes=%v", got)
	}

	r, err := store.Read(context.Background(), "waveform_batch_000.npy")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	a, err := batch.Decode(r, batch.FormatNPY)
	if err != nil {
		t.Fatal(err)
	}
	if a.Shape != [2]int{16, 64} {
		t.Fatalf("shape=%v", a.Shape)
	}

	// Raw strain is ~1e-21; whitened data is order one.
	var sumSq float64
	for _, row := range a.Data {
		for _, v := range row {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				t.Fatal("non-finite sample in artifact")
			}
			sumSq += float64(v) * float64(v)
		}
	}
	rms := math.Sqrt(sumSq / float64(16*64))
	if rms < 0.1 || rms > 100 {
		t.Fatalf("whitened rms=%v, want order one", rms)
	}
}

func TestRun_FileReadFailureIsIsolated(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeRecording(t, fs, "/data/1.msgpack", 10, 1)
	if err := afero.WriteFile(fs, "/data/2.msgpack", []byte("corrupt"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeRecording(t, fs, "/data/3.msgpack", 5, 3)

	cfg := testConfig()
	cfg.BatchSize = 4
	sum, err := newDriver(t, fs, cfg, nil, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if sum.Failed() != 1 {
		t.Fatalf("failures=%v", sum.Failures)
	}
	fe := sum.Failures[0]
	if fe.Path != "/data/2.msgpack" || fe.Kind != KindFileRead || !errors.Is(fe.Err, recording.ErrRead) {
		t.Fatalf("failure=%+v", fe)
	}
	if sum.Segments != 15 || len(sum.Succeeded) != 2 {
		t.Fatalf("segments=%d succeeded=%v", sum.Segments, sum.Succeeded)
	}
	if got := sum.BatchSizes(); len(got) != 4 || got[3] != 3 {
		t.Fatalf("batch sizes=%v, want [4 4 4 3]", got)
	}
}

func TestRun_RecordingFailuresClassified(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeRecording(t, fs, "/data/good.msgpack", 4, 1)

	wrongRate := &recording.Recording{Channel: testChannel, SampleRate: 512, Samples: make([]float64, 512)}
	if err := recording.WriteFile(fs, "/data/rate.msgpack", wrongRate); err != nil {
		t.Fatal(err)
	}
	otherChannel := &recording.Recording{Channel: "L1:STRAIN", SampleRate: testRate, Samples: make([]float64, 256)}
	if err := recording.WriteFile(fs, "/data/chan.msgpack", otherChannel); err != nil {
		t.Fatal(err)
	}

	sum, err := newDriver(t, fs, testConfig(), nil, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Failed() != 2 {
		t.Fatalf("failures=%+v", sum.Failures)
	}
	for _, fe := range sum.Failures {
		if fe.Kind != KindFileRead {
			t.Fatalf("%s: kind=%v, want FileRead", fe.Path, fe.Kind)
		}
		if !errors.Is(fe.Err, recording.ErrRead) {
			t.Fatalf("%s: err=%v, want recording.ErrRead", fe.Path, fe.Err)
		}
		msg := fe.Error()
		if n := strings.Count(msg, "FileRead"); n != 1 {
			t.Fatalf("%s: kind appears %d times in %q", fe.Path, n, msg)
		}
		if n := strings.Count(msg, fe.Path); n > 2 {
			t.Fatalf("%s: path repeated %d times in %q", fe.Path, n, msg)
		}
	}
	if sum.Segments != 4 {
		t.Fatalf("segments=%d, want 4", sum.Segments)
	}
}

func TestRun_SignalProcessingFailureEmitsNothing(t *testing.T) {
	fs := afero.NewMemMapFs()
	bad := &recording.Recording{Channel: testChannel, SampleRate: testRate, Samples: make([]float64, 256)}
	bad.Samples[200] = math.Inf(1)
	if err := recording.WriteFile(fs, "/data/a.msgpack", bad); err != nil {
		t.Fatal(err)
	}
	writeRecording(t, fs, "/data/b.msgpack", 3, 2)

	cfg := testConfig()
	cfg.BatchSize = 2
	sum, err := newDriver(t, fs, cfg, nil, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Failed() != 1 || sum.Failures[0].Kind != KindSignalProcessing {
		t.Fatalf("failures=%+v", sum.Failures)
	}
	if sum.Segments != 3 {
		t.Fatalf("segments=%d, want only the good file's 3", sum.Segments)
	}
}

// brokenStore accepts nothing.
type brokenStore struct{}

func (brokenStore) Read(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("unavailable")
}
func (brokenStore) Write(context.Context, string) (io.WriteCloser, error) {
	return nil, errors.New("bucket gone")
}
func (brokenStore) Exists(context.Context, string) (bool, error) { return false, nil }
func (brokenStore) Location(p string) string                     { return "s3://gone/" + p }

func TestRun_StorageWriteIsFatal(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeRecording(t, fs, "/data/a.msgpack", 6, 1)
	writeRecording(t, fs, "/data/b.msgpack", 6, 2)

	cfg := testConfig()
	cfg.BatchSize = 4
	sum, err := newDriver(t, fs, cfg, brokenStore{}, nil).Run(context.Background())
	if err == nil {
		t.Fatal("expected fatal error")
	}
	if !errors.Is(err, batch.ErrStorageWrite) || Classify(err) != KindStorageWrite {
		t.Fatalf("err=%v kind=%v", err, Classify(err))
	}
	if sum == nil || len(sum.Batches) != 0 || len(sum.Succeeded) != 0 {
		t.Fatalf("partial summary=%+v", sum)
	}
}

func TestRun_Canceled(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeRecording(t, fs, "/data/a.msgpack", 2, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := newDriver(t, fs, testConfig(), nil, nil).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
	if sum == nil || sum.Segments != 0 {
		t.Fatalf("summary=%+v", sum)
	}
}

func TestDiscover_OrderAndExtension(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, p := range []string{
		"/data/b/2.msgpack",
		"/data/a.MSGPACK",
		"/data/b/1.msgpack",
		"/data/notes.txt",
		"/data/c/d/deep.msgpack",
		"/elsewhere/x.msgpack",
	} {
		if err := afero.WriteFile(fs, p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := testConfig()
	cfg.Extension = "msgpack"
	files, err := newDriver(t, fs, cfg, nil, nil).Discover(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"/data/a.MSGPACK", "/data/b/1.msgpack", "/data/b/2.msgpack", "/data/c/d/deep.msgpack"}
	if strings.Join(files, ",") != strings.Join(want, ",") {
		t.Fatalf("files=%v, want %v", files, want)
	}
}

func TestDiscover_MissingRoot(t *testing.T) {
	d := newDriver(t, afero.NewMemMapFs(), testConfig(), nil, nil)
	if _, err := d.Discover(context.Background()); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.HighpassCutoffHz = testRate / 2
	_, err := New(cfg, Deps{Fs: afero.NewMemMapFs()})
	if !errors.Is(err, highpass.ErrInvalidFilterParameters) {
		t.Fatalf("err=%v, want ErrInvalidFilterParameters for cutoff at Nyquist", err)
	}
	if kind := Classify(err); kind != KindInvalidFilterParameters {
		t.Fatalf("Classify=%v, want InvalidFilterParameters", kind)
	}
	if _, err := New(nil, Deps{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{recording.ErrRead, KindFileRead},
		{batch.ErrStorageWrite, KindStorageWrite},
		{errors.New("fft exploded"), KindSignalProcessing},
		{&FileError{Kind: KindInvalidFilterParameters, Err: errors.New("x")}, KindInvalidFilterParameters},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Fatalf("Classify(%v)=%v, want %v", tt.err, got, tt.want)
		}
	}
	if KindStorageWrite.String() != "StorageWrite" || Kind(99).String() != "Kind(99)" {
		t.Fatal("unexpected Kind strings")
	}
}
