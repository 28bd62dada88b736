package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// apiError implements smithy.APIError for test assertions.
type apiError struct {
	code string
	msg  string
}

func (e *apiError) Error() string                 { return e.msg }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.msg }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

// fakeS3 is an in-memory bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	puts    int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (m *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*in.Key]
	if !ok {
		return nil, &apiError{code: "NoSuchKey", msg: "no such key"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if in.ContentLength == nil || *in.ContentLength != int64(len(data)) {
		return nil, errors.New("content length mismatch")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*in.Key] = data
	m.puts++
	return &s3.PutObjectOutput{}, nil
}

func (m *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[*in.Key]; !ok {
		return nil, &apiError{code: "NotFound", msg: "not found"}
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestS3_WriteAndRead(t *testing.T) {
	fake := newFakeS3()
	s := NewS3(fake, "strain", "/prep/o3a/")

	writeString(t, s, "waveform_batch_001.npy", "npy bytes")

	if _, ok := fake.objects["prep/o3a/waveform_batch_001.npy"]; !ok {
		t.Fatalf("object not stored under prefixed key: %v", fake.objects)
	}
	if got := readString(t, s, "waveform_batch_001.npy"); got != "npy bytes" {
		t.Fatalf("got %q", got)
	}
	if got, want := s.Location("waveform_batch_001.npy"), "s3://strain/prep/o3a/waveform_batch_001.npy"; got != want {
		t.Fatalf("Location=%q, want %q", got, want)
	}
}

func TestS3_UploadsOnlyOnClose(t *testing.T) {
	fake := newFakeS3()
	s := NewS3(fake, "b", "")

	w, err := s.Write(context.Background(), "k")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(w, "part1"); err != nil {
		t.Fatal(err)
	}
	if fake.puts != 0 {
		t.Fatal("upload started before Close")
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if fake.puts != 1 {
		t.Fatalf("puts=%d, want 1", fake.puts)
	}
	if err := w.Close(); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("second Close err=%v, want ErrClosed", err)
	}
}

func TestS3_WriteError(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("access denied")
	s := NewS3(fake, "b", "")

	w, err := s.Write(context.Background(), "k")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.WriteString(w, "data")
	if err := w.Close(); err == nil || err.Error() != "access denied" {
		t.Fatalf("Close err=%v, want access denied", err)
	}
}

func TestS3_ExistsAndNotFound(t *testing.T) {
	fake := newFakeS3()
	s := NewS3(fake, "b", "")
	ctx := context.Background()

	ok, err := s.Exists(ctx, "missing")
	if err != nil || ok {
		t.Fatalf("Exists(missing)=%v, %v", ok, err)
	}
	if _, err := s.Read(ctx, "missing"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Read(missing) err=%v, want ErrNotExist", err)
	}

	writeString(t, s, "present", "x")
	ok, err = s.Exists(ctx, "present")
	if err != nil || !ok {
		t.Fatalf("Exists(present)=%v, %v", ok, err)
	}
}

func TestNewS3Client(t *testing.T) {
	c := NewS3Client(S3Config{
		Bucket:    "b",
		Region:    "us-east-1",
		Endpoint:  "http://localhost:9000",
		PathStyle: true,
	})
	if c == nil {
		t.Fatal("nil client")
	}
	opts := c.Options()
	if opts.Region != "us-east-1" || !opts.UsePathStyle || *opts.BaseEndpoint != "http://localhost:9000" {
		t.Fatalf("unexpected options: region=%q pathStyle=%v", opts.Region, opts.UsePathStyle)
	}
}

var _ S3Client = (*fakeS3)(nil)
