package recording

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/spf13/afero"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultExtension is the file extension of the container format.
const DefaultExtension = ".msgpack"

// container is the msgpack layout of a recording file. Every channel shares
// the start time and sample rate.
type container struct {
	Start      float64              `msgpack:"start"`
	SampleRate float64              `msgpack:"sample_rate"`
	Channels   map[string][]float64 `msgpack:"channels"`
}

// MsgpackReader reads msgpack recording containers from a filesystem.
type MsgpackReader struct {
	fs afero.Fs
}

// NewMsgpackReader returns a Reader over fs. A nil fs reads from the OS
// filesystem.
func NewMsgpackReader(fs afero.Fs) *MsgpackReader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &MsgpackReader{fs: fs}
}

// Read decodes path and returns the named channel.
func (r *MsgpackReader) Read(ctx context.Context, path, channel string) (*Recording, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := r.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer f.Close()

	c, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRead, path, err)
	}

	samples, ok := c.Channels[channel]
	if !ok {
		return nil, fmt.Errorf("%w: %s: channel %q not found (have %v)", ErrRead, path, channel, channelNames(c))
	}

	rec := &Recording{
		Source:     path,
		Channel:    channel,
		SampleRate: c.SampleRate,
		Start:      c.Start,
		Samples:    samples,
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRead, path, err)
	}
	return rec, nil
}

// Channels lists the channel names stored in path, sorted.
func (r *MsgpackReader) Channels(path string) ([]string, error) {
	f, err := r.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer f.Close()

	c, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRead, path, err)
	}
	return channelNames(c), nil
}

func decode(rd io.Reader) (*container, error) {
	var c container
	if err := msgpack.NewDecoder(rd).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func channelNames(c *container) []string {
	names := make([]string, 0, len(c.Channels))
	for name := range c.Channels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Encode writes recs to w as one container. All recordings must share the
// same start time and sample rate.
func Encode(w io.Writer, recs ...*Recording) error {
	if len(recs) == 0 {
		return fmt.Errorf("encode requires at least one recording")
	}

	c := container{
		Start:      recs[0].Start,
		SampleRate: recs[0].SampleRate,
		Channels:   make(map[string][]float64, len(recs)),
	}
	for _, rec := range recs {
		if rec.Start != c.Start || rec.SampleRate != c.SampleRate {
			return fmt.Errorf("channel %q timing (%v, %v Hz) differs from %v, %v Hz",
				rec.Channel, rec.Start, rec.SampleRate, c.Start, c.SampleRate)
		}
		c.Channels[rec.Channel] = rec.Samples
	}
	return msgpack.NewEncoder(w).Encode(&c)
}

// WriteFile encodes recs into path on fs, creating parent directories.
func WriteFile(fs afero.Fs, path string, recs ...*Recording) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := fs.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, recs...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
