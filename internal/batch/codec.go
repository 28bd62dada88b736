package batch

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Format selects the artifact encoding.
type Format string

const (
	// FormatNPY writes a NumPy v1.0 array of little-endian float32 with
	// shape [count, segment_length].
	FormatNPY Format = "npy"
	// FormatMsgpack writes a self-describing msgpack map with shape,
	// segment provenance and float32 rows.
	FormatMsgpack Format = "msgpack"
)

// ParseFormat maps a config value to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatNPY, "":
		return FormatNPY, nil
	case FormatMsgpack:
		return FormatMsgpack, nil
	}
	return "", fmt.Errorf("unknown artifact format %q (want npy or msgpack)", s)
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string { return string(f) }

var errRagged = errors.New("segments differ in length")

var npyMagic = []byte("\x93NUMPY")

// Artifact is the decoded content of a batch artifact. Sources and Starts
// are only populated by the msgpack format.
type Artifact struct {
	Index      int         `msgpack:"index"`
	Shape      [2]int      `msgpack:"shape"`
	SampleRate float64     `msgpack:"sample_rate"`
	Sources    []string    `msgpack:"sources"`
	Starts     []float64   `msgpack:"starts"`
	Data       [][]float32 `msgpack:"data"`
}

func rows(b Batch) ([][]float32, error) {
	out := make([][]float32, len(b.Segments))
	for i, seg := range b.Segments {
		if len(seg.Samples) != len(b.Segments[0].Samples) {
			return nil, fmt.Errorf("%w: segment %d has %d samples, want %d",
				errRagged, i, len(seg.Samples), len(b.Segments[0].Samples))
		}
		row := make([]float32, len(seg.Samples))
		for j, v := range seg.Samples {
			row[j] = float32(v)
		}
		out[i] = row
	}
	return out, nil
}

func shapeOf(b Batch) [2]int {
	if len(b.Segments) == 0 {
		return [2]int{0, 0}
	}
	return [2]int{len(b.Segments), len(b.Segments[0].Samples)}
}

// Encode writes b to w in format f.
func Encode(w io.Writer, f Format, b Batch, sampleRate float64) error {
	data, err := rows(b)
	if err != nil {
		return err
	}

	switch f {
	case FormatNPY:
		return encodeNPY(w, shapeOf(b), data)
	case FormatMsgpack:
		a := Artifact{
			Index:      b.Index,
			Shape:      shapeOf(b),
			SampleRate: sampleRate,
			Sources:    make([]string, len(b.Segments)),
			Starts:     make([]float64, len(b.Segments)),
			Data:       data,
		}
		for i, seg := range b.Segments {
			a.Sources[i] = seg.Source
			a.Starts[i] = seg.Start
		}
		return msgpack.NewEncoder(w).Encode(&a)
	}
	return fmt.Errorf("unknown artifact format %q", f)
}

// Decode reads an artifact written by Encode.
func Decode(r io.Reader, f Format) (*Artifact, error) {
	switch f {
	case FormatNPY:
		return decodeNPY(r)
	case FormatMsgpack:
		var a Artifact
		if err := msgpack.NewDecoder(r).Decode(&a); err != nil {
			return nil, err
		}
		if len(a.Data) != a.Shape[0] {
			return nil, fmt.Errorf("msgpack artifact has %d rows, shape says %d", len(a.Data), a.Shape[0])
		}
		return &a, nil
	}
	return nil, fmt.Errorf("unknown artifact format %q", f)
}

func npyHeader(shape [2]int) []byte {
	dict := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%d, %d), }", shape[0], shape[1])
	// magic(6) + version(2) + header length(2) + dict + padding + '\n' is
	// a multiple of 64.
	total := 10 + len(dict) + 1
	pad := (64 - total%64) % 64

	var buf bytes.Buffer
	buf.Write(npyMagic)
	buf.Write([]byte{1, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(dict)+pad+1))
	buf.WriteString(dict)
	buf.WriteString(strings.Repeat(" ", pad))
	buf.WriteByte('\n')
	return buf.Bytes()
}

func encodeNPY(w io.Writer, shape [2]int, data [][]float32) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(npyHeader(shape)); err != nil {
		return err
	}

	var word [4]byte
	for _, row := range data {
		for _, v := range row {
			binary.LittleEndian.PutUint32(word[:], math.Float32bits(v))
			if _, err := bw.Write(word[:]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func decodeNPY(r io.Reader) (*Artifact, error) {
	br := bufio.NewReader(r)

	var pre [10]byte
	if _, err := io.ReadFull(br, pre[:]); err != nil {
		return nil, fmt.Errorf("npy preamble: %w", err)
	}
	if !bytes.Equal(pre[:6], npyMagic) {
		return nil, errors.New("not an npy file")
	}
	if pre[6] != 1 {
		return nil, fmt.Errorf("unsupported npy version %d.%d", pre[6], pre[7])
	}

	header := make([]byte, binary.LittleEndian.Uint16(pre[8:]))
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("npy header: %w", err)
	}
	h := string(header)
	if !strings.Contains(h, "'descr': '<f4'") || !strings.Contains(h, "'fortran_order': False") {
		return nil, fmt.Errorf("unsupported npy header %q", strings.TrimSpace(h))
	}
	shape, err := parseShape(h)
	if err != nil {
		return nil, err
	}

	data := make([][]float32, shape[0])
	var word [4]byte
	for i := range data {
		row := make([]float32, shape[1])
		for j := range row {
			if _, err := io.ReadFull(br, word[:]); err != nil {
				return nil, fmt.Errorf("npy data row %d: %w", i, err)
			}
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(word[:]))
		}
		data[i] = row
	}

	return &Artifact{Index: -1, Shape: shape, Data: data}, nil
}

func parseShape(header string) ([2]int, error) {
	_, rest, ok := strings.Cut(header, "'shape': (")
	if !ok {
		return [2]int{}, errors.New("npy header has no shape")
	}
	dims, _, ok := strings.Cut(rest, ")")
	if !ok {
		return [2]int{}, errors.New("npy shape is not terminated")
	}

	var shape [2]int
	parts := strings.Split(dims, ",")
	if len(parts) != 2 {
		return [2]int{}, fmt.Errorf("npy shape %q is not two-dimensional", dims)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return [2]int{}, fmt.Errorf("npy shape %q: bad dimension %q", dims, p)
		}
		shape[i] = n
	}
	return shape, nil
}
