package broadcast

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// Codec gzips fragment payloads before they are stored. Writers are pooled;
// a Codec is safe for concurrent use.
type Codec struct {
	level int
	pool  sync.Pool
}

// NewCodec returns a Codec compressing at the given gzip level.
// Levels outside the valid range fall back to gzip.DefaultCompression.
func NewCodec(level int) *Codec {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}
	c := &Codec{level: level}
	c.pool.New = func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, c.level)
		return w
	}
	return c
}

// Compress returns the gzipped form of raw. The caller owns the returned
// slice.
func (c *Codec) Compress(raw []byte) ([]byte, error) {
	w := c.pool.Get().(*gzip.Writer)
	defer c.pool.Put(w)
	var buf bytes.Buffer
	buf.Grow(len(raw)/2 + 64)
	w.Reset(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress inflates a payload previously produced by Compress. Used by the
// client library and tests; the relay itself always serves the compressed
// bytes as-is.
func (c *Codec) Decompress(compressed []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
