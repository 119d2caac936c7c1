package broadcast

import (
	"bytes"
	"fmt"
	"testing"
)

func TestCodecRoundTrip(t *testing.T) {
	c := NewCodec(6)
	payloads := [][]byte{
		[]byte("A"),
		[]byte(""),
		bytes.Repeat([]byte("tick"), 4096),
	}
	for _, p := range payloads {
		gz, err := c.Compress(p)
		if err != nil {
			t.Fatalf("compress %d bytes: %v", len(p), err)
		}
		got, err := c.Decompress(gz)
		if err != nil {
			t.Fatalf("decompress: %v", err)
		}
		if !bytes.Equal(got, p) {
			t.Fatalf("round trip mismatch: %d bytes in, %d out", len(p), len(got))
		}
	}
}

func TestCodecInvalidLevelFallsBack(t *testing.T) {
	c := NewCodec(99)
	gz, err := c.Compress([]byte("x"))
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if len(gz) == 0 {
		t.Fatalf("empty output")
	}
}

func TestCodecConcurrent(t *testing.T) {
	c := NewCodec(1)
	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func(n int) {
			p := bytes.Repeat([]byte{byte(n)}, 1024)
			gz, err := c.Compress(p)
			if err != nil {
				done <- err
				return
			}
			got, err := c.Decompress(gz)
			if err == nil && !bytes.Equal(got, p) {
				err = fmt.Errorf("round trip mismatch for worker %d", n)
			}
			done <- err
		}(i)
	}
	for i := 0; i < 8; i++ {
		if err := <-done; err != nil {
			t.Fatalf("worker: %v", err)
		}
	}
}
