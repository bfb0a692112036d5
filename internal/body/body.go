// Package body implements request bodies. A body built from bytes can be
// replayed on every redirect hop; a body built from a stream can be sent
// once.
package body

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Body is a request payload.
type Body struct {
	data   []byte
	reader io.Reader
	length int64
}

// FromBytes returns a resettable body backed by b. b must not be modified
// afterwards.
func FromBytes(b []byte) *Body {
	return &Body{data: b, length: int64(len(b))}
}

// FromString returns a resettable body holding s.
func FromString(s string) *Body {
	return FromBytes([]byte(s))
}

// FromReader returns a streaming body of unknown length. It cannot be
// resent after the first hop consumed it.
func FromReader(r io.Reader) *Body {
	return &Body{reader: r, length: -1}
}

// FromFile returns a streaming body reading f, with its length taken from
// the file size.
func FromFile(f *os.File) (*Body, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("body: stat %s: %w", f.Name(), err)
	}
	return &Body{reader: f, length: info.Size()}, nil
}

// Resettable reports whether the body can be sent again after a hop has
// consumed it.
func (b *Body) Resettable() bool {
	return b.reader == nil
}

// Len returns the body length, or -1 when it is unknown.
func (b *Body) Len() int64 {
	return b.length
}

// Bytes returns the buffered payload. ok is false for streaming bodies.
func (b *Body) Bytes() (data []byte, ok bool) {
	if b.reader != nil {
		return nil, false
	}
	return b.data, true
}

// Reader returns a reader positioned at the start of the payload. Each call
// on a resettable body yields an independent reader; a streaming body
// always returns the same underlying reader.
func (b *Body) Reader() io.Reader {
	if b.reader != nil {
		return b.reader
	}
	return bytes.NewReader(b.data)
}
