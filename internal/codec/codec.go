// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

// Package codec provides reversible byte-size reduction for draft payloads
// written to the quota-limited local store.
//
// Payloads below the configured threshold are stored raw for speed; larger
// payloads are gzip-compressed. Every encode reports whether compression
// was applied so the stored record can carry a sidecar flag and the reader
// never has to guess.
package codec

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
)

// DefaultThreshold is the serialized size above which payloads are
// compressed. Preserved from the source system as a configurable default;
// no tuning rationale was recorded there.
const DefaultThreshold = 10 * 1024

// Meta is the sidecar metadata stored alongside each encoded record.
type Meta struct {
	Compressed     bool      `json:"compressed"`
	OriginalSize   int       `json:"original_size"`
	CompressedSize int       `json:"compressed_size"`
	Timestamp      time.Time `json:"timestamp"`
}

// Codec compresses payloads above a size threshold.
type Codec struct {
	threshold int
	level     int
}

// Option configures a Codec.
type Option func(*Codec)

// WithThreshold overrides the compression threshold in bytes.
// A threshold <= 0 compresses everything.
func WithThreshold(n int) Option {
	return func(c *Codec) { c.threshold = n }
}

// WithLevel overrides the gzip compression level.
func WithLevel(level int) Option {
	return func(c *Codec) { c.level = level }
}

// New creates a Codec with the default threshold and best-speed level.
func New(opts ...Option) *Codec {
	c := &Codec{
		threshold: DefaultThreshold,
		level:     gzip.BestSpeed,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encode returns the stored representation of raw and the sidecar metadata.
// Compression failure degrades to storing the raw payload rather than
// losing data. Compression that does not actually shrink the payload is
// also discarded in favor of the raw bytes.
func (c *Codec) Encode(raw []byte) ([]byte, Meta) {
	meta := Meta{
		OriginalSize:   len(raw),
		CompressedSize: len(raw),
		Timestamp:      time.Now().UTC(),
	}

	if len(raw) <= c.threshold {
		return raw, meta
	}

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, c.level)
	if err != nil {
		return raw, meta
	}
	if _, err := zw.Write(raw); err != nil {
		return raw, meta
	}
	if err := zw.Close(); err != nil {
		return raw, meta
	}

	if buf.Len() >= len(raw) {
		return raw, meta
	}

	meta.Compressed = true
	meta.CompressedSize = buf.Len()
	return buf.Bytes(), meta
}

// Decode reverses Encode. The compressed flag comes from the sidecar
// metadata; raw records pass through untouched.
func (c *Codec) Decode(stored []byte, compressed bool) ([]byte, error) {
	if !compressed {
		return stored, nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(stored))
	if err != nil {
		return nil, fmt.Errorf("open gzip reader: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress payload: %w", err)
	}
	return raw, nil
}

// Threshold returns the configured compression threshold in bytes.
func (c *Codec) Threshold() int { return c.threshold }
