// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

package codec

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncode_SmallPayloadStoredRaw(t *testing.T) {
	c := New()
	raw := []byte(`{"title":"Cottage"}`)

	stored, meta := c.Encode(raw)
	if meta.Compressed {
		t.Error("small payload should not be compressed")
	}
	if !bytes.Equal(stored, raw) {
		t.Error("raw payload should pass through unchanged")
	}
	if meta.OriginalSize != len(raw) || meta.CompressedSize != len(raw) {
		t.Errorf("meta sizes = %d/%d, want %d/%d",
			meta.OriginalSize, meta.CompressedSize, len(raw), len(raw))
	}
}

func TestEncode_LargePayloadCompressed(t *testing.T) {
	c := New(WithThreshold(64))
	raw := []byte(strings.Repeat(`{"field":"value"},`, 200))

	stored, meta := c.Encode(raw)
	if !meta.Compressed {
		t.Fatal("expected payload above threshold to be compressed")
	}
	if len(stored) >= len(raw) {
		t.Errorf("compressed size %d not smaller than original %d", len(stored), len(raw))
	}
	if meta.CompressedSize != len(stored) {
		t.Errorf("meta.CompressedSize = %d, want %d", meta.CompressedSize, len(stored))
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		payload   string
	}{
		{name: "raw round trip", threshold: DefaultThreshold, payload: `{"a":1}`},
		{name: "compressed round trip", threshold: 8, payload: strings.Repeat("draft form data ", 500)},
		{name: "empty payload", threshold: 0, payload: ""},
		{name: "unicode payload", threshold: 4, payload: strings.Repeat("Grundstück über 500m² — zentral", 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(WithThreshold(tt.threshold))
			stored, meta := c.Encode([]byte(tt.payload))

			got, err := c.Decode(stored, meta.Compressed)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if string(got) != tt.payload {
				t.Errorf("round trip mismatch: got %d bytes, want %d bytes", len(got), len(tt.payload))
			}
		})
	}
}

func TestEncode_IncompressiblePayloadStoredRaw(t *testing.T) {
	// Already-compressed data does not shrink; codec must fall back to raw.
	c := New(WithThreshold(8))
	seed := []byte(strings.Repeat("abcdefgh", 64))
	compressedOnce, meta := c.Encode(seed)
	if !meta.Compressed {
		t.Skip("seed did not compress; cannot produce incompressible input")
	}

	stored, meta2 := c.Encode(compressedOnce)
	if meta2.Compressed && len(stored) >= len(compressedOnce) {
		t.Error("codec kept a compression result that did not shrink the payload")
	}
	got, err := c.Decode(stored, meta2.Compressed)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got, compressedOnce) {
		t.Error("round trip of incompressible payload failed")
	}
}

func TestDecode_CorruptedCompressedPayload(t *testing.T) {
	c := New()
	if _, err := c.Decode([]byte("not gzip at all"), true); err == nil {
		t.Error("expected error decoding corrupted compressed payload")
	}
}
