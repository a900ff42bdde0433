// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package enum

import (
	"context"
	"os/exec"
	"testing"

	"github.com/kraklabs/noseyparker/pkg/pipeline"
	"github.com/kraklabs/noseyparker/pkg/provenance"
)

// TestExternal_Enumerate_DecodesLengthPrefixedRecords runs a one-liner
// shell command that writes the length-prefixed protocol External expects,
// confirming it decodes without a purpose-built test binary.
func TestExternal_Enumerate_DecodesLengthPrefixedRecords(t *testing.T) {
	// Emits one record: payload {"content":"aGVsbG8=","name":"x","payload":{}}
	// length-prefixed as a 4-byte little-endian count, via a short Python
	// one-liner (present in the base image; avoids needing a compiled helper
	// binary nothing in the repo ships).
	script := `
import struct, sys
payload = b'{"content":"aGVsbG8=","name":"probe","payload":{"k":"v"}}'
sys.stdout.buffer.write(struct.pack("<I", len(payload)))
sys.stdout.buffer.write(payload)
`
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}

	ext := NewExternal([]string{"python3", "-c", script}, nil)

	var got []provenance.Provenance
	var content []byte
	err := ext.Enumerate(context.Background(), pipeline.NewCancelToken(), func(c []byte, prov provenance.Provenance) error {
		content = c
		got = append(got, prov)
		return nil
	})
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].Kind != provenance.KindExtensible || got[0].Name != "probe" {
		t.Errorf("unexpected provenance: %+v", got[0])
	}
	if string(content) != "aGVsbG8=" {
		t.Errorf("content = %q", content)
	}
}

func TestExternal_Enumerate_EmptyCommandIsError(t *testing.T) {
	ext := NewExternal(nil, nil)
	err := ext.Enumerate(context.Background(), pipeline.NewCancelToken(), func([]byte, provenance.Provenance) error { return nil })
	if err == nil {
		t.Fatal("expected error for an empty command")
	}
}

func TestLimitedBuffer_TruncatesOverflow(t *testing.T) {
	b := &limitedBuffer{max: 4}
	_, _ = b.Write([]byte("hello world"))
	if b.String() != "hell" {
		t.Errorf("String() = %q, want %q", b.String(), "hell")
	}
}
