// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package blob identifies scanned content by its Git blob object ID and
// tracks which blobs have already been scanned during a run.
package blob

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// ID is a blob's identity: the SHA-1 hash Git itself would assign the
// content as a blob object. Content-addressed, so two enumerators observing
// the same bytes via different paths produce the same ID.
type ID [20]byte

// String renders the ID as the familiar 40-character hex string.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// ComputeID hashes content using the Git blob-OID convention:
// SHA1("blob " + len(content) + "\x00" + content).
func ComputeID(content []byte) ID {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)

	var id ID
	copy(id[:], h.Sum(nil))
	return id
}

// ParseID decodes a 40-character hex string into an ID.
func ParseID(s string) (ID, error) {
	var id ID
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("blob: invalid id %q: %w", s, err)
	}
	if len(decoded) != len(id) {
		return id, fmt.Errorf("blob: invalid id %q: want %d bytes, got %d", s, len(id), len(decoded))
	}
	copy(id[:], decoded)
	return id, nil
}

// isBinary reports whether the given content looks like binary data,
// sniffing for a NUL byte in the first 8 KiB, mirroring the heuristic
// the git history enumerator applies to blobs it reads.
func isBinary(content []byte) bool {
	n := len(content)
	if n > 8192 {
		n = 8192
	}
	for _, b := range content[:n] {
		if b == 0 {
			return true
		}
	}
	return false
}

// IsBinary reports whether content looks like binary data and should be
// skipped by enumerators rather than handed to the matcher.
func IsBinary(content []byte) bool {
	return isBinary(content)
}
