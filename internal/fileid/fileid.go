// Package fileid derives a deterministic document ID from a file path, so a
// CV dropped into an intake directory maps to the same document on every
// reprocessing run.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "doc:"

// DocID returns a stable document ID for the given absolute path.
// Same path always yields the same ID.
func DocID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:])
}
