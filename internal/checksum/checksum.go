// Package checksum fingerprints notebook content.
package checksum

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Notebook returns the digest of a JSON document with insignificant
// whitespace removed, so re-indenting a notebook keeps its checksum.
// Invalid JSON is hashed as is.
func Notebook(data []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return Sum(data)
	}
	return Sum(buf.Bytes())
}
