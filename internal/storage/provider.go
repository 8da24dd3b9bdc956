// Package storage defines the notebook file-system abstraction.
package storage

import "io/fs"

// Provider is the interface for notebook file operations. All paths are
// relative to the provider root.
type Provider interface {
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// Stat returns file information for path.
	Stat(path string) (fs.FileInfo, error)
	// Abs resolves path to an absolute file-system path inside the root.
	Abs(path string) (string, error)
}
