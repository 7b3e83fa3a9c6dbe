// Package scanner discovers indexable files in a knowledge base directory.
// It applies the extension allow-list, exclusion globs, hidden directory
// rules and sensitive file patterns.
package scanner

import "time"

// FileInfo contains metadata about a discovered file.
type FileInfo struct {
	Path    string    // Relative path to the knowledge base root, slash separated
	AbsPath string    // Absolute path
	Size    int64     // File size in bytes
	ModTime time.Time // Last modification time
}

// ScanOptions configures the scanner behavior.
type ScanOptions struct {
	// RootDir is the knowledge base directory to scan.
	RootDir string

	// Extensions is the allow-list of file extensions, with leading dot.
	// Matching is case-insensitive. Empty means every extension.
	Extensions []string

	// ExcludePatterns are doublestar globs matched against the relative path
	// and against the base name.
	ExcludePatterns []string

	// SkipDirs are absolute directories never descended into, such as the
	// index directory when it lives inside the source tree.
	SkipDirs []string

	// MaxFileSize is the maximum file size to include in bytes (0 = 10MB default).
	MaxFileSize int64

	// FollowSymlinks enables following symbolic links to files (default: false).
	FollowSymlinks bool
}

// ScanResult is returned from the scanner channel.
type ScanResult struct {
	File  *FileInfo
	Error error
}

// DefaultMaxFileSize is the default maximum file size (10MB).
const DefaultMaxFileSize = 10 * 1024 * 1024
