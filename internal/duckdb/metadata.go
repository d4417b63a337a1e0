package duckdb

import (
	"os"
	"strconv"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Same reports whether two fingerprints describe the same file contents.
// The path is not compared.
func (f FileFingerprint) Same(other FileFingerprint) bool {
	return f.Size == other.Size && f.ModTime.Equal(other.ModTime)
}

// meta renders the fingerprint as key=value metadata lines under prefix.
func (f FileFingerprint) meta(prefix string) []string {
	return []string{
		prefix + "_size=" + strconv.FormatInt(f.Size, 10),
		prefix + "_modtime=" + f.ModTime.UTC().Format(time.RFC3339Nano),
	}
}
