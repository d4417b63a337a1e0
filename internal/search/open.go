package search

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Options configures the readers.
type Options struct {
	PEPThreshold float64
	Masses       *MassTable
	Confidence   float64
}

// DefaultOptions returns the default reader options.
func DefaultOptions() Options {
	masses, _ := NewMassTable(DefaultMSFraggerMods, DefaultMassTolerance)
	return Options{
		PEPThreshold: DefaultPEPThreshold,
		Masses:       masses,
		Confidence:   DefaultConfidence,
	}
}

// NewReader creates a reader for format over r. sample names the sample of
// per-sample formats and is ignored otherwise.
func NewReader(format Format, r io.Reader, sample string, opts Options) (Reader, error) {
	switch format {
	case MaxQuant:
		return NewMaxQuantReader(r, opts.PEPThreshold)
	case MSFragger:
		masses := opts.Masses
		if masses == nil {
			var err error
			if masses, err = NewMassTable(DefaultMSFraggerMods, DefaultMassTolerance); err != nil {
				return nil, err
			}
		}
		return NewMSFraggerReader(r, masses)
	case Mascot:
		return NewMascotReader(r, sample), nil
	case ProteinPilot:
		return NewProteinPilotReader(r, sample, opts.Confidence)
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// ReadFile reads all matches of one input file. Row errors are passed to
// onRowError.
func ReadFile(format Format, path string, opts Options, onRowError func(*RowError)) ([]*PeptideMatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s file: %w", format, err)
	}
	defer f.Close()

	r, err := NewReader(format, f, SampleName(path), opts)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	matches, err := ReadAll(r, onRowError)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return matches, nil
}

// SampleName returns the sample name of a per-sample input file: its base
// name.
func SampleName(path string) string {
	return filepath.Base(path)
}

// InputFiles lists the files to read for an input path. Per-sample formats
// take a directory and read every file in it with the format's extension, in
// name order; the other formats read the single file.
func InputFiles(format Format, path string) ([]string, error) {
	if !format.PerSampleFiles() {
		return []string{path}, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}
	ext := ".csv"
	if format == ProteinPilot {
		ext = ".txt"
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files in %s", ext, path)
	}
	return files, nil
}
