package result

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/inodb/vibe-ptm/internal/event"
)

// ModificationsPath returns the modification matrix path for an input format.
func ModificationsPath(dir, format string) string {
	return filepath.Join(dir, fmt.Sprintf("result_%s_mods.csv", format))
}

// CleavagesPath returns the cleavage matrix path for an input format.
func CleavagesPath(dir, format string) string {
	return filepath.Join(dir, fmt.Sprintf("result_%s_cleavages.csv", format))
}

// Matrices holds everything needed to write both result files.
type Matrices struct {
	Modifications []event.Column
	Cleavages     []event.Column
	// ModSamples and CleavageSamples list the same samples in the same order.
	ModSamples      []Sample
	CleavageSamples []Sample
}

// WriteFiles writes the modification and cleavage matrices into dir. Samples
// are checked against the groups table before any file is created.
func WriteFiles(dir, format string, groups *Groups, m Matrices) error {
	for _, samples := range [][]Sample{m.ModSamples, m.CleavageSamples} {
		ids := make([]string, len(samples))
		for i, s := range samples {
			ids[i] = s.ID
		}
		if err := groups.Check(ids); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	if err := writeFile(ModificationsPath(dir, format), groups, func(w *Writer) error {
		return w.WriteModifications(m.Modifications, m.ModSamples)
	}); err != nil {
		return err
	}
	return writeFile(CleavagesPath(dir, format), groups, func(w *Writer) error {
		return w.WriteCleavages(m.Cleavages, m.CleavageSamples)
	})
}

func writeFile(path string, groups *Groups, fn func(*Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create result file: %w", err)
	}
	if err := fn(NewWriter(f, groups)); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
