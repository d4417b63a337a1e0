package align

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/inodb/vibe-ptm/internal/fasta"
)

// DefaultTimeout bounds a single Clustal Omega run.
const DefaultTimeout = 5 * time.Minute

// ClustalOmega runs the clustalo binary on a temporary FASTA file.
type ClustalOmega struct {
	// Exec is the clustalo executable name or path.
	Exec string
	// Timeout bounds the subprocess. Zero means DefaultTimeout.
	Timeout time.Duration

	logger *zap.Logger
}

// NewClustalOmega creates a Clustal Omega aligner.
func NewClustalOmega(execPath string, timeout time.Duration) *ClustalOmega {
	if execPath == "" {
		execPath = "clustalo"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ClustalOmega{
		Exec:    execPath,
		Timeout: timeout,
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger for debug messages.
func (c *ClustalOmega) SetLogger(l *zap.Logger) {
	c.logger = l
}

// Align implements Aligner. A single record is returned unchanged without
// running the tool.
func (c *ClustalOmega) Align(ctx context.Context, records []fasta.Record) ([]fasta.Record, error) {
	if len(records) == 0 {
		return nil, &Error{Message: "no sequences to align"}
	}
	if len(records) == 1 {
		return Validate(records, records)
	}

	dir, err := os.MkdirTemp("", "vibe-ptm-align")
	if err != nil {
		return nil, fmt.Errorf("create alignment directory: %w", err)
	}
	defer os.RemoveAll(dir)

	inPath := filepath.Join(dir, "input.fasta")
	outPath := filepath.Join(dir, "aligned.fasta")
	if err := fasta.WriteFile(inPath, records); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	args := []string{
		"--infile=" + inPath,
		"--outfile=" + outPath,
		"--outfmt=fasta",
		"--iter=0",
		"--force",
	}
	cmd := exec.CommandContext(ctx, c.Exec, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	c.logger.Debug("running aligner",
		zap.String("exec", c.Exec),
		zap.Int("sequences", len(records)),
		zap.Duration("timeout", c.Timeout))

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, c.Timeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = c.Exec + " failed"
		}
		return nil, &Error{Message: msg, Err: err}
	}
	c.logger.Debug("aligner finished", zap.Duration("elapsed", time.Since(start)))

	aligned, err := fasta.Load(outPath)
	if err != nil {
		return nil, &Error{Message: "read aligner output", Err: err}
	}

	return Validate(records, aligned)
}

// Precomputed returns an alignment read from an existing aligned FASTA file.
type Precomputed struct {
	Path string
}

// Align implements Aligner by validating the stored alignment against records.
func (p Precomputed) Align(_ context.Context, records []fasta.Record) ([]fasta.Record, error) {
	aligned, err := fasta.Load(p.Path)
	if err != nil {
		return nil, &Error{Message: "read aligned fasta", Err: err}
	}
	return Validate(records, aligned)
}
