package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-ptm/internal/fasta"
)

// UniProt REST endpoint
const uniprotStreamURL = "https://rest.uniprot.org/uniprotkb/stream"

// isoformsURL returns the URL of the FASTA holding the canonical sequence and
// all isoforms of a UniProt accession.
func isoformsURL(base, accession string) string {
	q := url.Values{}
	q.Set("format", "fasta")
	q.Set("includeIsoform", "true")
	q.Set("query", "accession:"+accession)
	return base + "?" + q.Encode()
}

func newDownloadCmd() *cobra.Command {
	var (
		outputDir string
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "download <accession>",
		Short: "Download the isoform FASTA of a protein from UniProt",
		Long: `Download the canonical sequence and all isoforms of a UniProt accession into
<accession>.fasta. The file can be used as --fasta for the other commands.`,
		Example: `  # Download the tau isoforms
  vibe-ptm download P10636

  # Download to a custom directory and make it the default FASTA
  vibe-ptm download P10636 -o /data/fasta
  vibe-ptm config set fasta /data/fasta/P10636.fasta`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accession := strings.ToUpper(strings.TrimSpace(args[0]))
			if outputDir == "" {
				outputDir = "."
			}
			if err := os.MkdirAll(outputDir, 0755); err != nil {
				return fmt.Errorf("cannot create directory %s: %w", outputDir, err)
			}

			dest := filepath.Join(outputDir, accession+".fasta")
			if force {
				os.Remove(dest)
			}

			fmt.Printf("Downloading isoforms of %s...\n", accession)
			if err := downloadFile(isoformsURL(viper.GetString("uniprot.url"), accession), dest); err != nil {
				return fmt.Errorf("download %s: %w", accession, err)
			}

			records, err := fasta.Load(dest)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				os.Remove(dest)
				return fmt.Errorf("no sequences found for %s", accession)
			}

			fmt.Printf("\nDownload complete: %d isoforms in %s\n", len(records), dest)
			for _, r := range records {
				fmt.Printf("  %s (%d aa)\n", r.Accession, len(r.Sequence))
			}
			fmt.Printf("To detect the variable exon, run:\n")
			fmt.Printf("  vibe-ptm exon --fasta %s\n", dest)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default .)")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing file")

	return cmd
}

// downloadFile downloads a file from URL to the destination path with progress.
func downloadFile(url, destPath string) error {
	// Check if file already exists
	if info, err := os.Stat(destPath); err == nil {
		fmt.Printf("  %s already exists (%s), skipping\n", filepath.Base(destPath), formatSize(info.Size()))
		return nil
	}

	fmt.Printf("  Downloading %s...\n", filepath.Base(destPath))

	client := &http.Client{
		Timeout: 5 * time.Minute,
	}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	// Create destination file
	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	var downloaded int64
	pw := &progressWriter{
		total:      resp.ContentLength,
		downloaded: &downloaded,
		lastPrint:  time.Now(),
	}

	_, err = io.Copy(f, io.TeeReader(resp.Body, pw))
	f.Close()

	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}

	// Rename temp file to final destination
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	fmt.Printf("    Done: %s\n", formatSize(downloaded))
	return nil
}

// progressWriter tracks download progress.
type progressWriter struct {
	total      int64
	downloaded *int64
	lastPrint  time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	*pw.downloaded += int64(n)

	// Print progress every second
	if time.Since(pw.lastPrint) > time.Second {
		if pw.total > 0 {
			pct := float64(*pw.downloaded) / float64(pw.total) * 100
			fmt.Printf("\r    Progress: %s / %s (%.1f%%)  ",
				formatSize(*pw.downloaded), formatSize(pw.total), pct)
		} else {
			fmt.Printf("\r    Progress: %s  ", formatSize(*pw.downloaded))
		}
		pw.lastPrint = time.Now()
	}

	return n, nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
