package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-ptm/internal/search"
)

func TestParsePairs(t *testing.T) {
	got, err := parsePairs("isoform_aliases", []string{"0N3R=P10636-2", " 2N4R = P10636-8 ", "Phospho="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"0N3R": "P10636-2", "2N4R": "P10636-8", "Phospho": ""}, got)

	_, err = parsePairs("modifications", []string{"Phospho"})
	assert.Error(t, err)
	_, err = parsePairs("modifications", []string{"=STY"})
	assert.Error(t, err)
}

func TestFormatPairs(t *testing.T) {
	got := formatPairs(search.Included{"Phospho": "STY", "Acetyl": "K"})
	assert.Equal(t, []string{"Acetyl=K", "Phospho=STY"}, got)

	back, err := parsePairs("modifications", formatPairs(search.DefaultIncluded))
	require.NoError(t, err)
	assert.Equal(t, map[string]string(search.DefaultIncluded), back)
}

func TestIsoformsURL(t *testing.T) {
	u := isoformsURL("https://example.org/stream", "P10636")
	assert.True(t, strings.HasPrefix(u, "https://example.org/stream?"))
	assert.Contains(t, u, "includeIsoform=true")
	assert.Contains(t, u, "query=accession%3AP10636")
	assert.Contains(t, u, "format=fasta")
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.5 KB", formatSize(1536))
	assert.Equal(t, "2.0 MB", formatSize(2*1024*1024))
}

func TestDownloadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(">sp|P1|TEST\nMKT\n"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "P1.fasta")
	require.NoError(t, downloadFile(srv.URL+"/ok", dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, ">sp|P1|TEST\nMKT\n", string(data))

	// An existing file is kept.
	require.NoError(t, downloadFile(srv.URL+"/missing", dest))

	err = downloadFile(srv.URL+"/missing", filepath.Join(t.TempDir(), "P2.fasta"))
	assert.Error(t, err)
}

func TestPreprocessCommand(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	cfg := write("config.yaml", "isoform_aliases:\n  - 0N3R=P3\n")
	fa := write("tau.fasta", ">sp|P1|T\nMKTSHYLWRAPSKGE\n>sp|P2|T\nMKTSQRSTRAPSKGE\n>sp|P3|T\nMKTSRAPSKGE\n")
	al := write("tau_aligned.fasta", ">sp|P1|T\nMKTSHYLWRAPSKGE\n>sp|P2|T\nMKTSQRSTRAPSKGE\n>sp|P3|T\nMKTS----RAPSKGE\n")
	groups := write("groups.csv", "file_name,group_name\nS1,ctrl\n")
	ev := write("evidence.txt", "Sequence\tModified sequence\tModifications\tProteins\tPEP\tExperiment\n"+
		"APSK\t_APS(ph)K_\tPhospho (STY)\t0N3R\t0.001\tS1\n")
	out := filepath.Join(dir, "out")

	root := newRootCmd()
	root.SetArgs([]string{
		"--config", cfg,
		"preprocess", "--format", "mq", "--input", ev,
		"--fasta", fa, "--aligned-fasta", al, "--groups", groups,
		"-o", out, "--min-exon-length", "2",
	})
	require.NoError(t, root.Execute())

	data, err := os.ReadFile(filepath.Join(out, "result_max_quant_mods.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Phospho(S)@12_general")
	assert.Contains(t, string(data), "S1,ctrl,1")
	assert.FileExists(t, filepath.Join(out, "result_max_quant_cleavages.csv"))
}
