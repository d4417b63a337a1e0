// Package pipeline runs the preprocessing steps end to end: align the isoform
// FASTA, detect the variable exon, read the search-engine export, normalize
// every event to canonical coordinates, collapse them and write the result
// matrices.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-ptm/internal/align"
	"github.com/inodb/vibe-ptm/internal/coord"
	"github.com/inodb/vibe-ptm/internal/duckdb"
	"github.com/inodb/vibe-ptm/internal/event"
	"github.com/inodb/vibe-ptm/internal/exon"
	"github.com/inodb/vibe-ptm/internal/fasta"
	"github.com/inodb/vibe-ptm/internal/isoform"
	"github.com/inodb/vibe-ptm/internal/result"
	"github.com/inodb/vibe-ptm/internal/search"
)

// Config holds the inputs and settings of a run.
type Config struct {
	FASTA string
	// AlignedFASTA, when set, is used as the alignment instead of running
	// the aligner.
	AlignedFASTA     string
	Format           search.Format
	Input            string
	Groups           string
	OutputDir        string
	MinExonLength    int
	Included         search.Included
	Aliases          map[string]string
	CleavageResidues string
	Options          search.Options
	Workers          int
}

// Result summarizes a completed run.
type Result struct {
	RunID         string
	Region        *exon.Region
	Samples       []string
	Modifications []event.Column
	Cleavages     []event.Column
	// NotFound counts peptides that matched no isoform.
	NotFound          int
	RowErrors         int
	ModificationsPath string
	CleavagesPath     string
}

// Pipeline runs preprocessing for one input.
type Pipeline struct {
	cfg     Config
	aligner align.Aligner
	store   *duckdb.Store
	logger  *zap.Logger

	fastaFP duckdb.FileFingerprint
}

// New creates a pipeline. aligner is used unless cfg.AlignedFASTA is set or a
// valid cached alignment exists in the output directory.
func New(cfg Config, aligner align.Aligner) *Pipeline {
	if cfg.MinExonLength <= 0 {
		cfg.MinExonLength = exon.DefaultMinLength
	}
	if cfg.Included == nil {
		cfg.Included = search.DefaultIncluded
	}
	if cfg.CleavageResidues == "" {
		cfg.CleavageResidues = coord.DefaultCleavageResidues
	}
	if cfg.Options == (search.Options{}) {
		cfg.Options = search.DefaultOptions()
	}
	return &Pipeline{
		cfg:     cfg,
		aligner: aligner,
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger for progress and warning messages.
func (p *Pipeline) SetLogger(l *zap.Logger) {
	p.logger = l
}

// SetStore enables writing events and run metadata to a DuckDB store.
func (p *Pipeline) SetStore(s *duckdb.Store) {
	p.store = s
}

// Align loads the isoform FASTA and returns the raw and aligned records.
// The alignment comes from cfg.AlignedFASTA, the output directory's cache or
// the aligner, in that order; a fresh alignment is written to the cache.
func (p *Pipeline) Align(ctx context.Context) (raw, aligned []fasta.Record, err error) {
	raw, err = fasta.Load(p.cfg.FASTA)
	if err != nil {
		return nil, nil, err
	}
	if len(raw) == 0 {
		return nil, nil, fmt.Errorf("no sequences in %s", p.cfg.FASTA)
	}
	p.fastaFP, err = duckdb.StatFile(p.cfg.FASTA)
	if err != nil {
		return nil, nil, err
	}

	if p.cfg.AlignedFASTA != "" {
		aligned, err = align.Precomputed{Path: p.cfg.AlignedFASTA}.Align(ctx, raw)
		if err != nil {
			return nil, nil, err
		}
		p.logger.Info("using precomputed alignment", zap.String("path", p.cfg.AlignedFASTA))
		return raw, aligned, nil
	}

	var cache *duckdb.AlignmentCache
	if p.cfg.OutputDir != "" {
		cache = duckdb.NewAlignmentCache(p.cfg.OutputDir)
		if cache.Valid(p.fastaFP) {
			if cached, err := cache.Load(); err == nil {
				if aligned, err = align.Validate(raw, cached); err == nil {
					p.logger.Info("using cached alignment", zap.String("path", cache.Path()))
					return raw, aligned, nil
				}
			}
			p.logger.Warn("discarding invalid alignment cache", zap.String("path", cache.Path()))
			cache.Clear()
		}
	}

	if p.aligner == nil {
		return nil, nil, errors.New("no aligner configured and no alignment available")
	}
	p.logger.Info("aligning isoforms", zap.Int("sequences", len(raw)))
	aligned, err = p.aligner.Align(ctx, raw)
	if err != nil {
		return nil, nil, err
	}

	if cache != nil {
		if err := cache.Write(aligned, p.fastaFP); err != nil {
			return nil, nil, err
		}
	}
	return raw, aligned, nil
}

// Prepare builds the normalization context: the isoform table and the
// detected variable region.
func (p *Pipeline) Prepare(ctx context.Context) (*coord.Normalizer, error) {
	raw, aligned, err := p.Align(ctx)
	if err != nil {
		return nil, err
	}

	table, err := isoform.NewTable(raw, aligned)
	if err != nil {
		return nil, err
	}
	table.SetAliases(p.cfg.Aliases)

	det := exon.NewDetector(p.cfg.MinExonLength)
	det.SetLogger(p.logger)
	region, err := det.Detect(table.Isoforms())
	if err != nil {
		return nil, fmt.Errorf("detect exon: %w", err)
	}
	if region != nil {
		p.logger.Info("detected variable exon",
			zap.Int("start", region.Start),
			zap.Int("end", region.End),
			zap.Int("length", region.Length),
			zap.String("exon1", region.Exon1),
			zap.String("exon2", region.Exon2))
	} else {
		p.logger.Info("no variable exon detected")
	}

	norm := coord.NewNormalizer(table, region)
	norm.SetLogger(p.logger)
	return norm, nil
}

// Run executes the whole pipeline.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	groups, err := result.LoadGroups(p.cfg.Groups)
	if err != nil {
		return nil, err
	}
	files, err := search.InputFiles(p.cfg.Format, p.cfg.Input)
	if err != nil {
		return nil, err
	}

	norm, err := p.Prepare(ctx)
	if err != nil {
		return nil, err
	}

	acc := newAccumulator(groups)
	res := &Result{Region: norm.Region()}

	results := ParallelRead(p.cfg.Format, p.cfg.Options, Feed(files), p.cfg.Workers)
	err = OrderedCollect(results, func(r WorkResult) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.Err != nil {
			return r.Err
		}
		for _, re := range r.RowErrors {
			p.logger.Warn("skipping row", zap.String("file", r.Path), zap.Int("line", re.Line), zap.String("reason", re.Message))
		}
		res.RowErrors += len(r.RowErrors)

		if p.cfg.Format.PerSampleFiles() {
			acc.addSample(search.SampleName(r.Path))
		}
		p.logger.Debug("read input file", zap.String("file", r.Path), zap.Int("matches", len(r.Matches)))

		for _, m := range r.Matches {
			found, err := p.process(norm, acc, m)
			if err != nil {
				return fmt.Errorf("%s line %d: %w", r.Path, m.Line, err)
			}
			if !found {
				res.NotFound++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m := acc.matrices()
	if err := result.WriteFiles(p.cfg.OutputDir, string(p.cfg.Format), groups, m); err != nil {
		return nil, err
	}
	res.Samples = acc.order
	res.Modifications = m.Modifications
	res.Cleavages = m.Cleavages
	res.ModificationsPath = result.ModificationsPath(p.cfg.OutputDir, string(p.cfg.Format))
	res.CleavagesPath = result.CleavagesPath(p.cfg.OutputDir, string(p.cfg.Format))

	if p.store != nil {
		run := duckdb.NewRun(string(p.cfg.Format), p.cfg.Input, p.fastaFP, len(norm.Table().Isoforms()), norm.Region())
		if err := p.store.RecordRun(run); err != nil {
			return nil, err
		}
		if err := p.store.WriteEvents(run.ID, acc.sampleEvents()); err != nil {
			return nil, fmt.Errorf("write events: %w", err)
		}
		res.RunID = run.ID
	}

	p.logger.Info("wrote results",
		zap.Int("samples", len(res.Samples)),
		zap.Int("modifications", len(res.Modifications)),
		zap.Int("cleavages", len(res.Cleavages)),
		zap.Int("not_found", res.NotFound))
	return res, nil
}

// process normalizes the events of one peptide match. It reports false when
// the peptide matched no isoform.
func (p *Pipeline) process(norm *coord.Normalizer, acc *accumulator, m *search.PeptideMatch) (bool, error) {
	iso, start, err := norm.Table().FindPeptide(m.Accessions, m.Peptide)
	if errors.Is(err, isoform.ErrPeptideNotFound) {
		p.logger.Debug("peptide not found",
			zap.String("peptide", m.Peptide),
			zap.String("accessions", m.Accessions),
			zap.Int("line", m.Line))
		return false, nil
	}
	if err != nil {
		return false, err
	}

	cleavages, err := p.cleavages(norm, iso, start, m)
	if err != nil {
		return true, err
	}

	var mods []event.Event
	if m.Confident {
		for _, mod := range m.Mods {
			name, ok := p.cfg.Included.Accept(mod.Name, mod.AminoAcid)
			if !ok {
				continue
			}
			e, err := norm.Modification(iso, start, m.Peptide, mod.Site, name, mod.AminoAcid)
			if err != nil {
				return true, err
			}
			mods = append(mods, e)
		}
	}

	for _, s := range m.Samples {
		acc.add(s, mods, cleavages)
	}
	return true, nil
}

// cleavages returns the cleavage events of a match: those reported by the
// search engine when present, otherwise those inferred from the protease
// residues. Protein termini are never cleavage sites.
func (p *Pipeline) cleavages(norm *coord.Normalizer, iso *isoform.Isoform, start int, m *search.PeptideMatch) ([]event.Event, error) {
	if m.Cleaved == nil {
		return norm.Cleavages(iso, start, m.Peptide, p.cfg.CleavageResidues)
	}

	var out []event.Event
	if m.Cleaved.N && start > 0 {
		e, err := norm.NTermCleavage(iso, start, m.Peptide)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if m.Cleaved.C && start+len(m.Peptide) < len(iso.Sequence) {
		e, err := norm.CTermCleavage(iso, start, m.Peptide)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
