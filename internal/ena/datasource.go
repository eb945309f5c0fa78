package ena

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"contigalias/internal/blob"
	"contigalias/pkg/domain"
)

// MetricsRecorder observes pipeline operation outcomes. It mirrors the core
// recorder interface so one recorder can serve both layers.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Config carries the datasource's explicit configuration; no ambient process
// state is consulted after construction.
type Config struct {
	DownloadDir string
	Retry       RetryPolicy
}

// DataSource orchestrates one accession lookup end to end: open a session,
// resolve and fetch the report with retry, parse it, and hand back the parsed
// assembly. All network-dependent failures below its boundary are absorbed and
// converted to absence; only session-connect and local-storage problems
// surface as errors.
type DataSource struct {
	sessions SessionFactory
	parser   ReportParser
	fetcher  *Fetcher
	cache    blob.Store // optional report cache; nil disables caching
	logger   *slog.Logger
	metrics  MetricsRecorder // optional
}

// Option configures optional DataSource collaborators.
type Option func(*DataSource)

// WithCache stores successfully fetched reports in cache and serves later
// lookups from it without opening a session.
func WithCache(cache blob.Store) Option {
	return func(d *DataSource) { d.cache = cache }
}

// WithMetrics records per-lookup outcome metrics.
func WithMetrics(rec MetricsRecorder) Option {
	return func(d *DataSource) { d.metrics = rec }
}

// NewDataSource constructs the pipeline from its collaborators.
func NewDataSource(sessions SessionFactory, parser ReportParser, cfg Config, logger *slog.Logger, opts ...Option) *DataSource {
	if logger == nil {
		logger = slog.Default()
	}
	d := &DataSource{
		sessions: sessions,
		parser:   parser,
		fetcher:  NewFetcher(cfg.DownloadDir, cfg.Retry, logger),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fetcher exposes the underlying fetcher for test hooks.
func (d *DataSource) Fetcher() *Fetcher { return d.fetcher }

// GetAssemblyByAccession fetches and parses the archive's report for the
// accession. Absence (report not on the archive, retries exhausted, malformed
// content) is returned as (nil, nil); a non-nil error marks transport-level
// trouble opening the session or unusable local storage.
func (d *DataSource) GetAssemblyByAccession(ctx context.Context, accession string) (assembly *domain.Assembly, err error) {
	start := time.Now()
	defer func() {
		if d.metrics != nil {
			d.metrics.Observe(ctx, "ena_get_assembly", err == nil && assembly != nil, time.Since(start))
		}
	}()

	if cached := d.fromCache(ctx, accession); cached != nil {
		return cached, nil
	}

	session := d.sessions.Build()
	if err := session.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect archive session: %w", err)
	}
	defer func() {
		if err := session.Disconnect(); err != nil {
			d.logger.Warn("ena: session disconnect failed", "accession", accession, "err", err)
		}
	}()

	artifactPath, ok, err := d.fetcher.Fetch(ctx, session, accession)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			d.logger.Warn("ena: fetch cancelled", "accession", accession, "err", err)
			return nil, nil
		}
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	defer func() {
		if err := os.Remove(artifactPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			d.logger.Warn("ena: artifact cleanup failed", "accession", accession, "path", artifactPath, "err", err)
		}
	}()

	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", artifactPath, err)
	}
	parsed, perr := d.parser.ParseAssembly(bytes.NewReader(data))
	if perr != nil {
		// The artifact content will not change on a retry; surface absence once.
		d.logger.Warn("ena: could not parse assembly report", "accession", accession, "err", perr)
		return nil, nil
	}
	if parsed.InsdcAccession == "" {
		parsed.InsdcAccession = accession
	}
	d.logger.Info("ena: assembly report parsed", "accession", accession, "sequences", len(parsed.Chromosomes))

	d.toCache(ctx, accession, data)
	return parsed, nil
}

// AddENASequenceNamesToAssembly enriches the target assembly's sequences with
// archive names, fetching the archive's copy keyed by the target's own
// accession. Idempotent: a target whose sequences all carry names performs no
// network calls. An absent archive lookup leaves the target unmodified.
func (d *DataSource) AddENASequenceNamesToAssembly(ctx context.Context, target *domain.Assembly) error {
	if target == nil {
		return nil
	}
	if HasAllENASequenceNames(target) {
		return nil
	}
	source, err := d.GetAssemblyByAccession(ctx, target.InsdcAccession)
	if err != nil {
		return err
	}
	if source == nil {
		return nil
	}
	sourceSeqs := source.Chromosomes
	if sourceSeqs == nil {
		sourceSeqs = []*domain.Sequence{}
	}
	targetSeqs := target.Chromosomes
	if targetSeqs == nil {
		targetSeqs = []*domain.Sequence{}
	}
	target.Chromosomes = MergeSequenceNames(sourceSeqs, targetSeqs)
	return nil
}

// HasAllENASequenceNames reports whether every sequence in the assembly
// already carries an archive name. Vacuously true for empty collections.
func HasAllENASequenceNames(assembly *domain.Assembly) bool {
	if assembly == nil {
		return true
	}
	for _, seq := range assembly.Chromosomes {
		if !seq.HasENAName() {
			return false
		}
	}
	return true
}

// fromCache parses a cached report if one exists. A corrupt cache entry is
// evicted and the lookup falls through to the network.
func (d *DataSource) fromCache(ctx context.Context, accession string) *domain.Assembly {
	if d.cache == nil {
		return nil
	}
	key := reportKey(accession)
	_, rc, err := d.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, blob.ErrNotFound) {
			d.logger.Warn("ena: report cache read failed", "accession", accession, "err", err)
		}
		return nil
	}
	defer func() { _ = rc.Close() }()
	parsed, err := d.parser.ParseAssembly(rc)
	if err != nil {
		d.logger.Warn("ena: evicting corrupt cached report", "accession", accession, "err", err)
		if _, derr := d.cache.Delete(ctx, key); derr != nil {
			d.logger.Warn("ena: cache eviction failed", "accession", accession, "err", derr)
		}
		return nil
	}
	if parsed.InsdcAccession == "" {
		parsed.InsdcAccession = accession
	}
	return parsed
}

// toCache stores a fetched report; failures are logged, never escalated.
func (d *DataSource) toCache(ctx context.Context, accession string, data []byte) {
	if d.cache == nil {
		return
	}
	_, err := d.cache.Put(ctx, reportKey(accession), bytes.NewReader(data), blob.PutOptions{
		ContentType: "text/tab-separated-values",
		Metadata:    map[string]string{"accession": accession},
	})
	if err != nil {
		d.logger.Warn("ena: report cache write failed", "accession", accession, "err", err)
	}
}
