// Package core exposes higher-level transactional operations over the
// assembly store and the ENA enrichment pipeline.
package core

import (
	"context"
	"fmt"
	"time"

	"contigalias/pkg/domain"
)

// Enricher adds archive sequence names to an assembly in place. Satisfied by
// the ENA datasource.
type Enricher interface {
	AddENASequenceNamesToAssembly(ctx context.Context, target *domain.Assembly) error
}

// Service exposes transactional CRUD and enrichment operations over the
// assembly store.
type Service struct {
	store    PersistentStore
	enricher Enricher
	metrics  MetricsRecorder
	tracer   Tracer
}

// ServiceOption configures optional Service collaborators.
type ServiceOption func(*Service)

// WithMetrics records operation outcome metrics.
func WithMetrics(rec MetricsRecorder) ServiceOption {
	return func(s *Service) { s.metrics = rec }
}

// WithTracer traces service operations.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) { s.tracer = tracer }
}

// NewService constructs a service backed by the supplied store and enricher.
func NewService(store PersistentStore, enricher Enricher, opts ...ServiceOption) *Service {
	s := &Service{store: store, enricher: enricher}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore { return s.store }

// instrument wraps fn with metric and trace observation under one operation name.
func (s *Service) instrument(ctx context.Context, operation string, fn func(context.Context) error) error {
	var span TraceSpan
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operation)
	}
	start := time.Now()
	err := fn(ctx)
	if s.metrics != nil {
		s.metrics.Observe(ctx, operation, err == nil, time.Since(start))
	}
	if span != nil {
		span.End(err)
	}
	return err
}

// UpsertAssembly persists an assembly record, replacing any existing record
// with the same accession.
func (s *Service) UpsertAssembly(ctx context.Context, assembly Assembly) (Assembly, Result, error) {
	var stored Assembly
	var res Result
	err := s.instrument(ctx, "upsert_assembly", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			stored, txErr = tx.UpsertAssembly(assembly)
			return txErr
		})
		return err
	})
	return stored, res, err
}

// UpdateAssembly mutates an assembly using the provided mutator.
func (s *Service) UpdateAssembly(ctx context.Context, accession string, mutator func(*Assembly) error) (Assembly, Result, error) {
	var updated Assembly
	var res Result
	err := s.instrument(ctx, "update_assembly", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			updated, txErr = tx.UpdateAssembly(accession, mutator)
			return txErr
		})
		return err
	})
	return updated, res, err
}

// DeleteAssembly removes an assembly record.
func (s *Service) DeleteAssembly(ctx context.Context, accession string) (Result, error) {
	var res Result
	err := s.instrument(ctx, "delete_assembly", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.DeleteAssembly(accession)
		})
		return err
	})
	return res, err
}

// GetAssembly returns the stored assembly for the accession.
func (s *Service) GetAssembly(accession string) (Assembly, bool) {
	return s.store.GetAssembly(accession)
}

// ListAssemblies returns all stored assemblies ordered by accession.
func (s *Service) ListAssemblies() []Assembly {
	return s.store.ListAssemblies()
}

// GetAssemblyByChromosomeGenbank resolves the assembly owning the chromosome
// with the given INSDC (GenBank) accession.
func (s *Service) GetAssemblyByChromosomeGenbank(chrAccession string) (Assembly, bool) {
	return s.store.GetAssemblyByChromosomeGenbank(chrAccession)
}

// GetAssemblyByChromosomeRefseq resolves the assembly owning the chromosome
// with the given RefSeq accession.
func (s *Service) GetAssemblyByChromosomeRefseq(chrAccession string) (Assembly, bool) {
	return s.store.GetAssemblyByChromosomeRefseq(chrAccession)
}

// EnrichAssembly loads the stored assembly, runs ENA sequence-name enrichment
// against it, and persists the enriched record. ok is false when the
// accession is unknown. A lookup that finds nothing on the archive leaves the
// stored record untouched and still returns success.
func (s *Service) EnrichAssembly(ctx context.Context, accession string) (Assembly, bool, error) {
	var enriched Assembly
	found := false
	err := s.instrument(ctx, "enrich_assembly", func(ctx context.Context) error {
		stored, ok := s.store.GetAssembly(accession)
		if !ok {
			return nil
		}
		found = true
		if err := s.enricher.AddENASequenceNamesToAssembly(ctx, &stored); err != nil {
			return fmt.Errorf("enrich %s: %w", accession, err)
		}
		_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			enriched, txErr = tx.UpsertAssembly(stored)
			return txErr
		})
		return err
	})
	if err != nil {
		return Assembly{}, found, err
	}
	return enriched, found, nil
}
