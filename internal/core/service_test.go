package core

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"contigalias/internal/infra/persistence/memory"
	"contigalias/pkg/domain"
)

// fakeEnricher scripts the enrichment collaborator.
type fakeEnricher struct {
	calls int
	err   error
	apply func(*domain.Assembly)
}

func (f *fakeEnricher) AddENASequenceNamesToAssembly(ctx context.Context, target *domain.Assembly) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if f.apply != nil {
		f.apply(target)
	}
	return nil
}

func strPtr(s string) *string { return &s }

func testAssembly() Assembly {
	return Assembly{
		InsdcAccession: "GCA_000001405.28",
		Name:           "GRCh38.p13",
		Chromosomes: []*Sequence{
			{InsdcAccession: "CM000663.2", RefseqAccession: "NC_000001.11", GenbankName: "1", Role: domain.RoleChromosome},
		},
	}
}

func TestUpsertGetDelete(t *testing.T) {
	svc := NewService(memory.NewStore(), &fakeEnricher{})

	stored, res, err := svc.UpsertAssembly(context.Background(), testAssembly())
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if stored.InsdcAccession != "GCA_000001405.28" || len(res.Changes) != 1 {
		t.Fatalf("upsert result: %+v %+v", stored, res)
	}

	got, ok := svc.GetAssembly("GCA_000001405.28")
	if !ok || got.Name != "GRCh38.p13" {
		t.Fatalf("get: ok=%v %+v", ok, got)
	}
	if list := svc.ListAssemblies(); len(list) != 1 {
		t.Fatalf("list = %+v", list)
	}

	if _, err := svc.DeleteAssembly(context.Background(), "GCA_000001405.28"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := svc.GetAssembly("GCA_000001405.28"); ok {
		t.Fatalf("assembly survived delete")
	}
}

func TestUpdateAssembly(t *testing.T) {
	svc := NewService(memory.NewStore(), &fakeEnricher{})
	if _, _, err := svc.UpsertAssembly(context.Background(), testAssembly()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	updated, _, err := svc.UpdateAssembly(context.Background(), "GCA_000001405.28", func(a *Assembly) error {
		a.Organism = "Homo sapiens"
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Organism != "Homo sapiens" {
		t.Fatalf("mutation lost: %+v", updated)
	}
}

func TestChromosomeLookups(t *testing.T) {
	svc := NewService(memory.NewStore(), &fakeEnricher{})
	if _, _, err := svc.UpsertAssembly(context.Background(), testAssembly()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if got, ok := svc.GetAssemblyByChromosomeGenbank("CM000663.2"); !ok || got.InsdcAccession != "GCA_000001405.28" {
		t.Fatalf("genbank lookup: ok=%v %+v", ok, got)
	}
	if got, ok := svc.GetAssemblyByChromosomeRefseq("NC_000001.11"); !ok || got.InsdcAccession != "GCA_000001405.28" {
		t.Fatalf("refseq lookup: ok=%v %+v", ok, got)
	}
}

func TestEnrichAssemblyPersistsNames(t *testing.T) {
	enricher := &fakeEnricher{apply: func(a *domain.Assembly) {
		a.Chromosomes[0].ENAName = strPtr("1")
	}}
	svc := NewService(memory.NewStore(), enricher)
	if _, _, err := svc.UpsertAssembly(context.Background(), testAssembly()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	enriched, found, err := svc.EnrichAssembly(context.Background(), "GCA_000001405.28")
	if err != nil || !found {
		t.Fatalf("enrich: found=%v err=%v", found, err)
	}
	if enriched.Chromosomes[0].ENAName == nil || *enriched.Chromosomes[0].ENAName != "1" {
		t.Fatalf("enriched record missing name: %+v", enriched.Chromosomes[0])
	}

	stored, _ := svc.GetAssembly("GCA_000001405.28")
	if stored.Chromosomes[0].ENAName == nil {
		t.Fatalf("enrichment not persisted")
	}
	if enricher.calls != 1 {
		t.Fatalf("enricher calls = %d", enricher.calls)
	}
}

func TestEnrichAssemblyUnknownAccession(t *testing.T) {
	enricher := &fakeEnricher{}
	svc := NewService(memory.NewStore(), enricher)

	_, found, err := svc.EnrichAssembly(context.Background(), "GCA_404")
	if err != nil || found {
		t.Fatalf("unknown accession: found=%v err=%v", found, err)
	}
	if enricher.calls != 0 {
		t.Fatalf("enricher must not run for unknown accession")
	}
}

func TestEnrichAssemblyPropagatesEnricherError(t *testing.T) {
	enricher := &fakeEnricher{err: errors.New("archive unreachable")}
	svc := NewService(memory.NewStore(), enricher)
	if _, _, err := svc.UpsertAssembly(context.Background(), testAssembly()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, found, err := svc.EnrichAssembly(context.Background(), "GCA_000001405.28")
	if err == nil || !found {
		t.Fatalf("expected propagated error, found=%v err=%v", found, err)
	}
}

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	svc := NewService(memory.NewStore(), &fakeEnricher{}, WithMetrics(rec))

	if _, _, err := svc.UpsertAssembly(context.Background(), testAssembly()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := svc.DeleteAssembly(context.Background(), "GCA_404"); err == nil {
		t.Fatalf("expected delete failure")
	}

	snap := rec.Snapshot()
	if snap.Results["upsert_assembly"]["success"] != 1 {
		t.Fatalf("upsert success not recorded: %+v", snap.Results)
	}
	if snap.Results["delete_assembly"]["error"] != 1 {
		t.Fatalf("delete error not recorded: %+v", snap.Results)
	}
	if _, ok := snap.DurationsMS["upsert_assembly"]; !ok {
		t.Fatalf("duration not recorded: %+v", snap.DurationsMS)
	}
}

func TestJSONTracerRecordsSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	svc := NewService(memory.NewStore(), &fakeEnricher{}, WithTracer(tracer))

	if _, _, err := svc.UpsertAssembly(context.Background(), testAssembly()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	entries := tracer.Entries()
	if len(entries) != 1 || entries[0].Operation != "upsert_assembly" || entries[0].Status != "success" {
		t.Fatalf("entries = %+v", entries)
	}
	if buf.Len() == 0 {
		t.Fatalf("span not encoded to writer")
	}
}
