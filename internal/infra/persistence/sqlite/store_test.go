package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"contigalias/pkg/domain"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestUpsertPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contigalias.db")
	store := openStore(t, path)

	name := "1"
	assembly := domain.Assembly{
		InsdcAccession: "GCA_000001405.28",
		Name:           "GRCh38.p13",
		TaxID:          9606,
		Chromosomes: []*domain.Sequence{
			{InsdcAccession: "CM000663.2", GenbankName: "1", ENAName: &name, Role: domain.RoleChromosome},
		},
	}
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.UpsertAssembly(assembly)
		return err
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openStore(t, path)
	stored, ok := reopened.GetAssembly("GCA_000001405.28")
	if !ok {
		t.Fatalf("assembly not hydrated after reopen")
	}
	if stored.Name != "GRCh38.p13" || len(stored.Chromosomes) != 1 {
		t.Fatalf("hydrated assembly mismatch: %+v", stored)
	}
	if stored.Chromosomes[0].ENAName == nil || *stored.Chromosomes[0].ENAName != "1" {
		t.Fatalf("sequence name lost across snapshot: %+v", stored.Chromosomes[0])
	}
}

func TestFailedTransactionLeavesSnapshotUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contigalias.db")
	store := openStore(t, path)

	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.UpsertAssembly(domain.Assembly{}) // missing accession
		return err
	}); err == nil {
		t.Fatalf("expected validation failure")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openStore(t, path)
	if assemblies := reopened.ListAssemblies(); len(assemblies) != 0 {
		t.Fatalf("failed transaction leaked into snapshot: %+v", assemblies)
	}
}

func TestDefaultPath(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "nested", "dir", "state.db"))
	if store.Path() == "" {
		t.Fatalf("path not recorded")
	}
	if store.DB() == nil {
		t.Fatalf("db handle not exposed")
	}
}
