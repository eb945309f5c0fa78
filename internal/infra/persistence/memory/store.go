// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"contigalias/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Assembly aliases domain.Assembly for in-memory persistence operations.
	Assembly = domain.Assembly
	// Sequence aliases domain.Sequence.
	Sequence = domain.Sequence
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing committed mutations.
	Result = domain.Result
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Assemblies map[string]Assembly `json:"assemblies"`
}

// Store is a mutex-guarded in-memory assembly store with snapshot export and
// import hooks used by the durable wrappers.
type Store struct {
	mu         sync.RWMutex
	assemblies map[string]Assembly
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{assemblies: make(map[string]Assembly)}
}

// ErrNotFound is returned when a transaction references a missing assembly.
type ErrNotFound struct {
	Entity domain.EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// validateAssembly enforces the accession-uniqueness invariant on the
// assembly's sequence collection.
func validateAssembly(assembly Assembly) error {
	if assembly.InsdcAccession == "" {
		return fmt.Errorf("assembly accession required")
	}
	seen := make(map[string]struct{}, len(assembly.Chromosomes))
	for _, seq := range assembly.Chromosomes {
		if seq == nil || seq.InsdcAccession == "" {
			return fmt.Errorf("assembly %s: sequence accession required", assembly.InsdcAccession)
		}
		if _, dup := seen[seq.InsdcAccession]; dup {
			return fmt.Errorf("assembly %s: duplicate sequence accession %s", assembly.InsdcAccession, seq.InsdcAccession)
		}
		seen[seq.InsdcAccession] = struct{}{}
	}
	return nil
}

type memTx struct {
	assemblies map[string]Assembly
	changes    []Change
}

func (t *memTx) UpsertAssembly(assembly Assembly) (Assembly, error) {
	if err := validateAssembly(assembly); err != nil {
		return Assembly{}, err
	}
	action := domain.ActionCreate
	if _, ok := t.assemblies[assembly.InsdcAccession]; ok {
		action = domain.ActionUpdate
	}
	stored := *assembly.Clone()
	for _, seq := range stored.Chromosomes {
		seq.AssemblyAccession = stored.InsdcAccession
	}
	t.assemblies[stored.InsdcAccession] = stored
	t.changes = append(t.changes, Change{Entity: domain.EntityAssembly, Action: action, ID: stored.InsdcAccession})
	return *stored.Clone(), nil
}

func (t *memTx) UpdateAssembly(accession string, mutator func(*Assembly) error) (Assembly, error) {
	current, ok := t.assemblies[accession]
	if !ok {
		return Assembly{}, ErrNotFound{Entity: domain.EntityAssembly, ID: accession}
	}
	draft := current.Clone()
	if err := mutator(draft); err != nil {
		return Assembly{}, err
	}
	if draft.InsdcAccession != accession {
		return Assembly{}, fmt.Errorf("assembly accession is immutable")
	}
	if err := validateAssembly(*draft); err != nil {
		return Assembly{}, err
	}
	t.assemblies[accession] = *draft.Clone()
	t.changes = append(t.changes, Change{Entity: domain.EntityAssembly, Action: domain.ActionUpdate, ID: accession})
	return *draft, nil
}

func (t *memTx) DeleteAssembly(accession string) error {
	if _, ok := t.assemblies[accession]; !ok {
		return ErrNotFound{Entity: domain.EntityAssembly, ID: accession}
	}
	delete(t.assemblies, accession)
	t.changes = append(t.changes, Change{Entity: domain.EntityAssembly, Action: domain.ActionDelete, ID: accession})
	return nil
}

func (t *memTx) FindAssembly(accession string) (Assembly, bool) {
	assembly, ok := t.assemblies[accession]
	if !ok {
		return Assembly{}, false
	}
	return *assembly.Clone(), true
}

// RunInTransaction applies fn against a staged copy of the state and commits
// it atomically when fn returns nil.
func (s *Store) RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[string]Assembly, len(s.assemblies))
	for k, v := range s.assemblies {
		staged[k] = *v.Clone()
	}
	tx := &memTx{assemblies: staged}
	if err := fn(tx); err != nil {
		return Result{}, err
	}
	s.assemblies = tx.assemblies
	return Result{Changes: tx.changes}, nil
}

// GetAssembly returns a defensive copy of the stored assembly.
func (s *Store) GetAssembly(accession string) (Assembly, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	assembly, ok := s.assemblies[accession]
	if !ok {
		return Assembly{}, false
	}
	return *assembly.Clone(), true
}

// GetAssemblyByChromosomeGenbank resolves the assembly owning the chromosome
// with the given INSDC (GenBank) accession.
func (s *Store) GetAssemblyByChromosomeGenbank(chrAccession string) (Assembly, bool) {
	return s.findByChromosome(func(seq *Sequence) bool { return seq.InsdcAccession == chrAccession })
}

// GetAssemblyByChromosomeRefseq resolves the assembly owning the chromosome
// with the given RefSeq accession.
func (s *Store) GetAssemblyByChromosomeRefseq(chrAccession string) (Assembly, bool) {
	return s.findByChromosome(func(seq *Sequence) bool { return seq.RefseqAccession == chrAccession })
}

func (s *Store) findByChromosome(match func(*Sequence) bool) (Assembly, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, assembly := range s.assemblies {
		for _, seq := range assembly.Chromosomes {
			if match(seq) {
				return *assembly.Clone(), true
			}
		}
	}
	return Assembly{}, false
}

// ListAssemblies returns all assemblies ordered by accession.
func (s *Store) ListAssemblies() []Assembly {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Assembly, 0, len(s.assemblies))
	for _, assembly := range s.assemblies {
		out = append(out, *assembly.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InsdcAccession < out[j].InsdcAccession })
	return out
}

// ExportState clones the current state for durable snapshotting.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := Snapshot{Assemblies: make(map[string]Assembly, len(s.assemblies))}
	for k, v := range s.assemblies {
		snapshot.Assemblies[k] = *v.Clone()
	}
	return snapshot
}

// ImportState replaces the store contents with the snapshot, typically on open.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assemblies = make(map[string]Assembly, len(snapshot.Assemblies))
	for k, v := range snapshot.Assemblies {
		s.assemblies[k] = *v.Clone()
	}
}
