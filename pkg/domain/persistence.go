package domain

import "context"

// Action describes the kind of mutation captured in a Change record.
type Action string

// Canonical mutation actions recorded by transactions.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Change captures one entity mutation performed inside a transaction.
type Change struct {
	Entity EntityType `json:"entity"`
	Action Action     `json:"action"`
	ID     string     `json:"id"`
}

// Result summarizes the mutations committed by one transaction.
type Result struct {
	Changes []Change `json:"changes,omitempty"`
}

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	UpsertAssembly(Assembly) (Assembly, error)
	UpdateAssembly(accession string, mutator func(*Assembly) error) (Assembly, error)
	DeleteAssembly(accession string) error
	FindAssembly(accession string) (Assembly, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	GetAssembly(accession string) (Assembly, bool)
	GetAssemblyByChromosomeGenbank(chrAccession string) (Assembly, bool)
	GetAssemblyByChromosomeRefseq(chrAccession string) (Assembly, bool)
	ListAssemblies() []Assembly
}
