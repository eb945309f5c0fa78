// Package domain defines the core persistent entities and value types used by
// contigalias: genome assemblies and the chromosome/scaffold sequences they own.
package domain

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityAssembly identifies a genome assembly record.
	EntityAssembly EntityType = "assembly"
	// EntitySequence identifies a chromosome or scaffold sequence record.
	EntitySequence EntityType = "sequence"
)

// SequenceRole mirrors the sequence-role column of an assembly report.
type SequenceRole string

// Canonical sequence roles recognised by the report parser.
const (
	// RoleChromosome marks an assembled molecule (a chromosome).
	RoleChromosome SequenceRole = "assembled-molecule"
	// RoleScaffold marks any unplaced or unlocalized scaffold.
	RoleScaffold SequenceRole = "scaffold"
)

// Sequence is one sequence within an assembly. The INSDC accession is the
// stable key; ENAName carries the naming value sourced from the ENA archive
// report and stays nil until an enrichment run assigns it.
type Sequence struct {
	InsdcAccession  string       `json:"insdc_accession"`
	RefseqAccession string       `json:"refseq_accession,omitempty"`
	GenbankName     string       `json:"genbank_name,omitempty"`
	ENAName         *string      `json:"ena_name,omitempty"`
	UcscName        string       `json:"ucsc_name,omitempty"`
	Role            SequenceRole `json:"role,omitempty"`
	Length          int64        `json:"length,omitempty"`
	// AssemblyAccession is a weak back reference to the owning assembly,
	// usable for lookups only; it conveys no ownership.
	AssemblyAccession string `json:"assembly_accession,omitempty"`
}

// HasENAName reports whether the archive naming value has been assigned.
func (s *Sequence) HasENAName() bool {
	return s != nil && s.ENAName != nil
}

// Clone returns a deep copy of the sequence.
func (s *Sequence) Clone() *Sequence {
	if s == nil {
		return nil
	}
	dup := *s
	if s.ENAName != nil {
		name := *s.ENAName
		dup.ENAName = &name
	}
	return &dup
}

// Assembly is one genome assembly and its ordered sequence collection. The
// collection is owned exclusively by whichever caller constructed the value.
type Assembly struct {
	InsdcAccession  string      `json:"insdc_accession"`
	RefseqAccession string      `json:"refseq_accession,omitempty"`
	Name            string      `json:"name,omitempty"`
	Organism        string      `json:"organism,omitempty"`
	TaxID           int64       `json:"tax_id,omitempty"`
	Chromosomes     []*Sequence `json:"chromosomes,omitempty"`
}

// Clone returns a deep copy of the assembly and its sequences.
func (a *Assembly) Clone() *Assembly {
	if a == nil {
		return nil
	}
	dup := *a
	if a.Chromosomes != nil {
		dup.Chromosomes = make([]*Sequence, len(a.Chromosomes))
		for i, seq := range a.Chromosomes {
			dup.Chromosomes[i] = seq.Clone()
		}
	}
	return &dup
}
