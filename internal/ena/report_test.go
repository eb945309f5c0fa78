package ena

import (
	"strings"
	"testing"

	"contigalias/pkg/domain"
)

const sampleReport = "# Assembly accession: GCA_000001405.28\n" +
	"# Assembly name: GRCh38.p13\n" +
	"# Organism: Homo sapiens\n" +
	"# Taxid: 9606\n" +
	"accession\tsequence name\tsequence length\tsequence role\n" +
	"CM000663.2\t1\t248956422\tassembled-molecule\n" +
	"CM000664.2\t2\t242193529\tassembled-molecule\n" +
	"KI270706.1\tHG2058_PATCH\t175055\tunlocalized-scaffold\n"

func TestParseAssembly_SampleReport(t *testing.T) {
	parser := NewSequenceReportParser()
	assembly, err := parser.ParseAssembly(strings.NewReader(sampleReport))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if assembly.InsdcAccession != "GCA_000001405.28" {
		t.Fatalf("accession = %s", assembly.InsdcAccession)
	}
	if assembly.Name != "GRCh38.p13" || assembly.Organism != "Homo sapiens" || assembly.TaxID != 9606 {
		t.Fatalf("unexpected metadata %+v", assembly)
	}
	if len(assembly.Chromosomes) != 3 {
		t.Fatalf("expected 3 sequences, got %d", len(assembly.Chromosomes))
	}

	chr1 := assembly.Chromosomes[0]
	if chr1.InsdcAccession != "CM000663.2" {
		t.Fatalf("chr1 accession = %s", chr1.InsdcAccession)
	}
	if chr1.ENAName == nil || *chr1.ENAName != "1" {
		t.Fatalf("chr1 name = %v", chr1.ENAName)
	}
	if chr1.Role != domain.RoleChromosome || chr1.Length != 248956422 {
		t.Fatalf("chr1 attrs = %+v", chr1)
	}
	if chr1.AssemblyAccession != "GCA_000001405.28" {
		t.Fatalf("chr1 back reference = %s", chr1.AssemblyAccession)
	}

	scaffold := assembly.Chromosomes[2]
	if scaffold.Role != domain.RoleScaffold {
		t.Fatalf("scaffold role = %s", scaffold.Role)
	}
}

func TestParseAssembly_NoHeaderIsMalformed(t *testing.T) {
	parser := NewSequenceReportParser()
	if _, err := parser.ParseAssembly(strings.NewReader("CM000663.2\t1\n")); err == nil {
		t.Fatalf("expected malformed report error")
	}
	if _, err := parser.ParseAssembly(strings.NewReader("")); err == nil {
		t.Fatalf("expected malformed report error for empty stream")
	}
}

func TestParseAssembly_BadLength(t *testing.T) {
	report := "accession\tsequence name\tsequence length\tsequence role\n" +
		"CM000663.2\t1\tnot-a-number\tassembled-molecule\n"
	parser := NewSequenceReportParser()
	if _, err := parser.ParseAssembly(strings.NewReader(report)); err == nil {
		t.Fatalf("expected length parse error")
	}
}

func TestParseAssembly_MissingAccessionColumn(t *testing.T) {
	report := "accession\tsequence name\n" +
		"\tchr1\n"
	parser := NewSequenceReportParser()
	if _, err := parser.ParseAssembly(strings.NewReader(report)); err == nil {
		t.Fatalf("expected missing accession error")
	}
}
