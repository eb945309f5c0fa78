package ena

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"contigalias/pkg/domain"
)

// ReportParser turns a raw report byte stream into an assembly entity with its
// chromosome and scaffold sequences.
type ReportParser interface {
	ParseAssembly(r io.Reader) (*domain.Assembly, error)
}

// SequenceReportParser parses ENA sequence reports: optional `#`-prefixed
// assembly metadata lines followed by a tab-delimited table whose header names
// the columns (accession, sequence name, length, role).
type SequenceReportParser struct{}

// NewSequenceReportParser returns the standard report parser.
func NewSequenceReportParser() *SequenceReportParser { return &SequenceReportParser{} }

// ParseAssembly reads the full stream and builds the assembly. A stream with
// no recognisable table header is malformed.
func (p *SequenceReportParser) ParseAssembly(r io.Reader) (*domain.Assembly, error) {
	assembly := &domain.Assembly{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	cols := map[string]int{}
	headerSeen := false
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			parseMetadataLine(assembly, strings.TrimPrefix(line, "#"))
			continue
		}
		fields := strings.Split(line, "\t")
		if !headerSeen {
			if !strings.EqualFold(strings.TrimSpace(fields[0]), "accession") {
				return nil, fmt.Errorf("line %d: expected report header, got %q", lineNo, fields[0])
			}
			for i, name := range fields {
				cols[normalizeColumn(name)] = i
			}
			headerSeen = true
			continue
		}
		seq, err := parseSequenceRow(fields, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		seq.AssemblyAccession = assembly.InsdcAccession
		assembly.Chromosomes = append(assembly.Chromosomes, seq)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	if !headerSeen {
		return nil, fmt.Errorf("malformed report: no table header")
	}
	return assembly, nil
}

func normalizeColumn(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "-")
	return strings.ReplaceAll(name, "_", "-")
}

// parseMetadataLine fills assembly attributes from `#`-prefixed key: value lines.
func parseMetadataLine(assembly *domain.Assembly, line string) {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return
	}
	value = strings.TrimSpace(value)
	switch normalizeColumn(key) {
	case "assembly-accession", "accession":
		assembly.InsdcAccession = value
	case "assembly-name":
		assembly.Name = value
	case "organism", "organism-name":
		assembly.Organism = value
	case "taxid":
		if taxid, err := strconv.ParseInt(value, 10, 64); err == nil {
			assembly.TaxID = taxid
		}
	}
}

func parseSequenceRow(fields []string, cols map[string]int) (*domain.Sequence, error) {
	field := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[idx])
	}

	accession := field("accession")
	if accession == "" {
		return nil, fmt.Errorf("row missing accession")
	}
	seq := &domain.Sequence{InsdcAccession: accession}
	if name := field("sequence-name"); name != "" {
		seq.ENAName = &name
	} else if name := field("chromosome-name"); name != "" {
		seq.ENAName = &name
	}
	role := normalizeColumn(field("sequence-role"))
	if role == string(domain.RoleChromosome) || role == "chromosome" {
		seq.Role = domain.RoleChromosome
	} else {
		seq.Role = domain.RoleScaffold
	}
	if raw := field("sequence-length"); raw != "" {
		length, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad sequence length %q: %w", raw, err)
		}
		seq.Length = length
	}
	return seq, nil
}
