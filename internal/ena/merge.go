package ena

import "contigalias/pkg/domain"

// MergeSequenceNames reconciles the archive's sequence list (source) with an
// existing assembly's list (target), keyed by INSDC accession. Matched target
// entities receive the source's archive name in place (overwrite semantics:
// the archive value always wins once merge runs). Unmatched source entities
// are appended. The returned slice is the authoritative reconciled collection:
// target order first, then appended entries in source order. Duplicate target
// accessions keep the last registered entity for lookups.
func MergeSequenceNames(source, target []*domain.Sequence) []*domain.Sequence {
	byAccession := make(map[string]*domain.Sequence, len(target))
	for _, seq := range target {
		byAccession[seq.InsdcAccession] = seq
	}

	merged := make([]*domain.Sequence, len(target), len(target)+len(source))
	copy(merged, target)

	for _, src := range source {
		if matched, ok := byAccession[src.InsdcAccession]; ok {
			if src.ENAName != nil {
				name := *src.ENAName
				matched.ENAName = &name
			} else {
				matched.ENAName = nil
			}
			continue
		}
		byAccession[src.InsdcAccession] = src
		merged = append(merged, src)
	}
	return merged
}
