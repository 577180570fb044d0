// Package decoy produces terminus-preserving reversed decoy peptides
// for the target-decoy FDR estimate in internal/fdr.
package decoy

import (
	"github.com/glycovedic/glycosearch/internal/massmodel"
	"github.com/glycovedic/glycosearch/pkg/types"
)

// decoyProteinPrefix marks a decoy's inherited protein id, per
// spec.md §4.9.
const decoyProteinPrefix = "DECOY_"

// Generate produces exactly one decoy for target: the first and last
// residues stay in place (preserving the enzymatic terminus), the
// interior is reversed. The decoy's sequon set is recomputed from its
// own sequence, never copied from the target (spec.md §4.9/§9's
// conservative, FDR-safe choice). isPalindrome reports whether the
// decoy sequence collapsed back to the target's — callers may choose
// to drop such decoys per spec.md §4.9.
func Generate(target types.Peptide) (decoyPeptide types.Peptide, isPalindrome bool) {
	seq := reverseInterior(target.Sequence)

	decoyPeptide = types.Peptide{
		Sequence:        seq,
		ProteinID:       decoyProteinPrefix + target.ProteinID,
		Start:           target.Start,
		End:             target.End,
		MissedCleavages: target.MissedCleavages,
		Mass:            massmodel.PeptideMass(seq),
		Sequons:         sequonPositions(seq),
		IsDecoy:         true,
	}
	return decoyPeptide, seq == target.Sequence
}

// reverseInterior keeps seq[0] and seq[len-1] fixed and reverses
// everything between them.
func reverseInterior(seq string) string {
	if len(seq) <= 2 {
		return seq
	}
	b := []byte(seq)
	i, j := 1, len(b)-2
	for i < j {
		b[i], b[j] = b[j], b[i]
		i++
		j--
	}
	return string(b)
}

// sequonPositions mirrors internal/peptide's rule for the N-X-S/T
// motif, duplicated here (rather than imported) because the decoy
// package must not depend on the digestion package's cleavage-rule
// machinery for a single three-line predicate.
func sequonPositions(seq string) []int {
	var positions []int
	for i := 0; i+2 < len(seq); i++ {
		if seq[i] != 'N' || seq[i+1] == 'P' {
			continue
		}
		if seq[i+2] == 'S' || seq[i+2] == 'T' {
			positions = append(positions, i+1)
		}
	}
	return positions
}

// GenerateAll produces one decoy per target peptide, dropping those
// whose decoy sequence collapses onto the target (palindromes), and
// keeping decoys whose sequons vanish out of scope of filtering —
// that filter (no sequons after reversal) is applied by the caller
// building the decoy candidate index, exactly as C4 does for targets.
func GenerateAll(targets []types.Peptide) []types.Peptide {
	decoys := make([]types.Peptide, 0, len(targets))
	for _, t := range targets {
		d, palindrome := Generate(t)
		if palindrome {
			continue
		}
		decoys = append(decoys, d)
	}
	return decoys
}
