// Package peptide digests protein sequences into peptides under a
// configurable cleavage rule, annotating each with its N-linked sequon
// positions.
package peptide

import (
	"fmt"

	serr "github.com/glycovedic/glycosearch/internal/errors"
	"github.com/glycovedic/glycosearch/internal/massmodel"
	"github.com/glycovedic/glycosearch/pkg/types"
)

// Options configures a digestion run.
type Options struct {
	Enzyme          Enzyme
	MissedCleavages int
	MinLength       int
	MaxLength       int
}

// Digest produces every peptide span of protein.Sequence permitted by
// opts, each with its mass and sequon positions filled in. A span with
// no sequon is still returned; callers that only want sequon-bearing
// peptides filter on len(p.Sequons) > 0.
func Digest(protein types.Protein, opts Options) ([]types.Peptide, *serr.SearchError) {
	rule, err := RuleFor(opts.Enzyme)
	if err != nil {
		return nil, err
	}

	seq := protein.Sequence
	for i := 0; i < len(seq); i++ {
		if !massmodel.IsValidResidue(seq[i]) {
			return nil, serr.New(serr.ErrInvalidSequence, serr.SeverityWarning,
				fmt.Sprintf("protein %s: invalid residue %q at position %d", protein.ID, seq[i], i+1)).
				WithMetadata("protein_id", protein.ID).
				WithMetadata("position", i+1)
		}
	}

	points := cleavagePoints(seq, rule)

	var peptides []types.Peptide
	for i := 0; i < len(points)-1; i++ {
		for k := 0; k <= opts.MissedCleavages && i+k+1 < len(points); k++ {
			start := points[i]
			end := points[i+k+1]
			length := end - start
			if length < opts.MinLength || length > opts.MaxLength {
				continue
			}
			span := seq[start:end]
			peptides = append(peptides, types.Peptide{
				Sequence:        span,
				ProteinID:       protein.ID,
				Start:           start + 1,
				End:             end,
				MissedCleavages: k,
				Mass:            massmodel.PeptideMass(span),
				Sequons:         sequonPositions(span),
			})
		}
	}
	return peptides, nil
}

// cleavagePoints returns the ordered cut positions in seq (0-based,
// cutting immediately after the index), bracketed by 0 and len(seq).
func cleavagePoints(seq string, rule cleavageRule) []int {
	points := []int{0}
	for i := 0; i < len(seq); i++ {
		if rule.cleaves(seq, i) {
			points = append(points, i+1)
		}
	}
	if points[len(points)-1] != len(seq) {
		points = append(points, len(seq))
	}
	return points
}

// sequonPositions returns the 1-based positions of every N beginning
// an N-X-S/T sequon (X != P) within seq.
func sequonPositions(seq string) []int {
	var positions []int
	for i := 0; i+2 < len(seq); i++ {
		if seq[i] != 'N' {
			continue
		}
		if seq[i+1] == 'P' {
			continue
		}
		if seq[i+2] == 'S' || seq[i+2] == 'T' {
			positions = append(positions, i+1)
		}
	}
	return positions
}
