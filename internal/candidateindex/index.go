// Package candidateindex builds the sorted mass index over the
// Cartesian product of sequon-bearing peptides and glycans, and
// answers precursor-mass-window queries against it in O(log n + k).
package candidateindex

import (
	"sort"

	serr "github.com/glycovedic/glycosearch/internal/errors"
	"github.com/glycovedic/glycosearch/internal/massmodel"
	"github.com/glycovedic/glycosearch/pkg/types"
)

// Index is an immutable, mass-sorted array of candidates. Safe for
// concurrent queries from multiple goroutines once built.
type Index struct {
	records []types.Candidate
}

// Build constructs the index from every peptide carrying at least one
// sequon crossed with every glycan. Peptides with no sequon are
// dropped here (spec.md §3 invariant 1, §4.4). Equal masses retain
// their Cartesian-product insertion order (peptide-major, glycan-minor)
// via a stable sort.
func Build(peptides []types.Peptide, glycans []types.Glycan) *Index {
	var records []types.Candidate
	for pi := range peptides {
		p := &peptides[pi]
		if len(p.Sequons) == 0 {
			continue
		}
		for gi := range glycans {
			g := &glycans[gi]
			records = append(records, types.Candidate{
				NeutralMass: p.Mass + g.Mass,
				Peptide:     p,
				Glycan:      g,
			})
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].NeutralMass < records[j].NeutralMass
	})
	return &Index{records: records}
}

// Len reports the number of candidates held by the index.
func (idx *Index) Len() int { return len(idx.records) }

// All returns every candidate in mass-sorted order. Callers must not
// mutate the returned slice's elements' Peptide/Glycan pointees.
func (idx *Index) All() []types.Candidate { return idx.records }

// Match is a candidate annotated with its signed ppm error against a
// particular query mass.
type Match struct {
	Candidate *types.Candidate
	PPMError  float64
}

// Query returns every candidate whose neutral mass falls within
// tolPPM of the neutral mass implied by (mz, charge). charge must be
// >= 1; the orchestrator is responsible for expanding a query over
// several assumed charges when the spectrum's charge is unknown
// (spec.md §4.4).
func (idx *Index) Query(mz float64, charge int, tolPPM float64) []Match {
	if charge < 1 || len(idx.records) == 0 {
		return nil
	}
	m := massmodel.NeutralMassFromMZ(mz, charge)
	w := m * tolPPM * 1e-6
	lo, hi := m-w, m+w

	start := sort.Search(len(idx.records), func(i int) bool {
		return idx.records[i].NeutralMass >= lo
	})
	end := sort.Search(len(idx.records), func(i int) bool {
		return idx.records[i].NeutralMass > hi
	})
	if start >= end {
		return nil
	}

	matches := make([]Match, 0, end-start)
	for i := start; i < end; i++ {
		matches = append(matches, Match{
			Candidate: &idx.records[i],
			PPMError:  massmodel.PPMError(idx.records[i].NeutralMass, m),
		})
	}
	return matches
}

// ErrEmpty returns EmptyIndexError if idx has no candidates, the
// fatal condition spec.md §7 requires at search start.
func (idx *Index) ErrEmpty() *serr.SearchError {
	if idx.Len() > 0 {
		return nil
	}
	return serr.New(serr.ErrEmptyIndex, serr.SeverityFatal,
		"candidate index is empty: no sequon-bearing peptides or no glycans")
}
