package peptide

import serr "github.com/glycovedic/glycosearch/internal/errors"

// Enzyme names a recognized cleavage rule.
type Enzyme string

const (
	Trypsin       Enzyme = "trypsin"
	Chymotrypsin  Enzyme = "chymotrypsin"
	Pepsin        Enzyme = "pepsin"
	LysC          Enzyme = "lysc"
	ArgC          Enzyme = "argc"
	GluC          Enzyme = "gluc"
)

// cleavageRule is a set of cleavage residues plus an optional
// C-terminal blocking residue (proline for trypsin).
type cleavageRule struct {
	after   map[byte]bool
	blocker byte // 0 means no blocker
}

// RuleFor returns the cleavage rule for a named enzyme, or an error if
// the name is not recognized.
func RuleFor(e Enzyme) (cleavageRule, *serr.SearchError) {
	switch e {
	case Trypsin:
		return cleavageRule{after: set('K', 'R'), blocker: 'P'}, nil
	case Chymotrypsin:
		return cleavageRule{after: set('F', 'W', 'Y')}, nil
	case Pepsin:
		return cleavageRule{after: set('F', 'L')}, nil
	case LysC:
		return cleavageRule{after: set('K')}, nil
	case ArgC:
		return cleavageRule{after: set('R')}, nil
	case GluC:
		return cleavageRule{after: set('D', 'E')}, nil
	default:
		return cleavageRule{}, serr.New(serr.ErrUnknownEnzyme, serr.SeverityFatal,
			"unrecognized enzyme: "+string(e))
	}
}

func set(residues ...byte) map[byte]bool {
	m := make(map[byte]bool, len(residues))
	for _, r := range residues {
		m[r] = true
	}
	return m
}

// cleaves reports whether the rule cuts after residue at index i of
// seq (cutting between i and i+1).
func (r cleavageRule) cleaves(seq string, i int) bool {
	if !r.after[seq[i]] {
		return false
	}
	if r.blocker != 0 && i+1 < len(seq) && seq[i+1] == r.blocker {
		return false
	}
	return true
}
