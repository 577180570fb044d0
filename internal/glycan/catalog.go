// Package glycan parses glycan composition strings of the form
// H#N#F#A# into counted compositions, computes their monoisotopic
// mass, and classifies them into structural families.
package glycan

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	serr "github.com/glycovedic/glycosearch/internal/errors"
	"github.com/glycovedic/glycosearch/internal/massmodel"
	"github.com/glycovedic/glycosearch/pkg/types"
)

// compositionPattern matches one or more (letter, digits) tokens drawn
// from {H, N, F, A}; case sensitive per spec.md §4.3.
var compositionPattern = regexp.MustCompile(`^([HNFA][0-9]+)+$`)
var tokenPattern = regexp.MustCompile(`([HNFA])([0-9]+)`)

// Parse parses a single composition string (e.g. "H5N4F1A2") into a
// Glycan with its mass and class filled in. A string that does not
// match the composition grammar returns InvalidCompositionError.
func Parse(composition string) (types.Glycan, *serr.SearchError) {
	if composition == "" || !compositionPattern.MatchString(composition) {
		return types.Glycan{}, serr.New(serr.ErrInvalidComposition, serr.SeverityWarning,
			fmt.Sprintf("malformed glycan composition: %q", composition)).
			WithMetadata("composition", composition)
	}

	counts := map[byte]int{}
	for _, m := range tokenPattern.FindAllStringSubmatch(composition, -1) {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return types.Glycan{}, serr.Wrap(serr.ErrInvalidComposition, serr.SeverityWarning,
				fmt.Sprintf("invalid count in composition %q", composition), err)
		}
		counts[m[1][0]] += n
	}

	g := types.Glycan{
		Composition: composition,
		H:           counts['H'],
		N:           counts['N'],
		F:           counts['F'],
		A:           counts['A'],
	}
	g.Mass = massmodel.GlycanMass(g.H, g.N, g.F, g.A)
	g.Class = Classify(g.H, g.N, g.F, g.A)
	return g, nil
}

// Classify partitions a composition into one of the five structural
// classes per spec.md §4.3. The rules are applied in order and
// partition the space: every composition matches exactly one class.
func Classify(h, n, f, a int) types.GlycanClass {
	switch {
	case h >= 5 && n == 2 && f == 0 && a == 0:
		return types.ClassHighMannose
	case a > 0 && f > 0:
		return types.ClassSialofucosylated
	case a > 0:
		return types.ClassSialylated
	case f > 0:
		return types.ClassFucosylated
	default:
		return types.ClassComplexHybrid
	}
}

// LoadReader parses a library from a UTF-8 text file: one composition
// per line, blank lines and '#' comments ignored, LF or CRLF line
// endings. Malformed lines are skipped and recorded in agg; the load
// fails (returns an error) only if no composition parses at all.
func LoadReader(r io.Reader, agg *serr.ErrorAggregator) ([]types.Glycan, error) {
	var glycans []types.Glycan
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(strings.TrimSpace(scanner.Text()), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		g, err := Parse(line)
		if err != nil {
			err.WithMetadata("line", lineNum)
			if agg != nil {
				agg.Add(err)
			}
			continue
		}
		glycans = append(glycans, g)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("glycan: scanner error: %w", err)
	}
	if len(glycans) == 0 {
		return nil, fmt.Errorf("glycan: no valid compositions parsed")
	}
	return glycans, nil
}

// defaultCompositions is the finite enumeration shipped with the
// engine, spanning all five structural classes. Callers that need a
// different catalog supply their own file to LoadReader.
var defaultCompositions = []string{
	"H5N2", "H6N2", "H7N2", "H8N2", "H9N2", // high-mannose
	"H3N4", "H4N4", "H5N4", "H3N5", "H4N5", "H5N5", // complex/hybrid
	"H3N4F1", "H4N4F1", "H5N4F1", "H4N5F1", // fucosylated
	"H4N4A1", "H5N4A1", "H4N4A2", "H5N4A2", // sialylated
	"H5N4F1A1", "H5N4F1A2", "H6N5F1A2", "H4N5F1A1", // sialofucosylated
}

// LoadDefault parses the built-in enumeration.
func LoadDefault() ([]types.Glycan, error) {
	return LoadReader(strings.NewReader(strings.Join(defaultCompositions, "\n")), nil)
}
