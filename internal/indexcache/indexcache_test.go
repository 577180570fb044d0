package indexcache

import (
	"testing"

	"github.com/glycovedic/glycosearch/pkg/types"
)

func TestLocalFallbackRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := New("", "", 0, dir)

	key := Key{ProteinDigest: "abc", GlycanDigest: "def", Enzyme: "trypsin", MissedCleav: 2, MinLength: 6, MaxLength: 40}

	if _, _, ok := c.Load(key); ok {
		t.Fatal("expected a miss before any Store")
	}

	peptides := []types.Peptide{{Sequence: "NGT", Sequons: []int{0}}}
	glycans := []types.Glycan{{Composition: "H5N2", H: 5, N: 2}}

	if err := c.Store(key, peptides, glycans); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	gotPeptides, gotGlycans, ok := c.Load(key)
	if !ok {
		t.Fatal("expected a hit after Store")
	}
	if len(gotPeptides) != 1 || gotPeptides[0].Sequence != "NGT" {
		t.Errorf("unexpected peptides round-trip: %+v", gotPeptides)
	}
	if len(gotGlycans) != 1 || gotGlycans[0].Composition != "H5N2" {
		t.Errorf("unexpected glycans round-trip: %+v", gotGlycans)
	}
}

func TestKeyStringIsStableAndDistinct(t *testing.T) {
	k1 := Key{ProteinDigest: "a", GlycanDigest: "b", Enzyme: "trypsin", MissedCleav: 2, MinLength: 6, MaxLength: 40}
	k2 := k1
	k2.Enzyme = "chymotrypsin"

	if k1.String() != k1.String() {
		t.Error("Key.String() must be deterministic")
	}
	if k1.String() == k2.String() {
		t.Error("distinct keys must not collide")
	}
}
