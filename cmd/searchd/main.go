// glycosearch search daemon
// Builds the candidate index from an embedded protein/glycan set,
// searches an embedded demonstration spectrum batch against it, and
// serves the run summary and live PSM feed over HTTP/WebSocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/glycovedic/glycosearch/internal/candidateindex"
	"github.com/glycovedic/glycosearch/internal/config"
	"github.com/glycovedic/glycosearch/internal/decoy"
	serr "github.com/glycovedic/glycosearch/internal/errors"
	"github.com/glycovedic/glycosearch/internal/glycan"
	"github.com/glycovedic/glycosearch/internal/indexcache"
	"github.com/glycovedic/glycosearch/internal/massmodel"
	"github.com/glycovedic/glycosearch/internal/peptide"
	"github.com/glycovedic/glycosearch/internal/reporting"
	"github.com/glycovedic/glycosearch/internal/search"
	"github.com/glycovedic/glycosearch/internal/spectrum"
	"github.com/glycovedic/glycosearch/internal/theoretical"
	"github.com/glycovedic/glycosearch/pkg/types"
)

const (
	defaultPort     = 8080
	defaultRedisAddr = ""
	defaultCacheDir  = "./searchd-cache"
)

// demoProteins stands in for a real protein source (spec.md §6: "an
// iterator of (id, description, sequence) triples ... provided by
// external collaborators"); the core never opens FASTA files itself.
var demoProteins = []types.Protein{
	{ID: "P00001", Sequence: "MKNGTDEKASLVVNGTSMFCR"},
	{ID: "P00002", Sequence: "MNITGQSVDVGHSNYSR"},
}

var demoGlycans = []string{"H5N2", "H5N4F1", "H3N4A2", "H6N2"}

func main() {
	port := flag.Int("port", defaultPort, "HTTP server port")
	redisAddr := flag.String("redis", defaultRedisAddr, "Redis address for the candidate-index cache (empty disables Redis)")
	redisPassword := flag.String("redis-password", "", "Redis password")
	redisDB := flag.Int("redis-db", 0, "Redis database number")
	cacheDir := flag.String("cache-dir", defaultCacheDir, "Local fallback directory for the candidate-index cache")
	flag.Parse()

	log.Println("==============================================")
	log.Println("  glycosearch search daemon")
	log.Println("==============================================")
	log.Printf("Port: %d", *port)
	log.Printf("Redis: %q", *redisAddr)
	log.Println("==============================================")

	cfg := config.Default()
	if verr := cfg.Validate(); verr != nil {
		log.Fatalf("invalid configuration: %v", verr)
	}

	agg := serr.NewErrorAggregator(&serr.SimpleLogger{})

	targetIdx, decoyIdx, err := buildIndexes(cfg, *redisAddr, *redisPassword, *redisDB, *cacheDir, agg)
	if err != nil {
		log.Fatalf("failed to build candidate index: %v", err)
	}

	hub := reporting.NewHub()
	reportServer := reporting.NewServer(hub)

	runID := "demo-run"
	orch := search.New(cfg, search.WithReporting(hub, runID))

	spectra := demoSpectra(targetIdx, cfg)
	out, runErr := orch.Run(context.Background(), spectra, targetIdx, decoyIdx, agg)
	if runErr != nil {
		log.Fatalf("search run failed: %v", runErr)
	}
	reportServer.RecordSummary(runID, out.Summary)
	log.Printf("demo run complete: %d PSMs emitted over %d spectra", len(out.PSMs), len(spectra))

	router := mux.NewRouter()
	reportServer.RegisterRoutes(router)

	addr := fmt.Sprintf(":%d", *port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("[SERVER] serving reporting endpoints on %s", addr)
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			log.Fatalf("[SERVER] failed to start: %v", serveErr)
		}
	}()

	log.Printf("[SERVER] summary:  http://localhost%s/api/v1/runs/%s/summary", addr, runID)
	log.Printf("[SERVER] skips:    http://localhost%s/api/v1/runs/%s/skips", addr, runID)
	log.Printf("[SERVER] stream:   ws://localhost%s/api/v1/runs/%s/stream", addr, runID)
	log.Println("[SERVER] press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("[SERVER] shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(ctx); shutdownErr != nil {
		log.Printf("[SERVER] shutdown error: %v", shutdownErr)
	}
}

// buildIndexes digests demoProteins, parses demoGlycans, and builds the
// target and decoy candidate indexes, consulting cache before
// re-digesting (spec.md §6's optional opaque-blob cache).
func buildIndexes(cfg config.SearchConfig, redisAddr, redisPassword string, redisDB int, cacheDir string, agg *serr.ErrorAggregator) (*candidateindex.Index, *candidateindex.Index, error) {
	cache := indexcache.New(redisAddr, redisPassword, redisDB, cacheDir)
	defer cache.Close()

	key := indexcache.Key{
		ProteinDigest: proteinDigest(demoProteins),
		GlycanDigest:  glycanDigest(demoGlycans),
		Enzyme:        string(cfg.Enzyme),
		MissedCleav:   cfg.MissedCleavages,
		MinLength:     cfg.MinPeptideLen,
		MaxLength:     cfg.MaxPeptideLen,
	}

	peptides, glycans, ok := cache.Load(key)
	if ok {
		log.Println("[CACHE] candidate set loaded from cache")
	} else {
		var err error
		peptides, glycans, err = digestAll(cfg, agg)
		if err != nil {
			return nil, nil, err
		}
		if storeErr := cache.Store(key, peptides, glycans); storeErr != nil {
			log.Printf("[CACHE] failed to persist candidate set: %v", storeErr)
		}
	}

	targetIdx := candidateindex.Build(peptides, glycans)
	decoyPeptides := decoy.GenerateAll(peptides)
	decoyIdx := candidateindex.Build(decoyPeptides, glycans)
	return targetIdx, decoyIdx, nil
}

func digestAll(cfg config.SearchConfig, agg *serr.ErrorAggregator) ([]types.Peptide, []types.Glycan, error) {
	var allPeptides []types.Peptide
	for _, p := range demoProteins {
		peptides, err := peptide.Digest(p, peptide.Options{
			Enzyme:          cfg.Enzyme,
			MissedCleavages: cfg.MissedCleavages,
			MinLength:       cfg.MinPeptideLen,
			MaxLength:       cfg.MaxPeptideLen,
		})
		if err != nil {
			agg.Add(err)
			continue
		}
		allPeptides = append(allPeptides, peptides...)
	}

	var glycans []types.Glycan
	for _, comp := range demoGlycans {
		g, err := glycan.Parse(comp)
		if err != nil {
			agg.Add(err)
			continue
		}
		glycans = append(glycans, g)
	}
	if len(glycans) == 0 {
		return nil, nil, fmt.Errorf("no glycans parsed")
	}
	return allPeptides, glycans, nil
}

func proteinDigest(proteins []types.Protein) string {
	s := ""
	for _, p := range proteins {
		s += p.ID + ":" + p.Sequence + "|"
	}
	return s
}

func glycanDigest(comps []string) string {
	s := ""
	for _, c := range comps {
		s += c + "|"
	}
	return s
}

// demoSpectra builds one synthetic MS/MS spectrum per target candidate
// from its own theoretical fragments, so the demo run always finds
// exactly what it went looking for.
func demoSpectra(targetIdx *candidateindex.Index, cfg config.SearchConfig) []types.Spectrum {
	grid := spectrum.Grid{BinWidth: cfg.BinWidth, MaxMZ: cfg.MaxMZ, Regions: cfg.Regions}
	const charge = 2

	candidates := targetIdx.All()
	spectra := make([]types.Spectrum, 0, len(candidates))
	for i := range candidates {
		candidate := &candidates[i]
		ts := theoretical.Build(*candidate, grid, cfg.MaxCharge)
		mzs := make([]float64, 0, len(ts.Peaks))
		intensities := make([]float64, 0, len(ts.Peaks))
		for _, peak := range ts.Peaks {
			mzs = append(mzs, peak.MZ)
			intensities = append(intensities, 100.0)
		}
		spectra = append(spectra, types.Spectrum{
			ScanID:           fmt.Sprintf("demo-%d", i),
			MSLevel:          2,
			PrecursorMZ:      massmodel.MZFromNeutralMass(candidate.NeutralMass, charge),
			PrecursorMZIsSet: true,
			PrecursorCharge:  charge,
			MZ:               mzs,
			Intensity:        intensities,
		})
	}
	return spectra
}
