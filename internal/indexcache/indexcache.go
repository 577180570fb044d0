// Package indexcache persists a built candidate index as an opaque
// binary blob (spec.md §6: "the cache is an opaque binary blob and is
// not part of the contract"), preferring Redis and falling back to a
// local file when Redis is unreachable, mirroring the teacher's
// collab.SessionManager Redis-with-fallback pattern.
package indexcache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/glycovedic/glycosearch/internal/memory"
	"github.com/glycovedic/glycosearch/pkg/types"
)

var logger = log.New(os.Stderr, "[CACHE] ", log.LstdFlags)

const redisKeyPrefix = "glycosearch:index:"

// defaultTTL bounds how long a cached index is trusted before a
// rebuild is forced, in case the upstream glycan/protein sources
// changed without the cache key noticing (the key already covers the
// inputs that matter; this is a belt-and-suspenders expiry).
const defaultTTL = 7 * 24 * time.Hour

// Key derives the cache key spec.md §6 names: a digest of the protein
// source, the glycan catalog, and every digestion parameter that
// changes the candidate set.
type Key struct {
	ProteinDigest string
	GlycanDigest  string
	Enzyme        string
	MissedCleav   int
	MinLength     int
	MaxLength     int
}

// String renders the key as a single cache key string.
func (k Key) String() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%d|%d|%d", k.ProteinDigest, k.GlycanDigest, k.Enzyme, k.MissedCleav, k.MinLength, k.MaxLength)
	return redisKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// entry is the gob-encoded payload: the peptide/glycan records needed
// to rebuild a candidateindex.Index without re-digesting or re-parsing
// anything (the index itself, being built of pointers into those
// slices, is not gob-encodable directly).
type entry struct {
	Peptides []types.Peptide
	Glycans  []types.Glycan
}

// Cache stores and retrieves digested peptide/glycan sets keyed by
// Key. Falls back to a local file under dir when Redis is unreachable
// or unconfigured, exactly as SessionManager falls back to
// in-memory-only session storage.
type Cache struct {
	redis    *redis.Client
	ctx      context.Context
	useRedis bool
	dir      string
	buffers  *memory.ByteBufferPool
}

// New creates a cache. If redisAddr is empty, or the Redis ping fails,
// the cache silently falls back to local files under dir.
func New(redisAddr, redisPassword string, redisDB int, dir string) *Cache {
	c := &Cache{ctx: context.Background(), dir: dir, buffers: memory.NewByteBufferPool()}

	if redisAddr == "" {
		logger.Println("Redis not configured, using local file cache")
		return c
	}

	c.redis = redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})
	if err := c.redis.Ping(c.ctx).Err(); err != nil {
		logger.Printf("Redis connection failed: %v (falling back to local file cache)", err)
		c.redis = nil
		return c
	}
	logger.Printf("connected to Redis at %s", redisAddr)
	c.useRedis = true
	return c
}

// Load returns the cached (peptides, glycans) for key, or ok=false if
// nothing is cached (or the cache entry fails to decode, which is
// treated as a miss rather than an error — a stale/corrupt cache
// should never abort a run).
func (c *Cache) Load(key Key) (peptides []types.Peptide, glycans []types.Glycan, ok bool) {
	var data []byte
	var err error

	if c.useRedis {
		data, err = c.redis.Get(c.ctx, key.String()).Bytes()
	} else {
		data, err = os.ReadFile(c.localPath(key))
	}
	if err != nil {
		return nil, nil, false
	}

	var e entry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&e); err != nil {
		logger.Printf("cache entry failed to decode, treating as a miss: %v", err)
		return nil, nil, false
	}
	return e.Peptides, e.Glycans, true
}

// Store persists peptides and glycans under key.
func (c *Cache) Store(key Key, peptides []types.Peptide, glycans []types.Glycan) error {
	buf := c.buffers.Get()
	defer c.buffers.Put(buf)

	if err := gob.NewEncoder(buf).Encode(entry{Peptides: peptides, Glycans: glycans}); err != nil {
		return fmt.Errorf("indexcache: encode failed: %w", err)
	}

	if c.useRedis {
		if err := c.redis.Set(c.ctx, key.String(), buf.Bytes(), defaultTTL).Err(); err != nil {
			return fmt.Errorf("indexcache: redis set failed: %w", err)
		}
		return nil
	}

	if c.dir == "" {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("indexcache: mkdir failed: %w", err)
	}
	if err := os.WriteFile(c.localPath(key), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("indexcache: write failed: %w", err)
	}
	return nil
}

func (c *Cache) localPath(key Key) string {
	return filepath.Join(c.dir, key.String()+".gob")
}

// Close releases the Redis connection, if one was opened.
func (c *Cache) Close() error {
	if c.useRedis && c.redis != nil {
		return c.redis.Close()
	}
	return nil
}
