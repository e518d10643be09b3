package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gavelhq/gavel/internal/logging"
	"github.com/gavelhq/gavel/internal/model"
)

const (
	contentPrefix   = "review:cache:"
	duplicatePrefix = "review:dedup:"
	historyPrefix   = "review:history:"

	// DefaultReviewTTL bounds how long completed results replay from cache.
	DefaultReviewTTL = 7 * 24 * time.Hour
	// DefaultHistoryTTL bounds the historical findings ledger.
	DefaultHistoryTTL = 30 * 24 * time.Hour
)

// KV is the narrow durable-store contract the cache depends on.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// ReviewCache stores completed review results across three keyspaces.
type ReviewCache struct {
	kv         KV
	reviewTTL  time.Duration
	historyTTL time.Duration
	log        zerolog.Logger
}

// New creates a ReviewCache on the given store. A nil kv yields a cache
// that always misses.
func New(kv KV, reviewTTL, historyTTL time.Duration) *ReviewCache {
	if reviewTTL <= 0 {
		reviewTTL = DefaultReviewTTL
	}
	if historyTTL <= 0 {
		historyTTL = DefaultHistoryTTL
	}
	return &ReviewCache{
		kv:         kv,
		reviewTTL:  reviewTTL,
		historyTTL: historyTTL,
		log:        logging.Component("cache"),
	}
}

// HashKey hashes the colon-joined parts and returns the first 16 hex chars.
func HashKey(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%x", h)[:16]
}

// contentKey addresses a result by the exact commit reviewed.
func contentKey(project, commit, targetBranch, mode, taskKey string) string {
	parts := []string{project, commit, targetBranch, mode}
	if taskKey != "" {
		parts = append(parts, taskKey)
	}
	return contentPrefix + HashKey(parts...)
}

// duplicateKey is commit-agnostic so that re-submitting the same branch/task
// pair short-circuits to the last result. It also omits the review mode;
// callers must verify the returned result's mode before trusting the hit.
func duplicateKey(project, sourceBranch, targetBranch, taskKey string) string {
	parts := []string{project, sourceBranch, targetBranch}
	if taskKey != "" {
		parts = append(parts, taskKey)
	}
	return duplicatePrefix + HashKey(parts...)
}

// historyKey is commit- and source-branch-agnostic.
func historyKey(project, targetBranch, taskKey string) string {
	parts := []string{project, targetBranch}
	if taskKey != "" {
		parts = append(parts, taskKey)
	}
	return historyPrefix + HashKey(parts...)
}

// GetContentAddressed returns the cached result for an exact commit, or
// (nil, false) on miss or store failure.
func (c *ReviewCache) GetContentAddressed(ctx context.Context, project, commit, targetBranch, mode, taskKey string) (*model.ReviewResult, bool) {
	return c.getResult(ctx, contentKey(project, commit, targetBranch, mode, taskKey))
}

// PutContentAddressed stores a result under the commit-addressed key.
func (c *ReviewCache) PutContentAddressed(ctx context.Context, project, commit, targetBranch, mode, taskKey string, result *model.ReviewResult) {
	c.putResult(ctx, contentKey(project, commit, targetBranch, mode, taskKey), result, c.reviewTTL)
}

// GetDuplicate returns the last result for the branch/task pair. The key
// omits review mode, so callers must check result.Mode before using the hit.
func (c *ReviewCache) GetDuplicate(ctx context.Context, project, sourceBranch, targetBranch, taskKey string) (*model.ReviewResult, bool) {
	return c.getResult(ctx, duplicateKey(project, sourceBranch, targetBranch, taskKey))
}

// PutDuplicate unconditionally overwrites the branch/task entry and resets
// its TTL.
func (c *ReviewCache) PutDuplicate(ctx context.Context, project, sourceBranch, targetBranch, taskKey string, result *model.ReviewResult) {
	c.putResult(ctx, duplicateKey(project, sourceBranch, targetBranch, taskKey), result, c.reviewTTL)
}

// GetHistorical returns prior findings grouped by filename. Misses and store
// failures both return an empty map.
func (c *ReviewCache) GetHistorical(ctx context.Context, project, targetBranch, taskKey string) map[string][]model.HistoricalFinding {
	out := map[string][]model.HistoricalFinding{}
	if c.kv == nil {
		return out
	}
	data, err := c.kv.Get(ctx, historyKey(project, targetBranch, taskKey))
	if err != nil {
		return out
	}
	if err := json.Unmarshal(data, &out); err != nil {
		c.log.Warn().Err(err).Msg("discarding undecodable historical ledger entry")
		return map[string][]model.HistoricalFinding{}
	}
	return out
}

// SaveHistorical groups findings by filename, reduces each to its ledger
// shape, and replaces the stored map for the key. Replacement, not merge:
// findings for files absent from this save are dropped.
func (c *ReviewCache) SaveHistorical(ctx context.Context, project, targetBranch, taskKey string, findings []model.Finding) {
	if c.kv == nil {
		return
	}
	grouped := map[string][]model.HistoricalFinding{}
	for _, f := range findings {
		if f.File == "" {
			continue
		}
		grouped[f.File] = append(grouped[f.File], model.Reduce(f))
	}
	data, err := json.Marshal(grouped)
	if err != nil {
		c.log.Warn().Err(err).Msg("encoding historical ledger entry")
		return
	}
	key := historyKey(project, targetBranch, taskKey)
	if err := c.kv.SetTTL(ctx, key, data, c.historyTTL); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("historical ledger write failed")
	}
}

// HealthCheck reports whether the backing store is reachable.
func (c *ReviewCache) HealthCheck(ctx context.Context) bool {
	if c.kv == nil {
		return false
	}
	return c.kv.Ping(ctx) == nil
}

func (c *ReviewCache) getResult(ctx context.Context, key string) (*model.ReviewResult, bool) {
	if c.kv == nil {
		return nil, false
	}
	data, err := c.kv.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	var result model.ReviewResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		_ = c.kv.Delete(ctx, key)
		return nil, false
	}
	return &result, true
}

func (c *ReviewCache) putResult(ctx context.Context, key string, result *model.ReviewResult, ttl time.Duration) {
	if c.kv == nil || result == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		c.log.Warn().Err(err).Msg("encoding cache entry")
		return
	}
	if err := c.kv.SetTTL(ctx, key, data, ttl); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
