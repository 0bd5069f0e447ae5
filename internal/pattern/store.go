// Package pattern persists the learned-pattern knowledge base: normalized
// question text mapped to an intent plus the answer phrasings observed for
// it. The store only grows; variants accumulate and are never pruned.
package pattern

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"formpilot/internal/logging"
	"formpilot/internal/scan"
)

// Source tags where a pattern came from.
const (
	SourceAI     = "ai"
	SourceManual = "manual"
)

// AnswerMapping records one canonical value and the accepted phrasings
// ("variants") observed for it, tagged with the option vocabulary that was
// in play when each site accepted them.
type AnswerMapping struct {
	CanonicalValue string   `json:"canonicalValue"`
	Variants       []string `json:"variants"`
	ContextOptions []string `json:"contextOptions,omitempty"`
}

// LearnedPattern is one persistent unit of the knowledge base. At most one
// exists per (intent, question pattern) pair; new observations merge into
// it rather than duplicating.
type LearnedPattern struct {
	ID              int64           `json:"id"`
	QuestionPattern string          `json:"questionPattern"` // normalized question text
	Intent          string          `json:"intent"`
	AnswerMappings  []AnswerMapping `json:"answerMappings"`
	Confidence      float64         `json:"confidence"`
	UsageCount      int             `json:"usageCount"`
	Source          string          `json:"source"`
	CreatedAt       time.Time       `json:"createdAt"`
	LastUsed        time.Time       `json:"lastUsed,omitempty"`
}

// Observation is one (question, answer) sighting to learn from.
type Observation struct {
	QuestionText   string // raw question text; normalized internally
	Intent         string
	CanonicalValue string   // the profile-side value this answer stands for
	Variant        string   // the phrasing the site accepted
	Options        []string // the option vocabulary in play, if any
	Confidence     float64
	Source         string // SourceAI or SourceManual
}

// Store is the local pattern store, backed by SQLite. The learning step
// performs read-modify-write without cross-request locking beyond the
// store mutex; merges are idempotent and commutative (variant-set union
// keyed by canonical value), so ordering between concurrent AI responses
// does not matter.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// NewStore creates or opens the pattern store, initializing the schema.
func NewStore(dbPath string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "pattern.NewStore")
	defer timer.Stop()

	if dbPath == "" {
		return nil, fmt.Errorf("database path required")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify database connection: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Store("Pattern store initialized at %s", dbPath)
	return s, nil
}

func (s *Store) initializeSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS learned_patterns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		intent TEXT NOT NULL,
		question_pattern TEXT NOT NULL,
		answer_mappings TEXT NOT NULL,
		confidence REAL DEFAULT 0.9,
		usage_count INTEGER DEFAULT 0,
		source TEXT DEFAULT 'ai',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_used DATETIME,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(intent, question_pattern)
	);
	CREATE INDEX IF NOT EXISTS idx_patterns_question ON learned_patterns(question_pattern);
	CREATE INDEX IF NOT EXISTS idx_patterns_intent ON learned_patterns(intent);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create patterns table: %w", err)
	}
	return nil
}

// Observe merges one observation into the store. Repeating the same
// observation is a no-op beyond a timestamp touch: variants union by
// canonical value, context options union as a set.
func (s *Store) Observe(ctx context.Context, obs Observation) error {
	timer := logging.StartTimer(logging.CategoryStore, "pattern.Store.Observe")
	defer timer.Stop()

	if obs.Intent == "" {
		return fmt.Errorf("intent required")
	}
	normalized := scan.Normalize(obs.QuestionText)
	if normalized == "" {
		return fmt.Errorf("question text required")
	}
	if obs.Source == "" {
		obs.Source = SourceAI
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.findExactLocked(ctx, obs.Intent, normalized)
	if err != nil {
		return err
	}

	if existing == nil {
		mappings := []AnswerMapping{mappingFrom(obs)}
		data, err := json.Marshal(mappings)
		if err != nil {
			return fmt.Errorf("failed to marshal answer mappings: %w", err)
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO learned_patterns (intent, question_pattern, answer_mappings, confidence, source)
			VALUES (?, ?, ?, ?, ?)
		`, obs.Intent, normalized, string(data), obs.Confidence, obs.Source)
		if err != nil {
			return fmt.Errorf("failed to insert pattern: %w", err)
		}
		logging.Store("Learned new pattern: intent=%s pattern=%q", obs.Intent, normalized)
		return nil
	}

	merged := mergeMapping(existing.AnswerMappings, obs)
	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to marshal answer mappings: %w", err)
	}

	confidence := existing.Confidence
	if obs.Confidence > confidence {
		confidence = obs.Confidence
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE learned_patterns
		SET answer_mappings = ?, confidence = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, string(data), confidence, existing.ID)
	if err != nil {
		return fmt.Errorf("failed to update pattern: %w", err)
	}
	logging.StoreDebug("Merged observation into pattern %d (intent=%s)", existing.ID, obs.Intent)
	return nil
}

func mappingFrom(obs Observation) AnswerMapping {
	m := AnswerMapping{CanonicalValue: obs.CanonicalValue}
	if obs.Variant != "" {
		m.Variants = []string{obs.Variant}
	}
	m.ContextOptions = unionStrings(nil, obs.Options)
	return m
}

// mergeMapping unions the observation into the mapping list keyed by
// canonical value. Variant sets only grow.
func mergeMapping(mappings []AnswerMapping, obs Observation) []AnswerMapping {
	for i := range mappings {
		if strings.EqualFold(mappings[i].CanonicalValue, obs.CanonicalValue) {
			if obs.Variant != "" {
				mappings[i].Variants = unionStrings(mappings[i].Variants, []string{obs.Variant})
			}
			mappings[i].ContextOptions = unionStrings(mappings[i].ContextOptions, obs.Options)
			return mappings
		}
	}
	return append(mappings, mappingFrom(obs))
}

// unionStrings appends additions not already present (case-insensitive),
// preserving first-seen order.
func unionStrings(base, additions []string) []string {
	seen := make(map[string]bool, len(base))
	for _, v := range base {
		seen[strings.ToLower(v)] = true
	}
	for _, v := range additions {
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		base = append(base, v)
	}
	return base
}

// Match is a lookup hit with the similarity that produced it.
type Match struct {
	Pattern    LearnedPattern
	Similarity float64 // 1.0 for exact normalized-text match
}

// FindMatch looks up the pattern whose question text exactly matches or
// has at least minOverlap token overlap with the incoming question. The
// best-overlapping entry wins.
func (s *Store) FindMatch(ctx context.Context, questionText string, minOverlap float64) (*Match, error) {
	timer := logging.StartTimer(logging.CategoryStore, "pattern.Store.FindMatch")
	defer timer.Stop()

	normalized := scan.Normalize(questionText)
	if normalized == "" {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Exact match first.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, intent, question_pattern, answer_mappings, confidence, usage_count, source, created_at, last_used
		FROM learned_patterns
		WHERE question_pattern = ?
		ORDER BY confidence DESC, usage_count DESC
		LIMIT 1
	`, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	exact, err := scanPatterns(rows)
	if err != nil {
		return nil, err
	}
	if len(exact) > 0 {
		return &Match{Pattern: exact[0], Similarity: 1.0}, nil
	}

	// Token-overlap scan. The store is local and modest in size, so a
	// full scan is fine.
	rows, err = s.db.QueryContext(ctx, `
		SELECT id, intent, question_pattern, answer_mappings, confidence, usage_count, source, created_at, last_used
		FROM learned_patterns
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	all, err := scanPatterns(rows)
	if err != nil {
		return nil, err
	}

	var best *Match
	for i := range all {
		overlap := scan.TokenOverlap(normalized, all[i].QuestionPattern)
		if overlap < minOverlap {
			continue
		}
		if best == nil || overlap > best.Similarity {
			best = &Match{Pattern: all[i], Similarity: overlap}
		}
	}
	return best, nil
}

// Touch records a successful use of a pattern.
func (s *Store) Touch(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		UPDATE learned_patterns
		SET usage_count = usage_count + 1, last_used = CURRENT_TIMESTAMP
		WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to touch pattern: %w", err)
	}
	return nil
}

// All returns every stored pattern, most confident first.
func (s *Store) All(ctx context.Context) ([]LearnedPattern, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, intent, question_pattern, answer_mappings, confidence, usage_count, source, created_at, last_used
		FROM learned_patterns
		ORDER BY confidence DESC, usage_count DESC, created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	return scanPatterns(rows)
}

// Stats returns summary statistics about the knowledge base.
func (s *Store) Stats(ctx context.Context) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make(map[string]interface{})

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM learned_patterns").Scan(&total); err == nil {
		stats["total_patterns"] = total
	}

	var avgConfidence float64
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(AVG(confidence), 0) FROM learned_patterns").Scan(&avgConfidence); err == nil {
		stats["avg_confidence"] = avgConfidence
	}

	intentRows, err := s.db.QueryContext(ctx, "SELECT intent, COUNT(*) FROM learned_patterns GROUP BY intent ORDER BY COUNT(*) DESC")
	if err == nil {
		intents := make(map[string]int64)
		for intentRows.Next() {
			var intent string
			var count int64
			if err := intentRows.Scan(&intent, &count); err == nil {
				intents[intent] = count
			}
		}
		intentRows.Close()
		stats["by_intent"] = intents
	}

	stats["db_path"] = s.dbPath
	return stats, nil
}

// findExactLocked fetches the single (intent, pattern) row. Caller holds
// the mutex.
func (s *Store) findExactLocked(ctx context.Context, intent, normalized string) (*LearnedPattern, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, intent, question_pattern, answer_mappings, confidence, usage_count, source, created_at, last_used
		FROM learned_patterns
		WHERE intent = ? AND question_pattern = ?
	`, intent, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to query pattern: %w", err)
	}
	found, err := scanPatterns(rows)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func scanPatterns(rows *sql.Rows) ([]LearnedPattern, error) {
	defer rows.Close()

	var patterns []LearnedPattern
	for rows.Next() {
		var p LearnedPattern
		var mappingsJSON string
		var createdAt time.Time
		var lastUsed sql.NullTime // NULL until the first Touch
		if err := rows.Scan(&p.ID, &p.Intent, &p.QuestionPattern, &mappingsJSON, &p.Confidence, &p.UsageCount, &p.Source, &createdAt, &lastUsed); err != nil {
			logging.StoreWarn("Failed to scan pattern row: %v", err)
			continue
		}
		if err := json.Unmarshal([]byte(mappingsJSON), &p.AnswerMappings); err != nil {
			logging.StoreWarn("Corrupt answer mappings for pattern %d: %v", p.ID, err)
			continue
		}
		p.CreatedAt = createdAt
		if lastUsed.Valid {
			p.LastUsed = lastUsed.Time
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return err
		}
		s.db = nil
	}
	return nil
}
