package memory

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteMemory is the durable pattern store. Concurrent scene goroutines
// append and read; SQLite's single-writer pool serializes writes so a
// FixRecord can never be torn.
type SQLiteMemory struct {
	db *sql.DB
}

// NewSQLiteMemory opens (or creates) the store and runs migrations.
func NewSQLiteMemory(dbPath string) (*SQLiteMemory, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create memory db directory: %w", err)
	}

	// WAL mode for concurrent readers alongside the single writer
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer at a time
	db.SetMaxIdleConns(1)

	m := &SQLiteMemory{db: db}
	if err := m.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate memory db: %w", err)
	}
	return m, nil
}

// Close closes the database connection.
func (m *SQLiteMemory) Close() error {
	return m.db.Close()
}

func (m *SQLiteMemory) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS fix_records (
		id TEXT PRIMARY KEY,
		signature TEXT NOT NULL,
		error_snippet TEXT NOT NULL,
		original_code TEXT NOT NULL,
		fixed_code TEXT NOT NULL,
		topic TEXT,
		scene_type TEXT,
		tier INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_fix_signature ON fix_records(signature);
	CREATE INDEX IF NOT EXISTS idx_fix_topic_type ON fix_records(topic, scene_type);

	CREATE TABLE IF NOT EXISTS generation_records (
		id TEXT PRIMARY KEY,
		task TEXT NOT NULL,
		code TEXT NOT NULL,
		topic TEXT,
		scene_type TEXT,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_gen_topic_type ON generation_records(topic, scene_type);
	`
	_, err := m.db.Exec(schema)
	return err
}

// StoreFix persists a verified fix. The caller guarantees the render that used
// the fixed code succeeded; this method does not re-check.
func (m *SQLiteMemory) StoreFix(ctx context.Context, fix FixRecord) bool {
	if fix.ID == "" {
		fix.ID = uuid.NewString()
	}
	if fix.Signature == "" {
		fix.Signature = Signature(fix.ErrorSnippet, fix.OriginalCode)
	}
	if fix.CreatedAt.IsZero() {
		fix.CreatedAt = time.Now()
	}

	_, err := m.db.ExecContext(ctx,
		`INSERT INTO fix_records (id, signature, error_snippet, original_code, fixed_code, topic, scene_type, tier, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fix.ID, fix.Signature, truncate(fix.ErrorSnippet, 500), truncate(fix.OriginalCode, 2000),
		truncate(fix.FixedCode, 2000), fix.Topic, fix.SceneType, int(fix.Tier), fix.CreatedAt)
	if err != nil {
		log.Printf("Failed to store error-fix pattern: %v", err)
		return false
	}
	log.Printf("Stored error-fix pattern %s for topic %q (tier %s)", fix.Signature, fix.Topic, fix.Tier)
	return true
}

// SearchSimilarFixes returns fixes for structurally similar errors: exact
// signature matches first, then topic/scene-type scoped candidates ranked by
// term similarity over the normalized error text.
func (m *SQLiteMemory) SearchSimilarFixes(ctx context.Context, errorMessage, codeExcerpt, topic, sceneType string, limit int) []FixRecord {
	if limit <= 0 {
		limit = 5
	}
	signature := Signature(errorMessage, codeExcerpt)

	exact, err := m.queryFixes(ctx,
		`SELECT id, signature, error_snippet, original_code, fixed_code, topic, scene_type, tier, created_at
		 FROM fix_records WHERE signature = ? ORDER BY created_at DESC LIMIT ?`, signature, limit)
	if err != nil {
		log.Printf("Failed to search for similar fixes: %v", err)
		return nil
	}
	if len(exact) >= limit {
		return exact[:limit]
	}

	// Widen to the same topic/scene-type bucket and rank by error similarity.
	candidates, err := m.queryFixes(ctx,
		`SELECT id, signature, error_snippet, original_code, fixed_code, topic, scene_type, tier, created_at
		 FROM fix_records
		 WHERE signature != ? AND (topic = ? OR scene_type = ?)
		 ORDER BY created_at DESC LIMIT 100`, signature, topic, sceneType)
	if err != nil {
		log.Printf("Failed to search for similar fixes: %v", err)
		return exact
	}

	normalized := NormalizeError(errorMessage)
	sort.SliceStable(candidates, func(i, j int) bool {
		return termSimilarity(normalized, NormalizeError(candidates[i].ErrorSnippet)) >
			termSimilarity(normalized, NormalizeError(candidates[j].ErrorSnippet))
	})

	results := exact
	for _, c := range candidates {
		if len(results) >= limit {
			break
		}
		if termSimilarity(normalized, NormalizeError(c.ErrorSnippet)) > 0.3 {
			results = append(results, c)
		}
	}
	if len(results) > 0 {
		log.Printf("Found %d similar error patterns in memory", len(results))
	}
	return results
}

func (m *SQLiteMemory) queryFixes(ctx context.Context, query string, args ...interface{}) ([]FixRecord, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fixes []FixRecord
	for rows.Next() {
		var f FixRecord
		var tier int
		if err := rows.Scan(&f.ID, &f.Signature, &f.ErrorSnippet, &f.OriginalCode, &f.FixedCode,
			&f.Topic, &f.SceneType, &tier, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.Tier = FixTier(tier)
		fixes = append(fixes, f)
	}
	return fixes, rows.Err()
}

// StoreSuccessfulGeneration records a first-shot generation pattern.
func (m *SQLiteMemory) StoreSuccessfulGeneration(ctx context.Context, gen GenerationRecord) bool {
	if gen.ID == "" {
		gen.ID = uuid.NewString()
	}
	if gen.CreatedAt.IsZero() {
		gen.CreatedAt = time.Now()
	}
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO generation_records (id, task, code, topic, scene_type, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		gen.ID, truncate(gen.Task, 500), truncate(gen.Code, 2000), gen.Topic, gen.SceneType, gen.CreatedAt)
	if err != nil {
		log.Printf("Failed to store successful generation: %v", err)
		return false
	}
	return true
}

// PreventiveExamples returns (problem, solution) pairs from past fixes scoped
// to a topic/scene-type, newest first.
func (m *SQLiteMemory) PreventiveExamples(ctx context.Context, task, topic, sceneType string, limit int) []Example {
	if limit <= 0 {
		limit = 3
	}
	fixes, err := m.queryFixes(ctx,
		`SELECT id, signature, error_snippet, original_code, fixed_code, topic, scene_type, tier, created_at
		 FROM fix_records WHERE topic = ? OR scene_type = ?
		 ORDER BY created_at DESC LIMIT ?`, topic, sceneType, limit)
	if err != nil {
		log.Printf("Failed to get preventive examples: %v", err)
		return nil
	}

	examples := make([]Example, 0, len(fixes))
	for _, f := range fixes {
		examples = append(examples, Example{Problem: f.ErrorSnippet, Solution: f.FixedCode})
	}
	if len(examples) > 0 {
		log.Printf("Retrieved %d preventive examples", len(examples))
	}
	return examples
}

// Stats reports store contents.
func (m *SQLiteMemory) Stats(ctx context.Context) Stats {
	stats := Stats{Enabled: true}
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fix_records`).Scan(&stats.ErrorFixes); err != nil {
		log.Printf("Failed to get memory stats: %v", err)
		return stats
	}
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generation_records`).Scan(&stats.SuccessfulGenerations); err != nil {
		log.Printf("Failed to get memory stats: %v", err)
		return stats
	}
	stats.TotalMemories = stats.ErrorFixes + stats.SuccessfulGenerations
	return stats
}

// Clear deletes all stored patterns. Destructive: refuses without confirm.
func (m *SQLiteMemory) Clear(ctx context.Context, confirm bool) error {
	if !confirm {
		return fmt.Errorf("memory clear requires explicit confirmation")
	}
	if _, err := m.db.ExecContext(ctx, `DELETE FROM fix_records`); err != nil {
		return fmt.Errorf("clear fix records: %w", err)
	}
	if _, err := m.db.ExecContext(ctx, `DELETE FROM generation_records`); err != nil {
		return fmt.Errorf("clear generation records: %w", err)
	}
	log.Printf("Cleared all pattern memory")
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
