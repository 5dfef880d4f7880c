// Package store persists accepted plans and tracks per-user generation
// quotas in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/planforge/coach/core"
)

// PlanRecord is one persisted accepted plan.
type PlanRecord struct {
	ID          int64     `json:"id"`
	PlanID      string    `json:"plan_id"`
	UserID      string    `json:"user_id"`
	Fingerprint string    `json:"fingerprint"`
	Model       string    `json:"model"`
	Score       float64   `json:"score"`
	Plan        []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// PlanFilter selects persisted plans.
type PlanFilter struct {
	UserID string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// SQLiteStore implements plan persistence and monthly quota tracking.
type SQLiteStore struct {
	db           *sql.DB
	monthlyQuota int // 0 disables quota enforcement
}

// NewSQLiteStore opens or creates the database at dbPath.
func NewSQLiteStore(dbPath string, monthlyQuota int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db, monthlyQuota: monthlyQuota}

	if err := store.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

// createTables creates the plans and usage tables
func (s *SQLiteStore) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS plans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		plan_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		model TEXT NOT NULL,
		score REAL NOT NULL,
		plan_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_plans_user ON plans(user_id);
	CREATE INDEX IF NOT EXISTS idx_plans_fingerprint ON plans(fingerprint);
	CREATE INDEX IF NOT EXISTS idx_plans_created_at ON plans(created_at);

	CREATE TABLE IF NOT EXISTS usage (
		user_id TEXT NOT NULL,
		month TEXT NOT NULL,
		generations INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, month)
	);
	`

	_, err := s.db.Exec(query)
	return err
}

// SavePlan persists an accepted plan for a user.
func (s *SQLiteStore) SavePlan(ctx context.Context, userID, fingerprint string, plan *core.GeneratedPlan) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}

	query := `
	INSERT INTO plans (plan_id, user_id, fingerprint, model, score, plan_json)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		plan.Metadata.PlanID,
		userID,
		fingerprint,
		plan.Metadata.Model,
		plan.Metadata.Quality.Overall,
		string(data),
	)

	return err
}

// GetPlan loads a persisted plan by its plan ID.
func (s *SQLiteStore) GetPlan(ctx context.Context, planID string) (*core.GeneratedPlan, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT plan_json FROM plans WHERE plan_id = ?`, planID,
	).Scan(&data)
	if err != nil {
		return nil, err
	}

	var plan core.GeneratedPlan
	if err := json.Unmarshal([]byte(data), &plan); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}
	return &plan, nil
}

// ListPlans retrieves persisted plan records with filters.
func (s *SQLiteStore) ListPlans(ctx context.Context, filter PlanFilter) ([]PlanRecord, error) {
	whereClause, args := s.buildWhereClause(filter)

	query := fmt.Sprintf(`
		SELECT id, plan_id, user_id, fingerprint, model, score, plan_json, created_at
		FROM plans
		%s
		ORDER BY created_at DESC
	`, whereClause)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PlanRecord
	for rows.Next() {
		var record PlanRecord
		var planJSON string
		err := rows.Scan(
			&record.ID,
			&record.PlanID,
			&record.UserID,
			&record.Fingerprint,
			&record.Model,
			&record.Score,
			&planJSON,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		record.Plan = []byte(planJSON)
		records = append(records, record)
	}

	return records, rows.Err()
}

// buildWhereClause builds WHERE clause with filters
func (s *SQLiteStore) buildWhereClause(filter PlanFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.From != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, *filter.To)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	return whereClause, args
}

// Allow returns core.ErrQuotaExceeded when the user has no monthly quota
// remaining. Anonymous requests (empty userID) and a zero quota are
// always allowed.
func (s *SQLiteStore) Allow(ctx context.Context, userID string) error {
	if userID == "" || s.monthlyQuota <= 0 {
		return nil
	}

	var generations int
	err := s.db.QueryRowContext(ctx,
		`SELECT generations FROM usage WHERE user_id = ? AND month = ?`,
		userID, currentMonth(),
	).Scan(&generations)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	if generations >= s.monthlyQuota {
		return fmt.Errorf("user %s: %w", userID, core.ErrQuotaExceeded)
	}
	return nil
}

// Record counts one accepted generation against the user's monthly quota.
func (s *SQLiteStore) Record(ctx context.Context, userID, planID string) error {
	if userID == "" {
		return nil
	}

	query := `
	INSERT INTO usage (user_id, month, generations) VALUES (?, ?, 1)
	ON CONFLICT (user_id, month) DO UPDATE SET generations = generations + 1
	`

	_, err := s.db.ExecContext(ctx, query, userID, currentMonth())
	return err
}

// UsageThisMonth returns the user's consumed generations for the current
// month.
func (s *SQLiteStore) UsageThisMonth(ctx context.Context, userID string) (int, error) {
	var generations int
	err := s.db.QueryRowContext(ctx,
		`SELECT generations FROM usage WHERE user_id = ? AND month = ?`,
		userID, currentMonth(),
	).Scan(&generations)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return generations, err
}

func currentMonth() string {
	return time.Now().UTC().Format("2006-01")
}

// Close closes the store
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var (
	_ core.PlanStore    = (*SQLiteStore)(nil)
	_ core.QuotaService = (*SQLiteStore)(nil)
)
