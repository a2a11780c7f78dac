// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	jerrors "discipline-journal/internal/errors"
	"discipline-journal/internal/models"
)

// SQLiteStore implements RecordStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based record store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Trade plans
	CREATE TABLE IF NOT EXISTS trade_plans (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL DEFAULT 'long',
		status TEXT NOT NULL DEFAULT 'draft',
		buy_reason_types TEXT NOT NULL,
		buy_reason_text TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_low REAL NOT NULL,
		target_high REAL NOT NULL,
		sell_conditions TEXT NOT NULL,
		time_take_profit_days INTEGER,
		stop_type TEXT NOT NULL,
		stop_value REAL,
		stop_time_days INTEGER,
		planned_entry_price REAL,
		actual_entry_price REAL,
		entry_price REAL,
		entry_driver TEXT,
		exit_plan_target_price REAL,
		is_archived INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	-- Behavioural events logged against a plan
	CREATE TABLE IF NOT EXISTS trade_events (
		id TEXT PRIMARY KEY,
		plan_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		summary TEXT NOT NULL,
		impact_target TEXT NOT NULL,
		triggered_exit INTEGER NOT NULL,
		event_stage TEXT NOT NULL,
		behavior_driver TEXT,
		price_at_event REAL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (plan_id) REFERENCES trade_plans(id)
	);

	-- One result per closed plan
	CREATE TABLE IF NOT EXISTS trade_results (
		plan_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		sell_price REAL NOT NULL,
		sell_reason TEXT NOT NULL,
		system_judgement TEXT NOT NULL,
		conclusion_text TEXT NOT NULL,
		post_exit_best_price REAL,
		epc_opportunity_pct REAL,
		closed_at INTEGER NOT NULL,
		FOREIGN KEY (plan_id) REFERENCES trade_plans(id)
	);

	-- Append-only revision log
	CREATE TABLE IF NOT EXISTS plan_edits (
		id TEXT PRIMARY KEY,
		plan_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		field TEXT NOT NULL,
		old_value TEXT,
		new_value TEXT,
		edited_at INTEGER NOT NULL,
		FOREIGN KEY (plan_id) REFERENCES trade_plans(id)
	);

	-- Self reviews
	CREATE TABLE IF NOT EXISTS trade_self_reviews (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		plan_id TEXT NOT NULL,
		result_id TEXT NOT NULL,
		d1 INTEGER NOT NULL, d2 INTEGER NOT NULL, d3 INTEGER NOT NULL, d4 INTEGER NOT NULL,
		h1 INTEGER NOT NULL, h2 INTEGER NOT NULL, h3 INTEGER NOT NULL, h4 INTEGER NOT NULL,
		e1 INTEGER NOT NULL, e2 INTEGER NOT NULL, e3 INTEGER NOT NULL,
		r1 INTEGER NOT NULL, r2 INTEGER NOT NULL,
		schema_version INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		UNIQUE(user_id, plan_id),
		FOREIGN KEY (plan_id) REFERENCES trade_plans(id)
	);

	CREATE INDEX IF NOT EXISTS idx_plans_user_updated ON trade_plans(user_id, updated_at);
	CREATE INDEX IF NOT EXISTS idx_events_user_created ON trade_events(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_events_plan ON trade_events(plan_id);
	CREATE INDEX IF NOT EXISTS idx_results_user_closed ON trade_results(user_id, closed_at);
	CREATE INDEX IF NOT EXISTS idx_edits_plan ON plan_edits(plan_id, edited_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Plans
// ============================================================================

const planColumns = `id, user_id, symbol, direction, status, buy_reason_types, buy_reason_text,
	target_type, target_low, target_high, sell_conditions, time_take_profit_days,
	stop_type, stop_value, stop_time_days, planned_entry_price, actual_entry_price,
	entry_price, entry_driver, exit_plan_target_price, is_archived, created_at, updated_at`

// GetPlan retrieves a single plan owned by userID.
func (s *SQLiteStore) GetPlan(ctx context.Context, userID, planID string) (*models.TradePlan, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+planColumns+" FROM trade_plans WHERE id = ? AND user_id = ?", planID, userID)
	p, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return p, nil
}

// ListPlans retrieves plans, most recently updated first.
func (s *SQLiteStore) ListPlans(ctx context.Context, filter PlanFilter) ([]models.TradePlan, error) {
	query := "SELECT " + planColumns + " FROM trade_plans WHERE user_id = ?"
	args := []interface{}{filter.UserID}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Archived != nil {
		query += " AND is_archived = ?"
		args = append(args, boolToInt(*filter.Archived))
	}
	if len(filter.IDs) > 0 {
		query += " AND id IN (" + placeholders(len(filter.IDs)) + ")"
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}
	if !filter.UpdatedFrom.IsZero() {
		query += " AND updated_at >= ?"
		args = append(args, filter.UpdatedFrom.Unix())
	}
	if !filter.UpdatedTo.IsZero() {
		query += " AND updated_at < ?"
		args = append(args, filter.UpdatedTo.Unix())
	}

	query += " ORDER BY updated_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade plans: %w", err)
	}
	defer rows.Close()

	var plans []models.TradePlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade plan: %w", err)
		}
		plans = append(plans, *p)
	}

	return plans, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlan(r rowScanner) (*models.TradePlan, error) {
	var (
		p                             models.TradePlan
		buyReasonsJSON, sellCondsJSON string
		takeProfitDays, stopTimeDays  sql.NullInt64
		stopValue, planned, actual    sql.NullFloat64
		entry, exitTarget             sql.NullFloat64
		entryDriver                   sql.NullString
		archived                      int
		createdAt, updatedAt          int64
	)

	if err := r.Scan(&p.ID, &p.UserID, &p.Symbol, &p.Direction, &p.Status, &buyReasonsJSON, &p.BuyReasonText,
		&p.TargetType, &p.TargetLow, &p.TargetHigh, &sellCondsJSON, &takeProfitDays,
		&p.StopType, &stopValue, &stopTimeDays, &planned, &actual,
		&entry, &entryDriver, &exitTarget, &archived, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(buyReasonsJSON), &p.BuyReasonTypes); err != nil {
		return nil, fmt.Errorf("decode buy_reason_types: %w", err)
	}
	if err := json.Unmarshal([]byte(sellCondsJSON), &p.SellConditions); err != nil {
		return nil, fmt.Errorf("decode sell_conditions: %w", err)
	}
	p.TimeTakeProfitDays = intPtr(takeProfitDays)
	p.StopTimeDays = intPtr(stopTimeDays)
	p.StopValue = floatPtr(stopValue)
	p.PlannedEntryPrice = floatPtr(planned)
	p.ActualEntryPrice = floatPtr(actual)
	p.EntryPrice = floatPtr(entry)
	p.ExitPlanTargetPrice = floatPtr(exitTarget)
	p.EntryDriver = stringPtr(entryDriver)
	p.Archived = archived == 1
	p.CreatedAt = fromUnix(createdAt)
	p.UpdatedAt = fromUnix(updatedAt)

	return &p, nil
}

func planArgs(p *models.TradePlan) ([]interface{}, error) {
	buyReasons, err := json.Marshal(nonNil(p.BuyReasonTypes))
	if err != nil {
		return nil, err
	}
	sellConds, err := json.Marshal(nonNil(p.SellConditions))
	if err != nil {
		return nil, err
	}
	return []interface{}{
		p.Symbol, p.Direction, p.Status, string(buyReasons), p.BuyReasonText,
		p.TargetType, p.TargetLow, p.TargetHigh, string(sellConds), nullInt(p.TimeTakeProfitDays),
		p.StopType, nullFloat(p.StopValue), nullInt(p.StopTimeDays), nullFloat(p.PlannedEntryPrice), nullFloat(p.ActualEntryPrice),
		nullFloat(p.EntryPrice), nullString(p.EntryDriver), nullFloat(p.ExitPlanTargetPrice), boolToInt(p.Archived),
	}, nil
}

// ============================================================================
// Events, results, edits
// ============================================================================

// ListEvents retrieves events in creation order.
func (s *SQLiteStore) ListEvents(ctx context.Context, filter EventFilter) ([]models.TradeEvent, error) {
	query := `SELECT id, plan_id, user_id, event_type, summary, impact_target, triggered_exit, event_stage,
		behavior_driver, price_at_event, created_at FROM trade_events WHERE user_id = ?`
	args := []interface{}{filter.UserID}

	if filter.PlanID != "" {
		query += " AND plan_id = ?"
		args = append(args, filter.PlanID)
	}
	if !filter.From.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.From.Unix())
	}
	if !filter.To.IsZero() {
		query += " AND created_at < ?"
		args = append(args, filter.To.Unix())
	}
	if filter.TriggeredExit != nil {
		query += " AND triggered_exit = ?"
		args = append(args, boolToInt(*filter.TriggeredExit))
	}

	query += " ORDER BY created_at ASC, rowid ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade events: %w", err)
	}
	defer rows.Close()

	var events []models.TradeEvent
	for rows.Next() {
		var (
			e         models.TradeEvent
			triggered int
			driver    sql.NullString
			price     sql.NullFloat64
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.PlanID, &e.UserID, &e.EventType, &e.Summary, &e.ImpactTarget, &triggered,
			&e.EventStage, &driver, &price, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan trade event: %w", err)
		}
		e.TriggeredExit = triggered == 1
		e.BehaviorDriver = stringPtr(driver)
		e.PriceAtEvent = floatPtr(price)
		e.CreatedAt = fromUnix(createdAt)
		events = append(events, e)
	}

	return events, rows.Err()
}

const resultColumns = `plan_id, user_id, sell_price, sell_reason, system_judgement, conclusion_text,
	post_exit_best_price, epc_opportunity_pct, closed_at`

// GetResult retrieves the result of a closed plan.
func (s *SQLiteStore) GetResult(ctx context.Context, userID, planID string) (*models.TradeResult, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+resultColumns+" FROM trade_results WHERE plan_id = ? AND user_id = ?", planID, userID)
	r, err := scanResult(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade result: %w", err)
	}
	return r, nil
}

// ListResults retrieves results in close order.
func (s *SQLiteStore) ListResults(ctx context.Context, filter ResultFilter) ([]models.TradeResult, error) {
	query := "SELECT " + resultColumns + " FROM trade_results WHERE user_id = ?"
	args := []interface{}{filter.UserID}

	if !filter.From.IsZero() {
		query += " AND closed_at >= ?"
		args = append(args, filter.From.Unix())
	}
	if !filter.To.IsZero() {
		query += " AND closed_at < ?"
		args = append(args, filter.To.Unix())
	}

	query += " ORDER BY closed_at ASC, rowid ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade results: %w", err)
	}
	defer rows.Close()

	var results []models.TradeResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade result: %w", err)
		}
		results = append(results, *r)
	}

	return results, rows.Err()
}

func scanResult(row rowScanner) (*models.TradeResult, error) {
	var (
		r             models.TradeResult
		postExit, epc sql.NullFloat64
		closedAt      int64
	)
	if err := row.Scan(&r.PlanID, &r.UserID, &r.SellPrice, &r.SellReason, &r.Judgement, &r.ConclusionText,
		&postExit, &epc, &closedAt); err != nil {
		return nil, err
	}
	r.PostExitBestPrice = floatPtr(postExit)
	r.EPCOpportunity = floatPtr(epc)
	r.ClosedAt = fromUnix(closedAt)
	return &r, nil
}

// ListEdits retrieves the revision log of a plan, oldest first.
func (s *SQLiteStore) ListEdits(ctx context.Context, userID, planID string) ([]models.PlanEdit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, plan_id, user_id, field, old_value, new_value, edited_at
		FROM plan_edits WHERE plan_id = ? AND user_id = ?
		ORDER BY edited_at ASC, rowid ASC
	`, planID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan edits: %w", err)
	}
	defer rows.Close()

	var edits []models.PlanEdit
	for rows.Next() {
		var (
			e                  models.PlanEdit
			oldValue, newValue sql.NullString
			editedAt           int64
		)
		if err := rows.Scan(&e.ID, &e.PlanID, &e.UserID, &e.Field, &oldValue, &newValue, &editedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan edit: %w", err)
		}
		e.OldValue = stringPtr(oldValue)
		e.NewValue = stringPtr(newValue)
		e.EditedAt = fromUnix(editedAt)
		edits = append(edits, e)
	}

	return edits, rows.Err()
}

// ============================================================================
// Self reviews
// ============================================================================

// GetReview retrieves the self review of a plan.
func (s *SQLiteStore) GetReview(ctx context.Context, userID, planID string) (*models.SelfReview, error) {
	var (
		r         models.SelfReview
		createdAt int64
	)
	scores := make([]int, len(models.ReviewDimensions))
	dest := []interface{}{&r.ID, &r.UserID, &r.PlanID, &r.ResultID}
	for i := range scores {
		dest = append(dest, &scores[i])
	}
	dest = append(dest, &r.SchemaVersion, &createdAt)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, plan_id, result_id, `+strings.Join(models.ReviewDimensions, ", ")+`, schema_version, created_at
		FROM trade_self_reviews WHERE plan_id = ? AND user_id = ?
	`, planID, userID).Scan(dest...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get self review: %w", err)
	}

	r.Scores = make(map[string]int, len(scores))
	for i, dim := range models.ReviewDimensions {
		r.Scores[dim] = scores[i]
	}
	r.CreatedAt = fromUnix(createdAt)
	return &r, nil
}

// ============================================================================
// Batch writes
// ============================================================================

// Commit applies the batch inside one transaction. Unique-constraint
// violations surface as ErrConflict. A plan update whose row has left the
// expected status, or an edit or event aimed at a closed plan, surfaces as
// ErrReadOnly or ErrInvalidTransition; a missing owned row as ErrNotFound.
// Either way nothing is written.
func (s *SQLiteStore) Commit(ctx context.Context, batch *Batch) error {
	if batch == nil || batch.Len() == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, op := range batch.Ops() {
		if err := applyOp(ctx, tx, op); err != nil {
			return classify(op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func applyOp(ctx context.Context, tx *sql.Tx, op Op) error {
	switch op.Kind {
	case OpInsertPlan:
		args, err := planArgs(op.Plan)
		if err != nil {
			return err
		}
		args = append([]interface{}{op.Plan.ID, op.Plan.UserID}, args...)
		args = append(args, op.Plan.CreatedAt.Unix(), op.Plan.UpdatedAt.Unix())
		_, err = tx.ExecContext(ctx, `
			INSERT INTO trade_plans (`+planColumns+`)
			VALUES (`+placeholders(23)+`)
		`, args...)
		return err

	case OpUpdatePlan:
		args, err := planArgs(op.Plan)
		if err != nil {
			return err
		}
		args = append(args, op.Plan.UpdatedAt.Unix(), op.Plan.ID, op.Plan.UserID, string(op.From))
		res, err := tx.ExecContext(ctx, `
			UPDATE trade_plans SET
				symbol = ?, direction = ?, status = ?, buy_reason_types = ?, buy_reason_text = ?,
				target_type = ?, target_low = ?, target_high = ?, sell_conditions = ?, time_take_profit_days = ?,
				stop_type = ?, stop_value = ?, stop_time_days = ?, planned_entry_price = ?, actual_entry_price = ?,
				entry_price = ?, entry_driver = ?, exit_plan_target_price = ?, is_archived = ?,
				updated_at = ?
			WHERE id = ? AND user_id = ? AND status = ?
		`, args...)
		return checkGuarded(ctx, tx, res, err, op.Plan.UserID, op.Plan.ID, op.From)

	case OpInsertEdit:
		e := op.Edit
		res, err := tx.ExecContext(ctx, `
			INSERT INTO plan_edits (id, plan_id, user_id, field, old_value, new_value, edited_at)
			SELECT ?, ?, ?, ?, ?, ?, ?
			WHERE `+planNotClosed+`
		`, e.ID, e.PlanID, e.UserID, e.Field, nullString(e.OldValue), nullString(e.NewValue), e.EditedAt.Unix(),
			e.PlanID, e.UserID)
		return checkGuarded(ctx, tx, res, err, e.UserID, e.PlanID, "")

	case OpInsertEvent:
		e := op.Event
		res, err := tx.ExecContext(ctx, `
			INSERT INTO trade_events (id, plan_id, user_id, event_type, summary, impact_target, triggered_exit,
				event_stage, behavior_driver, price_at_event, created_at)
			SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
			WHERE `+planNotClosed+`
		`, e.ID, e.PlanID, e.UserID, e.EventType, e.Summary, e.ImpactTarget, boolToInt(e.TriggeredExit),
			e.EventStage, nullString(e.BehaviorDriver), nullFloat(e.PriceAtEvent), e.CreatedAt.Unix(),
			e.PlanID, e.UserID)
		return checkGuarded(ctx, tx, res, err, e.UserID, e.PlanID, "")

	case OpInsertResult:
		r := op.Result
		_, err := tx.ExecContext(ctx, `
			INSERT INTO trade_results (`+resultColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, r.PlanID, r.UserID, r.SellPrice, r.SellReason, r.Judgement, r.ConclusionText,
			nullFloat(r.PostExitBestPrice), nullFloat(r.EPCOpportunity), r.ClosedAt.Unix())
		return err

	case OpInsertReview:
		r := op.Review
		args := []interface{}{r.ID, r.UserID, r.PlanID, r.ResultID}
		for _, dim := range models.ReviewDimensions {
			args = append(args, r.Scores[dim])
		}
		args = append(args, r.SchemaVersion, r.CreatedAt.Unix())
		_, err := tx.ExecContext(ctx, `
			INSERT INTO trade_self_reviews (id, user_id, plan_id, result_id, `+strings.Join(models.ReviewDimensions, ", ")+`, schema_version, created_at)
			VALUES (`+placeholders(4+len(models.ReviewDimensions)+2)+`)
		`, args...)
		return err

	default:
		return fmt.Errorf("unknown batch op %d", op.Kind)
	}
}

// planNotClosed matches an owned, unclosed plan given (plan_id, user_id).
const planNotClosed = `EXISTS (SELECT 1 FROM trade_plans WHERE id = ? AND user_id = ? AND status <> 'closed')`

// checkGuarded turns a guarded write that matched no row into the reason the
// plan refused it, read inside the same transaction. An empty from means the
// write only required the plan to be unclosed.
func checkGuarded(ctx context.Context, tx *sql.Tx, res sql.Result, err error, userID, planID string, from models.PlanStatus) error {
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	var status string
	err = tx.QueryRowContext(ctx, "SELECT status FROM trade_plans WHERE id = ? AND user_id = ?", planID, userID).Scan(&status)
	if err == sql.ErrNoRows {
		return jerrors.NotFound("plan")
	}
	if err != nil {
		return err
	}
	if models.PlanStatus(status) == models.PlanClosed {
		return jerrors.ReadOnly(planID)
	}
	return jerrors.InvalidTransition("plan is %s, expected %s", status, from)
}

func classify(op Op, err error) error {
	var jerr *jerrors.JournalError
	if jerrors.As(err, &jerr) {
		return err
	}
	var sqliteErr sqlite3.Error
	if jerrors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return jerrors.Wrapf(jerrors.Conflict("%s violates a uniqueness constraint", op.Kind), "failed to %s", op.Kind)
	}
	return fmt.Errorf("failed to %s: %w", op.Kind, err)
}

// ============================================================================
// Helpers
// ============================================================================

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func fromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func nullInt(i *int) interface{} {
	if i == nil {
		return nil
	}
	return *i
}

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}
