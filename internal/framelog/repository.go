// Package framelog provides access to the frame_log table, the delivery
// history of frames pushed to the e-ink display.
package framelog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Delivery status values.
const (
	StatusDelivered   = "delivered"
	StatusUndelivered = "undelivered"
)

// Entry represents a single frame delivery record.
type Entry struct {
	ID         string    `json:"id"`
	Layout     string    `json:"layout"`
	Status     string    `json:"status"`
	Degraded   bool      `json:"degraded"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Filter controls which entries to return.
type Filter struct {
	Layout string // optional: filter by layout name
	Status string // optional: delivered or undelivered
	Limit  int    // default 50, max 200
	Offset int    // pagination offset
}

// ListResult contains the paginated frame log results.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository defines the interface for frame log operations.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores frame log entries in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new frame log repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new delivery record. The ID and CreatedAt are
// generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = "frm-" + uuid.NewString()[:8]
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Status != StatusDelivered && entry.Status != StatusUndelivered {
		return fmt.Errorf("framelog: invalid status %q", entry.Status)
	}

	var errText any
	if entry.Error != "" {
		errText = entry.Error
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO frame_log (id, layout, status, degraded, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Layout, entry.Status,
		boolToInt(entry.Degraded), errText, entry.DurationMS,
		entry.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting frame log entry: %w", err)
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// List returns entries matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 { //nolint:mnd // max page size for frame log queries
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any

	if filter.Layout != "" {
		conditions = append(conditions, "layout = ?")
		args = append(args, filter.Layout)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM frame_log %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting frame log entries: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT id, layout, status, degraded, error, duration_ms, created_at FROM frame_log %s ORDER BY created_at DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying frame log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var degraded int
		var errText sql.NullString
		var durationMS sql.NullInt64
		var createdAt string

		if err := rows.Scan(&entry.ID, &entry.Layout, &entry.Status,
			&degraded, &errText, &durationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning frame log entry: %w", err)
		}

		entry.Degraded = degraded != 0
		if errText.Valid {
			entry.Error = errText.String
		}
		if durationMS.Valid {
			entry.DurationMS = durationMS.Int64
		}

		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing frame log timestamp %q: %w", createdAt, err)
		}
		entry.CreatedAt = t

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating frame log: %w", err)
	}

	if entries == nil {
		entries = []Entry{}
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}
