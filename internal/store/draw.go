package store

import (
	"database/sql"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/dukerupert/foodlottery/internal/model"
)

// DrawStore persists draw history. Each row carries the JSON snapshot of
// the foods drawn, so history is independent of later catalog edits.
type DrawStore struct {
	db *sql.DB
}

func NewDrawStore(db *sql.DB) *DrawStore {
	return &DrawStore{db: db}
}

func scanDraw(scanner interface{ Scan(...any) error }) (*model.DrawRecord, error) {
	var d model.DrawRecord
	var foods string
	if err := scanner.Scan(&d.ID, &d.Timestamp, &foods); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(foods), &d.Foods); err != nil {
		return nil, fmt.Errorf("decode draw %d foods: %w", d.ID, err)
	}
	return &d, nil
}

const drawCols = `id, drawn_at, foods`

// Add records a draw made at the given instant. The id is the millisecond
// timestamp, bumped past the newest existing id if two draws share a
// millisecond.
func (s *DrawStore) Add(foods []model.FoodItem, at time.Time) (*model.DrawRecord, error) {
	snaps := make([]model.FoodSnapshot, len(foods))
	for i, f := range foods {
		snaps[i] = model.FoodSnapshot{ID: f.ID, Name: f.Name, Category: f.Category}
	}
	data, err := json.Marshal(snaps)
	if err != nil {
		return nil, fmt.Errorf("encode draw foods: %w", err)
	}

	at = at.UTC()
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	id := at.UnixMilli()
	var maxID int64
	if err := tx.QueryRow(`SELECT COALESCE(MAX(id), 0) FROM draws`).Scan(&maxID); err != nil {
		return nil, fmt.Errorf("max draw id: %w", err)
	}
	if id <= maxID {
		id = maxID + 1
	}

	if _, err := tx.Exec(`INSERT INTO draws (id, drawn_at, foods) VALUES (?, ?, ?)`, id, at, string(data)); err != nil {
		return nil, fmt.Errorf("insert draw: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit draw: %w", err)
	}

	return &model.DrawRecord{ID: id, Timestamp: at, Foods: snaps}, nil
}

func (s *DrawStore) GetByID(id int64) (*model.DrawRecord, error) {
	row := s.db.QueryRow(`SELECT `+drawCols+` FROM draws WHERE id = ?`, id)
	d, err := scanDraw(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get draw: %w", err)
	}
	return d, nil
}

// List returns history most recent first.
func (s *DrawStore) List() ([]model.DrawRecord, error) {
	rows, err := s.db.Query(`SELECT ` + drawCols + ` FROM draws ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list draws: %w", err)
	}
	defer rows.Close()

	history := []model.DrawRecord{}
	for rows.Next() {
		d, err := scanDraw(rows)
		if err != nil {
			return nil, fmt.Errorf("scan draw: %w", err)
		}
		history = append(history, *d)
	}
	return history, rows.Err()
}

// ListByCategory keeps the draws containing at least one food of the given
// category. model.CategoryAll returns the whole history.
func (s *DrawStore) ListByCategory(category string) ([]model.DrawRecord, error) {
	history, err := s.List()
	if err != nil {
		return nil, err
	}
	if category == "" || category == model.CategoryAll {
		return history, nil
	}

	filtered := []model.DrawRecord{}
	for _, d := range history {
		if d.HasCategory(category) {
			filtered = append(filtered, d)
		}
	}
	return filtered, nil
}

// Clear deletes all history.
func (s *DrawStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM draws`); err != nil {
		return fmt.Errorf("clear draws: %w", err)
	}
	return nil
}
