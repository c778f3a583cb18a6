package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/foodlottery/internal/model"
)

type FoodStore struct {
	db *sql.DB
}

func NewFoodStore(db *sql.DB) *FoodStore {
	return &FoodStore{db: db}
}

func scanFood(scanner interface{ Scan(...any) error }) (*model.FoodItem, error) {
	var f model.FoodItem
	if err := scanner.Scan(&f.ID, &f.Name, &f.Category, &f.Icon, &f.CreatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

const foodCols = `id, name, category, icon, created_at`

// Create inserts a food with the next id after the current maximum, or 1
// when the catalog is empty.
func (s *FoodStore) Create(name, category, icon string) (*model.FoodItem, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var id int64
	if err := tx.QueryRow(`SELECT COALESCE(MAX(id), 0) + 1 FROM foods`).Scan(&id); err != nil {
		return nil, fmt.Errorf("next food id: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO foods (id, name, category, icon) VALUES (?, ?, ?, ?)`,
		id, name, category, icon,
	); err != nil {
		return nil, fmt.Errorf("insert food: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit food: %w", err)
	}
	return s.GetByID(id)
}

func (s *FoodStore) GetByID(id int64) (*model.FoodItem, error) {
	row := s.db.QueryRow(`SELECT `+foodCols+` FROM foods WHERE id = ?`, id)
	f, err := scanFood(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get food: %w", err)
	}
	return f, nil
}

// List returns the catalog in insertion order.
func (s *FoodStore) List() ([]model.FoodItem, error) {
	return s.query(`SELECT ` + foodCols + ` FROM foods ORDER BY id ASC`)
}

// ListByCategory filters the catalog. model.CategoryAll returns everything.
func (s *FoodStore) ListByCategory(category string) ([]model.FoodItem, error) {
	if category == "" || category == model.CategoryAll {
		return s.List()
	}
	return s.query(`SELECT `+foodCols+` FROM foods WHERE category = ? ORDER BY id ASC`, category)
}

func (s *FoodStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM foods`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count foods: %w", err)
	}
	return n, nil
}

func (s *FoodStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM foods WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete food: %w", err)
	}
	return nil
}

func (s *FoodStore) query(q string, args ...any) ([]model.FoodItem, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list foods: %w", err)
	}
	defer rows.Close()

	foods := []model.FoodItem{}
	for rows.Next() {
		f, err := scanFood(rows)
		if err != nil {
			return nil, fmt.Errorf("scan food: %w", err)
		}
		foods = append(foods, *f)
	}
	return foods, rows.Err()
}
