package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/coffeeshop/drinks/internal/db"
)

// drinkRepository implements DrinkRepository on top of the SQL database service
type drinkRepository struct {
	dbService *db.Service
}

// NewDrinkRepository creates a SQL-backed repository
func NewDrinkRepository(dbService *db.Service) DrinkRepository {
	return &drinkRepository{dbService: dbService}
}

func toDrink(row db.Drink) (*Drink, error) {
	recipe, err := decodeRecipe(row.Recipe)
	if err != nil {
		return nil, fmt.Errorf("drink %d: %w", row.ID, err)
	}
	return &Drink{ID: row.ID, Title: row.Title, Recipe: recipe}, nil
}

// List returns every drink ordered by id
func (r *drinkRepository) List(ctx context.Context) ([]*Drink, error) {
	rows, err := r.dbService.Queries().ListDrinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list drinks: %w", err)
	}

	drinks := make([]*Drink, 0, len(rows))
	for _, row := range rows {
		d, err := toDrink(row)
		if err != nil {
			return nil, err
		}
		drinks = append(drinks, d)
	}
	return drinks, nil
}

// Get retrieves a drink by id
func (r *drinkRepository) Get(ctx context.Context, id int64) (*Drink, error) {
	row, err := r.dbService.Queries().GetDrink(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDrinkNotFound
		}
		return nil, fmt.Errorf("failed to get drink: %w", err)
	}
	return toDrink(row)
}

// Create validates and inserts a new drink
func (r *drinkRepository) Create(ctx context.Context, in DrinkInput) (*Drink, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	recipe, err := encodeRecipe(in.Recipe)
	if err != nil {
		return nil, err
	}

	row, err := r.dbService.Queries().CreateDrink(ctx, db.CreateDrinkParams{
		Title:  in.Title,
		Recipe: recipe,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrDuplicateTitle
		}
		return nil, fmt.Errorf("failed to create drink: %w", err)
	}
	return toDrink(row)
}

// Update applies patch to an existing drink inside a transaction
func (r *drinkRepository) Update(ctx context.Context, id int64, patch DrinkPatch) (*Drink, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var updated *Drink
	err := r.dbService.WithTx(ctx, func(q *db.Queries) error {
		row, err := q.GetDrink(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrDrinkNotFound
			}
			return fmt.Errorf("failed to get drink: %w", err)
		}
		current, err := toDrink(row)
		if err != nil {
			return err
		}

		next := patch.Apply(*current)
		recipe, err := encodeRecipe(next.Recipe)
		if err != nil {
			return err
		}
		row, err = q.UpdateDrink(ctx, db.UpdateDrinkParams{ID: id, Title: next.Title, Recipe: recipe})
		if err != nil {
			if db.IsUniqueViolation(err) {
				return ErrDuplicateTitle
			}
			return fmt.Errorf("failed to update drink: %w", err)
		}
		updated, err = toDrink(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a drink by id
func (r *drinkRepository) Delete(ctx context.Context, id int64) error {
	n, err := r.dbService.Queries().DeleteDrink(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete drink: %w", err)
	}
	if n == 0 {
		return ErrDrinkNotFound
	}
	return nil
}

// Reset drops and recreates the drinks table with the seed drinks
func (r *drinkRepository) Reset(ctx context.Context) error {
	seed := SeedDrinks()
	params := make([]db.CreateDrinkParams, 0, len(seed))
	for _, in := range seed {
		recipe, err := encodeRecipe(in.Recipe)
		if err != nil {
			return err
		}
		params = append(params, db.CreateDrinkParams{Title: in.Title, Recipe: recipe})
	}
	if err := r.dbService.ResetDrinks(ctx, params); err != nil {
		return fmt.Errorf("failed to reset drinks: %w", err)
	}
	return nil
}

func (r *drinkRepository) Ping(ctx context.Context) error {
	return r.dbService.Ping(ctx)
}
