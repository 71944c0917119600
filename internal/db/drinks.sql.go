package db

import (
	"context"
)

const listDrinks = `SELECT id, title, recipe FROM drinks ORDER BY id`

func (q *Queries) ListDrinks(ctx context.Context) ([]Drink, error) {
	rows, err := q.db.QueryContext(ctx, listDrinks)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Drink{}
	for rows.Next() {
		var i Drink
		if err := rows.Scan(&i.ID, &i.Title, &i.Recipe); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getDrink = `SELECT id, title, recipe FROM drinks WHERE id = ?`

func (q *Queries) GetDrink(ctx context.Context, id int64) (Drink, error) {
	row := q.db.QueryRowContext(ctx, Rebind(q.driver, getDrink), id)
	var i Drink
	err := row.Scan(&i.ID, &i.Title, &i.Recipe)
	return i, err
}

const createDrink = `INSERT INTO drinks (title, recipe) VALUES (?, ?) RETURNING id, title, recipe`

type CreateDrinkParams struct {
	Title  string
	Recipe string
}

func (q *Queries) CreateDrink(ctx context.Context, arg CreateDrinkParams) (Drink, error) {
	row := q.db.QueryRowContext(ctx, Rebind(q.driver, createDrink), arg.Title, arg.Recipe)
	var i Drink
	err := row.Scan(&i.ID, &i.Title, &i.Recipe)
	return i, err
}

const updateDrink = `UPDATE drinks SET title = ?, recipe = ? WHERE id = ? RETURNING id, title, recipe`

type UpdateDrinkParams struct {
	Title  string
	Recipe string
	ID     int64
}

func (q *Queries) UpdateDrink(ctx context.Context, arg UpdateDrinkParams) (Drink, error) {
	row := q.db.QueryRowContext(ctx, Rebind(q.driver, updateDrink), arg.Title, arg.Recipe, arg.ID)
	var i Drink
	err := row.Scan(&i.ID, &i.Title, &i.Recipe)
	return i, err
}

const deleteDrink = `DELETE FROM drinks WHERE id = ?`

func (q *Queries) DeleteDrink(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, Rebind(q.driver, deleteDrink), id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
