// Package repository stores drinks and shapes them into their public representations.
package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coffeeshop/drinks/internal/validation"
)

// DrinkRepository provides high-level operations for drinks
type DrinkRepository interface {
	List(ctx context.Context) ([]*Drink, error)
	Get(ctx context.Context, id int64) (*Drink, error)
	Create(ctx context.Context, in DrinkInput) (*Drink, error)
	Update(ctx context.Context, id int64, patch DrinkPatch) (*Drink, error)
	Delete(ctx context.Context, id int64) error
	// Reset removes every drink and stores the seed drinks.
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Ingredient is one coloured layer of a drink.
type Ingredient struct {
	Name  string `json:"name" validate:"required,max=60"`
	Color string `json:"color" validate:"required,max=30"`
	Parts int    `json:"parts" validate:"min=1,max=100"`
}

// Recipe is an ordered ingredient list. A single JSON object is accepted as a
// one-element list.
type Recipe []Ingredient

func (r *Recipe) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var one Ingredient
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*r = Recipe{one}
		return nil
	}
	var many []Ingredient
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*r = many
	return nil
}

// Drink is the long representation: every ingredient with its name.
type Drink struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Recipe Recipe `json:"recipe"`
}

// ShortIngredient omits the ingredient name.
type ShortIngredient struct {
	Color string `json:"color"`
	Parts int    `json:"parts"`
}

// ShortDrink is the public representation served without authorization.
type ShortDrink struct {
	ID     int64             `json:"id"`
	Title  string            `json:"title"`
	Recipe []ShortIngredient `json:"recipe"`
}

// Short strips ingredient names.
func (d *Drink) Short() ShortDrink {
	recipe := make([]ShortIngredient, len(d.Recipe))
	for i, ing := range d.Recipe {
		recipe[i] = ShortIngredient{Color: ing.Color, Parts: ing.Parts}
	}
	return ShortDrink{ID: d.ID, Title: d.Title, Recipe: recipe}
}

// Long returns the full representation.
func (d *Drink) Long() Drink {
	return Drink{ID: d.ID, Title: d.Title, Recipe: append(Recipe(nil), d.Recipe...)}
}

// DrinkInput holds the fields of a new drink.
type DrinkInput struct {
	Title  string `json:"title" validate:"required,max=80"`
	Recipe Recipe `json:"recipe" validate:"required,min=1,max=20,dive"`
}

// Validate trims the title and checks every field.
func (in *DrinkInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	return wrapInvalid(validation.Struct(in))
}

// DrinkPatch holds the fields to change. Nil fields are left as they are.
type DrinkPatch struct {
	Title  *string `json:"title" validate:"omitempty,min=1,max=80"`
	Recipe Recipe  `json:"recipe" validate:"omitempty,min=1,max=20,dive"`
}

// Validate trims the title and checks the fields that are set.
func (p *DrinkPatch) Validate() error {
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		p.Title = &t
	}
	return wrapInvalid(validation.Struct(p))
}

// Apply returns d with the patch applied.
func (p DrinkPatch) Apply(d Drink) Drink {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Recipe != nil {
		d.Recipe = append(Recipe(nil), p.Recipe...)
	}
	return d
}

// invalidInput carries field errors while matching ErrInvalidInput.
type invalidInput struct {
	validation.Errors
}

func (e invalidInput) Is(target error) bool { return target == ErrInvalidInput }

func (e invalidInput) Unwrap() error { return e.Errors }

func wrapInvalid(err error) error {
	if err == nil {
		return nil
	}
	if errs, ok := err.(validation.Errors); ok {
		return invalidInput{Errors: errs}
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

// SeedDrinks returns the drinks stored by Reset.
func SeedDrinks() []DrinkInput {
	return []DrinkInput{{
		Title:  "water",
		Recipe: Recipe{{Name: "water", Color: "blue", Parts: 1}},
	}}
}

func encodeRecipe(r Recipe) (string, error) {
	if r == nil {
		r = Recipe{}
	}
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode recipe: %w", err)
	}
	return string(b), nil
}

func decodeRecipe(s string) (Recipe, error) {
	var r Recipe
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, fmt.Errorf("decode recipe: %w", err)
	}
	return r, nil
}
