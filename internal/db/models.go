package db

// Drink is a row of the drinks table. Recipe holds the JSON-encoded ingredient list.
type Drink struct {
	ID     int64
	Title  string
	Recipe string
}
