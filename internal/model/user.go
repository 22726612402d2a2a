// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered farmer account.
//
// The JSON tags mirror the wire format the frontend already speaks: the record
// identifier is exposed as "_id" (the store's opaque string key) and the farm
// size as a plain number. PasswordHash is tagged "-" so the secret can never
// leak through any handler that serializes a User — the hash stays in the
// database and in memory only for the duration of a verify call.
//
// WHY FarmSize float64?
// Farm size is free-form numeric input (acres with fractions are common), and
// the original schema stores it as an untyped number. float64 matches both.
type User struct {
	ID           string    `json:"_id"       db:"id"`
	Fullname     string    `json:"fullname"  db:"fullname"`
	Email        string    `json:"email"     db:"email"` // unique, case-sensitive
	PasswordHash string    `json:"-"         db:"password_hash"`
	Location     string    `json:"location"  db:"location"`  // free text, default ""
	FarmSize     float64   `json:"farmsize"  db:"farm_size"` // default 0
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
