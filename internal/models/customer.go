package models

// Customer is an identity record. Created on first successful registration,
// never mutated or deleted afterwards.
type Customer struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}
