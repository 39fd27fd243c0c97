package model

import "time"

// KeyMaterial is a persisted symmetric encryption key. Name is a decimal
// sequence number by convention ("1", "2", ...). Key is the secret string the
// cipher derives its key from and is never empty once persisted.
type KeyMaterial struct {
	ID        string
	Name      string
	Key       string
	UpdatedAt time.Time
}
