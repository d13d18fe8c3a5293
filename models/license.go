package models

import "time"

// License is one row of the licenses table. A key is honored only while
// Active is true; deactivation happens directly in the datastore.
type License struct {
	Key       string    `json:"key"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

func NewLicense(key string) *License {
	return &License{
		Key:    key,
		Active: true,
	}
}

// Honored reports whether a looked-up license should verify. A missing
// record and an inactive one are treated the same.
func (l *License) Honored() bool {
	return l != nil && l.Active
}
