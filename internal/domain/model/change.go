// Package model contains domain models passed between layers.
package model

import "time"

// Op identifies a mutating DAV operation for journaling.
type Op string

// Journaled operations.
const (
	OpPut       Op = "put"
	OpDelete    Op = "delete"
	OpMkcol     Op = "mkcol"
	OpCopy      Op = "copy"
	OpMove      Op = "move"
	OpProppatch Op = "proppatch"
	OpLock      Op = "lock"
	OpUnlock    Op = "unlock"
)

// Change records one mutating operation applied to the tree.
type Change struct {
	Op          Op        `json:"op"`                    // operation kind
	Path        string    `json:"path"`                  // decoded resource path
	Destination string    `json:"destination,omitempty"` // decoded destination for copy/move
	Principal   string    `json:"principal,omitempty"`   // authenticated principal
	TS          time.Time `json:"ts"`
}
