package service

import "github.com/cppla/madickblog/models"

// Actor is the authenticated identity behind a request.
type Actor struct {
	ID   uint
	Name string
}

// Operation names a guarded mutation.
type Operation string

const (
	OpEdit   Operation = "edit"
	OpDelete Operation = "delete"
)

// Decision is the outcome of Authorize.
type Decision int

const (
	Allow Decision = iota
	DenyUnauthorized
	DenyForbidden
)

// Authorize decides whether actor may perform op on a post owned by authorID.
// Likes and comments are not guarded.
func Authorize(op Operation, actor *Actor, authorID uint) Decision {
	if actor == nil {
		return DenyUnauthorized
	}
	if actor.ID != authorID {
		return DenyForbidden
	}
	return Allow
}

// Err converts a denial into an AppError; Allow yields nil.
func (d Decision) Err(op Operation) error {
	switch d {
	case DenyUnauthorized:
		return models.NewUnauthorizedError("authentication required to " + string(op) + " a post")
	case DenyForbidden:
		return models.NewForbiddenError("only the author can " + string(op) + " this post")
	default:
		return nil
	}
}
