// Package post defines the post record shared by the remote client, the
// cache store and the views.
package post

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors for draft validation.
var (
	ErrEmptyTitle   = errors.New("post: title is required")
	ErrEmptyBody    = errors.New("post: body is required")
	ErrInvalidOwner = errors.New("post: owner id must be positive")
	ErrInvalidID    = errors.New("post: invalid id")
)

// ID identifies a post. It is assigned by the remote collection on create
// and never changes afterwards.
type ID int

// String returns the decimal form used in URLs and labels.
func (id ID) String() string {
	return strconv.Itoa(int(id))
}

// ParseID parses a positive decimal post ID.
func ParseID(s string) (ID, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return ID(n), nil
}

// Post is a single entry of the remote collection.
// OwnerID is serialized as userId to match the placeholder API.
type Post struct {
	ID      ID     `json:"id"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	OwnerID int    `json:"userId"`
}

// Draft is a post that has not been created yet.
// A zero OwnerID means "unset"; the store fills in its configured default.
type Draft struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	OwnerID int    `json:"userId"`
}

// Normalize returns a copy of d with title and body trimmed.
func (d Draft) Normalize() Draft {
	d.Title = strings.TrimSpace(d.Title)
	d.Body = strings.TrimSpace(d.Body)
	return d
}

// Validate reports whether the draft can be submitted.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return ErrEmptyTitle
	}
	if strings.TrimSpace(d.Body) == "" {
		return ErrEmptyBody
	}
	if d.OwnerID < 0 {
		return fmt.Errorf("%w, got %d", ErrInvalidOwner, d.OwnerID)
	}
	return nil
}

// Ready reports whether Validate would accept the draft.
// Views use it to enable or disable their submit action.
func (d Draft) Ready() bool {
	return d.Validate() == nil
}
