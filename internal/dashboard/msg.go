// Package dashboard implements the posts TUI: a list page with a preview
// pane, a detail page and a create form. Every page reads from one
// Synchronizer and never edits the collection directly.
package dashboard

import (
	"context"

	"github.com/smileynet/postdeck/internal/post"
)

// Mode represents the current page.
type Mode int

const (
	ModeList   Mode = iota // Post list with preview pane.
	ModeDetail             // Single post.
	ModeCreate             // New post form.
)

// Focus represents which pane has keyboard focus on the list page.
type Focus int

const (
	PaneLeft  Focus = iota // Post list has focus.
	PaneRight              // Preview viewport has focus.
)

// --- Consumer-side interfaces ---

// Synchronizer is the collection cache the pages read from and mutate through.
type Synchronizer interface {
	Ensure(ctx context.Context) ([]post.Post, error)
	Load(ctx context.Context) ([]post.Post, error)
	Create(ctx context.Context, d post.Draft) (post.Post, error)
	Remove(ctx context.Context, id post.ID) error
	GetByID(ctx context.Context, id post.ID) (post.Post, error)
	Lookup(id post.ID) (post.Post, bool)
	Snapshot() []post.Post
	IsDeleting(id post.ID) bool
	Creating() bool
}

// --- tea.Msg types ---

// PostsLoadedMsg carries the result of a collection load.
// Seq identifies the request; superseded results are ignored.
type PostsLoadedMsg struct {
	Seq   int
	Posts []post.Post
	Err   error
}

// PostResolvedMsg carries the result of a single-post fetch for the detail page.
type PostResolvedMsg struct {
	Seq  int
	ID   post.ID
	Post post.Post
	Err  error
}

// PostCreatedMsg carries the outcome of a create.
type PostCreatedMsg struct {
	Post post.Post
	Err  error
}

// PostDeletedMsg carries the outcome of a delete.
type PostDeletedMsg struct {
	ID  post.ID
	Err error
}

// OpenPostMsg asks the model to show the detail page for ID.
type OpenPostMsg struct {
	ID post.ID
}

// RefreshPostsMsg asks the model to reload the collection.
// listState emits this on 'r'; Model.Update intercepts it and issues the load.
type RefreshPostsMsg struct{}

// modalClosedMsg ends the closing phase of the confirmation modal.
// It is ignored unless Seq matches the modal's current sequence.
type modalClosedMsg struct {
	Seq int
}
