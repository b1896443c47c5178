package dashboard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/smileynet/postdeck/internal/post"
	"github.com/smileynet/postdeck/internal/store"
)

// detailState holds the post shown on the detail page.
type detailState struct {
	id      post.ID
	post    post.Post
	loading bool
	err     error
}

// newDetailState returns a detailState for id. A post already in the
// snapshot is shown immediately.
func newDetailState(id post.ID, cached post.Post, ok bool) detailState {
	if ok {
		return detailState{id: id, post: cached}
	}
	return detailState{id: id, loading: true}
}

// applyResolved records the outcome of a single-post fetch.
func (ds detailState) applyResolved(p post.Post, err error) detailState {
	ds.loading = false
	ds.err = err
	if err == nil {
		ds.post = p
	}
	return ds
}

// Ready reports whether a post is loaded and can be deleted.
func (ds detailState) Ready() bool {
	return !ds.loading && ds.err == nil && ds.post.ID != 0
}

// NotFound reports whether the remote has no post with this id.
func (ds detailState) NotFound() bool {
	return errors.Is(ds.err, store.ErrNotFound)
}

// Header renders the title block above the body viewport.
func (ds detailState) Header(width int, spinnerView string, deleting bool) string {
	switch {
	case ds.loading:
		return fmt.Sprintf("%s Loading post #%d...", spinnerView, ds.id)
	case ds.NotFound():
		return errorText.Render("Post not found") + "\n" +
			mutedText.Render(fmt.Sprintf("Post #%d does not exist.", ds.id))
	case ds.err != nil:
		return errorText.Render("Error fetching post") + "\n" +
			mutedText.Render(ds.err.Error())
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Width(width).Render(titleText.Render(ds.post.Title)))
	b.WriteByte('\n')
	b.WriteString("By " + OwnerBadge(ds.post.OwnerID))
	b.WriteString(mutedText.Render(fmt.Sprintf(" • Post #%d", ds.post.ID)))
	b.WriteByte('\n')
	if deleting {
		b.WriteString(errorText.Render("Deleting..."))
	} else {
		b.WriteString(mutedText.Render("[d] Delete post"))
	}
	return b.String()
}

// Body returns the text for the body viewport, wrapped to width.
func (ds detailState) Body(width int) string {
	if !ds.Ready() {
		return ""
	}
	return lipgloss.NewStyle().Width(width).Render(ds.post.Body)
}
