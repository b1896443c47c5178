package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/smileynet/postdeck/internal/post"
)

// CursorMarker is the prefix shown on the selected row.
const CursorMarker = "▸ "

// listState manages the post rows, cursor, and loading/error states
// for the list page's left pane.
type listState struct {
	posts   []post.Post
	cursor  int
	loading bool
	loaded  bool
	err     error
}

// newListState returns a listState in the loading state.
func newListState() listState {
	return listState{loading: true}
}

// applyPosts applies a load result. A failed load keeps the rows it is given
// (the store preserves the previous snapshot) and records the error.
func (ls listState) applyPosts(posts []post.Post, err error) listState {
	ls.loading = false
	ls.err = err
	if err == nil {
		ls.loaded = true
	}
	return ls.withPosts(posts)
}

// withPosts replaces the rows after a reconciliation, keeping the cursor on
// the same post when it is still present.
func (ls listState) withPosts(posts []post.Post) listState {
	selected := ls.SelectedID()
	ls.posts = append([]post.Post(nil), posts...)
	ls.cursor = 0
	for i, p := range ls.posts {
		if p.ID == selected {
			ls.cursor = i
			break
		}
	}
	return ls.clamp()
}

func (ls listState) clamp() listState {
	if ls.cursor >= len(ls.posts) {
		ls.cursor = len(ls.posts) - 1
	}
	if ls.cursor < 0 {
		ls.cursor = 0
	}
	return ls
}

// Update processes key messages for the list pane.
func (ls listState) Update(msg tea.Msg) (listState, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return ls, nil
	}
	keys := ListKeyMap()
	switch {
	case key.Matches(km, keys.Refresh):
		ls.loading = true
		ls.err = nil
		return ls, func() tea.Msg { return RefreshPostsMsg{} }
	case ls.loading && len(ls.posts) == 0:
		return ls, nil
	case key.Matches(km, keys.Up):
		if len(ls.posts) > 0 {
			ls.cursor--
			if ls.cursor < 0 {
				ls.cursor = len(ls.posts) - 1
			}
		}
	case key.Matches(km, keys.Down):
		if len(ls.posts) > 0 {
			ls.cursor++
			if ls.cursor >= len(ls.posts) {
				ls.cursor = 0
			}
		}
	case key.Matches(km, keys.Open):
		if id := ls.SelectedID(); id != 0 {
			return ls, func() tea.Msg { return OpenPostMsg{ID: id} }
		}
	}
	return ls, nil
}

// SelectedID returns the post ID at the cursor, or 0 if the list is empty.
func (ls listState) SelectedID() post.ID {
	if len(ls.posts) == 0 || ls.cursor < 0 || ls.cursor >= len(ls.posts) {
		return 0
	}
	return ls.posts[ls.cursor].ID
}

// Selected returns the post at the cursor.
func (ls listState) Selected() (post.Post, bool) {
	if ls.SelectedID() == 0 {
		return post.Post{}, false
	}
	return ls.posts[ls.cursor], true
}

// View renders the list pane. deleting reports rows with a delete in flight;
// spinnerView is the current spinner frame.
func (ls listState) View(width, height int, spinnerView string, deleting func(post.ID) bool) string {
	if len(ls.posts) == 0 {
		switch {
		case ls.loading:
			return fmt.Sprintf("%s Loading...", spinnerView)
		case ls.err != nil:
			return errorText.Render("Error fetching posts") + "\n\n" +
				mutedText.Render(ls.err.Error()) + "\n\nPress r to retry"
		default:
			return "No posts yet. Press n to write one."
		}
	}

	var b strings.Builder
	b.WriteString(titleText.Render("Posts"))
	b.WriteString(mutedText.Render(fmt.Sprintf("  %d", len(ls.posts))))
	if ls.loading {
		b.WriteString(" " + spinnerView)
	}
	b.WriteByte('\n')
	if ls.err != nil {
		b.WriteString(errorText.Render("Reload failed; showing cached posts"))
		b.WriteByte('\n')
	}

	rows := height - 2
	if rows < 1 {
		rows = 1
	}
	start := 0
	if ls.cursor >= rows {
		start = ls.cursor - rows + 1
	}
	end := start + rows
	if end > len(ls.posts) {
		end = len(ls.posts)
	}

	rowStyle := lipgloss.NewStyle().MaxWidth(width)
	for i := start; i < end; i++ {
		p := ls.posts[i]
		prefix := "  "
		if i == ls.cursor {
			prefix = CursorMarker
		}
		line := fmt.Sprintf("%s%s", prefix, p.Title)
		if deleting != nil && deleting(p.ID) {
			b.WriteString(rowStyle.Render(mutedText.Render(line + " (deleting…)")))
		} else {
			b.WriteString(rowStyle.Render(line + " " + OwnerBadge(p.OwnerID)))
		}
		if i < end-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// previewView renders the right pane for the selected post.
func previewView(p post.Post, ok bool, width int) string {
	if !ok {
		return mutedText.Render("Select a post")
	}
	body := lipgloss.NewStyle().Width(width).Render(p.Body)
	return titleText.Render(p.Title) + "\n" +
		OwnerBadge(p.OwnerID) + mutedText.Render(fmt.Sprintf(" • Post #%d", p.ID)) + "\n\n" +
		body
}
