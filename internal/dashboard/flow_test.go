package dashboard

import (
	"bytes"
	"net/http"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"

	"github.com/smileynet/postdeck/internal/post"
	"github.com/smileynet/postdeck/internal/remote"
	"github.com/smileynet/postdeck/internal/remote/remotetest"
	"github.com/smileynet/postdeck/internal/store"
)

func newFlowModel(t *testing.T, srv *remotetest.Server, opts ...Option) (Model, *store.Store) {
	t.Helper()
	st := store.New(remote.NewClient(srv.URL, remote.WithTimeout(2*time.Second)))
	opts = append([]Option{WithSynchronizer(st), WithCloseDelay(10 * time.Millisecond)}, opts...)
	return NewModel(opts...), st
}

func waitForText(t *testing.T, tm *teatest.TestModel, text string) {
	t.Helper()
	teatest.WaitFor(t, tm.Output(), func(bts []byte) bool {
		return bytes.Contains(bts, []byte(text))
	}, teatest.WithDuration(3*time.Second))
}

// TestFlow_DeleteFromList drives the list page against a fake collection:
// load, confirm a delete, and quit.
func TestFlow_DeleteFromList(t *testing.T) {
	srv := remotetest.New(t,
		post.Post{ID: 1, Title: "First post", Body: "first body", OwnerID: 1},
		post.Post{ID: 2, Title: "Second post", Body: "second body", OwnerID: 2},
	)
	m, st := newFlowModel(t, srv)

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(100, 30))
	waitForText(t, tm, "First post")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	waitForText(t, tm, "Delete post #1?")
	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	waitForText(t, tm, "Deleted post #1")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))

	final := tm.FinalModel(t).(Model)
	if len(final.list.posts) != 1 || final.list.posts[0].ID != 2 {
		t.Errorf("rows = %+v, want only post 2", final.list.posts)
	}
	if got := srv.Hits(http.MethodDelete, remotetest.Item); got != 1 {
		t.Errorf("DELETE hits = %d, want 1", got)
	}
	if got := srv.Hits(http.MethodGet, remotetest.Collection); got != 1 {
		t.Errorf("GET /posts hits = %d, want 1", got)
	}
	if len(st.Snapshot()) != 1 {
		t.Errorf("store snapshot = %+v, want 1 post", st.Snapshot())
	}
}

// TestFlow_CreatePrepends publishes a post and expects it at the top of the list.
func TestFlow_CreatePrepends(t *testing.T) {
	srv := remotetest.New(t, post.Post{ID: 1, Title: "First post", Body: "first body", OwnerID: 1})
	srv.FixedID(101)
	m, st := newFlowModel(t, srv, WithDefaultOwner(1))

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(100, 40))
	waitForText(t, tm, "First post")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	waitForText(t, tm, "New post")
	tm.Type("Hello")
	tm.Send(tea.KeyMsg{Type: tea.KeyShiftTab})
	tm.Type("World")
	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlS})
	waitForText(t, tm, "Published post #101")

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))

	final := tm.FinalModel(t).(Model)
	if final.mode != ModeList {
		t.Errorf("mode = %d, want ModeList", final.mode)
	}
	snap := st.Snapshot()
	if len(snap) != 2 || snap[0].ID != 101 || snap[1].ID != 1 {
		t.Errorf("snapshot = %+v, want [101 1]", snap)
	}
	if snap[0].OwnerID != 1 {
		t.Errorf("OwnerID = %d, want default 1", snap[0].OwnerID)
	}
}

// TestFlow_StartOnMissingPost opens a detail page for an id the collection
// does not have.
func TestFlow_StartOnMissingPost(t *testing.T) {
	srv := remotetest.New(t)
	m, _ := newFlowModel(t, srv, WithStartPost(404))

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(100, 30))
	waitForText(t, tm, "Post not found")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))

	if got := srv.Hits(http.MethodGet, remotetest.Item); got != 1 {
		t.Errorf("GET /posts/{id} hits = %d, want 1", got)
	}
}
