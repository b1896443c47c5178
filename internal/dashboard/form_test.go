package dashboard

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func typeInto(fs formState, s string) formState {
	for _, r := range s {
		fs, _ = fs.Update(keyRune(r))
	}
	return fs
}

func TestFormState_SubmitDisabledUntilReady(t *testing.T) {
	// Given: an empty form
	fs := newFormState(1)

	// When: ctrl+s is pressed
	_, cmd := fs.Update(tea.KeyMsg{Type: tea.KeyCtrlS})

	// Then: nothing is submitted
	if cmd != nil {
		t.Error("ctrl+s on an empty form should not submit")
	}
	if !containsPlainText(fs.View(), "title and content required") {
		t.Error("view should explain why publishing is disabled")
	}
}

func TestFormState_SubmitBuildsDraft(t *testing.T) {
	// Given: title, owner and body filled in
	fs := newFormState(1)
	fs = typeInto(fs, "Hello")
	fs, _ = fs.Update(tea.KeyMsg{Type: tea.KeyTab})
	fs = typeInto(fs, "4")
	fs, _ = fs.Update(tea.KeyMsg{Type: tea.KeyTab})
	fs = typeInto(fs, "World")

	// When: ctrl+s is pressed
	_, cmd := fs.Update(tea.KeyMsg{Type: tea.KeyCtrlS})

	// Then: a SubmitDraftMsg carries the draft
	if cmd == nil {
		t.Fatal("ctrl+s on a ready form should submit")
	}
	msg, ok := cmd().(SubmitDraftMsg)
	if !ok {
		t.Fatalf("ctrl+s produced %T, want SubmitDraftMsg", cmd())
	}
	if msg.Draft.Title != "Hello" || msg.Draft.Body != "World" || msg.Draft.OwnerID != 4 {
		t.Errorf("draft = %+v", msg.Draft)
	}
}

func TestFormState_EmptyOwnerLeavesDefault(t *testing.T) {
	fs := newFormState(7)
	fs = typeInto(fs, "T")
	if got := fs.Draft().OwnerID; got != 0 {
		t.Errorf("OwnerID = %d, want 0 (unset)", got)
	}
}

func TestFormState_InvalidOwnerBlocksSubmit(t *testing.T) {
	for _, owner := range []string{"-3", "0", "abc"} {
		t.Run(owner, func(t *testing.T) {
			// Given: title and body filled in with a bad owner
			fs := newFormState(1)
			fs = typeInto(fs, "Hello")
			fs, _ = fs.Update(tea.KeyMsg{Type: tea.KeyTab})
			fs = typeInto(fs, owner)
			fs, _ = fs.Update(tea.KeyMsg{Type: tea.KeyTab})
			fs = typeInto(fs, "World")

			// When: ctrl+s is pressed
			_, cmd := fs.Update(tea.KeyMsg{Type: tea.KeyCtrlS})

			// Then: nothing is submitted and the hint names the owner
			if cmd != nil {
				t.Error("bad owner should not submit")
			}
			view := fs.View()
			if !containsPlainText(view, "user id must be a positive number") {
				t.Error("view should explain the owner problem")
			}
			if containsPlainText(view, "title and content required") {
				t.Error("view should not blame title or content")
			}
		})
	}
}

func TestFormState_PendingBlocksResubmit(t *testing.T) {
	// Given: a ready form that was submitted
	fs := newFormState(1)
	fs = typeInto(fs, "Hello")
	fs, _ = fs.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	fs = typeInto(fs, "World")
	fs = fs.submitted()

	// When: ctrl+s is pressed again
	_, cmd := fs.Update(tea.KeyMsg{Type: tea.KeyCtrlS})

	// Then: no second submit, and the label says publishing
	if cmd != nil {
		t.Error("pending form should not submit again")
	}
	if !containsPlainText(fs.View(), "Publishing...") {
		t.Error("pending form should show Publishing...")
	}
}

func TestFormState_FailureKeepsDraft(t *testing.T) {
	fs := newFormState(1)
	fs = typeInto(fs, "Hello")
	fs = fs.submitted().failed(errors.New("server down"))

	if fs.pending {
		t.Error("failed form should not be pending")
	}
	if got := fs.Draft().Title; got != "Hello" {
		t.Errorf("Title = %q, want draft kept", got)
	}
	if !containsPlainText(fs.View(), "server down") {
		t.Error("view should show the error")
	}
}

func TestFormState_EscCancels(t *testing.T) {
	_, cmd := newFormState(1).Update(tea.KeyMsg{Type: tea.KeyEsc})
	if _, ok := cmd().(CancelFormMsg); !ok {
		t.Errorf("esc produced %T, want CancelFormMsg", cmd())
	}
}

func TestFormState_TabCyclesFocus(t *testing.T) {
	fs := newFormState(1)
	for i, want := range []int{fieldOwner, fieldBody, fieldTitle} {
		fs, _ = fs.Update(tea.KeyMsg{Type: tea.KeyTab})
		if fs.focused != want {
			t.Errorf("after tab %d: focused = %d, want %d", i+1, fs.focused, want)
		}
	}
}
