package dashboard

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/postdeck/internal/post"
)

// modalPhase is the lifecycle of the delete confirmation modal.
type modalPhase int

const (
	modalClosed  modalPhase = iota
	modalOpen                 // Waiting for y/n.
	modalClosing              // Drawn dim until the close tick fires.
)

// modalState is the delete confirmation dialog. Closing happens in two
// phases: close moves to modalClosing and schedules a tick; the tick's
// modalClosedMsg finishes the close only if seq still matches.
type modalState struct {
	phase modalPhase
	seq   int
	post  post.Post
	delay time.Duration
}

func newModalState(delay time.Duration) modalState {
	return modalState{delay: delay}
}

// Visible reports whether the modal is drawn.
func (ms modalState) Visible() bool {
	return ms.phase != modalClosed
}

// Accepting reports whether the modal takes key input.
func (ms modalState) Accepting() bool {
	return ms.phase == modalOpen
}

// open shows the modal for p. Reopening invalidates any pending close.
func (ms modalState) open(p post.Post) modalState {
	ms.seq++
	ms.phase = modalOpen
	ms.post = p
	return ms
}

// close starts the closing phase and returns the tick that finishes it.
func (ms modalState) close() (modalState, tea.Cmd) {
	if ms.phase != modalOpen {
		return ms, nil
	}
	ms.seq++
	ms.phase = modalClosing
	seq := ms.seq
	if ms.delay <= 0 {
		return ms, func() tea.Msg { return modalClosedMsg{Seq: seq} }
	}
	return ms, tea.Tick(ms.delay, func(time.Time) tea.Msg {
		return modalClosedMsg{Seq: seq}
	})
}

// finish completes a close. Stale ticks are ignored.
func (ms modalState) finish(msg modalClosedMsg) modalState {
	if ms.phase != modalClosing || msg.Seq != ms.seq {
		return ms
	}
	ms.phase = modalClosed
	ms.post = post.Post{}
	return ms
}

// teardown closes the modal at once and cancels any scheduled close.
func (ms modalState) teardown() modalState {
	ms.seq++
	ms.phase = modalClosed
	ms.post = post.Post{}
	return ms
}

// View renders the dialog body.
func (ms modalState) View() string {
	body := fmt.Sprintf("Delete post #%d?\n\n  %s\n\n%s",
		ms.post.ID, ms.post.Title,
		mutedText.Render("[y] Delete   [n] Keep"))
	return ModalBorder(ms.phase == modalClosing).Render(titleText.Render("Confirm") + "\n\n" + body)
}
