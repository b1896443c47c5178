package dashboard

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/postdeck/internal/post"
)

// Form field indices in tab order.
const (
	fieldTitle = iota
	fieldOwner
	fieldBody
	fieldCount
)

// SubmitDraftMsg asks the model to publish a draft. formState emits it on
// ctrl+s when the draft is ready and nothing is pending.
type SubmitDraftMsg struct {
	Draft post.Draft
}

// CancelFormMsg asks the model to leave the create page.
type CancelFormMsg struct{}

// formState is the create page: title and owner inputs plus a body textarea.
type formState struct {
	title   textinput.Model
	owner   textinput.Model
	body    textarea.Model
	focused int
	pending bool
	err     error
}

// newFormState returns an empty form with the title focused. defaultOwner
// is shown as the owner placeholder.
func newFormState(defaultOwner int) formState {
	title := textinput.New()
	title.Placeholder = "Post title"
	title.CharLimit = 200
	title.Prompt = ""

	owner := textinput.New()
	owner.Placeholder = strconv.Itoa(defaultOwner)
	owner.CharLimit = 9
	owner.Prompt = ""

	body := textarea.New()
	body.Placeholder = "Write your post..."
	body.ShowLineNumbers = false

	fs := formState{title: title, owner: owner, body: body}
	return fs.focus(fieldTitle)
}

// SetSize sizes the body textarea.
func (fs formState) SetSize(width, height int) formState {
	if width < 10 {
		width = 10
	}
	if height < 3 {
		height = 3
	}
	fs.body.SetWidth(width)
	fs.body.SetHeight(height)
	return fs
}

func (fs formState) focus(field int) formState {
	fs.focused = field
	fs.title.Blur()
	fs.owner.Blur()
	fs.body.Blur()
	switch field {
	case fieldTitle:
		fs.title.Focus()
	case fieldOwner:
		fs.owner.Focus()
	case fieldBody:
		fs.body.Focus()
	}
	return fs
}

// Draft builds a draft from the current field values. An empty or
// non-numeric owner leaves OwnerID unset.
func (fs formState) Draft() post.Draft {
	d := post.Draft{
		Title: fs.title.Value(),
		Body:  fs.body.Value(),
	}
	if n, err := strconv.Atoi(strings.TrimSpace(fs.owner.Value())); err == nil {
		d.OwnerID = n
	}
	return d
}

// ownerInvalid reports whether the owner field holds something other than
// a positive integer. An empty field is valid and falls back to the default.
func (fs formState) ownerInvalid() bool {
	v := strings.TrimSpace(fs.owner.Value())
	if v == "" {
		return false
	}
	n, err := strconv.Atoi(v)
	return err != nil || n < 1
}

// CanSubmit reports whether ctrl+s publishes.
func (fs formState) CanSubmit() bool {
	return !fs.pending && !fs.ownerInvalid() && fs.Draft().Ready()
}

// submitted marks the form pending.
func (fs formState) submitted() formState {
	fs.pending = true
	fs.err = nil
	return fs
}

// failed keeps the draft and records the error.
func (fs formState) failed(err error) formState {
	fs.pending = false
	fs.err = err
	return fs
}

// Update routes keys to the focused field.
func (fs formState) Update(msg tea.Msg) (formState, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		keys := FormKeyMap()
		switch {
		case key.Matches(km, keys.Cancel):
			return fs, func() tea.Msg { return CancelFormMsg{} }
		case key.Matches(km, keys.Submit):
			if !fs.CanSubmit() {
				return fs, nil
			}
			d := fs.Draft()
			return fs, func() tea.Msg { return SubmitDraftMsg{Draft: d} }
		case key.Matches(km, keys.Next):
			return fs.focus((fs.focused + 1) % fieldCount), nil
		case key.Matches(km, keys.Prev):
			return fs.focus((fs.focused + fieldCount - 1) % fieldCount), nil
		}
		if fs.pending {
			return fs, nil
		}
	}

	var cmd tea.Cmd
	switch fs.focused {
	case fieldTitle:
		fs.title, cmd = fs.title.Update(msg)
	case fieldOwner:
		fs.owner, cmd = fs.owner.Update(msg)
	case fieldBody:
		fs.body, cmd = fs.body.Update(msg)
	}
	return fs, cmd
}

// View renders the form.
func (fs formState) View() string {
	var b strings.Builder
	b.WriteString(titleText.Render("New post"))
	b.WriteString("\n\n")
	b.WriteString(labelText.Render("Title"))
	b.WriteByte('\n')
	b.WriteString(fs.title.View())
	b.WriteString("\n\n")
	b.WriteString(labelText.Render("User ID"))
	b.WriteByte('\n')
	b.WriteString(fs.owner.View())
	b.WriteString("\n\n")
	b.WriteString(labelText.Render("Content"))
	b.WriteByte('\n')
	b.WriteString(fs.body.View())
	b.WriteString("\n\n")

	switch {
	case fs.pending:
		b.WriteString(mutedText.Render("Publishing..."))
	case fs.CanSubmit():
		b.WriteString(successText.Render("[ctrl+s] Publish"))
	case fs.ownerInvalid():
		b.WriteString(mutedText.Render("[ctrl+s] Publish (user id must be a positive number)"))
	default:
		b.WriteString(mutedText.Render("[ctrl+s] Publish (title and content required)"))
	}
	if fs.err != nil {
		b.WriteString("\n")
		b.WriteString(errorText.Render("Error: " + fs.err.Error()))
	}
	return b.String()
}
