package dashboard

import "github.com/charmbracelet/bubbles/help"

// HelpBindings returns the help.KeyMap for the given mode, providing
// context-aware help bar content. An open modal takes precedence.
func HelpBindings(mode Mode, modalOpen bool) help.KeyMap {
	if modalOpen {
		return ConfirmKeyMap()
	}
	switch mode {
	case ModeDetail:
		return DetailKeyMap()
	case ModeCreate:
		return FormKeyMap()
	default:
		return ListKeyMap()
	}
}
