package dashboard

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// MinLeftWidth is the minimum character width for the left pane.
const MinLeftWidth = 28

// ownerColors cycles badge colors across owner IDs.
var ownerColors = [5]lipgloss.AdaptiveColor{
	{Light: "4", Dark: "12"},    // blue
	{Light: "2", Dark: "10"},    // green
	{Light: "5", Dark: "13"},    // magenta
	{Light: "208", Dark: "208"}, // orange
	{Light: "6", Dark: "14"},    // cyan
}

var (
	titleText = lipgloss.NewStyle().Bold(true)
	mutedText = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "245"})
	errorText = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "1", Dark: "9"})
	successText = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "2", Dark: "10"})
	labelText = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "4", Dark: "12"})
)

// OwnerBadge returns a styled owner label like "User 3".
func OwnerBadge(ownerID int) string {
	label := fmt.Sprintf("User %d", ownerID)
	if ownerID <= 0 {
		return mutedText.Render(label)
	}
	return lipgloss.NewStyle().
		Foreground(ownerColors[(ownerID-1)%len(ownerColors)]).
		Render(label)
}

// FocusedBorder returns a lipgloss style with an accent-colored rounded border.
func FocusedBorder() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.AdaptiveColor{Light: "4", Dark: "12"})
}

// UnfocusedBorder returns a lipgloss style with a dim rounded border.
func UnfocusedBorder() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.AdaptiveColor{Light: "240", Dark: "240"})
}

// ModalBorder returns the style of the confirmation dialog. A closing dialog
// is drawn dim.
func ModalBorder(closing bool) lipgloss.Style {
	color := lipgloss.AdaptiveColor{Light: "1", Dark: "9"}
	if closing {
		color = lipgloss.AdaptiveColor{Light: "240", Dark: "240"}
	}
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(color).
		Padding(1, 3)
}

// PaneWidths calculates the left and right pane widths from a total width.
// Left pane gets 2/5 (minimum MinLeftWidth), right pane gets the rest.
func PaneWidths(totalWidth int) (left, right int) {
	if totalWidth <= 0 {
		return 0, 0
	}
	left = totalWidth * 2 / 5
	if left < MinLeftWidth {
		left = MinLeftWidth
	}
	right = totalWidth - left
	if right < 0 {
		right = 0
	}
	return left, right
}
