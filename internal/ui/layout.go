// Package ui holds rendering helpers shared by terminal views.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tolerance-rules/internal/theme"
)

// Layout splits the terminal into a one-line header, a content area and a
// one-line status bar.
type Layout struct {
	Width  int
	Height int
}

// NewLayout creates a Layout with the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{Width: width, Height: height}
}

// ContentHeight returns the rows left between header and status bar.
func (l Layout) ContentHeight() int {
	if l.Height < 2 {
		return 0
	}
	return l.Height - 2
}

// Header renders title on the left and status on the right.
func (l Layout) Header(title, status string) string {
	return l.bar(theme.HeaderStyle, title, status)
}

// StatusBar renders hints on the left and info on the right.
func (l Layout) StatusBar(hints, info string) string {
	return l.bar(theme.StatusBarStyle, hints, info)
}

// Frame stacks header, content and status bar.
func (l Layout) Frame(header, content, statusBar string) string {
	content = lipgloss.NewStyle().
		Height(l.ContentHeight()).
		MaxHeight(l.ContentHeight()).
		Render(content)
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}

// bar renders left and right with style, padding the gap between them so
// the background spans the full width.
func (l Layout) bar(style lipgloss.Style, left, right string) string {
	leftRendered := style.Render(left)
	var rightRendered string
	if right != "" {
		rightRendered = style.Render(right)
	}

	gap := max(l.Width-lipgloss.Width(leftRendered)-lipgloss.Width(rightRendered), 0)
	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, leftRendered, filler, rightRendered)
}
