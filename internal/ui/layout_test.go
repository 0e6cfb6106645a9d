package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestLayout_ContentHeight(t *testing.T) {
	assert.Equal(t, 22, NewLayout(80, 24).ContentHeight())
	assert.Equal(t, 0, NewLayout(80, 1).ContentHeight())
}

func TestLayout_HeaderSpansWidth(t *testing.T) {
	l := NewLayout(60, 20)

	header := l.Header("tolerance", "3 orgs")

	assert.Equal(t, 60, lipgloss.Width(header))
	assert.Contains(t, header, "tolerance")
	assert.Contains(t, header, "3 orgs")
}

func TestLayout_BarNarrowerThanText(t *testing.T) {
	l := NewLayout(5, 20)

	bar := l.StatusBar("a long list of hints", "")

	assert.Contains(t, bar, "hints")
}

func TestLayout_Frame(t *testing.T) {
	l := NewLayout(40, 6)

	out := l.Frame("HEAD", "body", "FOOT")
	lines := strings.Split(out, "\n")

	assert.Len(t, lines, 6)
	assert.Contains(t, lines[0], "HEAD")
	assert.Contains(t, lines[1], "body")
	assert.Contains(t, lines[5], "FOOT")
}
