package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings of the watch dashboard.
type KeyMap struct {
	Down key.Binding
	Up   key.Binding

	// Evaluate the selected organization now.
	Run key.Binding
	// Evaluate every organization now.
	RunAll key.Binding

	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Run: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "run selected"),
		),
		RunAll: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "run all"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.RunAll, k.Run, k.Help, k.Quit}
}

// FullHelp returns all keybindings grouped by category.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Run, k.RunAll},
		{k.Help, k.Quit},
	}
}
