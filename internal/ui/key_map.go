package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the bindings for each step of the compare, plan and confirm flow.
type keyMap struct {
	up        key.Binding
	down      key.Binding
	review    key.Binding // plan -> confirm
	start     key.Binding
	cancel    key.Binding
	dryRun    key.Binding
	recompare key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		review:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "review sync")),
		start:     key.NewBinding(key.WithKeys("y", "enter"), key.WithHelp("y", "start")),
		cancel:    key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n/esc", "back to plan")),
		dryRun:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "toggle dry run")),
		recompare: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "compare again")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// planHelp lists the bindings shown under the plan list.
func (k keyMap) planHelp() []key.Binding {
	return []key.Binding{k.up, k.down, k.review, k.quit}
}

// confirmHelp lists the bindings shown on the confirmation screen.
func (k keyMap) confirmHelp() []key.Binding {
	return []key.Binding{k.start, k.cancel, k.dryRun}
}

// resultHelp lists the bindings shown with a finished run.
func (k keyMap) resultHelp() []key.Binding {
	return []key.Binding{k.recompare, k.quit}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		k.planHelp(),
		k.confirmHelp(),
		k.resultHelp(),
	}
}
