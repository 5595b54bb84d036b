package tui

import "github.com/charmbracelet/lipgloss"

type Styles struct {
	App         lipgloss.Style
	Title       lipgloss.Style
	Label       lipgloss.Style
	Row         lipgloss.Style
	RowSelected lipgloss.Style
	Pointer     lipgloss.Style
	Button      lipgloss.Style
	ButtonAlert lipgloss.Style
	Back        lipgloss.Style
	ErrorText   lipgloss.Style
	Help        lipgloss.Style
	Spinner     lipgloss.Style
}

func DefaultStyles() Styles {
	s := Styles{}
	s.App = lipgloss.NewStyle().Padding(1, 2)
	s.Title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1DB954"))
	s.Label = lipgloss.NewStyle()
	s.Row = lipgloss.NewStyle()
	s.RowSelected = lipgloss.NewStyle().Foreground(lipgloss.Color("#1DB954")).Bold(true)
	s.Pointer = lipgloss.NewStyle().Foreground(lipgloss.Color("#1DB954"))
	s.Button = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder(), true).
		Padding(0, 2)
	s.ButtonAlert = s.Button.BorderForeground(lipgloss.Color("#E0245E"))
	s.Back = lipgloss.NewStyle().Underline(true)
	s.ErrorText = lipgloss.NewStyle().Foreground(lipgloss.Color("#E0245E"))
	s.Help = lipgloss.NewStyle().Faint(true)
	s.Spinner = lipgloss.NewStyle().Foreground(lipgloss.Color("#1DB954"))
	return s
}
