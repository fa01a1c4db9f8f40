// Package tui holds the interactive terminal views: pipeline picker,
// collection spinner, canonical preview and run history.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Padding(1, 0, 1, 2)

	pickerItemStyle = lipgloss.NewStyle().
			Padding(0, 0, 0, 4)

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 0, 0, 2)

	pickerHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)
)

// PipelineItem is one row in the picker.
type PipelineItem struct {
	Name      string
	Collector string
}

type pickerModel struct {
	title     string
	items     []PipelineItem
	cursor    int
	checked   map[int]bool
	confirmed bool
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.confirmed = false
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case " ", "x":
			m.checked[m.cursor] = !m.checked[m.cursor]
		case "a":
			all := len(m.selected()) == len(m.items)
			for i := range m.items {
				m.checked[i] = !all
			}
		case "enter":
			// Enter with nothing ticked takes the row under the cursor.
			if len(m.selected()) == 0 && len(m.items) > 0 {
				m.checked[m.cursor] = true
			}
			m.confirmed = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) selected() []string {
	var names []string
	for i, it := range m.items {
		if m.checked[i] {
			names = append(names, it.Name)
		}
	}
	return names
}

func (m pickerModel) View() string {
	s := pickerTitleStyle.Render(m.title)
	s += "\n"

	for i, it := range m.items {
		box := "[ ]"
		if m.checked[i] {
			box = "[x]"
		}
		label := fmt.Sprintf("%s %s (%s)", box, it.Name, it.Collector)
		if i == m.cursor {
			s += pickerSelectedStyle.Render("> "+label) + "\n"
		} else {
			s += pickerItemStyle.Render(label) + "\n"
		}
	}

	s += pickerHintStyle.Render("↑/↓/j/k navigate  space toggle  a all  enter run  q quit")
	return s
}

// RunPipelinePicker shows an interactive multi-select over pipelines.
// It returns the chosen names in list order, or nil if the user quit.
func RunPipelinePicker(title string, items []PipelineItem) ([]string, error) {
	m := pickerModel{
		title:   title,
		items:   items,
		checked: make(map[int]bool),
	}

	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return nil, err
	}

	final := result.(pickerModel)
	if !final.confirmed {
		return nil, nil
	}
	return final.selected(), nil
}
