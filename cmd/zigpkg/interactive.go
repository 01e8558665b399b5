package main

import (
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/zigpkg"
	"github.com/wippyai/zigpkg/entrypoint"
	"github.com/wippyai/zigpkg/errors"
	"github.com/wippyai/zigpkg/loader"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type callFunc func(op string, n uint64) (uint64, error)

type interactiveModel struct {
	err      error
	call     callFunc
	header   string
	result   string
	ops      []loader.OpInfo
	input    textinput.Model
	selected int
	state    modelState
}

type modelState int

const (
	stateSelectOp modelState = iota
	stateInputArg
	stateShowResult
)

type callResultMsg struct {
	err    error
	result string
}

func newInteractiveModel(info loader.Info, call callFunc) *interactiveModel {
	return &interactiveModel{
		call:   call,
		ops:    info.Ops,
		header: fmt.Sprintf("%s  %s", info.Variant, info.Path),
		state:  stateSelectOp,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputArg {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectOp && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectOp && m.selected < len(m.ops)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectOp:
				if len(m.ops) == 0 {
					return m, nil
				}
				m.prepareInput()
				m.state = stateInputArg
				return m, textinput.Blink

			case stateInputArg:
				return m, m.callOp

			case stateShowResult:
				m.reset()
			}
			return m, nil

		case "esc":
			if m.state != stateSelectOp {
				m.reset()
			}
			return m, nil
		}

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
		return m, nil
	}

	if m.state == stateInputArg {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *interactiveModel) reset() {
	m.state = stateSelectOp
	m.result = ""
	m.err = nil
}

func (m *interactiveModel) prepareInput() {
	op := m.ops[m.selected]
	ti := textinput.New()
	ti.Placeholder = paramType(op.Signature)
	ti.Prompt = "n: "
	ti.Width = 40
	ti.Focus()
	m.input = ti
}

func (m *interactiveModel) callOp() tea.Msg {
	op := m.ops[m.selected]
	n, err := strconv.ParseUint(strings.TrimSpace(m.input.Value()), 10, 64)
	if err != nil {
		return callResultMsg{err: fmt.Errorf("invalid number %q", m.input.Value())}
	}

	v, err := m.call(op.Name, n)
	if stderrors.Is(err, errors.ErrResultOverflow) {
		return callResultMsg{err: errOverflowed}
	}
	if err != nil {
		return callResultMsg{err: err}
	}
	return callResultMsg{result: fmt.Sprintf("%s(%d) = %d", op.Name, n, v)}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("zigpkg"))
	b.WriteString(" ")
	b.WriteString(m.header)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectOp:
		if len(m.ops) == 0 {
			b.WriteString(errorStyle.Render("The loaded module exports no operations."))
			b.WriteString("\n\n")
			b.WriteString(helpStyle.Render("q quit"))
			break
		}
		b.WriteString("Select an operation:\n\n")
		for i, op := range m.ops {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + formatOp(op)))
			} else {
				b.WriteString("  " + formatOp(op))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArg:
		op := m.ops[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(op.Name)))
		b.WriteString(m.input.View())
		b.WriteString(" ")
		b.WriteString(typeStyle.Render(paramType(op.Signature)))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter call • esc back"))

	case stateShowResult:
		op := m.ops[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(op.Name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func formatOp(op loader.OpInfo) string {
	var params []string
	for _, p := range op.Signature.Params {
		params = append(params, "n: "+typeStyle.Render(entrypoint.TypeString(p)))
	}
	result := ""
	if len(op.Signature.Results) > 0 {
		result = " -> " + typeStyle.Render(entrypoint.TypeString(op.Signature.Results[0]))
	}
	return funcStyle.Render(op.Name) + "(" + strings.Join(params, ", ") + ")" + result
}

func paramType(sig entrypoint.Signature) string {
	if len(sig.Params) == 0 {
		return ""
	}
	return entrypoint.TypeString(sig.Params[0])
}

func newInteractiveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Pick an operation and call it from a terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("interactive mode requires a terminal")
			}
			if err := opts.initialize(cmd.Context()); err != nil {
				return err
			}
			model := newInteractiveModel(zigpkg.Info(), zigpkg.Default().Call)
			_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
			return err
		},
	}
}
