package ui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// Confirm asks the user a yes/no question on stderr and returns the answer.
// bypassHint describes how to skip the prompt in non-interactive mode (e.g.
// "use --yes to skip"). Non-interactive terminals return *ErrNoInteraction
// with the hint embedded.
func Confirm(question string, bypassHint string) (bool, error) {
	if err := RequireInteraction(bypassHint); err != nil {
		return false, fmt.Errorf("confirmation required: %w", err)
	}

	m := &confirmModel{question: question}
	p := tea.NewProgram(m,
		tea.WithOutput(os.Stderr),
	)

	if _, err := p.Run(); err != nil {
		return false, fmt.Errorf("confirm prompt: %w", err)
	}

	if m.cancelled {
		return false, ErrCancelled
	}
	return m.confirmed, nil
}

// PasswordPrompt reads a secret from the terminal without echo. The value
// never touches argv, the environment, or any file; it lives only in the
// returned string. bypassHint names the unattended alternative.
func PasswordPrompt(label, bypassHint string) (string, error) {
	if err := RequireInteraction(bypassHint); err != nil {
		return "", fmt.Errorf("password required: %w", err)
	}

	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return "", fmt.Errorf("open terminal for password prompt: %w", err)
	}
	defer tty.Close()

	fmt.Fprint(tty, AccentStyle.Render("?")+" "+label+": ")
	secret, err := term.ReadPassword(int(tty.Fd()))
	fmt.Fprintln(tty)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(secret), nil
}

// confirmModel is a bubbletea model for yes/no confirmation.
type confirmModel struct {
	question  string
	confirmed bool
	cancelled bool
	answered  bool
}

func (m *confirmModel) Init() tea.Cmd { return nil }

func (m *confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "y", "Y":
			m.confirmed = true
			m.answered = true
			return m, tea.Quit
		case "n", "N", "enter":
			m.confirmed = false
			m.answered = true
			return m, tea.Quit
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *confirmModel) View() string {
	if m.answered || m.cancelled {
		return ""
	}
	return AccentStyle.Render("?") + " " + m.question + " " + MutedStyle.Render("[y/N]") + " "
}
