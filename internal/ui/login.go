package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/recast/internal/session"
)

type authMode int

const (
	authLogin authMode = iota
	authRegister
)

// Field indexes. Login uses only email and password.
const (
	fieldEmail = iota
	fieldPassword
	fieldConfirm
	fieldFullName
)

// authForm is the sign-in and registration form.
type authForm struct {
	mode    authMode
	inputs  [4]textinput.Model
	focus   int
	err     string
	pending bool
}

func newAuthForm(mode authMode) authForm {
	f := authForm{mode: mode}
	placeholders := [4]string{"you@example.com", "password", "confirm password", "Jane Doe"}
	for i := range f.inputs {
		in := textinput.New()
		in.Placeholder = placeholders[i]
		in.CharLimit = 128
		in.Width = 36
		if i == fieldPassword || i == fieldConfirm {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		f.inputs[i] = in
	}
	f.focusFirst()
	return f
}

// fields returns the input indexes shown for the current mode, in tab order.
func (f authForm) fields() []int {
	if f.mode == authRegister {
		return []int{fieldFullName, fieldEmail, fieldPassword, fieldConfirm}
	}
	return []int{fieldEmail, fieldPassword}
}

func (f *authForm) focusFirst() {
	f.setFocus(f.fields()[0])
}

func (f *authForm) setFocus(idx int) {
	f.focus = idx
	for i := range f.inputs {
		if i == idx {
			f.inputs[i].Focus()
		} else {
			f.inputs[i].Blur()
		}
	}
}

func (f *authForm) moveFocus(delta int) {
	order := f.fields()
	pos := 0
	for i, idx := range order {
		if idx == f.focus {
			pos = i
		}
	}
	pos = (pos + delta + len(order)) % len(order)
	f.setFocus(order[pos])
}

func (f *authForm) value(idx int) string {
	return f.inputs[idx].Value()
}

// validate runs the same checks the session store applies, plus the
// confirmation match that only the form knows about.
func (f authForm) validate() error {
	if f.mode == authRegister {
		return session.ValidateRegistration(f.value(fieldEmail), f.value(fieldPassword), f.value(fieldConfirm), f.value(fieldFullName))
	}
	return session.ValidateCredentials(f.value(fieldEmail), f.value(fieldPassword))
}

func (f *authForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

// handleAuthKey processes keys on the login view.
func (m Model) handleAuthKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.auth.pending {
		return m, nil
	}
	switch {
	case msg.Type == tea.KeyEsc:
		m.stopPoller()
		return m, tea.Quit
	case key.Matches(msg, m.keys.SwitchAuthMode):
		mode := authRegister
		if m.auth.mode == authRegister {
			mode = authLogin
		}
		email := m.auth.value(fieldEmail)
		m.auth = newAuthForm(mode)
		m.auth.inputs[fieldEmail].SetValue(email)
		return m, textinput.Blink
	case key.Matches(msg, m.keys.NextField):
		m.auth.moveFocus(1)
		return m, nil
	case key.Matches(msg, m.keys.PrevField):
		m.auth.moveFocus(-1)
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		order := m.auth.fields()
		if m.auth.focus != order[len(order)-1] {
			m.auth.moveFocus(1)
			return m, nil
		}
		return m.submitAuth()
	}
	m.auth.err = ""
	return m, m.auth.update(msg)
}

func (m Model) submitAuth() (tea.Model, tea.Cmd) {
	if err := m.auth.validate(); err != nil {
		m.auth.err = err.Error()
		return m, nil
	}
	if m.session == nil {
		return m, nil
	}
	m.auth.err = ""
	m.auth.pending = true

	store, ctx := m.session, m.ctx
	email, password := m.auth.value(fieldEmail), m.auth.value(fieldPassword)
	if m.auth.mode == authRegister {
		fullName := m.auth.value(fieldFullName)
		return m, func() tea.Msg {
			return authResultMsg{result: store.Register(ctx, email, password, fullName)}
		}
	}
	return m, func() tea.Msg {
		return authResultMsg{result: store.Login(ctx, email, password)}
	}
}

func (m Model) handleAuthResult(msg authResultMsg) (tea.Model, tea.Cmd) {
	m.auth.pending = false
	if !msg.result.OK {
		m.auth.err = msg.result.Message
		m.notify(toastError, msg.result.Message)
		return m, nil
	}
	m.notify(toastSuccess, msg.result.Message)
	m.auth = newAuthForm(authLogin)
	return m.switchView(ViewJobs)
}

// renderLogin renders the centered sign-in or registration form.
func (m Model) renderLogin() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	title := "Sign in to recast"
	switchHint := "ctrl+r: create an account"
	if m.auth.mode == authRegister {
		title = "Create a recast account"
		switchHint = "ctrl+r: sign in instead"
	}
	labels := map[int]string{
		fieldEmail:    "Email",
		fieldPassword: "Password",
		fieldConfirm:  "Confirm",
		fieldFullName: "Full name",
	}

	var b strings.Builder
	b.WriteString(bg.Render(title, styles.Logo))
	b.WriteString("\n\n")
	for _, idx := range m.auth.fields() {
		labelStyle := styles.MutedText
		if idx == m.auth.focus {
			labelStyle = styles.AccentText
		}
		b.WriteString(bg.Render(padRight(labels[idx], 11), labelStyle))
		b.WriteString(m.auth.inputs[idx].View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	switch {
	case m.auth.pending:
		b.WriteString(bg.Render("Working...", styles.WarningText))
	case m.auth.err != "":
		b.WriteString(bg.Render(m.auth.err, styles.DangerText))
	default:
		b.WriteString(bg.Render("enter: submit  tab: next field  esc: quit", styles.FaintText))
	}
	b.WriteString("\n")
	b.WriteString(bg.Render(switchHint, styles.FaintText))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.BorderFocus)).
		Background(lipgloss.Color(m.theme.Surface)).
		Padding(1, 2).
		Width(56).
		Render(b.String())

	form := lipgloss.Place(m.width, max(m.height-1, 1), lipgloss.Center, lipgloss.Center, box,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceBackground(lipgloss.Color(m.theme.Background)))
	return form + "\n" + m.renderToasts()
}

// renderCentered renders a single message in the middle of the screen.
func (m Model) renderCentered(text string) string {
	styles := m.theme.Styles()
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		styles.MutedText.Render(text),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceBackground(lipgloss.Color(m.theme.Background)))
}
