package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"taskdash/internal/service"
)

// authForm is the username/password form shared by the login and register
// screens.
type authForm struct {
	inputs [2]textinput.Model
	focus  int
}

func newAuthForm() authForm {
	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = 64
	username.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128

	return authForm{inputs: [2]textinput.Model{username, password}}
}

func (f *authForm) credentials() service.Credentials {
	return service.Credentials{
		Username: f.inputs[0].Value(),
		Password: f.inputs[1].Value(),
	}
}

// lastField reports whether enter should submit rather than advance.
func (f *authForm) lastField() bool {
	return f.focus == len(f.inputs)-1
}

func (f *authForm) move(delta int) {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
}

// update handles navigation keys and forwards the rest to the focused input.
func (f *authForm) update(msg tea.Msg, keys formKeys) tea.Cmd {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, keys.Next):
			f.move(1)
			return nil
		case key.Matches(km, keys.Prev):
			f.move(-1)
			return nil
		}
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *authForm) view() string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("Username"))
	b.WriteString(f.inputs[0].View())
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Password"))
	b.WriteString(f.inputs[1].View())
	return b.String()
}
