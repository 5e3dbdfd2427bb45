package live

import (
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

// Program runs the live UI on its own goroutine.
type Program struct {
	program *tea.Program
	done    chan struct{}
	final   Model
	err     error
}

// Start launches the live UI writing to stdout. Interactive sessions read
// keys from stdin; otherwise input is disabled except for ctrl+c.
func Start(stdout io.Writer, model Model) *Program {
	if stdout == nil {
		stdout = os.Stdout
	}
	options := []tea.ProgramOption{tea.WithOutput(stdout), tea.WithAltScreen()}
	program := tea.NewProgram(model, options...)
	p := &Program{program: program, done: make(chan struct{}), final: model}
	go func() {
		defer close(p.done)
		final, err := program.Run()
		if typed, ok := final.(Model); ok {
			p.final = typed
		}
		p.err = err
	}()
	return p
}

// Quit asks the UI to exit.
func (p *Program) Quit() {
	if p == nil {
		return
	}
	p.program.Quit()
}

// Wait blocks until the UI has exited and returns the last model.
func (p *Program) Wait() (Model, error) {
	if p == nil {
		return Model{}, nil
	}
	<-p.done
	return p.final, p.err
}
