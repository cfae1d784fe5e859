package process

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrEmptyCommand is returned when no server command is configured.
var ErrEmptyCommand = errors.New("server command is empty")

// Command is the server process to launch.
type Command struct {
	Argv []string
	// Env is appended to the launcher's own environment.
	Env []string
}

// NewCommand expands ${HOST} and ${PORT} in argv and adds HOST and PORT to
// the child environment.
func NewCommand(argv []string, host string, port int) (Command, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return Command{}, ErrEmptyCommand
	}

	p := strconv.Itoa(port)
	r := strings.NewReplacer("${HOST}", host, "${PORT}", p)

	expanded := make([]string, len(argv))
	for i, a := range argv {
		expanded[i] = r.Replace(a)
	}

	return Command{
		Argv: expanded,
		Env:  []string{"HOST=" + host, "PORT=" + p},
	}, nil
}

func (c Command) String() string {
	return strings.Join(c.Argv, " ")
}

// ExitError reports a child that exited with a non-zero status. Code follows
// the shell convention of 128+signal for children killed by a signal.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("server exited with code %d", e.Code)
}
