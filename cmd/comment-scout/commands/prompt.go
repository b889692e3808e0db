package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Login prompt modes
const (
	loginAuto   = "auto"
	loginAlways = "always"
	loginNever  = "never"
)

// console reads operator answers from one buffered input
type console struct {
	in  *bufio.Reader
	out io.Writer
}

func newConsole(in io.Reader, out io.Writer) *console {
	return &console{in: bufio.NewReader(in), out: out}
}

// confirm asks a y/n question; anything but y or yes, including closed
// input, is no
func (c *console) confirm(question string) (bool, error) {
	fmt.Fprintf(c.out, "%s (y/n): ", question)
	line, err := c.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// waitForEnter closes the returned channel once the operator presses Enter
// or input ends
func (c *console) waitForEnter(message string) <-chan struct{} {
	fmt.Fprintln(c.out, message)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.in.ReadString('\n')
	}()
	return done
}

// needsLogin decides whether to run manual login given the prompt mode,
// whether the session loaded credentials and whether a saved login exists
func needsLogin(c *console, mode string, authenticated, stored bool) (bool, error) {
	switch mode {
	case loginAlways:
		return true, nil
	case loginNever:
		return false, nil
	}
	if authenticated {
		return false, nil
	}
	if stored {
		return c.confirm("Saved login could not be loaded. Log in manually in the browser now?")
	}
	return c.confirm("No saved login found. Log in manually in the browser now?")
}
