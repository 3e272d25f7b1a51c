package deploy

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// StdioConfirmer asks yes/no questions on a reader/writer pair,
// defaulting to no.
type StdioConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

var _ Confirmer = (*StdioConfirmer)(nil)

func NewStdioConfirmer(in io.Reader, out io.Writer) *StdioConfirmer {
	return &StdioConfirmer{in: bufio.NewReader(in), out: out}
}

func (c *StdioConfirmer) Confirm(prompt string) (bool, error) {
	fmt.Fprintf(c.out, "%s [y/N]: ", prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
