package enroll

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Prompter collects the metadata of the identity being enrolled.
type Prompter interface {
	Prompt(ctx context.Context, id int) (displayName, externalReference string, err error)
}

// StaticPrompter returns fixed values, e.g. from command-line flags.
type StaticPrompter struct {
	DisplayName       string
	ExternalReference string
}

func (p StaticPrompter) Prompt(ctx context.Context, id int) (string, string, error) {
	return p.DisplayName, p.ExternalReference, nil
}

// LinePrompter asks for each missing value on Out and reads one line from In.
// Preset values are used as is and not prompted for.
type LinePrompter struct {
	In  io.Reader
	Out io.Writer

	DisplayName       string
	ExternalReference string
}

func (p LinePrompter) Prompt(ctx context.Context, id int) (string, string, error) {
	reader := bufio.NewReader(p.In)

	name := p.DisplayName
	if name == "" {
		var err error
		if name, err = readLine(reader, p.Out, "Enter name: "); err != nil {
			return "", "", err
		}
	}
	ref := p.ExternalReference
	if ref == "" {
		var err error
		if ref, err = readLine(reader, p.Out, "Enter roll number: "); err != nil {
			return "", "", err
		}
	}
	return name, ref, nil
}

func readLine(r *bufio.Reader, w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
