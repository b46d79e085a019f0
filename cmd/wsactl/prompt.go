package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/lzjever/mbos-wsa/internal/core"
)

var ErrNotInteractive = errors.New("stdin is not a terminal")

// Prompter asks the user for confirmations and parameter values.
type Prompter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
	assumeYes   bool
}

func NewPrompter(in io.Reader, out io.Writer, interactive, assumeYes bool) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, interactive: interactive, assumeYes: assumeYes}
}

func stdinPrompter(out io.Writer) *Prompter {
	return NewPrompter(os.Stdin, out, term.IsTerminal(int(os.Stdin.Fd())), assumeYes)
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks a yes/no question defaulting to no. --yes answers it without
// reading stdin.
func (p *Prompter) Confirm(question string) (bool, error) {
	if p.assumeYes {
		return true, nil
	}
	if !p.interactive {
		return false, fmt.Errorf("%w: pass --yes to confirm", ErrNotInteractive)
	}
	fmt.Fprintf(p.out, "%s [y/N] ", question)
	answer, err := p.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Choose asks for one of choices by number. An empty answer picks def.
func (p *Prompter) Choose(question string, choices []string, def int) (int, error) {
	if !p.interactive {
		if def >= 0 {
			return def, nil
		}
		return -1, fmt.Errorf("%w: cannot choose %s", ErrNotInteractive, question)
	}
	fmt.Fprintln(p.out, question)
	for i, c := range choices {
		marker := " "
		if i == def {
			marker = "*"
		}
		fmt.Fprintf(p.out, " %s %d) %s\n", marker, i+1, c)
	}
	for attempt := 0; attempt < 3; attempt++ {
		fmt.Fprint(p.out, "> ")
		answer, err := p.readLine()
		if err != nil {
			return -1, err
		}
		if answer == "" && def >= 0 {
			return def, nil
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= 1 && n <= len(choices) {
			return n - 1, nil
		}
		fmt.Fprintf(p.out, "enter a number between 1 and %d\n", len(choices))
	}
	return -1, errors.New("no valid choice given")
}

// AskParameters prompts for each parameter in turn, listing its options and
// offering its default.
func (p *Prompter) AskParameters(params []core.TemplateVersionParameter) ([]core.WorkspaceBuildParameter, error) {
	if !p.interactive {
		names := make([]string, len(params))
		for i, param := range params {
			names[i] = param.Name
		}
		return nil, fmt.Errorf("%w: missing values for %s, pass them with --param name=value",
			ErrNotInteractive, strings.Join(names, ", "))
	}
	out := make([]core.WorkspaceBuildParameter, 0, len(params))
	for _, param := range params {
		value, err := p.askParameter(param)
		if err != nil {
			return nil, err
		}
		out = append(out, core.WorkspaceBuildParameter{Name: param.Name, Value: value})
	}
	return out, nil
}

func (p *Prompter) askParameter(param core.TemplateVersionParameter) (string, error) {
	fmt.Fprintf(p.out, "%s", param.Label())
	if param.Description != "" {
		fmt.Fprintf(p.out, " (%s)", param.Description)
	}
	fmt.Fprintln(p.out)
	for i, o := range param.Options {
		fmt.Fprintf(p.out, "  %d) %s", i+1, o.Name)
		if o.Value != o.Name {
			fmt.Fprintf(p.out, " [%s]", o.Value)
		}
		fmt.Fprintln(p.out)
	}

	for attempt := 0; attempt < 3; attempt++ {
		if param.DefaultValue != "" {
			fmt.Fprintf(p.out, "%s [%s]: ", param.Name, param.DefaultValue)
		} else {
			fmt.Fprintf(p.out, "%s: ", param.Name)
		}
		answer, err := p.readLine()
		if err != nil {
			return "", err
		}
		if answer == "" {
			answer = param.DefaultValue
		}
		if answer == "" && param.Required {
			fmt.Fprintln(p.out, "a value is required")
			continue
		}
		if len(param.Options) == 0 || answer == "" {
			return answer, nil
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(param.Options) {
			return param.Options[n-1].Value, nil
		}
		if param.HasOption(answer) {
			return answer, nil
		}
		fmt.Fprintln(p.out, "pick one of the listed options")
	}
	return "", fmt.Errorf("no valid value given for %s", param.Name)
}

// parseParams reads repeated --param name=value flags.
func parseParams(args []string) ([]core.WorkspaceBuildParameter, error) {
	var out []core.WorkspaceBuildParameter
	seen := make(map[string]bool, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected name=value", arg)
		}
		if seen[name] {
			return nil, fmt.Errorf("parameter %q given more than once", name)
		}
		seen[name] = true
		out = append(out, core.WorkspaceBuildParameter{Name: name, Value: value})
	}
	return out, nil
}
