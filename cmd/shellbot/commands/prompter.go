package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shellbot-ai/shellbot/internal/permission"
)

// terminalPrompter asks the operator for a decision on stdin. It is the
// interactive approval collaborator for the run command.
type terminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newTerminalPrompter(in io.Reader, out io.Writer) *terminalPrompter {
	return &terminalPrompter{in: bufio.NewReader(in), out: out}
}

func (p *terminalPrompter) RequestApproval(ctx context.Context, req permission.ApprovalRequest) (permission.Decision, error) {
	fmt.Fprintf(p.out, "\nApproval required for:\n  %s\n", req.Command)
	if len(req.Components) > 1 {
		for _, comp := range req.Components {
			if !comp.Empty() {
				fmt.Fprintf(p.out, "    - %s\n", comp.Signature())
			}
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return permission.DenyOnce, err
		}

		fmt.Fprint(p.out, "[y]es once, [a]lways, [n]o, [d]eny always: ")
		line, err := p.in.ReadString('\n')
		if err != nil {
			return permission.DenyOnce, fmt.Errorf("failed to read decision: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return permission.ApproveOnce, nil
		case "a", "always":
			return permission.ApproveAlways, nil
		case "n", "no":
			return permission.DenyOnce, nil
		case "d", "deny":
			return permission.DenyAlways, nil
		}
		fmt.Fprintln(p.out, "Unrecognized answer.")
	}
}
