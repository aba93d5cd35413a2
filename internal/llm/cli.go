package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// defaultCLITimeout bounds an external command when no per-call timeout is
// given.
const defaultCLITimeout = 120 * time.Second

// cliProvider invokes an external command per generation call. The prompt
// is written to stdin; stdout is the response text. The model identifier,
// when set, is passed as a final argument so provider-agnostic wrapper
// scripts can route it.
type cliProvider struct {
	command string
	args    []string
}

func (p *cliProvider) Name() string {
	return "cli/" + p.command
}

func (p *cliProvider) Generate(ctx context.Context, prompt string, opts Opts) (Result, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultCLITimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := p.args
	if opts.Model != "" {
		args = append(append([]string{}, p.args...), opts.Model)
	}

	cmd := exec.CommandContext(callCtx, p.command, args...)
	cmd.Stdin = bytes.NewReader([]byte(prompt))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if callCtx.Err() == context.DeadlineExceeded {
		return Result{ExitCode: -1, TimedOut: true}, fmt.Errorf("command %q timed out after %s", p.command, timeout)
	}
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return Result{Text: stdout.String(), ExitCode: exitCode},
			fmt.Errorf("command %q failed (exit %d): %s", p.command, exitCode, stderr.String())
	}

	return Result{Text: stdout.String()}, nil
}
