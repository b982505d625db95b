package capture

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Runner launches a process and waits for it to exit.
type Runner interface {
	// Run returns the exit status and everything written to stdout. err is
	// non-nil only when the process could not be started or ctx ended it.
	Run(ctx context.Context, name string, args ...string) (status int, output []byte, err error)
}

// ExecRunner runs real processes via os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (int, []byte, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, out.Bytes(), ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), out.Bytes(), nil
	}
	if err != nil {
		return -1, out.Bytes(), err
	}
	return 0, out.Bytes(), nil
}
