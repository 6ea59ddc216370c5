package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner запускает внешнюю программу и возвращает обрезанный stdout
type Runner func(ctx context.Context, name string, args ...string) (string, error)

// RunExternal запускает программу. Ненулевой код возврата превращается в ошибку
// с кодом и stderr.
func RunExternal(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return "", ErrTimeout
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", replyErrorf(fmt.Errorf("%s exited with code %d: %w", name, exitErr.ExitCode(), err),
				"Command failed with code %d\nStderr: %s", exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return "", replyErrorf(fmt.Errorf("run %s: %w", name, err), "Error executing command: %v", err)
	}

	return strings.TrimSpace(stdout.String()), nil
}
