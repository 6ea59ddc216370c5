package command

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab-agent/common"
)

func newTestExecutor(t *testing.T, timeout time.Duration, entries ...HandlerEntry) *Executor {
	t.Helper()
	r, err := NewRegistry(entries...)
	require.NoError(t, err)
	return NewExecutor(r, timeout, nil)
}

func TestExecutorUnknownCommand(t *testing.T) {
	e := newTestExecutor(t, time.Second, Builtins(Options{WorkDir: t.TempDir()})...)

	for _, name := range []string{"rm", "Reboot", "definitely-not-there"} {
		result := e.Run(context.Background(), common.Command{Name: name})

		assert.Equal(t, common.StatusError, result.Status)
		assert.Contains(t, result.Data, "Unknown command '"+name+"'.")
		assert.Equal(t, strings.ToLower(name), result.Echo)
	}
}

func TestExecutorSuccess(t *testing.T) {
	e := newTestExecutor(t, time.Second, HandlerEntry{
		Name:    "echo",
		Aliases: []string{"echo", "say"},
		Invoke: func(_ context.Context, args []string) (string, error) {
			return strings.Join(args, "|"), nil
		},
	})

	result := e.Run(context.Background(), common.Command{Name: "SAY", Arguments: []string{"a", "b c"}})
	assert.Equal(t, common.CommandResult{Status: common.StatusSuccess, Echo: "say", Data: "a|b c"}, result)
}

func TestExecutorHandlerError(t *testing.T) {
	e := newTestExecutor(t, time.Second, HandlerEntry{
		Name: "fail",
		Invoke: func(context.Context, []string) (string, error) {
			return "", errors.New("disk on fire")
		},
	})

	result := e.Run(context.Background(), common.Command{Name: "fail"})
	assert.Equal(t, common.StatusError, result.Status)
	assert.Equal(t, "Error: disk on fire", result.Data)
}

func TestExecutorRecoversPanic(t *testing.T) {
	e := newTestExecutor(t, time.Second, HandlerEntry{
		Name: "boom",
		Invoke: func(context.Context, []string) (string, error) {
			panic("kaboom")
		},
	})

	var result common.CommandResult
	require.NotPanics(t, func() {
		result = e.Run(context.Background(), common.Command{Name: "boom"})
	})
	assert.Equal(t, common.StatusError, result.Status)
	assert.Equal(t, "Error processing command: kaboom", result.Data)
}

func TestExecutorTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	e := newTestExecutor(t, 50*time.Millisecond, HandlerEntry{
		Name: "slow",
		Invoke: func(context.Context, []string) (string, error) {
			<-release
			return "too late", nil
		},
	})

	start := time.Now()
	result := e.Run(context.Background(), common.Command{Name: "slow"})

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, common.StatusError, result.Status)
	assert.Equal(t, "Error: Command timed out.", result.Data)
	assert.Equal(t, "slow", result.Echo)
}

func TestExecutorHandlerSeesDeadline(t *testing.T) {
	e := newTestExecutor(t, time.Second, HandlerEntry{
		Name: "deadline",
		Invoke: func(ctx context.Context, _ []string) (string, error) {
			if _, ok := ctx.Deadline(); !ok {
				return "", errors.New("no deadline")
			}
			return "ok", nil
		},
	})

	result := e.Run(context.Background(), common.Command{Name: "deadline"})
	assert.Equal(t, common.StatusSuccess, result.Status)
}

func TestNewExecutorDefaultTimeout(t *testing.T) {
	e := NewExecutor(MustRegistry(), 0, nil)
	assert.Equal(t, DefaultTimeout, e.timeout)
}
