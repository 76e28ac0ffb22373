package session

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
)

// runDirect executes the command with inherited stdio: no PTY, no
// recording. Interrupts are caught and dropped in this process while the
// child runs; a caught handler reverts to the default disposition across
// exec, so Ctrl-C still reaches the child through the shared foreground
// process group and its exit code is still collected here.
func (s *Session) runDirect() (int, error) {
	cmd := exec.Command(s.command[0], s.command[1:]...)
	cmd.Stdin = s.stdin
	cmd.Stdout = s.stdout
	cmd.Stderr = s.stderr

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		for range sigCh {
		}
	}()
	defer func() {
		signal.Stop(sigCh)
		close(sigCh)
	}()

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
				return 128 + int(ws.Signal()), nil
			}
			return exitErr.ExitCode(), nil
		}
		return 1, fmt.Errorf("run %s: %w", s.command[0], err)
	}
	return 0, nil
}
