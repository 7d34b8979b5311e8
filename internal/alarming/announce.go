package alarming

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// CommandAnnouncer shells out to a site-local command that performs the audio
// announcement, e.g. a text-to-speech wrapper on the gate controller host.
// The command receives the message and volume as its final two arguments.
type CommandAnnouncer struct {
	command string
	args    []string
	timeout time.Duration
}

// NewCommandAnnouncer parses a space-separated command line. Returns nil when
// the command line is empty so callers can pass the result to NewExecutor.
func NewCommandAnnouncer(commandLine string, timeout time.Duration) *CommandAnnouncer {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CommandAnnouncer{
		command: fields[0],
		args:    fields[1:],
		timeout: timeout,
	}
}

// Announce runs the configured command with the message and volume appended.
func (a *CommandAnnouncer) Announce(ctx context.Context, message string, volume int) error {
	runCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	args := append(append([]string{}, a.args...), message, strconv.Itoa(volume))
	cmd := exec.CommandContext(runCtx, a.command, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		trimmed := strings.TrimSpace(string(output))
		if trimmed != "" {
			return fmt.Errorf("announce command failed: %w: %s", err, trimmed)
		}
		return fmt.Errorf("announce command failed: %w", err)
	}
	return nil
}
