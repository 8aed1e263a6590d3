package chronyc

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Runner executes one chronyc query and returns its stdout.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// daemonErrorNeedles are substrings chronyc prints when it cannot reach the
// daemon. chronyc sometimes exits 0 with one of these on stdout, so output
// is checked in addition to the exit status.
var daemonErrorNeedles = []string{
	"Cannot talk to daemon",
	"506",
	"Could not open command socket",
	"Connection refused",
	"No such file or directory",
	"Operation not permitted",
}

// execRunner shells out to the chronyc binary resolved via PATH.
type execRunner struct {
	binary  string
	timeout time.Duration
}

// NewRunner returns a Runner invoking binary with the given per-call timeout.
func NewRunner(binary string, timeout time.Duration) Runner {
	return &execRunner{binary: binary, timeout: timeout}
}

// Run invokes the binary and returns stdout. A non-zero exit, a timeout,
// empty output, or a known daemon-error message all count as failure.
func (r *execRunner) Run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("chronyc %s: %w (%s)",
			strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}

	out := stdout.String()
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("chronyc %s: empty output", strings.Join(args, " "))
	}
	if msg, bad := daemonError(out); bad {
		return "", fmt.Errorf("chronyc %s: %s", strings.Join(args, " "), msg)
	}
	return out, nil
}

// daemonError reports whether out looks like a chronyc daemon/socket error
// rather than a report, returning the matched needle.
func daemonError(out string) (string, bool) {
	for _, needle := range daemonErrorNeedles {
		if strings.Contains(out, needle) {
			return needle, true
		}
	}
	return "", false
}
