package process

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

// Runner executes an external command given as an argument vector and
// returns its captured stdout and stderr. No shell is involved.
type Runner func(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)

// waitDelay bounds how long Wait blocks on I/O after the context kills
// the command, e.g. when a grandchild keeps the pipes open.
const waitDelay = time.Second

// ExecRunner runs commands through os/exec
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
