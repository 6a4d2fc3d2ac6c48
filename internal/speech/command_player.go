package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

var errEmptyPlayerCommand = errors.New("player command is empty")

// CommandPlayer plays clips by piping the audio into an external program such
// as "mpg123 -q -" or "ffplay -nodisp -autoexit -loglevel quiet -".
type CommandPlayer struct {
	name string
	args []string

	// mu guarantees a single process owns the audio device.
	mu sync.Mutex
}

// NewCommandPlayer parses a whitespace-separated command line.
func NewCommandPlayer(command string) (*CommandPlayer, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errEmptyPlayerCommand
	}
	return &CommandPlayer{name: fields[0], args: fields[1:]}, nil
}

// Play runs the player to completion. Canceling ctx kills the process.
func (p *CommandPlayer) Play(ctx context.Context, clip Clip) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, p.name, p.args...)
	cmd.Stdin = bytes.NewReader(clip.Audio)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("run %s: %w: %s", p.name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
