package playback

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/hrygo/flashdeck/plugin/tts"
)

// ParseCommand splits a command line on whitespace.
func ParseCommand(command string) []string {
	return strings.Fields(command)
}

// CommandOutput plays clips with an external player. The clip is written to a temporary
// file whose path is appended to Command.
type CommandOutput struct {
	Command []string
}

// Play starts the player on blob and returns without waiting for it to finish.
func (o *CommandOutput) Play(_ context.Context, blob []byte) (tts.Handle, error) {
	if len(o.Command) == 0 {
		return nil, errors.New("player command is not configured")
	}

	tmpFile, err := os.CreateTemp("", "flashdeck_*.audio")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create temp file")
	}
	tmpPath := tmpFile.Name()
	if _, err := tmpFile.Write(blob); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return nil, errors.Wrap(err, "failed to write temp file")
	}
	tmpFile.Close()

	args := append(append([]string{}, o.Command[1:]...), tmpPath)
	cmd := exec.Command(o.Command[0], args...)
	h, err := startHandle(cmd, func() { os.Remove(tmpPath) })
	if err != nil {
		return nil, errors.Wrapf(err, "failed to start player %s", o.Command[0])
	}
	return h, nil
}

// CommandOffline speaks text with a local speech engine such as espeak. Its output is
// never cached.
type CommandOffline struct {
	Command []string
}

// SynthesizeOffline starts the engine on text and returns without waiting for it to finish.
func (o *CommandOffline) SynthesizeOffline(_ context.Context, text string) (tts.Handle, error) {
	if len(o.Command) == 0 {
		return nil, errors.New("offline speech command is not configured")
	}
	args := append(append([]string{}, o.Command[1:]...), text)
	cmd := exec.Command(o.Command[0], args...)
	h, err := startHandle(cmd, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to start offline speech %s", o.Command[0])
	}
	return h, nil
}

// commandHandle controls a running process.
type commandHandle struct {
	cmd         *exec.Cmd
	done        chan struct{}
	stopOnce    sync.Once
	cleanupOnce sync.Once
	cleanup     func()
}

func startHandle(cmd *exec.Cmd, cleanup func()) (*commandHandle, error) {
	h := &commandHandle{
		cmd:     cmd,
		done:    make(chan struct{}),
		cleanup: cleanup,
	}
	if err := cmd.Start(); err != nil {
		h.release()
		return nil, err
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			slog.Debug("playback process exited", "command", cmd.Path, "error", err)
		}
		h.release()
		close(h.done)
	}()
	return h, nil
}

// Stop kills the process and releases the temporary file before returning.
func (h *commandHandle) Stop() error {
	var err error
	h.stopOnce.Do(func() {
		select {
		case <-h.done:
		default:
			if killErr := h.cmd.Process.Kill(); killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
				err = killErr
			}
		}
		h.release()
	})
	return err
}

func (h *commandHandle) Done() <-chan struct{} {
	return h.done
}

func (h *commandHandle) release() {
	h.cleanupOnce.Do(func() {
		if h.cleanup != nil {
			h.cleanup()
		}
	})
}

var (
	_ Output                 = (*CommandOutput)(nil)
	_ tts.OfflineSynthesizer = (*CommandOffline)(nil)
)
