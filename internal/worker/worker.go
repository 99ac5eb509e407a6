package worker

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/andresmejia3/willis/internal/utils"
)

// DefaultCommand runs the MediaPipe landmarker script.
const DefaultCommand = "python3 -u python/landmarker.py"

// DefaultTimeout bounds a single request/response round trip.
const DefaultTimeout = 30 * time.Second

// maxResponse guards against a corrupted length header.
const maxResponse = 64 << 20

type PythonWorker struct {
	ID       int
	Cmd      *utils.SafeCommand
	Stdin    io.WriteCloser
	DataPipe io.ReadCloser
	Timeout  time.Duration
}

// NewPythonWorker starts command (split on whitespace) with the response
// pipe attached as FD 3.
func NewPythonWorker(id int, command string) (*PythonWorker, error) {
	args := strings.Fields(command)
	if len(args) == 0 {
		args = strings.Fields(DefaultCommand)
	}
	py := utils.NewSafeCommand(args[0], args[1:]...)

	// Create a side-channel pipe (FD 3) for clean data transfer
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	py.Cmd.ExtraFiles = []*os.File{w}

	stdin, err := py.StdinPipe()
	if err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := py.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("worker %d failed to start: %w", id, err)
	}

	// Only the child keeps the write end
	w.Close()

	return &PythonWorker{
		ID:       id,
		Cmd:      py,
		Stdin:    stdin,
		DataPipe: r,
		Timeout:  DefaultTimeout,
	}, nil
}

// Communicate sends one [len][data] request and reads one [len][payload]
// response.
func (w *PythonWorker) Communicate(data []byte) ([]byte, error) {
	if err := binary.Write(w.Stdin, binary.BigEndian, uint32(len(data))); err != nil {
		return nil, err
	}
	if _, err := w.Stdin.Write(data); err != nil {
		return nil, err
	}

	header := make([]byte, 4)
	if _, err := io.ReadFull(w.DataPipe, header); err != nil {
		// a crashed interpreter shows up here as EOF
		return nil, err
	}

	respLen := binary.BigEndian.Uint32(header)
	if respLen > maxResponse {
		return nil, fmt.Errorf("response length %d exceeds limit", respLen)
	}
	respBody := make([]byte, respLen)
	_, err := io.ReadFull(w.DataPipe, respBody)
	return respBody, err
}

// ProcessFrame runs one image through the worker. After ErrTimeout or a
// pipe error the worker is out of sync and must be closed.
func (w *PythonWorker) ProcessFrame(ctx context.Context, data []byte) (Detection, error) {
	type reply struct {
		body []byte
		err  error
	}
	done := make(chan reply, 1)
	go func() {
		body, err := w.Communicate(data)
		done <- reply{body, err}
	}()

	timeout := w.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case rep := <-done:
		if rep.err != nil {
			return Detection{}, rep.err
		}
		return DecodeResponse(rep.body)
	case <-timer.C:
		return Detection{}, fmt.Errorf("worker %d: %w after %s", w.ID, ErrTimeout, timeout)
	case <-ctx.Done():
		return Detection{}, ctx.Err()
	}
}

// Broken reports whether err leaves the worker unusable.
func Broken(err error) bool {
	if err == nil {
		return false
	}
	var remote *RemoteError
	return !errors.As(err, &remote) && !errors.Is(err, ErrNoFace)
}

func (w *PythonWorker) Close() error {
	w.Stdin.Close()
	w.DataPipe.Close()
	if w.Cmd == nil {
		return nil
	}
	return w.Cmd.Wait()
}

// Kill stops the process without waiting for it to drain.
func (w *PythonWorker) Kill() {
	if w.Cmd != nil && w.Cmd.Process != nil {
		w.Cmd.Process.Kill()
	}
	w.Close()
}
