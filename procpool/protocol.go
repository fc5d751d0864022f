package procpool

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Wire format between the pool and a worker process: one JSON object per line
// on the worker's stdin (requests) and stdout (responses), strictly alternating.

type request struct {
	ID   string          `json:"id"`
	Func string          `json:"func"`
	Arg  json.RawMessage `json:"arg"`
}

const (
	kindError    = "error"
	kindPanic    = "panic"
	kindTransfer = "transfer"
)

type response struct {
	ID     string          `json:"id"`
	PID    int             `json:"pid"`
	Result json.RawMessage `json:"result,omitempty"`
	Kind   string          `json:"kind,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// err converts a failed response back into an error on the pool side.
func (r *response) err() error {
	if r.Kind == "" {
		return nil
	}
	return &RemoteError{PID: r.PID, Kind: r.Kind, Message: r.Error}
}

// RemoteError is a task failure reported by a worker process. Only the message
// survives the process boundary; errors.Is still matches ErrTaskPanicked and
// ErrNotTransferable for panics and serialization failures.
type RemoteError struct {
	PID     int
	Kind    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("worker %d: %s", e.PID, e.Message)
}

func (e *RemoteError) Unwrap() error {
	switch e.Kind {
	case kindPanic:
		return ErrTaskPanicked
	case kindTransfer:
		return ErrNotTransferable
	default:
		return nil
	}
}

// process is one running worker, owned by exactly one pool goroutine.
type process struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	enc   *json.Encoder
	dec   *json.Decoder
	pid   int
	tasks int
}

func startProcess(path string, args, env []string) (*process, error) {
	cmd := exec.Command(path, args...)
	cmd.Env = env
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", path, err)
	}

	return &process{
		cmd:   cmd,
		stdin: stdin,
		enc:   json.NewEncoder(stdin),
		dec:   json.NewDecoder(bufio.NewReader(stdout)),
		pid:   cmd.Process.Pid,
	}, nil
}

// roundTrip sends req and waits for its response. Any error means the process
// can no longer be trusted and must be discarded.
func (pr *process) roundTrip(req request) (*response, error) {
	if err := pr.enc.Encode(req); err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	var resp response
	if err := pr.dec.Decode(&resp); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("response %s does not match request %s", resp.ID, req.ID)
	}
	return &resp, nil
}

// stop closes stdin, which makes the worker's serve loop return, and reaps it.
func (pr *process) stop() error {
	_ = pr.stdin.Close()
	return pr.cmd.Wait()
}

func (pr *process) kill() {
	_ = pr.cmd.Process.Kill()
	_ = pr.cmd.Wait()
}
