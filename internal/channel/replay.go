package channel

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Fixture is captured device output keyed by command
type Fixture struct {
	Device   string            `yaml:"device,omitempty"`
	Model    string            `yaml:"model,omitempty"`
	Commands map[string]string `yaml:"commands"`
}

// Replay answers commands from a Fixture. Unknown commands return empty
// output, the same as a device that prints nothing.
type Replay struct {
	mu      sync.Mutex
	outputs map[string]string
	calls   []string
	closed  bool
}

// NewReplay creates a Replay from a command to output map
func NewReplay(outputs map[string]string) *Replay {
	if outputs == nil {
		outputs = make(map[string]string)
	}
	return &Replay{outputs: outputs}
}

// LoadReplay reads a YAML fixture file
func LoadReplay(path string) (*Replay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return NewReplay(f.Commands), nil
}

// Execute returns the recorded output for command
func (r *Replay) Execute(ctx context.Context, command string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", ErrClosed
	}
	r.calls = append(r.calls, command)
	return r.outputs[command], nil
}

// Calls returns the commands executed so far
func (r *Replay) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *Replay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// SaveFixture writes captured outputs as a fixture file that LoadReplay
// can read back
func SaveFixture(path string, f Fixture) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Recorder passes commands through to another channel and keeps every
// successful output, so a live session can be saved as a fixture
type Recorder struct {
	Channel
	mu      sync.Mutex
	outputs map[string]string
}

// NewRecorder wraps ch
func NewRecorder(ch Channel) *Recorder {
	return &Recorder{Channel: ch, outputs: make(map[string]string)}
}

// Execute runs command on the wrapped channel and records its output
func (r *Recorder) Execute(ctx context.Context, command string) (string, error) {
	out, err := r.Channel.Execute(ctx, command)
	if err != nil {
		return out, err
	}
	r.mu.Lock()
	r.outputs[command] = out
	r.mu.Unlock()
	return out, nil
}

// Fixture returns the recorded outputs
func (r *Recorder) Fixture(device, model string) Fixture {
	r.mu.Lock()
	defer r.mu.Unlock()
	commands := make(map[string]string, len(r.outputs))
	for k, v := range r.outputs {
		commands[k] = v
	}
	return Fixture{Device: device, Model: model, Commands: commands}
}
