package channel

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultPrompt matches exec and config mode prompts such as "sw1#",
// "sw1>" and "sw1(config-if)#"
var DefaultPrompt = regexp.MustCompile(`^[\w.\-@/:()]+[>#]$`)

var (
	ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
	morePrompt = regexp.MustCompile(`More: <space>|--More--`)
)

// shell drives an interactive CLI over a byte stream: it writes a command
// line and collects output until the prompt shows up again
type shell struct {
	mu      sync.Mutex
	w       io.Writer
	closer  io.Closer
	chunks  chan []byte
	done    chan struct{}
	prompt  *regexp.Regexp
	timeout time.Duration
	broken  bool
	log     *logrus.Entry
}

func newShell(r io.Reader, w io.Writer, prompt *regexp.Regexp, timeout time.Duration, log *logrus.Entry) *shell {
	if prompt == nil {
		prompt = DefaultPrompt
	}
	s := &shell{
		w:       w,
		chunks:  make(chan []byte, 64),
		done:    make(chan struct{}),
		prompt:  prompt,
		timeout: timeout,
		log:     log,
	}
	go s.pump(r)
	return s
}

func (s *shell) pump(r io.Reader) {
	defer close(s.chunks)
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case s.chunks <- chunk:
			case <-s.done:
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				s.log.WithError(err).Debug("shell read ended")
			}
			return
		}
	}
}

// Execute sends command and returns its cleaned output
func (s *shell) Execute(ctx context.Context, command string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.broken {
		return "", ErrClosed
	}
	if _, err := io.WriteString(s.w, command+"\n"); err != nil {
		s.broken = true
		return "", fmt.Errorf("write command: %w", err)
	}
	raw, err := s.readUntilPrompt(ctx)
	if err != nil {
		s.broken = true
		return "", err
	}
	return cleanOutput(raw, command, s.prompt), nil
}

// waitPrompt consumes the login banner up to the first prompt
func (s *shell) waitPrompt(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.readUntilPrompt(ctx)
	if err != nil {
		s.broken = true
	}
	return err
}

func (s *shell) readUntilPrompt(ctx context.Context) (string, error) {
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	var buf strings.Builder
	for {
		select {
		case chunk, ok := <-s.chunks:
			if !ok {
				return buf.String(), ErrClosed
			}
			buf.Write(chunk)

			text := buf.String()
			last := lastLine(text)
			if morePrompt.MatchString(last) {
				// paging was not disabled; drop the pager line and ask for more
				buf.Reset()
				buf.WriteString(text[:len(text)-len(last)])
				if _, err := io.WriteString(s.w, " "); err != nil {
					return buf.String(), fmt.Errorf("page: %w", err)
				}
				continue
			}
			if s.prompt.MatchString(normalize(last)) {
				return text, nil
			}
		case <-timer.C:
			return buf.String(), ErrTimeout
		case <-ctx.Done():
			return buf.String(), ctx.Err()
		}
	}
}

func (s *shell) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return nil
	default:
		close(s.done)
	}
	s.broken = true
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func lastLine(text string) string {
	if i := strings.LastIndexByte(text, '\n'); i >= 0 {
		return text[i+1:]
	}
	return text
}

func normalize(line string) string {
	line = ansiEscape.ReplaceAllString(line, "")
	line = strings.ReplaceAll(line, "\b", "")
	line = strings.ReplaceAll(line, "\r", "")
	return strings.TrimSpace(line)
}

// cleanOutput drops terminal noise, the echoed command line and the
// trailing prompt
func cleanOutput(raw, command string, prompt *regexp.Regexp) string {
	raw = ansiEscape.ReplaceAllString(raw, "")
	raw = strings.ReplaceAll(raw, "\b", "")
	raw = strings.ReplaceAll(raw, "\r", "")

	lines := strings.Split(raw, "\n")
	if len(lines) > 0 && strings.HasSuffix(strings.TrimSpace(lines[0]), strings.TrimSpace(command)) {
		lines = lines[1:]
	}
	if n := len(lines); n > 0 && prompt.MatchString(strings.TrimSpace(lines[n-1])) {
		lines = lines[:n-1]
	}

	out := strings.Join(lines, "\n")
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}
