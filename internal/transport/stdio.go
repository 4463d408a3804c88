package transport

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/gate4ai/mcp-probe/internal/jsonrpc"
	"github.com/google/uuid"
	shellwords "github.com/mattn/go-shellwords"
	"go.uber.org/zap"
)

const gracefulShutdownTimeout = 5 * time.Second

// Stdio is the line-delimited-JSON-over-stdio transport: the target is a
// command line spawned as a child process with all three standard streams
// piped.
type Stdio struct {
	commandLine string
	logger      *zap.Logger
	tag         string

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Reader
	running bool

	stderrBuf    bytes.Buffer
	stderrMu     sync.Mutex
	stderrDone   chan struct{}
	nonJSONLines int

	// lines is fed by the single long-lived reader goroutine started in
	// Start; it is the only goroutine ever allowed to call
	// stdout.ReadString, since bufio.Reader is not safe for concurrent use.
	// Receive only ever consumes from this channel, never reads stdout
	// itself, so no second reader can race the first.
	lines chan stdioLine

	exitCode int
	exited   bool
}

// stdioLine is one decoded line (or terminal read error) handed from the
// reader goroutine to Receive.
type stdioLine struct {
	msg *jsonrpc.Message
	err error
}

func NewStdio(commandLine string, logger *zap.Logger) *Stdio {
	return &Stdio{
		commandLine: commandLine,
		logger:      logger,
		tag:         uuid.NewString()[:8],
	}
}

func (s *Stdio) Name() string { return "stdio" }

func (s *Stdio) Start(ctx context.Context) error {
	parser := shellwords.NewParser()
	args, err := parser.Parse(s.commandLine)
	if err != nil {
		return fmt.Errorf("stdio: parsing command line: %w", err)
	}
	if len(args) == 0 {
		return fmt.Errorf("stdio: empty command line")
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdio: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdio: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stdio: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("stdio: starting %q: %w", args[0], err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.stdin = stdin
	s.stdout = bufio.NewReader(stdout)
	s.running = true
	s.stderrDone = make(chan struct{})
	s.lines = make(chan stdioLine, 1)
	s.mu.Unlock()

	go s.drainStderr(stderr)
	go s.readLoop()

	s.logger.Info("stdio transport started", zap.String("tag", s.tag), zap.String("command", s.commandLine))
	return nil
}

// drainStderr runs as a background task for the life of the child,
// buffering its stderr for post-mortem diagnostics.
func (s *Stdio) drainStderr(r io.Reader) {
	defer close(s.stderrDone)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.stderrMu.Lock()
		s.stderrBuf.WriteString(scanner.Text())
		s.stderrBuf.WriteByte('\n')
		s.stderrMu.Unlock()
	}
}

func (s *Stdio) Send(ctx context.Context, msg *jsonrpc.Message) error {
	s.mu.Lock()
	stdin := s.stdin
	running := s.running
	s.mu.Unlock()
	if !running || stdin == nil {
		return ErrNotRunning
	}

	b, err := jsonEncode(msg)
	if err != nil {
		return fmt.Errorf("stdio: encoding message: %w", err)
	}
	return s.SendRaw(ctx, b)
}

// SendRaw writes a raw line (appending the trailing newline) directly to
// the child's stdin, bypassing JSON-RPC encoding. Used by RPC-004 to inject
// a deliberately malformed line.
func (s *Stdio) SendRaw(ctx context.Context, raw []byte) error {
	s.mu.Lock()
	stdin := s.stdin
	running := s.running
	s.mu.Unlock()
	if !running || stdin == nil {
		return ErrNotRunning
	}
	if len(raw) == 0 || raw[len(raw)-1] != '\n' {
		raw = append(append([]byte(nil), raw...), '\n')
	}
	if _, err := stdin.Write(raw); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}
	return nil
}

// readLoop is the sole owner of s.stdout for the lifetime of the child
// process; it runs once, started from Start, and feeds every decoded line
// (or the terminal read error) to s.lines. Receive only selects on that
// channel, so no second goroutine ever touches the bufio.Reader.
func (s *Stdio) readLoop() {
	for {
		line, err := s.stdout.ReadString('\n')
		trimmed := bytes.TrimSpace([]byte(line))
		if len(trimmed) > 0 {
			msg, decErr := jsonrpc.Decode(trimmed)
			if decErr != nil {
				s.nonJSONLines++
				s.logger.Debug("stdio: discarding non-JSON line", zap.ByteString("line", trimmed))
				if err != nil {
					s.lines <- stdioLine{nil, s.eofOrErr(err)}
					return
				}
				continue
			}
			s.lines <- stdioLine{msg, nil}
			if err != nil {
				s.lines <- stdioLine{nil, s.eofOrErr(err)}
				return
			}
			continue
		}
		if err != nil {
			s.lines <- stdioLine{nil, s.eofOrErr(err)}
			return
		}
	}
}

func (s *Stdio) Receive(ctx context.Context, timeout time.Duration) (*jsonrpc.Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r, ok := <-s.lines:
		if !ok {
			return nil, ErrConnectionClosed
		}
		return r.msg, r.err
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Stdio) eofOrErr(err error) error {
	if err == io.EOF {
		return ErrConnectionClosed
	}
	return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
}

func (s *Stdio) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SendSignal implements SignalableTransport. graceful=true sends SIGTERM
// (POSIX); false force-kills immediately. It does not wait for the child to
// exit. It is also what Stop uses internally.
func (s *Stdio) SendSignal(graceful bool) error {
	s.mu.Lock()
	cmd := s.cmd
	s.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return ErrNotRunning
	}
	if graceful {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	return cmd.Process.Kill()
}

func (s *Stdio) Exited() (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exited, s.exitCode
}

func (s *Stdio) DiagnosticsSnapshot() string {
	s.stderrMu.Lock()
	defer s.stderrMu.Unlock()
	return s.stderrBuf.String()
}

// Stop sends SIGTERM, waits up to 5s for exit, escalates to SIGKILL, and
// cancels the stderr drain goroutine.
func (s *Stdio) Stop(ctx context.Context) error {
	s.mu.Lock()
	cmd := s.cmd
	stdin := s.stdin
	s.mu.Unlock()
	if cmd == nil {
		return nil
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	if stdin != nil {
		_ = stdin.Close()
	}
	_ = s.SendSignal(true)

	select {
	case err := <-waitCh:
		s.recordExit(cmd, err)
	case <-time.After(gracefulShutdownTimeout):
		s.logger.Warn("stdio: graceful shutdown timed out, force-killing")
		_ = s.SendSignal(false)
		err := <-waitCh
		s.recordExit(cmd, err)
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	if s.stderrDone != nil {
		<-s.stderrDone
	}
	return nil
}

func (s *Stdio) recordExit(cmd *exec.Cmd, waitErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exited = true
	if cmd.ProcessState != nil {
		s.exitCode = cmd.ProcessState.ExitCode()
	} else if waitErr != nil {
		s.exitCode = -1
	}
}
