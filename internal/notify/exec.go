package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/notice-client/internal/notice"
)

// DefaultExecTimeout bounds a hook run when no timeout is configured.
const DefaultExecTimeout = 30 * time.Second

// waitDelay bounds how long Run waits for output after the context expires.
const waitDelay = time.Second

// ErrEmptyCommand is returned when a hook command line has no program.
var ErrEmptyCommand = errors.New("notify: empty command")

// Environment variables passed to the hook.
const (
	EnvTopic     = "NOTICE_TOPIC"
	EnvTitle     = "NOTICE_TITLE"
	EnvContent   = "NOTICE_CONTENT"
	EnvTimestamp = "NOTICE_TIMESTAMP"
	EnvRaw       = "NOTICE_RAW"
	EnvClient    = "NOTICE_CLIENT"
	EnvExtra     = "NOTICE_EXTRA"
)

// Command runs an external program for every message.
//
// The message is passed through NOTICE_* environment variables and the raw
// JSON payload is written to the program's stdin. Runs are asynchronous so a
// slow hook never stalls the receive loop.
//
// Thread Safety:
//   - Observe is safe for concurrent use.
//   - Wait blocks until all started runs have finished.
type Command struct {
	argv    []string
	timeout time.Duration
	logger  Logger

	wg sync.WaitGroup
}

// NewCommand parses cmdline into a program and arguments.
// A timeout <= 0 uses DefaultExecTimeout.
func NewCommand(cmdline string, timeout time.Duration, logger Logger) (*Command, error) {
	argv := ParseCommand(cmdline)
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}
	if timeout <= 0 {
		timeout = DefaultExecTimeout
	}
	return &Command{
		argv:    argv,
		timeout: timeout,
		logger:  orNoop(logger),
	}, nil
}

// Args returns the parsed program and arguments.
func (c *Command) Args() []string {
	return append([]string(nil), c.argv...)
}

// Observe implements notice.Observer.
func (c *Command) Observe(ev notice.TopicEvent, raw []byte) {
	payload := append([]byte(nil), raw...)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		_ = c.Run(ctx, ev, payload)
	}()
}

// Wait blocks until every hook run started by Observe has returned.
func (c *Command) Wait() {
	c.wg.Wait()
}

// Run executes the hook synchronously. Failures are logged and returned.
func (c *Command) Run(ctx context.Context, ev notice.TopicEvent, raw []byte) error {
	cmd := exec.CommandContext(ctx, c.argv[0], c.argv[1:]...) //nolint:gosec // command comes from the operator's config
	cmd.Env = append(os.Environ(), hookEnv(ev, raw)...)
	cmd.Stdin = bytes.NewReader(raw)
	// Grandchildren may hold the output pipes after the program is killed.
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debug("running exec hook", "command", c.argv[0], "topic", ev.Topic)

	if err := cmd.Run(); err != nil {
		c.logger.Warn("exec hook failed",
			"command", c.argv[0],
			"topic", ev.Topic,
			"error", err,
			"stderr", strings.TrimSpace(stderr.String()),
		)
		return err
	}

	if out := strings.TrimSpace(stdout.String()); out != "" {
		c.logger.Info("exec hook output", "command", c.argv[0], "output", out)
	}
	return nil
}

// hookEnv builds the NOTICE_* variables for one message.
func hookEnv(ev notice.TopicEvent, raw []byte) []string {
	msg := ev.Message
	env := []string{
		EnvTopic + "=" + ev.Topic,
		EnvTitle + "=" + msg.Title,
		EnvContent + "=" + msg.Content,
		EnvTimestamp + "=" + msg.Timestamp.UTC().Format(time.RFC3339),
		EnvRaw + "=" + string(raw),
	}
	if msg.Client != "" {
		env = append(env, EnvClient+"="+msg.Client)
	}
	if msg.Extra != nil {
		if extra, err := json.Marshal(msg.Extra); err == nil {
			env = append(env, EnvExtra+"="+string(extra))
		}
	}
	return env
}

// ParseCommand splits a command line into words.
//
// Words are separated by spaces or tabs. Single or double quotes group
// characters (including whitespace) into one word, and a backslash takes the
// next character literally, both inside and outside quotes. An unterminated
// quote runs to the end of the line.
func ParseCommand(cmdline string) []string {
	var (
		parts   []string
		current strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, r := range cmdline {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
			inWord = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				parts = append(parts, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}

	if inWord {
		parts = append(parts, current.String())
	}
	return parts
}

var _ notice.Observer = (*Command)(nil)
