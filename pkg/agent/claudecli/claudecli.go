// Package claudecli implements the agent.Invoker contract by shelling out to
// the claude CLI in non-interactive mode and decoding its stream-json output
// line by line. Messages are surfaced lazily: the caller resumes only when the
// next NDJSON line has been read from the subprocess.
package claudecli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillbench/pkg/agent"
	"github.com/jingkaihe/skillbench/pkg/types/eval"
)

const defaultBinary = "claude"

// maxLineSize bounds a single NDJSON line from the CLI. Assistant messages
// can carry large text blocks.
const maxLineSize = 10 * 1024 * 1024

// Invoker runs the claude CLI once per Invoke call.
type Invoker struct {
	binary string
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithBinary overrides the claude binary path.
func WithBinary(path string) Option {
	return func(i *Invoker) {
		i.binary = path
	}
}

// NewInvoker creates a CLI-backed invoker.
func NewInvoker(opts ...Option) *Invoker {
	inv := &Invoker{binary: defaultBinary}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Invoke starts the CLI and returns a lazy stream over its output. An error
// here means the process could not be started; stream errors surface from
// Stream.Next.
func (i *Invoker) Invoke(ctx context.Context, prompt string, opts agent.Options) (agent.Stream, error) {
	args := []string{"-p", prompt, "--output-format", "stream-json", "--verbose"}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	if len(opts.AllowedSkills) > 0 {
		tools := make([]string, 0, len(opts.AllowedSkills))
		for _, name := range opts.AllowedSkills {
			tools = append(tools, "Skill("+name+")")
		}
		args = append(args, "--allowedTools", strings.Join(tools, ","))
	}

	cmd := exec.CommandContext(ctx, i.binary, args...)
	if opts.WorkingDir != "" {
		cmd.Dir = opts.WorkingDir
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to pipe agent stdout")
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start %s", i.binary)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	return &stream{cmd: cmd, scanner: scanner, stderr: &stderr}, nil
}

type stream struct {
	cmd     *exec.Cmd
	scanner *bufio.Scanner
	stderr  *bytes.Buffer
	done    bool
}

func (s *stream) Next() (agent.Message, error) {
	if s.done {
		return agent.Message{}, io.EOF
	}

	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var wire wireMessage
		if err := json.Unmarshal(line, &wire); err != nil {
			// Non-JSON noise on stdout is skipped rather than fatal
			continue
		}
		return wire.toMessage(), nil
	}

	s.done = true
	if err := s.scanner.Err(); err != nil {
		_ = s.cmd.Wait()
		return agent.Message{}, errors.Wrap(err, "failed to read agent output")
	}
	if err := s.cmd.Wait(); err != nil {
		msg := strings.TrimSpace(s.stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return agent.Message{}, errors.Errorf("agent exited with error: %s", msg)
	}
	return agent.Message{}, io.EOF
}

func (s *stream) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
	return nil
}

// wireMessage mirrors the CLI's stream-json envelope. Only the fields the
// harness consumes are decoded; everything else is dropped.
type wireMessage struct {
	Type    string `json:"type"`
	Message struct {
		Content []wireBlock `json:"content"`
		Usage   *wireUsage  `json:"usage"`
	} `json:"message"`
}

type wireBlock struct {
	Type  string         `json:"type"`
	Text  string         `json:"text"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

type wireUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	ThinkingTokens           int `json:"thinking_tokens"`
}

func (w wireMessage) toMessage() agent.Message {
	msg := agent.Message{Kind: agent.MessageKind(w.Type)}

	if w.Message.Usage != nil {
		msg.Usage = &eval.Usage{
			InputTokens:              w.Message.Usage.InputTokens,
			OutputTokens:             w.Message.Usage.OutputTokens,
			CacheCreationInputTokens: w.Message.Usage.CacheCreationInputTokens,
			CacheReadInputTokens:     w.Message.Usage.CacheReadInputTokens,
			ThinkingTokens:           w.Message.Usage.ThinkingTokens,
		}
	}

	for _, block := range w.Message.Content {
		switch block.Type {
		case "text":
			msg.Content = append(msg.Content, agent.ContentBlock{
				Type: agent.BlockText,
				Text: block.Text,
			})
		case "tool_use":
			msg.Content = append(msg.Content, agent.ContentBlock{
				Type:      agent.BlockToolUse,
				ToolName:  block.Name,
				ToolInput: block.Input,
			})
		default:
			msg.Content = append(msg.Content, agent.ContentBlock{Type: agent.BlockUnknown})
		}
	}

	return msg
}
