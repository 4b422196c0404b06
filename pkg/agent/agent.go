// Package agent defines the contract between the harness and the agent under
// test: an invocation request produces a lazy, finite, single-pass stream of
// structured messages. The stream is the only way to observe the agent's
// behavior for that call and is not restartable.
package agent

import (
	"context"

	"github.com/jingkaihe/skillbench/pkg/types/eval"
)

// MessageKind tags the top-level message variants emitted by the agent.
type MessageKind string

const (
	MessageSystem    MessageKind = "system"
	MessageAssistant MessageKind = "assistant"
	MessageResult    MessageKind = "result"
)

// BlockType tags the content block variants within an assistant message.
// Unrecognized tags are preserved as BlockUnknown and ignored downstream
// rather than rejected.
type BlockType string

const (
	BlockText    BlockType = "text"
	BlockToolUse BlockType = "tool_use"
	BlockUnknown BlockType = "unknown"
)

// ContentBlock is one element of an assistant message's content list.
type ContentBlock struct {
	Type      BlockType
	Text      string         // set for BlockText
	ToolName  string         // set for BlockToolUse
	ToolInput map[string]any // set for BlockToolUse
}

// Message is one structured message from the agent's output stream. Usage is
// nil for messages that carry no counters.
type Message struct {
	Kind    MessageKind
	Usage   *eval.Usage
	Content []ContentBlock
}

// Stream is a finite single-pass message sequence. Next returns io.EOF once
// the sequence is exhausted; any other error terminates the sequence with
// whatever was consumed so far still valid.
type Stream interface {
	Next() (Message, error)
	// Close releases resources held by the stream. Safe to call after EOF.
	Close() error
}

// Options configures a single agent invocation.
type Options struct {
	Model         string
	WorkingDir    string
	AllowedSkills []string
}

// Invoker issues a single request to the agent and exposes its streamed
// output. An error from Invoke means the call failed before yielding any
// message; the caller treats it as zero useful output with the error captured.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, opts Options) (Stream, error)
}
