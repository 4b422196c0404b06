// Package interpreter reduces an agent message stream into the facts the
// scorer needs: which skill (if any) was activated, the accumulated response
// text, and the accumulated usage counters. It is a pure reducer over the
// stream and is resilient to any message shape the agent may emit.
package interpreter

import (
	"io"

	"github.com/jingkaihe/skillbench/pkg/agent"
	"github.com/jingkaihe/skillbench/pkg/types/eval"
)

// ActivationToolName is the reserved capability the agent invokes when it
// consults a skill. A tool_use block with this name and a "skill" argument is
// an activation event.
const ActivationToolName = "Skill"

// Outcome is the reduction of one agent call. When Err is non-nil the stream
// terminated early; everything collected before the error is preserved.
type Outcome struct {
	ActivatedSkill *string
	ResponseText   string
	Usage          eval.Usage
	Err            error
}

// Options controls the reduction.
type Options struct {
	// DetectActivation enables activation scanning and allows the consumer to
	// stop draining once the first activation is found. The quality path
	// leaves this off and drains the full stream.
	DetectActivation bool
}

// Consume drains the stream and returns the reduced outcome. The stream is
// closed before returning.
func Consume(stream agent.Stream, opts Options) Outcome {
	defer stream.Close()

	var out Outcome
	var text []byte

	for {
		msg, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			out.Err = err
			break
		}

		if msg.Kind != agent.MessageAssistant {
			continue
		}

		if msg.Usage != nil {
			out.Usage.Add(*msg.Usage)
		}

		for _, block := range msg.Content {
			switch block.Type {
			case agent.BlockText:
				text = append(text, block.Text...)
			case agent.BlockToolUse:
				if !opts.DetectActivation || out.ActivatedSkill != nil {
					continue
				}
				if block.ToolName != ActivationToolName {
					continue
				}
				if name, ok := block.ToolInput["skill"].(string); ok {
					skill := name
					out.ActivatedSkill = &skill
				}
			}
			// first activation wins within a message
			if opts.DetectActivation && out.ActivatedSkill != nil {
				break
			}
		}

		// The activation path has its answer; no later message changes it.
		if opts.DetectActivation && out.ActivatedSkill != nil {
			break
		}
	}

	out.ResponseText = string(text)
	return out
}
