package claudecli

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillbench/pkg/agent"
)

// writeFakeCLI writes an executable shell script standing in for the claude
// binary and returns its path.
func writeFakeCLI(t *testing.T, script string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "claude")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func drain(t *testing.T, stream agent.Stream) ([]agent.Message, error) {
	t.Helper()
	defer stream.Close()

	var messages []agent.Message
	for {
		msg, err := stream.Next()
		if err == io.EOF {
			return messages, nil
		}
		if err != nil {
			return messages, err
		}
		messages = append(messages, msg)
	}
}

func TestInvokeStream(t *testing.T) {
	script := `cat <<'EOF'
{"type":"system"}

not json noise
{"type":"assistant","message":{"content":[{"type":"text","text":"hello"}],"usage":{"input_tokens":100,"output_tokens":5}}}
{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Skill","input":{"skill":"svelte5-runes"}}]}}
{"type":"result"}
EOF`
	invoker := NewInvoker(WithBinary(writeFakeCLI(t, script)))

	stream, err := invoker.Invoke(context.Background(), "test prompt", agent.Options{})
	require.NoError(t, err)

	messages, err := drain(t, stream)
	require.NoError(t, err)
	require.Len(t, messages, 4)

	assert.Equal(t, agent.MessageSystem, messages[0].Kind)

	text := messages[1]
	assert.Equal(t, agent.MessageAssistant, text.Kind)
	require.Len(t, text.Content, 1)
	assert.Equal(t, agent.BlockText, text.Content[0].Type)
	assert.Equal(t, "hello", text.Content[0].Text)
	require.NotNil(t, text.Usage)
	assert.Equal(t, 100, text.Usage.InputTokens)
	assert.Equal(t, 5, text.Usage.OutputTokens)

	tool := messages[2]
	require.Len(t, tool.Content, 1)
	assert.Equal(t, agent.BlockToolUse, tool.Content[0].Type)
	assert.Equal(t, "Skill", tool.Content[0].ToolName)
	assert.Equal(t, "svelte5-runes", tool.Content[0].ToolInput["skill"])

	assert.Equal(t, agent.MessageResult, messages[3].Kind)

	// EOF is sticky
	_, err = stream.Next()
	assert.Equal(t, io.EOF, err)
}

func TestInvokeExitError(t *testing.T) {
	script := `echo '{"type":"assistant","message":{"content":[{"type":"text","text":"partial"}]}}'
echo "api key missing" >&2
exit 1`
	invoker := NewInvoker(WithBinary(writeFakeCLI(t, script)))

	stream, err := invoker.Invoke(context.Background(), "test prompt", agent.Options{})
	require.NoError(t, err)

	messages, err := drain(t, stream)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent exited with error")
	assert.Contains(t, err.Error(), "api key missing")
	// output before the failure is still delivered
	require.Len(t, messages, 1)
	assert.Equal(t, "partial", messages[0].Content[0].Text)
}

func TestInvokeArgs(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	script := `printf '%s\n' "$@" > ` + argsFile
	invoker := NewInvoker(WithBinary(writeFakeCLI(t, script)))

	stream, err := invoker.Invoke(context.Background(), "how do runes work?", agent.Options{
		Model:         "claude-sonnet-4-20250514",
		AllowedSkills: []string{"svelte5-runes", "sveltekit-structure"},
	})
	require.NoError(t, err)
	_, err = drain(t, stream)
	require.NoError(t, err)

	raw, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	args := string(raw)
	assert.Contains(t, args, "how do runes work?")
	assert.Contains(t, args, "--output-format\nstream-json")
	assert.Contains(t, args, "--model\nclaude-sonnet-4-20250514")
	assert.Contains(t, args, "Skill(svelte5-runes),Skill(sveltekit-structure)")
}

func TestInvokeMissingBinary(t *testing.T) {
	invoker := NewInvoker(WithBinary("/nonexistent/claude"))

	_, err := invoker.Invoke(context.Background(), "prompt", agent.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start")
}

func TestWireMessageDecoding(t *testing.T) {
	t.Run("unknown block types are preserved as unknown", func(t *testing.T) {
		var wire wireMessage
		raw := `{"type":"assistant","message":{"content":[{"type":"thinking","thinking":"..."},{"type":"text","text":"answer"}]}}`
		require.NoError(t, json.Unmarshal([]byte(raw), &wire))

		msg := wire.toMessage()
		require.Len(t, msg.Content, 2)
		assert.Equal(t, agent.BlockUnknown, msg.Content[0].Type)
		assert.Equal(t, agent.BlockText, msg.Content[1].Type)
	})

	t.Run("no usage yields nil usage", func(t *testing.T) {
		var wire wireMessage
		require.NoError(t, json.Unmarshal([]byte(`{"type":"system"}`), &wire))
		assert.Nil(t, wire.toMessage().Usage)
	})
}
