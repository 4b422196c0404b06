package presenter

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestTerminalPresenter(t *testing.T) {
	t.Run("info goes to output", func(t *testing.T) {
		var out, errOut bytes.Buffer
		p := NewWithWriters(&out, &errOut)

		p.Info("hello")
		assert.Equal(t, "hello\n", out.String())
		assert.Empty(t, errOut.String())
	})

	t.Run("error goes to error output with context", func(t *testing.T) {
		var out, errOut bytes.Buffer
		p := NewWithWriters(&out, &errOut)

		p.Error(errors.New("boom"), "loading catalog")
		assert.Contains(t, errOut.String(), "loading catalog: boom")
		assert.Empty(t, out.String())
	})

	t.Run("quiet suppresses everything except errors", func(t *testing.T) {
		var out, errOut bytes.Buffer
		p := NewWithWriters(&out, &errOut)
		p.SetQuiet(true)

		p.Info("info")
		p.Success("success")
		p.Warning("warning")
		p.Section("section")
		assert.Empty(t, out.String())

		p.Error(errors.New("boom"), "context")
		assert.NotEmpty(t, errOut.String())
	})

	t.Run("section underlines the title", func(t *testing.T) {
		var out bytes.Buffer
		p := NewWithWriters(&out, &out)

		p.Section("Skills")
		assert.Contains(t, out.String(), "Skills")
		assert.Contains(t, out.String(), "------")
	})
}
