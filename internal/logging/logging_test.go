package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNew_Debug(t *testing.T) {
	var buf bytes.Buffer
	log := New(true, &buf)

	log.Debug("fetch page", zap.Int("page", 2))

	assert.Contains(t, buf.String(), "fetch page")
	assert.Contains(t, buf.String(), `"page": 2`)
}

func TestNew_Quiet(t *testing.T) {
	var buf bytes.Buffer
	log := New(false, &buf)

	log.Error("ignored")

	assert.Empty(t, buf.String())
}
