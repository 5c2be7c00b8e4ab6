package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServeCmd_RejectsUnknownTransport(t *testing.T) {
	cmd := newServeCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{
		"--store", t.TempDir(), "--dim", "2", "--backend", "exact",
		"--transport", "carrier-pigeon",
	})

	err := cmd.Execute()

	assert.Error(t, err)
}
