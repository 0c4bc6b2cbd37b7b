package utils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecPath(t *testing.T) {
	dir := ExecDir()
	assert.NotEmpty(t, dir)
	assert.True(t, filepath.IsAbs(dir))
	assert.Equal(t, filepath.Join(dir, "data", "a.log"), ExecPath("data", "a.log"))
}
