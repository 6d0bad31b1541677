package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTakeFlag(t *testing.T) {
	found, rest := takeFlag([]string{"-v", "-force", "-output", "dist"}, "-force", "--force")
	assert.True(t, found)
	assert.Equal(t, []string{"-v", "-output", "dist"}, rest)

	found, rest = takeFlag([]string{"-v"}, "-cache")
	assert.False(t, found)
	assert.Equal(t, []string{"-v"}, rest)
}
