package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagsAfterCommandName(t *testing.T) {
	defer func(tab int64, out string) { *tabFlag, *outFlag = tab, out }(*tabFlag, *outFlag)

	args, err := parseCommandFlags("set", []string{"-tab", "3", "0", "1", "hello", "world"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), *tabFlag)
	assert.Equal(t, []string{"0", "1", "hello", "world"}, args)

	row, col, text, err := cellArgs(args)
	require.NoError(t, err)
	assert.Equal(t, 0, row)
	assert.Equal(t, 1, col)
	assert.Equal(t, "hello world", text)

	args, err = parseCommandFlags("image", []string{"-o", "out.png", "7"})
	require.NoError(t, err)
	assert.Equal(t, "out.png", *outFlag)
	assert.Equal(t, []string{"7"}, args)
}

func TestFlagsBeforeCommandNameAreKept(t *testing.T) {
	defer func(tab int64) { *tabFlag = tab }(*tabFlag)
	*tabFlag = 5

	args, err := parseCommandFlags("show", nil)
	require.NoError(t, err)
	assert.Empty(t, args)
	assert.Equal(t, int64(5), *tabFlag)
}

func TestUnknownCommandFlag(t *testing.T) {
	_, err := parseCommandFlags("set", []string{"-nope", "1"})
	assert.Error(t, err)
}
