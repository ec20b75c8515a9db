// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package util

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndReadFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "run.log")
	assert.False(t, CheckFileIsExist(file))

	n, err := WriteStringToFile(file, "[0] Transaction 0\n")
	require.NoError(t, err)
	assert.Equal(t, 18, n)
	assert.True(t, CheckFileIsExist(file))

	_, err = WriteStringToFile(file, "short")
	require.NoError(t, err)
	data, err := ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "short", string(data))

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
