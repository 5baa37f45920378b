package io

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncWriterBuffersUntilFlush(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	sw := NewSyncWriter(&out, 0)

	require.NoError(t, sw.WriteBlock([]byte("=== a ===\n")))
	assert.Equal(t, 0, out.Len())
	require.NoError(t, sw.Flush())
	assert.Equal(t, "=== a ===\n", out.String())

	assert.Equal(t, int64(1), sw.Metrics().BlockCount.Load())
	assert.Equal(t, int64(10), sw.Metrics().BytesWritten.Load())
	assert.Equal(t, int64(1), sw.Metrics().FlushCount.Load())
}

func TestSyncWriterBlocksNeverInterleave(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	// Small buffer forces many flushes mid-run.
	sw := NewSyncWriter(&out, 16)

	const writers, blocks = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < blocks; i++ {
				block := fmt.Sprintf("begin %d-%d\nbody %d-%d\nend %d-%d\n", id, i, id, i, id, i)
				assert.NoError(t, sw.WriteBlock([]byte(block)))
			}
		}(w)
	}
	wg.Wait()
	require.NoError(t, sw.Close())

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, writers*blocks*3)
	for i := 0; i < len(lines); i += 3 {
		id := strings.TrimPrefix(lines[i], "begin ")
		assert.Equal(t, "body "+id, lines[i+1])
		assert.Equal(t, "end "+id, lines[i+2])
	}
}

func TestSyncWriterClosed(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	sw := NewSyncWriter(&out, 0)
	require.NoError(t, sw.WriteBlock([]byte("tail\n")))
	require.NoError(t, sw.Close())
	require.NoError(t, sw.Close())
	assert.Equal(t, "tail\n", out.String())

	assert.ErrorIs(t, sw.WriteBlock([]byte("x")), ErrWriterClosed)
	assert.ErrorIs(t, sw.Flush(), ErrWriterClosed)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestSyncWriterPropagatesDestinationErrors(t *testing.T) {
	t.Parallel()
	sw := NewSyncWriter(failingWriter{}, 0)
	require.NoError(t, sw.WriteBlock([]byte("x")))
	err := sw.Flush()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
	assert.Equal(t, int64(1), sw.Metrics().ErrorCount.Load())
}
