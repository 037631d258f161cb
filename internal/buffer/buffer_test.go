package buffer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Guliveer/vitalis/treewatch/internal/models"
)

func batchFor(name string, rate float64) models.Batch {
	return models.Batch{
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Snapshots: []models.TreeSnapshot{{Name: name, RootPID: 1, OK: true, Procs: 3, CPURate: rate}},
	}
}

func TestBuffer_StoreAndRetrieve(t *testing.T) {
	buf, err := New(t.TempDir(), 50, zaptest.NewLogger(t))
	require.NoError(t, err)

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, buf.Store(batchFor(name, 0.5)))
	}
	assert.Equal(t, 3, buf.Count())

	batches, err := buf.RetrieveAll()
	require.NoError(t, err)
	require.Len(t, batches, 3)
	for i, name := range []string{"a", "b", "c"} {
		assert.Equal(t, name, batches[i].Snapshots[0].Name)
	}
	assert.Equal(t, batchFor("a", 0.5), batches[0])
	assert.Zero(t, buf.Count())
}

func TestBuffer_CorruptedFileIsRemoved(t *testing.T) {
	dir := t.TempDir()
	buf, err := New(dir, 50, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "00000000T000000.000-000000.json"), []byte("{"), 0640))
	require.NoError(t, buf.Store(batchFor("ok", 1)))

	batches, err := buf.RetrieveAll()
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "ok", batches[0].Snapshots[0].Name)
	assert.Zero(t, buf.Count())
}

func TestBuffer_DropsOldestWhenFull(t *testing.T) {
	buf, err := New(t.TempDir(), 0, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, buf.Store(batchFor("old", 1)))
	require.NoError(t, buf.Store(batchFor("new", 2)))
	assert.Equal(t, 1, buf.Count())

	batches, err := buf.RetrieveAll()
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "new", batches[0].Snapshots[0].Name)
}
