package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWriteText_ReadText round-trips and creates parent directories
func TestWriteText_ReadText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "file.txt")
	require.NoError(t, WriteText(path, "hello"))
	assert.Equal(t, "hello", ReadText(path, ""))

	// No tmp file left behind
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

// TestReadText_MissingFile returns the default
func TestReadText_MissingFile(t *testing.T) {
	assert.Equal(t, "fallback", ReadText(filepath.Join(t.TempDir(), "nope"), "fallback"))
}

// TestWriteJSON_ReadJSON round-trips a struct
func TestWriteJSON_ReadJSON(t *testing.T) {
	type payload struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	}
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, WriteJSON(path, payload{Name: "x", Value: 1.5}))

	var out payload
	require.NoError(t, ReadJSON(path, &out))
	assert.Equal(t, payload{Name: "x", Value: 1.5}, out)
}

// TestReadJSON_Corrupt returns an error, not a partial result
func TestReadJSON_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{oops"), 0o644))
	var out map[string]interface{}
	assert.Error(t, ReadJSON(path, &out))
}

// TestAppendJSONL_ScanJSONL appends records and skips corrupt lines
func TestAppendJSONL_ScanJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	require.NoError(t, AppendJSONL(path, map[string]interface{}{"n": 1.0}))
	require.NoError(t, AppendJSONL(path, map[string]interface{}{"n": 2.0}))

	// Inject a corrupt line in the middle
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	f.WriteString("{broken\n")
	f.Close()
	require.NoError(t, AppendJSONL(path, map[string]interface{}{"n": 3.0}))

	records := ScanJSONL(path)
	require.Len(t, records, 3)
	assert.Equal(t, 1.0, records[0]["n"])
	assert.Equal(t, 3.0, records[2]["n"])
}

// TestScanJSONL_Missing returns an empty slice
func TestScanJSONL_Missing(t *testing.T) {
	assert.Nil(t, ScanJSONL(filepath.Join(t.TempDir(), "nope.jsonl")))
}

// TestSignalRoundTrip reads back the written float
func TestSignalRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pm.txt")
	require.NoError(t, WriteSignal(path, 2.5))
	assert.Equal(t, 2.5, ReadSignal(path, 0))
	assert.Equal(t, 9.0, ReadSignal(filepath.Join(t.TempDir(), "nope"), 9.0))
}

// TestReadIntSignal_TruncatesFloats tolerates float contents in level files
func TestReadIntSignal_TruncatesFloats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "level.txt")
	require.NoError(t, WriteText(path, "3.0\n"))
	assert.Equal(t, 3, ReadIntSignal(path, 0))

	require.NoError(t, WriteIntSignal(path, 5))
	assert.Equal(t, 5, ReadIntSignal(path, 0))

	require.NoError(t, WriteText(path, "garbage"))
	assert.Equal(t, 7, ReadIntSignal(path, 7))
}
