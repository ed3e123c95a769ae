package backupsink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.db")
	sink, err := NewFileSink(path)
	require.NoError(t, err)

	_, err = sink.Write([]byte("sqlite-snapshot-bytes"))
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "sqlite-snapshot-bytes", string(data))
}

func TestCompressingSinkZstdRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.db.zst")
	file, err := NewFileSink(path)
	require.NoError(t, err)

	sink, err := NewCompressingSink(file, Zstd)
	require.NoError(t, err)

	payload := []byte("sqlite-snapshot-bytes-sqlite-snapshot-bytes")
	_, err = sink.Write(payload)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	compressed, err := os.ReadFile(path)
	require.NoError(t, err)

	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()

	out, err := dec.DecodeAll(compressed, nil)
	require.NoError(t, err)
	require.Equal(t, payload, out)
}
