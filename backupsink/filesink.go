// Package backupsink provides io.WriteCloser destinations for
// Connection.Backup beyond a plain local file: streaming upload to S3, and
// wrapping any other sink with zstd or lz4 compression.
package backupsink

import "os"

// FileSink writes a backup to a local file, creating or truncating it.
// It exists alongside Connection.BackupToFile so a FileSink can be
// composed with CompressingSink, which a bare *os.File can't be told
// apart from generically.
type FileSink struct {
	f *os.File
}

// NewFileSink creates (or truncates) the file at path.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileSink{f: f}, nil
}

func (s *FileSink) Write(p []byte) (int, error) { return s.f.Write(p) }
func (s *FileSink) Close() error                { return s.f.Close() }
