package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rqlitec/rqlitec"
	"github.com/rqlitec/rqlitec/backupsink"
)

var (
	backupCompress string
	backupFmt      string
	backupS3Bucket string
	backupS3Region string
	backupS3AKID   string
	backupS3Secret string
)

var backupCmd = &cobra.Command{
	Use:   "backup <destination>",
	Short: "Download a snapshot of the cluster's database",
	Long: "Download a snapshot of the cluster's database to a local file, " +
		"or to an S3 object when --s3-bucket is set (destination is then " +
		"treated as the object key).",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := connect()
		if err != nil {
			return err
		}
		defer conn.Close()

		var format rqlitec.BackupFormat
		switch backupFmt {
		case "", "binary":
			format = rqlitec.BackupBinary
		case "sql":
			format = rqlitec.BackupSQL
		default:
			return fmt.Errorf("unknown --fmt value %q (want sql or binary)", backupFmt)
		}

		dest := args[0]
		ctx := context.Background()

		var sink io.WriteCloser
		if backupS3Bucket != "" {
			sink, err = backupsink.NewDefaultS3Sink(ctx, backupS3Region, backupS3Bucket, dest, backupS3AKID, backupS3Secret)
			if err != nil {
				return err
			}
		} else if backupCompress == "" && format == rqlitec.BackupBinary {
			return conn.BackupToFile(ctx, dest)
		} else {
			sink, err = backupsink.NewFileSink(dest)
			if err != nil {
				return err
			}
		}

		if backupCompress != "" {
			codec := backupsink.Zstd
			switch backupCompress {
			case "zstd":
			case "lz4":
				codec = backupsink.LZ4
			default:
				return fmt.Errorf("unknown --compress value %q (want zstd or lz4)", backupCompress)
			}
			compressed, err := backupsink.NewCompressingSink(sink, codec)
			if err != nil {
				sink.Close()
				return err
			}
			sink = compressed
		}

		if err := conn.Backup(ctx, sink, format); err != nil {
			sink.Close()
			return err
		}
		return sink.Close()
	},
}

func init() {
	backupCmd.Flags().StringVar(&backupCompress, "compress", "", "compress the snapshot: zstd or lz4")
	backupCmd.Flags().StringVar(&backupFmt, "fmt", "binary", "snapshot format: sql or binary")
	backupCmd.Flags().StringVar(&backupS3Bucket, "s3-bucket", "", "upload to this S3 bucket instead of a local file")
	backupCmd.Flags().StringVar(&backupS3Region, "s3-region", "us-east-1", "AWS region for --s3-bucket")
	backupCmd.Flags().StringVar(&backupS3AKID, "s3-access-key-id", "", "static AWS access key id (default: SDK credential chain)")
	backupCmd.Flags().StringVar(&backupS3Secret, "s3-secret-access-key", "", "static AWS secret access key, paired with --s3-access-key-id")
}
