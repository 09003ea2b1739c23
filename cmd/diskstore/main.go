// Command diskstore inspects and converts datastore snapshots on disk.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hupe1980/diskstore"
	"github.com/hupe1980/diskstore/blobstore"
	"github.com/hupe1980/diskstore/codec"
	"github.com/hupe1980/diskstore/document"
)

type app struct {
	dir      string
	snapshot string
	key      string
	logLevel string

	logger *zap.Logger
	out    io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "diskstore",
		Short:         "Inspect and convert diskstore snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.out = cmd.OutOrStdout()
			logger, err := newLogger(a.logLevel, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.dir, "dir", ".", "Directory holding the snapshots")
	root.PersistentFlags().StringVar(&a.snapshot, "snapshot", "", "Snapshot blob name (default: <identity>.db)")
	root.PersistentFlags().StringVar(&a.key, "key", "", "Hex encoded encryption key of the snapshot")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")

	root.AddCommand(
		newCollectionsCmd(a),
		newDescribeCmd(a),
		newFindCmd(a),
		newCountCmd(a),
		newConvertCmd(a),
	)
	return root
}

func newLogger(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(enc, zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

func (a *app) snapshotName(identity string) string {
	if a.snapshot != "" {
		return a.snapshot
	}
	return identity + ".db"
}

func (a *app) encryptionKey() ([]byte, error) {
	if a.key == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(a.key)
	if err != nil {
		return nil, fmt.Errorf("invalid --key: %w", err)
	}
	return key, nil
}

// open opens an existing snapshot. Missing snapshots are reported instead of
// being created.
func (a *app) open(ctx context.Context, identity string) (*diskstore.Datastore, error) {
	name := a.snapshotName(identity)
	ok, err := blobstore.Exists(ctx, blobstore.NewLocalStore(a.dir), name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("snapshot %s not found in %s", name, a.dir)
	}

	key, err := a.encryptionKey()
	if err != nil {
		return nil, err
	}

	a.logger.Debug("opening datastore",
		zap.String("identity", identity),
		zap.String("dir", a.dir),
		zap.String("snapshot", name))

	return diskstore.Open(ctx, identity,
		diskstore.WithDir(a.dir),
		diskstore.WithSnapshotName(name),
		diskstore.WithEncryptionKey(key),
	)
}

func (a *app) writeRecords(records []document.Record) error {
	for _, r := range records {
		line, err := codec.Default.Marshal(r)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(a.out, string(line)); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
