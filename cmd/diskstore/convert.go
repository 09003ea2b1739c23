package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hupe1980/diskstore/blobstore"
	"github.com/hupe1980/diskstore/codec"
	"github.com/hupe1980/diskstore/persistence"
	"github.com/hupe1980/diskstore/resource"
)

type convertFlags struct {
	codec       string
	compression string
	newKey      string
	output      string
	rate        int64
}

func newConvertCmd(a *app) *cobra.Command {
	var f convertFlags
	cmd := &cobra.Command{
		Use:   "convert <identity>",
		Short: "Re-encode a snapshot with another codec, compression or key",
		Long: `Convert reads a snapshot and writes it again in the requested format.

Without --output the snapshot is replaced in place while holding its lock,
so it must not be open in another process.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.convert(cmd.Context(), args[0], f)
		},
	}
	cmd.Flags().StringVar(&f.codec, "codec", codec.Default.Name(), fmt.Sprintf("Target codec %v", codec.Names()))
	cmd.Flags().StringVar(&f.compression, "compression", "none", "Target compression: none, lz4 or zstd")
	cmd.Flags().StringVar(&f.newKey, "new-key", "", "Hex encoded key to encrypt the converted snapshot with")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Write to this file instead of replacing the snapshot")
	cmd.Flags().Int64Var(&f.rate, "rate", 0, "Limit output file writes to this many bytes per second")
	return cmd
}

func (f convertFlags) format() (persistence.Format, error) {
	c, ok := codec.ByName(f.codec)
	if !ok {
		return persistence.Format{}, fmt.Errorf("unknown codec %q", f.codec)
	}
	comp, err := persistence.ParseCompression(f.compression)
	if err != nil {
		return persistence.Format{}, err
	}
	var key []byte
	if f.newKey != "" {
		if key, err = hex.DecodeString(f.newKey); err != nil {
			return persistence.Format{}, fmt.Errorf("invalid --new-key: %w", err)
		}
	}
	format := persistence.Format{Codec: c, Compression: comp, Key: key}
	return format, format.Validate()
}

func (a *app) convert(ctx context.Context, identity string, f convertFlags) error {
	start := time.Now()

	format, err := f.format()
	if err != nil {
		return err
	}
	key, err := a.encryptionKey()
	if err != nil {
		return err
	}

	store := blobstore.NewLocalStore(a.dir)
	name := a.snapshotName(identity)

	if f.output == "" {
		lock, err := store.Lock(ctx, name)
		if err != nil {
			return fmt.Errorf("lock %s: %w", name, err)
		}
		defer lock.Close()
	}

	data, err := store.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	snap, err := persistence.Decode(data, key)
	if err != nil {
		return err
	}
	out, err := persistence.Encode(snap, format)
	if err != nil {
		return err
	}

	if f.output == "" {
		err = store.Put(ctx, name, out)
	} else {
		err = writeFile(ctx, f.output, out, f.rate)
	}
	if err != nil {
		return err
	}

	a.logger.Info("snapshot converted",
		zap.String("snapshot", name),
		zap.String("codec", format.Codec.Name()),
		zap.Stringer("compression", format.Compression),
		zap.Bool("encrypted", len(format.Key) > 0),
		zap.Int("bytes_in", len(data)),
		zap.Int("bytes_out", len(out)),
		zap.Duration("duration", time.Since(start)))

	fmt.Fprintf(a.out, "%s: %d -> %d bytes\n", name, len(data), len(out))
	return nil
}

func writeFile(ctx context.Context, path string, data []byte, rate int64) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	var rc *resource.Controller
	if rate > 0 {
		rc = resource.NewController(resource.Config{IOLimitBytesPerSec: rate})
	}
	if _, err := resource.NewRateLimitedWriter(ctx, file, rc).Write(data); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
