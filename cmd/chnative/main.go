// Package main contains the chnative developer tool. It uses the cobra
// package for the cli implementation: inspect dumps the blocks of a
// Native (optionally block-compressed) stream, gen encodes a TOML
// fixture into a stream, and bench measures decode throughput.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chnative"
	"chnative/internal/stream"
)

type inspectFlags struct {
	compressed    bool
	clientVersion int
	maxRows       int
	debug         bool
}

type genFlags struct {
	outFile string
}

type benchFlags struct {
	compressed    bool
	clientVersion int
	repeat        int
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "chnative",
		Short: "Native columnar stream tool",
	}

	rootCmd.AddCommand(inspectCmd())
	rootCmd.AddCommand(genCmd())
	rootCmd.AddCommand(benchCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func inspectCmd() *cobra.Command {
	flags := &inspectFlags{}
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the schema and rows of a Native stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.OutOrStdout(), args[0], flags)
		},
	}
	cmd.Flags().BoolVarP(&flags.compressed, "compressed", "c", false, "input is block-compressed")
	cmd.Flags().IntVar(&flags.clientVersion, "client-version", 0, "client protocol version of the stream")
	cmd.Flags().IntVarP(&flags.maxRows, "rows", "n", 20, "maximum rows to print per block (0 = all)")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "log stream driver decisions")
	return cmd
}

func runInspect(out io.Writer, path string, flags *inspectFlags) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("inspect: open %q: %w", path, err)
	}
	defer f.Close()

	opts := chnative.Options{ClientVersion: flags.clientVersion, Debug: flags.debug}
	dec := newDecoder(f, flags.compressed, opts)

	ctx := context.Background()
	for blockNum := 0; ; blockNum++ {
		b, err := dec.Next(ctx)
		if err == io.EOF {
			fmt.Fprintf(out, "-- %d blocks, %d rows\n", dec.Blocks(), dec.Rows())
			return nil
		}
		if err != nil {
			return fmt.Errorf("inspect: block %d: %w", blockNum, err)
		}
		fmt.Fprintf(out, "block %d: %d rows\n", blockNum, b.Len())
		for _, col := range b.Schema() {
			fmt.Fprintf(out, "  %s %s\n", col.Name, col.Type)
		}
		limit := b.Len()
		if flags.maxRows > 0 && limit > flags.maxRows {
			limit = flags.maxRows
		}
		for i := 0; i < limit; i++ {
			fmt.Fprintf(out, "  %v\n", b.Row(i).ToArray(nil))
		}
		if limit < b.Len() {
			fmt.Fprintf(out, "  ... %d more rows\n", b.Len()-limit)
		}
	}
}

func newDecoder(r io.Reader, compressed bool, opts chnative.Options) *stream.Decoder {
	src := stream.FromReader(r)
	if compressed {
		return chnative.NewCompressedDecoder(src, opts)
	}
	return chnative.NewDecoder(src, opts)
}

func genCmd() *cobra.Command {
	flags := &genFlags{}
	cmd := &cobra.Command{
		Use:   "gen <fixture.toml>",
		Short: "Encode a TOML fixture into a Native stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(args[0], flags)
		},
	}
	cmd.Flags().StringVarP(&flags.outFile, "out", "o", "out.native", "output file")
	return cmd
}

func runGen(path string, flags *genFlags) error {
	fx, err := parseFixture(path)
	if err != nil {
		return err
	}
	b, err := fx.batch()
	if err != nil {
		return err
	}

	out, err := os.Create(flags.outFile)
	if err != nil {
		return fmt.Errorf("gen: create %q: %w", flags.outFile, err)
	}
	defer out.Close()

	opts := chnative.Options{ClientVersion: fx.Stream.ClientVersion}
	enc, err := fx.encoder(out, opts)
	if err != nil {
		return err
	}
	if err := enc.Send(b); err != nil {
		return fmt.Errorf("gen: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("gen: close stream: %w", err)
	}
	return nil
}

func benchCmd() *cobra.Command {
	flags := &benchFlags{}
	cmd := &cobra.Command{
		Use:   "bench <file>",
		Short: "Measure decode throughput of a Native stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd.OutOrStdout(), args[0], flags)
		},
	}
	cmd.Flags().BoolVarP(&flags.compressed, "compressed", "c", false, "input is block-compressed")
	cmd.Flags().IntVar(&flags.clientVersion, "client-version", 0, "client protocol version of the stream")
	cmd.Flags().IntVar(&flags.repeat, "repeat", 3, "number of decode passes")
	return cmd
}

func runBench(out io.Writer, path string, flags *benchFlags) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("bench: read %q: %w", path, err)
	}
	lg, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer lg.Sync()

	for pass := 0; pass < flags.repeat; pass++ {
		start := time.Now()
		rows, err := benchPass(data, flags)
		if err != nil {
			return fmt.Errorf("bench: pass %d: %w", pass, err)
		}
		elapsed := time.Since(start)
		lg.Info("decode pass",
			zap.Int("pass", pass),
			zap.Int("rows", rows),
			zap.Duration("elapsed", elapsed),
			zap.Float64("mb_per_sec", float64(len(data))/elapsed.Seconds()/(1<<20)),
		)
	}
	fmt.Fprintf(out, "decoded %d bytes x%d passes\n", len(data), flags.repeat)
	return nil
}

// benchPass pipes the file through a producer goroutine feeding fixed
// chunks, so the decoder sees transport-like chunking.
func benchPass(data []byte, flags *benchFlags) (int, error) {
	ctx := context.Background()
	chunks := make(chan []byte, 8)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(chunks)
		const chunkSize = 64 << 10
		for off := 0; off < len(data); off += chunkSize {
			end := off + chunkSize
			if end > len(data) {
				end = len(data)
			}
			select {
			case chunks <- data[off:end]:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	rows := 0
	g.Go(func() error {
		src := func(ctx context.Context) ([]byte, error) {
			select {
			case c, ok := <-chunks:
				if !ok {
					return nil, io.EOF
				}
				return c, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		opts := chnative.Options{ClientVersion: flags.clientVersion}
		var dec *stream.Decoder
		if flags.compressed {
			dec = chnative.NewCompressedDecoder(src, opts)
		} else {
			dec = chnative.NewDecoder(src, opts)
		}
		for {
			b, err := dec.Next(ctx)
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			rows += b.Len()
		}
	})
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return rows, nil
}
