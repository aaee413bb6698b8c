// preserves is a command-line front end over the preserves package: it
// converts documents between the Syrup and Preserves Binary encodings and
// dumps the scanner's token stream for debugging.
//
// Usage:
//
//	preserves convert [--from syrup|binary] [--to syrup|binary] [file]
//	preserves tokens [file]
//
// If no file is given, reads from stdin.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/basilisklabs/preserves/preserves"
)

var (
	fromFormat string
	toFormat   string
	bufferSize int
	verbose    bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal().Err(err).Msg("preserves")
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "preserves",
		Short: "Convert and inspect Preserves documents",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.WarnLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				Level(level).
				With().Timestamp().Logger()
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().IntVar(&bufferSize, "buffer-size", 64, "scanner refill buffer size in bytes")
	viper.BindPFlag("buffer-size", root.PersistentFlags().Lookup("buffer-size")) //nolint:errcheck
	viper.SetEnvPrefix("PRESERVES")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	root.AddCommand(newConvertCmd(), newTokensCmd())
	return root
}

func newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Re-encode a document between Syrup and Preserves Binary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(args)
			if err != nil {
				return err
			}
			defer in.Close()

			format := fromFormat
			var peeked []byte
			if format == "" {
				peeked, format, err = sniffFormat(in)
				if err != nil {
					return err
				}
			}
			src := io.MultiReader(sliceReader(peeked), in)

			log.Debug().Str("from", format).Str("to", toFormat).Int("buffer_size", viper.GetInt("buffer-size")).Msg("convert")

			v, err := decode(src, format)
			if err != nil {
				return fmt.Errorf("decode: %w", err)
			}
			if err := encode(os.Stdout, v, toFormat); err != nil {
				return fmt.Errorf("encode: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&fromFormat, "from", "", "input format: syrup or binary (sniffed from the first byte if omitted)")
	cmd.Flags().StringVar(&toFormat, "to", "syrup", "output format: syrup or binary")
	return cmd
}

func newTokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens [file]",
		Short: "Dump the Syrup scanner's token stream",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(args)
			if err != nil {
				return err
			}
			defer in.Close()
			return dumpTokens(in, os.Stdout, viper.GetInt("buffer-size"))
		},
	}
	return cmd
}

func openInput(args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(args[0])
}

// sniffFormat reads the first byte to tell Syrup from Preserves Binary:
// Syrup documents start with an ASCII structural or atom byte in the
// printable range, while Preserves Binary tag bytes are all >= 0x80.
func sniffFormat(r io.Reader) ([]byte, string, error) {
	var b [1]byte
	n, err := r.Read(b[:])
	if err != nil && err != io.EOF {
		return nil, "", err
	}
	if n == 0 {
		return nil, "syrup", nil
	}
	if b[0] >= 0x80 {
		return b[:1], "binary", nil
	}
	return b[:1], "syrup", nil
}

func sliceReader(b []byte) io.Reader {
	if len(b) == 0 {
		return new(nopReader)
	}
	return &byteReader{b: b}
}

type byteReader struct{ b []byte }

func (r *byteReader) Read(p []byte) (int, error) {
	if len(r.b) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.b)
	r.b = r.b[n:]
	return n, nil
}

type nopReader struct{}

func (*nopReader) Read([]byte) (int, error) { return 0, io.EOF }

func decode(r io.Reader, format string) (preserves.Value, error) {
	switch format {
	case "syrup", "":
		return preserves.Parse(r, preserves.WithBufferSize(viper.GetInt("buffer-size")))
	case "binary":
		return preserves.DecodeBinary(r)
	default:
		return preserves.Value{}, fmt.Errorf("unknown format %q", format)
	}
}

func encode(w io.Writer, v preserves.Value, format string) error {
	switch format {
	case "syrup", "":
		return preserves.WriteSyrupValue(w, v)
	case "binary":
		return preserves.WriteBinaryValue(w, v)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func dumpTokens(r io.Reader, w io.Writer, bufSize int) error {
	if bufSize <= 0 {
		bufSize = 64
	}
	scanner := preserves.NewScanner()
	buf := make([]byte, bufSize)
	for {
		tok, err := scanner.Next()
		if err != nil {
			if !preserves.IsBufferUnderrun(err) {
				return err
			}
			n, rerr := r.Read(buf)
			if n > 0 {
				scanner.Feed(buf[:n])
			}
			if rerr == io.EOF {
				scanner.EndInput()
			} else if rerr != nil {
				return rerr
			}
			continue
		}
		if tok.Kind == preserves.TokEndOfDocument {
			return nil
		}
		fmt.Fprintln(w, tok.String())
	}
}
