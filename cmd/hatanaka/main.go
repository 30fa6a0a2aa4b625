// hatanaka compresses RINEX observation files to Compact RINEX (Hatanaka compression) and back.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/de-bkg/hatanaka/pkg/hatanaka"
	"github.com/de-bkg/hatanaka/pkg/rinex"
	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v2"
)

const stdio = "-"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Error(err)
		stop()
		os.Exit(1)
	}
}

var codecFlags = []cli.Flag{
	&cli.IntFlag{
		Name:    "max-order",
		Aliases: []string{"m"},
		Value:   hatanaka.DefaultMaxOrder,
		Usage:   "maximum difference order accepted in the compact stream",
	},
	&cli.IntFlag{
		Name:  "order",
		Value: hatanaka.DefaultOrder,
		Usage: "difference order of the observations",
	},
	&cli.IntFlag{
		Name:  "clock-order",
		Value: hatanaka.DefaultClockOrder,
		Usage: "difference order of the receiver clock offset",
	},
	&cli.BoolFlag{
		Name:  "strict",
		Usage: "reject records with more fields than declared in the header",
	},
	&cli.PathFlag{
		Name:  "config",
		Usage: "load options from a YAML `FILE`",
	},
}

var outputFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "write to `FILE` instead of the standard RINEX name, - for stdout (single input only)",
	},
	&cli.BoolFlag{
		Name:    "gzip",
		Aliases: []string{"z"},
		Usage:   "gzip the output file, implied by a .gz output file",
	},
	&cli.BoolFlag{
		Name:    "force",
		Aliases: []string{"f"},
		Usage:   "overwrite existing output files",
	},
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "hatanaka",
		Usage:   "Compact RINEX compression of GNSS observation files",
		Version: hatanaka.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "log level: debug, info, warn or error",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "crx2rnx",
				Aliases:   []string{"d", "decompress"},
				Usage:     "Decompress Compact RINEX files",
				ArgsUsage: "FILE...",
				Flags:     append(append([]cli.Flag{}, codecFlags...), outputFlags...),
				Action:    convert(true),
			},
			{
				Name:      "rnx2crx",
				Aliases:   []string{"c", "compress"},
				Usage:     "Compress RINEX observation files",
				ArgsUsage: "FILE...",
				Flags:     append(append([]cli.Flag{}, codecFlags...), outputFlags...),
				Action:    convert(false),
			},
			{
				Name:      "stats",
				Usage:     "Print the statistics per satellite of a RINEX or Compact RINEX file",
				ArgsUsage: "FILE",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Value: "csv",
						Usage: "output format: csv (per satellite) or json (summary)",
					},
				}, codecFlags...),
				Action: stats,
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	lvl, err := log.ParseLevel(c.String("log-level"))
	if err != nil {
		return err
	}
	c.App.Metadata = map[string]interface{}{
		"logger": log.NewWithOptions(c.App.ErrWriter, log.Options{Level: lvl, Prefix: c.App.Name}),
	}
	return nil
}

func logger(c *cli.Context) *log.Logger {
	if l, ok := c.App.Metadata["logger"].(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// options returns the defaults, overlaid by the config file and the command line flags.
func options(c *cli.Context) (hatanaka.Options, error) {
	opts := hatanaka.DefaultOptions()
	if path := c.Path("config"); path != "" {
		var err error
		if opts, err = hatanaka.LoadOptions(path); err != nil {
			return opts, err
		}
	}
	if c.IsSet("max-order") {
		opts.MaxOrder = c.Int("max-order")
	}
	if c.IsSet("order") {
		opts.Order = c.Int("order")
	}
	if c.IsSet("clock-order") {
		opts.ClockOrder = c.Int("clock-order")
	}
	if c.IsSet("strict") {
		opts.Strict = c.Bool("strict")
	}
	if c.IsSet("force") {
		opts.Force = c.Bool("force")
	}
	if c.IsSet("gzip") {
		opts.Gzip = c.Bool("gzip")
	}
	opts.Logger = logger(c)
	return opts, opts.Validate()
}

func convert(decompress bool) cli.ActionFunc {
	return func(c *cli.Context) error {
		if c.NArg() == 0 {
			return fmt.Errorf("no input files")
		}
		output := c.String("output")
		if output != "" && c.NArg() > 1 {
			return fmt.Errorf("--output needs a single input file, got %d", c.NArg())
		}
		opts, err := options(c)
		if err != nil {
			return err
		}

		var result *multierror.Error
		for _, src := range c.Args().Slice() {
			if err := convertFile(c, src, output, decompress, opts); err != nil {
				logger(c).Error("conversion failed", "file", src, "err", err)
				result = multierror.Append(result, err)
			}
		}
		return result.ErrorOrNil()
	}
}

func convertFile(c *cli.Context, src, dst string, decompress bool, opts hatanaka.Options) error {
	codec, convFile, convTo := hatanaka.Compress, hatanaka.CompressFile, hatanaka.CompressTo
	if decompress {
		codec, convFile, convTo = hatanaka.Decompress, hatanaka.DecompressFile, hatanaka.DecompressTo
	}

	var st hatanaka.Stats
	var err error
	switch {
	case dst == stdio || (src == stdio && dst == ""):
		return convertStream(c, src, codec, opts)
	case src == stdio:
		st, err = convTo(c.Context, c.App.Reader, dst, opts)
	default:
		if dst == "" {
			dst = hatanaka.CompactName(src)
			if decompress {
				dst = hatanaka.RinexName(src)
			}
			if opts.Gzip {
				dst += ".gz"
			}
		}
		st, err = convFile(c.Context, src, dst, opts)
	}
	if err != nil {
		return err
	}
	logger(c).Info("file written", "file", dst, "epochs", st.Epochs, "satellites", st.Satellites)
	return nil
}

// convertStream converts src to stdout.
func convertStream(c *cli.Context, src string, codec func(context.Context, io.Reader, io.Writer, hatanaka.Options) (hatanaka.Stats, error), opts hatanaka.Options) error {
	r, closeIn, err := openInput(c, src)
	if err != nil {
		return err
	}
	defer closeIn()
	_, err = codec(c.Context, r, c.App.Writer, opts)
	return err
}

// openInput opens the file name or stdin and uncompresses archived files.
func openInput(c *cli.Context, name string) (io.Reader, func(), error) {
	if name == stdio {
		return c.App.Reader, func() {}, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	r, closeArchive := hatanaka.NewArchiveReader(name, f)
	return r, func() {
		closeArchive()
		f.Close()
	}, nil
}

func stats(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("stats needs exactly one file")
	}
	opts, err := options(c)
	if err != nil {
		return err
	}
	src := c.Args().First()
	in, closeIn, err := openInput(c, src)
	if err != nil {
		return err
	}
	defer closeIn()

	r := bufio.NewReader(in)
	codec := hatanaka.Compress
	if head, _ := r.Peek(80); bytes.Contains(head, []byte(rinex.LabelCRINEXVersion)) {
		codec = hatanaka.Decompress
	}
	st, err := codec(c.Context, r, io.Discard, opts)
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}

	switch c.String("format") {
	case "csv":
		return st.WriteCSV(c.App.Writer)
	case "json":
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	default:
		return fmt.Errorf("unknown format %q", c.String("format"))
	}
}
