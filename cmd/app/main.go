package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli"

	cfg "github.com/1F47E/go-monoreel/internal/config"
	"github.com/1F47E/go-monoreel/internal/core"
	"github.com/1F47E/go-monoreel/internal/logger"
	"github.com/1F47E/go-monoreel/internal/storage"
	"github.com/1F47E/go-monoreel/internal/stream"
	"github.com/1F47E/go-monoreel/internal/tui"
	"github.com/1F47E/go-monoreel/internal/video"
)

var app = cli.NewApp()
var log = logger.Log

var flags = []cli.Flag{
	cli.IntFlag{Name: "width", Value: cfg.FrameWidth, Usage: "frame width in pixels", EnvVar: "MONOREEL_WIDTH"},
	cli.IntFlag{Name: "height", Value: cfg.FrameHeight, Usage: "frame height in pixels", EnvVar: "MONOREEL_HEIGHT"},
	cli.IntFlag{Name: "threshold", Value: cfg.Threshold, Usage: "luma cutoff for a 1 bit", EnvVar: "MONOREEL_THRESHOLD"},
	cli.IntFlag{Name: "workers", Value: cfg.Default().Workers, Usage: "frame workers", EnvVar: "MONOREEL_WORKERS"},
	cli.StringFlag{Name: "store", Value: cfg.StoreVideo, Usage: "dir, bundle or video", EnvVar: "MONOREEL_STORE"},
	cli.StringFlag{Name: "format", Value: cfg.FormatPNG, Usage: "frame images of the dir store, png or qoi", EnvVar: "MONOREEL_FORMAT"},
	cli.StringFlag{Name: "out, o", Usage: "output path"},
	cli.BoolFlag{Name: "plain", Usage: "plain progress bar instead of the widget", EnvVar: "MONOREEL_PLAIN"},
	cli.BoolFlag{Name: "debug", Usage: "debug logs", EnvVar: "DEBUG"},
}

func init() {
	app.Name = "monoreel"
	app.Usage = "A file to monochrome frames converter"
	app.UsageText = "monoreel [command] [flags] filename"
	app.HideVersion = true
	app.Commands = []cli.Command{
		{
			Name:    "encode",
			Aliases: []string{"e"},
			Usage:   "Encode a file into frames",
			Flags:   flags,
			Action: func(c *cli.Context) error {
				filename, err := getFilename(c)
				if err != nil {
					return err
				}
				conf := getConfig(c)
				out := c.String("out")
				if out == "" {
					out = historyPath(filename, conf.Store)
				}
				err = run(conf, func(r *core.Core) error {
					store, err := newStore(conf, out, r)
					if err != nil {
						return err
					}
					return r.Encode(filename, store)
				})
				if err != nil {
					return err
				}
				log.Infof("Frames saved to %s", out)
				return nil
			},
		},
		{
			Name:    "decode",
			Aliases: []string{"d"},
			Usage:   "Decode frames back into a file",
			Flags:   flags,
			Action: func(c *cli.Context) error {
				filename, err := getFilename(c)
				if err != nil {
					return err
				}
				conf := getConfig(c)
				outDir := c.String("out")
				if outDir == "" {
					outDir = cfg.PathDecodedDir
				}
				var out string
				err = run(conf, func(r *core.Core) error {
					store, err := newStore(conf, filename, r)
					if err != nil {
						return err
					}
					out, err = r.Decode(store, outDir)
					return err
				})
				if err != nil {
					return err
				}
				log.Infof("Decoded file saved to %s", out)
				return nil
			},
		},
		{
			Name:    "test",
			Aliases: []string{"t"},
			Usage:   "Run encode+decode and compare files",
			Flags:   flags,
			Action: func(c *cli.Context) error {
				filename, err := getFilename(c)
				if err != nil {
					return err
				}
				conf := getConfig(c)
				tmpDir, err := os.MkdirTemp("", "monoreel-test-")
				if err != nil {
					return err
				}
				defer os.RemoveAll(tmpDir)

				err = run(conf, func(r *core.Core) error {
					store, err := newStore(conf, filepath.Join(tmpDir, storeName(filename, conf.Store)), r)
					if err != nil {
						return err
					}
					same, err := r.Compare(filename, store, filepath.Join(tmpDir, cfg.PathDecodedDir))
					if err != nil {
						return fmt.Errorf("Error comparing files: %w", err)
					}
					if !same {
						return fmt.Errorf("Files are different")
					}
					return nil
				})
				if err != nil {
					return err
				}
				log.Info("Files are the same")
				return nil
			},
		},
	}
}

func getFilename(c *cli.Context) (string, error) {
	f := c.Args().Get(0)
	if f == "" {
		return "", fmt.Errorf("Filename is required")
	}
	return f, nil
}

func getConfig(c *cli.Context) cfg.Config {
	return cfg.Config{
		Width:     c.Int("width"),
		Height:    c.Int("height"),
		Threshold: c.Int("threshold"),
		Workers:   c.Int("workers"),
		Store:     c.String("store"),
		Format:    c.String("format"),
		Plain:     c.Bool("plain"),
		Debug:     c.Bool("debug"),
	}
}

func newStore(conf cfg.Config, path string, r *core.Core) (stream.Store, error) {
	switch conf.Store {
	case cfg.StoreDir:
		return storage.NewDirStore(path, conf.Format), nil
	case cfg.StoreBundle:
		return storage.NewBundleStore(path, r.Pipeline().Encoder()), nil
	case cfg.StoreVideo:
		return video.NewStore(path, r.Pipeline().Encoder()), nil
	}
	return nil, fmt.Errorf("%w: unknown store %q", cfg.ErrInvalidConfig, conf.Store)
}

// history/<timestamp>_<name> with the store extension
func historyPath(filename, store string) string {
	ts := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(cfg.PathHistoryDir, ts+"_"+storeName(filename, store))
}

func storeName(filename, store string) string {
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	switch store {
	case cfg.StoreBundle:
		return name + cfg.FileBundleExt
	case cfg.StoreVideo:
		return name + cfg.VideoExt
	}
	return name
}

// run starts the progress renderer and calls fn with a ready core
func run(conf cfg.Config, fn func(r *core.Core) error) error {
	if err := conf.Validate(); err != nil {
		return err
	}
	logger.SetDebug(conf.Debug)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	eventsCh := make(chan tui.Event)
	r, err := core.NewCore(ctx, conf, eventsCh)
	if err != nil {
		return err
	}

	// widget owns the terminal, debug logs go through the plain renderer only
	if !conf.Plain && !conf.Debug {
		logger.Mute(io.Discard)
		defer logger.Mute(os.Stderr)
	}
	ui := tui.New(ctx, cancel, eventsCh, conf.Plain || conf.Debug)
	uiDone := make(chan struct{})
	go func() {
		defer close(uiDone)
		ui.Run()
	}()

	err = fn(r)
	close(eventsCh)
	<-uiDone
	if err == nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func main() {
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
