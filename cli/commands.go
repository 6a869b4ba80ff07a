package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/ankit-chaubey/privacy-scrub/core"
	"github.com/ankit-chaubey/privacy-scrub/core/scrubber"
	"github.com/ankit-chaubey/privacy-scrub/core/urlclean"
)

// ─── scrub ───────────────────────────────────────────────────────────────────

func scrubAction(ctx context.Context, c *cli.Command) error {
	logger := log.Ctx(ctx)
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return cli.Exit("scrub: no input files", 2)
	}

	outDir := c.String("out")
	if outDir != "" && !c.Bool("dry-run") {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	printer := core.NewPrinter(c.Bool("json"))
	printer.Writer = c.Root().Writer
	s := scrubber.New(core.DefaultConfig())

	var (
		inputs   []scrubber.Input
		failures int
	)
	for _, p := range paths {
		in, err := scrubber.ReadInput(ctx, p, c.String("type"))
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			core.PrintError(core.FileError{Name: p, Err: err}.Error())
			failures++
			continue
		}
		if _, ok := s.Lookup(in.MediaType); !ok {
			printer.PrintInfo(fmt.Sprintf("Skipped %s: unsupported type %s", in.Name, in.MediaType))
		}
		inputs = append(inputs, in)
	}

	results, failed, err := s.Batch(ctx, inputs)
	if err != nil {
		return err
	}
	failures += len(failed)

	var session scrubber.ResultList
	session.Append(results)

	cleaned := 0
	for _, r := range session.Snapshot() {
		saved, err := writeCleaned(r, outDir, c.Bool("force"), c.Bool("dry-run"))
		if err != nil {
			core.PrintError(core.FileError{Name: r.OriginalName, Err: err}.Error())
			failures++
			continue
		}
		printer.PrintResult(r, saved)
		cleaned++
	}
	for _, fe := range failed {
		core.PrintError(fe.Error())
	}

	if skipped := len(inputs) - len(results) - len(failed); skipped > 0 {
		logger.Warn().Int("skipped", skipped).Msg("unsupported files skipped")
	}

	switch {
	case cleaned == 0 && failures > 0:
		return cli.Exit("no file could be cleaned", 1)
	case c.Bool("dry-run"):
		printer.PrintSuccess(fmt.Sprintf("Checked %d of %d files, nothing written", cleaned, len(paths)))
	default:
		printer.PrintSuccess(fmt.Sprintf("Cleaned %d of %d files", cleaned, len(paths)))
	}
	return nil
}

// writeCleaned stores the cleaned copy as cleaned_<name> and returns its
// path. Existing files are kept unless force is set.
func writeCleaned(r *core.CleanedFileResult, outDir string, force, dryRun bool) (string, error) {
	if dryRun {
		return "", nil
	}
	dst := core.ResolveOutPath(r.Source, outDir)
	if r.Source == "" {
		dst = core.ResolveOutPath(r.OriginalName, outDir)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(dst, flags, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return "", fmt.Errorf("%s exists (use --force to overwrite)", dst)
	} else if err != nil {
		return "", err
	}
	if _, err := f.Write(r.Content); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	log.Debug().Str("file", dst).Int64("size", r.SizeBytes).Msg("cleaned file written")
	return dst, nil
}

// ─── urls ────────────────────────────────────────────────────────────────────

func urlsAction(ctx context.Context, c *cli.Command) error {
	logger := log.Ctx(ctx)

	text, err := urlInput(c)
	if err != nil {
		return err
	}

	cfg := core.DefaultConfig()
	if params := c.StringSlice("param"); len(params) > 0 {
		cfg = cfg.WithTrackingParams(params...)
	}
	if extra := c.StringSlice("extra-param"); len(extra) > 0 {
		cfg = cfg.WithExtraTrackingParams(extra...)
	}

	lines := urlclean.New(cfg).Lines(text)

	printer := core.NewPrinter(c.Bool("json"))
	printer.Writer = c.Root().Writer
	printer.PrintURLs(lines)

	if c.Bool("copy") {
		if err := writeClipboard(strings.Join(lines, "\n")); err != nil {
			logger.Warn().Err(err).Msg("could not copy to clipboard")
		} else {
			logger.Info().Int("lines", len(lines)).Msg("copied to clipboard")
		}
	}
	return nil
}

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

// urlInput gathers raw URL text from arguments, --file, or stdin, in that
// order of preference.
func urlInput(c *cli.Command) (string, error) {
	if c.Args().Present() {
		return strings.Join(c.Args().Slice(), "\n"), nil
	}
	if name := c.String("file"); name != "" {
		b, err := os.ReadFile(name)
		if err != nil {
			return "", fmt.Errorf("read urls: %w", err)
		}
		return string(b), nil
	}
	b, err := io.ReadAll(c.Root().Reader)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(b), nil
}

// ─── formats ─────────────────────────────────────────────────────────────────

func formatsAction(_ context.Context, c *cli.Command) error {
	printer := core.NewPrinter(c.Bool("json"))
	printer.Writer = c.Root().Writer
	printer.PrintFormats(scrubber.New(core.DefaultConfig()).Formats())
	return nil
}
