package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/ankit-chaubey/privacy-scrub/core"
)

var Version = "dev"

func buildVersionString() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		var rev, date string
		for _, kv := range info.Settings {
			switch kv.Key {
			case "vcs.revision":
				rev = kv.Value
			case "vcs.time":
				date = kv.Value
			}
		}
		if rev != "" {
			return fmt.Sprintf("dev (rev %s at %s)", rev, date)
		}
	}
	return Version
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		core.PrintError(err.Error())
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "privacy-scrub",
		Usage:   "strip identifying metadata from files and tracking parameters from URLs",
		Version: buildVersionString(),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log.level", Value: "warn", Usage: "Log level (debug, info, warn, error)"},
			&cli.StringFlag{Name: "log.format", Usage: "Log format (console, logfmt, json)"},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			initializeLogger(c.String("log.level"), c.String("log.format"), c.Root().ErrWriter)
			return log.Logger.WithContext(ctx), nil
		},
		Commands: []*cli.Command{
			{
				Name:      "scrub",
				Usage:     "remove metadata from files, writing cleaned_<name> copies",
				ArgsUsage: "FILE...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "directory for cleaned files (default: next to each input)"},
					&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "overwrite existing cleaned files"},
					&cli.BoolFlag{Name: "dry-run", Aliases: []string{"n"}, Usage: "report metadata without writing files"},
					&cli.StringFlag{Name: "type", Usage: "declared media type for every input, e.g. image/jpeg"},
					&cli.BoolFlag{Name: "json", Usage: "print reports as JSON"},
				},
				Action: scrubAction,
			},
			{
				Name:      "urls",
				Usage:     "remove tracking parameters from URLs (arguments, --file or stdin; one per line)",
				ArgsUsage: "[URL...]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Usage: "read URLs from file"},
					&cli.BoolFlag{Name: "copy", Aliases: []string{"c"}, Usage: "also copy the cleaned text to the clipboard"},
					&cli.StringSliceFlag{Name: "param", Usage: "tracking parameter to remove; replaces the built-in list"},
					&cli.StringSliceFlag{Name: "extra-param", Usage: "tracking parameter to remove in addition to the built-in list"},
					&cli.BoolFlag{Name: "json", Usage: "print cleaned URLs as a JSON array"},
				},
				Action: urlsAction,
			},
			{
				Name:  "formats",
				Usage: "list supported file formats",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "print as JSON"},
				},
				Action: formatsAction,
			},
		},
	}
}
