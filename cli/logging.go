package main

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// initializeLogger sets the global level and output format. Logs go to out,
// stderr for the real binary, so stdout stays clean for reports and URLs.
func initializeLogger(level, format string, out io.Writer) {
	var writer io.Writer

	switch checkFormat(format, out) {
	case "json":
		writer = out
	case "logfmt":
		writer = setupLogfmtConsoleWriter(out)
	default: // console
		writer = setupConsoleWriter(out)
	}

	log.Logger = log.Output(writer).With().Timestamp().Logger()

	if l, err := zerolog.ParseLevel(level); err == nil && level != "" {
		zerolog.SetGlobalLevel(l)
	} else {
		log.Error().Msgf("logger: unknown log level %q; using warn", level)
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
}

// checkFormat checks the log format name. Unknown or empty names fall back
// to console on a terminal and logfmt otherwise.
func checkFormat(format string, out io.Writer) string {
	if format == "json" || format == "logfmt" || format == "console" {
		return format
	}

	if format != "" {
		log.Error().Msgf("logger: unknown log format %q; using default", format)
	}

	if outputIsConsole(out) {
		return "console"
	}

	return "logfmt"
}

func setupConsoleWriter(out io.Writer) io.Writer {
	console := outputIsConsole(out)

	return zerolog.ConsoleWriter{ //nolint:exhaustruct
		Out:        out,
		NoColor:    !console,
		TimeFormat: time.TimeOnly,
	}
}

func outputIsConsole(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	fileInfo, _ := f.Stat()

	return fileInfo != nil && (fileInfo.Mode()&os.ModeCharDevice) != 0
}

// setupLogfmtConsoleWriter writes every field as key=val.
func setupLogfmtConsoleWriter(out io.Writer) io.Writer {
	return zerolog.ConsoleWriter{ //nolint:exhaustruct
		Out:        out,
		NoColor:    true,
		TimeFormat: time.RFC3339,
		FormatLevel: func(i any) string {
			if i == nil {
				return ""
			}
			return fmt.Sprintf("level=%s", i)
		},
		FormatTimestamp: func(i any) string { return fmt.Sprintf("ts=%s", i) },
		FormatMessage: func(i any) string {
			if i == nil {
				return "msg=<nil>"
			}
			return "msg=" + strconv.Quote(fmt.Sprintf("%s", i))
		},
		FormatErrFieldValue: func(i any) string {
			if i == nil {
				return "<nil>"
			}
			s := fmt.Sprintf("%s", i)
			if strings.ContainsAny(s, " \"") {
				s = strconv.Quote(s)
			}
			return s
		},
	}
}
