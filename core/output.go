package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// CleanedPrefix is prepended to the name of every cleaned file.
const CleanedPrefix = "cleaned_"

// Printer handles all display output for the CLI.
type Printer struct {
	JSON   bool
	Writer io.Writer
}

// NewPrinter creates a default Printer writing to stdout.
func NewPrinter(jsonMode bool) *Printer {
	return &Printer{JSON: jsonMode, Writer: os.Stdout}
}

// PrintResult renders one cleaned file. savedAs is the written path, empty
// when nothing was written.
func (p *Printer) PrintResult(r *CleanedFileResult, savedAs string) {
	if p.JSON {
		p.printJSON(r, savedAs)
		return
	}
	p.printText(r, savedAs)
}

func (p *Printer) printText(r *CleanedFileResult, savedAs string) {
	fmt.Fprintf(p.Writer, "File  : %s\n", r.OriginalName)
	fmt.Fprintf(p.Writer, "Format: %s\n", r.Label())
	fmt.Fprintf(p.Writer, "Size  : %d bytes\n", r.SizeBytes)
	if savedAs != "" {
		fmt.Fprintf(p.Writer, "Saved : %s\n", savedAs)
	}
	if len(r.Metadata) == 0 {
		fmt.Fprintln(p.Writer, "(no metadata found)")
		fmt.Fprintln(p.Writer)
		return
	}
	fmt.Fprintln(p.Writer)

	// Plain values first, under one heading; nested values get their own.
	var plain []string
	for _, k := range r.Metadata.Keys() {
		switch r.Metadata[k].(type) {
		case Metadata, []Metadata:
		default:
			plain = append(plain, k)
		}
	}
	if len(plain) > 0 {
		fmt.Fprintln(p.Writer, "── Fields ──")
		for _, k := range plain {
			p.printField("  ", k, r.Metadata[k])
		}
		fmt.Fprintln(p.Writer)
	}

	for _, k := range r.Metadata.Keys() {
		switch v := r.Metadata[k].(type) {
		case Metadata:
			fmt.Fprintf(p.Writer, "── %s ──\n", k)
			for _, sk := range v.Keys() {
				p.printField("  ", sk, v[sk])
			}
			fmt.Fprintln(p.Writer)
		case []Metadata:
			fmt.Fprintf(p.Writer, "── %s ──\n", k)
			for i, item := range v {
				fmt.Fprintf(p.Writer, "  #%d\n", i+1)
				for _, sk := range item.Keys() {
					p.printField("    ", sk, item[sk])
				}
			}
			fmt.Fprintln(p.Writer)
		}
	}
}

func (p *Printer) printField(indent, key string, val any) {
	fmt.Fprintf(p.Writer, "%s%-30s %s\n", indent, key+":", FormatValue(val))
}

// FormatValue renders a metadata value for text output.
func FormatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case Metadata:
		parts := make([]string, 0, len(x))
		for _, k := range x.Keys() {
			parts = append(parts, k+"="+FormatValue(x[k]))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}

func (p *Printer) printJSON(r *CleanedFileResult, savedAs string) {
	type jsonOutput struct {
		ID       string    `json:"id"`
		File     string    `json:"file"`
		Format   FormatTag `json:"format"`
		Caveat   string    `json:"caveat,omitempty"`
		Size     int64     `json:"size"`
		Saved    string    `json:"saved,omitempty"`
		Metadata Metadata  `json:"metadata"`
	}

	out := jsonOutput{
		ID:       r.ID,
		File:     r.OriginalName,
		Format:   r.Format,
		Caveat:   r.Caveat,
		Size:     r.SizeBytes,
		Saved:    savedAs,
		Metadata: r.Metadata,
	}
	if out.Metadata == nil {
		out.Metadata = Metadata{}
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Fprintln(p.Writer, string(b))
}

// PrintFormats lists the supported formats.
func (p *Printer) PrintFormats(formats []FormatInfo) {
	if p.JSON {
		type jsonFormat struct {
			Format     FormatTag `json:"format"`
			MediaTypes []string  `json:"media_types"`
			Extensions []string  `json:"extensions"`
			Strips     bool      `json:"strips"`
			Reports    []string  `json:"reports,omitempty"`
			Notes      string    `json:"notes,omitempty"`
		}
		out := make([]jsonFormat, 0, len(formats))
		for _, f := range formats {
			out = append(out, jsonFormat(f))
		}
		b, _ := json.MarshalIndent(out, "", "  ")
		fmt.Fprintln(p.Writer, string(b))
		return
	}

	for _, f := range formats {
		strips := "report only"
		if f.Strips {
			strips = "strips"
		}
		fmt.Fprintf(p.Writer, "%-5s %-12s %-20s %s\n", f.Format, strips,
			strings.Join(f.Extensions, " "), strings.Join(f.MediaTypes, ", "))
		if len(f.Reports) > 0 {
			fmt.Fprintf(p.Writer, "      reports: %s\n", strings.Join(f.Reports, ", "))
		}
		if f.Notes != "" {
			fmt.Fprintf(p.Writer, "      %s\n", f.Notes)
		}
	}
}

// PrintURLs writes cleaned URL lines, one per line or as a JSON array.
func (p *Printer) PrintURLs(lines []string) {
	if p.JSON {
		if lines == nil {
			lines = []string{}
		}
		b, _ := json.MarshalIndent(lines, "", "  ")
		fmt.Fprintln(p.Writer, string(b))
		return
	}
	for _, l := range lines {
		fmt.Fprintln(p.Writer, l)
	}
}

// PrintSuccess prints a ✓ line (suppressed in JSON mode).
func (p *Printer) PrintSuccess(msg string) {
	if !p.JSON {
		fmt.Fprintln(p.Writer, "✓ "+msg)
	}
}

// PrintInfo prints an info line (suppressed in JSON mode).
func (p *Printer) PrintInfo(msg string) {
	if !p.JSON {
		fmt.Fprintln(p.Writer, msg)
	}
}

// PrintError prints an error to stderr.
func PrintError(msg string) {
	fmt.Fprintln(os.Stderr, "✗ Error: "+msg)
}

// CleanedName returns the download name for a cleaned file.
func CleanedName(original string) string {
	return CleanedPrefix + filepath.Base(original)
}

// ResolveOutPath returns where the cleaned copy of src goes: outDir if
// non-empty, otherwise next to src.
func ResolveOutPath(src, outDir string) string {
	if outDir == "" {
		outDir = filepath.Dir(src)
	}
	return filepath.Join(outDir, CleanedName(src))
}
