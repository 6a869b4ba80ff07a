// Package scrubber dispatches files to the per-format strategies and
// collects the results.
package scrubber

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ankit-chaubey/privacy-scrub/core"
	"github.com/ankit-chaubey/privacy-scrub/core/document"
	"github.com/ankit-chaubey/privacy-scrub/core/image"
	"github.com/ankit-chaubey/privacy-scrub/core/video"
)

// Entry binds a declared media type to the strategy handling it.
type Entry struct {
	Format   core.FormatTag
	Stripper core.Stripper
}

// Input is a file after the I/O step: name, declared media type and the
// whole content. Path is empty for content that did not come from disk.
type Input struct {
	Name      string
	Path      string
	MediaType string
	Content   []byte
}

// Scrubber holds the dispatch table. It has no other state, so one value
// may be used from several goroutines once built.
type Scrubber struct {
	entries map[string]Entry
	newID   func() string
}

// StrategyFor returns the built-in strategy for a format tag.
func StrategyFor(tag core.FormatTag) (core.Stripper, bool) {
	switch tag {
	case core.TagPDF:
		return document.New(), true
	case core.TagJPEG:
		return image.NewJPEG(), true
	case core.TagPNG:
		return image.NewPNG(), true
	case core.TagMP4, core.TagMOV, core.TagM4V:
		return video.New(tag), true
	}
	return nil, false
}

// New builds the dispatch table from cfg.MediaTypes. Media types mapped to
// a tag without a built-in strategy are left out.
func New(cfg core.Config) *Scrubber {
	s := &Scrubber{
		entries: make(map[string]Entry, len(cfg.MediaTypes)),
		newID:   func() string { return uuid.NewString() },
	}
	for mt, tag := range cfg.MediaTypes {
		if st, ok := StrategyFor(tag); ok {
			s.Register(mt, Entry{Format: tag, Stripper: st})
		}
	}
	return s
}

// Register adds or replaces the entry for mediaType.
func (s *Scrubber) Register(mediaType string, e Entry) {
	s.entries[core.NormalizeMediaType(mediaType)] = e
}

// Lookup returns the entry for a declared media type.
func (s *Scrubber) Lookup(mediaType string) (Entry, bool) {
	e, ok := s.entries[core.NormalizeMediaType(mediaType)]
	return e, ok
}

// Scrub runs the strategy for in and wraps the outcome in a result. It does
// no I/O. Unknown media types give core.ErrUnsupportedFormat.
func (s *Scrubber) Scrub(in Input) (*core.CleanedFileResult, error) {
	e, ok := s.Lookup(in.MediaType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, in.MediaType)
	}

	st, err := e.Stripper.Strip(in.Content)
	if err != nil {
		return nil, err
	}
	if st.Metadata == nil {
		st.Metadata = core.Metadata{}
	}

	return &core.CleanedFileResult{
		ID:           s.newID(),
		OriginalName: in.Name,
		Source:       in.Path,
		SizeBytes:    int64(len(st.Content)),
		Content:      st.Content,
		Format:       e.Format,
		Caveat:       st.Caveat,
		Metadata:     st.Metadata,
	}, nil
}

// Batch processes inputs in order. Unsupported inputs are skipped, decode
// failures are collected as core.FileError and never stop the batch. The
// returned error is only set when ctx is cancelled; results gathered so far
// are returned with it.
func (s *Scrubber) Batch(ctx context.Context, inputs []Input) ([]*core.CleanedFileResult, []core.FileError, error) {
	logger := log.Ctx(ctx)

	var (
		results []*core.CleanedFileResult
		failed  []core.FileError
	)
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return results, failed, err
		}

		res, err := s.Scrub(in)
		switch {
		case errors.Is(err, core.ErrUnsupportedFormat):
			logger.Debug().Str("file", in.Name).Str("media_type", in.MediaType).Msg("skipping unsupported file")
			continue
		case err != nil:
			fe := core.FileError{Name: in.Name, Err: err}
			logger.Warn().Err(err).Str("file", in.Name).Msg("scrub failed")
			failed = append(failed, fe)
			continue
		}

		logger.Debug().Str("file", in.Name).Str("format", string(res.Format)).
			Int("fields", len(res.Metadata)).Int64("size", res.SizeBytes).Msg("file scrubbed")
		results = append(results, res)
	}

	logger.Info().Int("files", len(inputs)).Int("cleaned", len(results)).Int("failed", len(failed)).
		Msg("batch finished")
	return results, failed, nil
}

// ReadInput reads path and declares its media type. An empty mediaType
// declares by extension, falling back to the leading magic bytes.
func ReadInput(ctx context.Context, path, mediaType string) (Input, error) {
	if err := ctx.Err(); err != nil {
		return Input{}, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Input{}, err
	}
	if mediaType == "" {
		mediaType = core.DeclaredMediaType(path, content[:min(len(content), core.SniffLen)])
	}
	log.Ctx(ctx).Debug().Str("file", path).Str("media_type", mediaType).Int("size", len(content)).Msg("read input")

	return Input{
		Name:      filepath.Base(path),
		Path:      path,
		MediaType: mediaType,
		Content:   content,
	}, nil
}

// Formats lists what the dispatch table handles, one entry per format.
func (s *Scrubber) Formats() []core.FormatInfo {
	byTag := map[core.FormatTag]*core.FormatInfo{}
	for mt, e := range s.entries {
		fi, ok := byTag[e.Format]
		if !ok {
			fi = &core.FormatInfo{Format: e.Format}
			if d, ok := e.Stripper.(interface{ Info() core.FormatInfo }); ok {
				*fi = d.Info()
				fi.Format = e.Format
			}
			fi.MediaTypes = nil
			fi.Extensions = nil
			byTag[e.Format] = fi
		}
		fi.MediaTypes = append(fi.MediaTypes, mt)
		fi.Extensions = append(fi.Extensions, core.ExtensionsFor(mt)...)
	}

	out := make([]core.FormatInfo, 0, len(byTag))
	for _, fi := range byTag {
		sort.Strings(fi.MediaTypes)
		sort.Strings(fi.Extensions)
		out = append(out, *fi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Format < out[j].Format })
	return out
}
