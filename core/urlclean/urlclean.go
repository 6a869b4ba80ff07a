// Package urlclean removes tracking query parameters from URLs.
package urlclean

import (
	"net/url"
	"strings"

	"github.com/ankit-chaubey/privacy-scrub/core"
)

// Cleaner removes a fixed set of query keys. The zero value removes nothing.
type Cleaner struct {
	params map[string]struct{}
}

// New returns a Cleaner for the tracking list in cfg.
func New(cfg core.Config) *Cleaner {
	return &Cleaner{params: cfg.TrackingSet()}
}

// Sanitize cleans text holding one URL per line. Lines are trimmed, empty
// lines dropped and the remaining lines joined with "\n" in input order.
func Sanitize(cfg core.Config, text string) string {
	return New(cfg).Text(text)
}

// SanitizeURL cleans a single URL.
func SanitizeURL(cfg core.Config, line string) string {
	return New(cfg).URL(line)
}

// Text cleans multi-line input.
func (c *Cleaner) Text(text string) string {
	return strings.Join(c.Lines(text), "\n")
}

// Lines cleans multi-line input and returns one cleaned URL per non-empty
// line, in input order.
func (c *Cleaner) Lines(text string) []string {
	lines := SplitLines(text)
	for i, l := range lines {
		lines[i] = c.URL(l)
	}
	return lines
}

// SplitLines splits text on newlines, trims every line and drops empty ones.
func SplitLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// URL removes tracking keys from one absolute URL. Anything that does not
// parse as an absolute URL is returned unchanged.
func (c *Cleaner) URL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return raw
	}
	if u.Opaque == "" && u.Host != "" && u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	u.RawQuery = c.filterQuery(u.RawQuery)
	u.ForceQuery = false
	return u.String()
}

// filterQuery drops pairs whose decoded key is tracked. Kept pairs are
// copied verbatim.
func (c *Cleaner) filterQuery(raw string) string {
	if raw == "" {
		return ""
	}
	pairs := strings.Split(raw, "&")
	kept := pairs[:0]
	for _, p := range pairs {
		if p == "" {
			continue
		}
		if _, tracked := c.params[queryKey(p)]; tracked {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, "&")
}

func queryKey(pair string) string {
	key, _, _ := strings.Cut(pair, "=")
	if k, err := url.QueryUnescape(key); err == nil {
		return k
	}
	return key
}
