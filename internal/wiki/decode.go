// Package wiki streams MediaWiki XML export dumps into a lazy, finite
// sequence of pages using bounded memory independent of dump size.
package wiki

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
)

// ArticleNamespace is the MediaWiki namespace id processed by the pipeline;
// everything else is emitted too (so callers can count/skip it) but never
// chunked.
const ArticleNamespace = 0

// Page is one decoded revision from a MediaWiki XML dump.
type Page struct {
	Title          string
	Namespace      int
	Timestamp      string
	Wikitext       string
	RedirectTarget string
}

// IsRedirect reports whether the page carries a redirect target.
func (p Page) IsRedirect() bool { return p.RedirectTarget != "" }

// IsArticle reports whether the page is in the namespace the pipeline chunks.
func (p Page) IsArticle() bool { return p.Namespace == ArticleNamespace }

// rawPage mirrors the subset of the MediaWiki export schema this decoder
// cares about: title, namespace, and the latest revision's timestamp/text.
// Unknown or extra elements are ignored by encoding/xml automatically.
type rawPage struct {
	XMLName  xml.Name `xml:"page"`
	Title    string   `xml:"title"`
	Ns       string   `xml:"ns"`
	Redirect *struct {
		Target string `xml:"title,attr"`
	} `xml:"redirect"`
	Revision struct {
		Timestamp string `xml:"timestamp"`
		Text      string `xml:"text"`
	} `xml:"revision"`
}

// Options configures decoding behaviour.
type Options struct {
	// SkipNonArticle drops pages outside ArticleNamespace at the source
	// instead of emitting them for the caller to filter.
	SkipNonArticle bool
	// Logger receives a warning for every malformed page element skipped.
	Logger *slog.Logger
}

// Decoder is a pull-style, cancellable iterator over a dump's pages. A
// single malformed <page> element never wedges the stream: it is logged
// and skipped, and the next call to Next resumes from the following
// element.
type Decoder struct {
	file    *os.File
	xmlDec  *xml.Decoder
	opts    Options
	logger  *slog.Logger
	seen    int
	skipped int
}

// Open starts streaming the dump at path. The returned Decoder owns the
// file handle; call Close when done (or drain to exhaustion and Close).
func Open(path string, opts Options) (*Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dump %s: %w", path, err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{
		file:   f,
		xmlDec: xml.NewDecoder(f),
		opts:   opts,
		logger: logger,
	}, nil
}

// Next returns the next page in document order, or ok=false at clean EOF.
// A malformed <page> subtree is logged as a warning and the scan continues
// to the next sibling; it does not surface as an error to the caller.
func (d *Decoder) Next(ctx context.Context) (Page, bool, error) {
	for {
		select {
		case <-ctx.Done():
			return Page{}, false, ctx.Err()
		default:
		}

		tok, err := d.xmlDec.Token()
		if err == io.EOF {
			return Page{}, false, nil
		}
		if err != nil {
			// Truncated input at EOF terminates gracefully rather than
			// surfacing a fatal decode error for the whole stream.
			if err == io.ErrUnexpectedEOF {
				return Page{}, false, nil
			}
			var se *xml.SyntaxError
			if errors.As(err, &se) && se.Msg == "unexpected EOF" {
				return Page{}, false, nil
			}
			return Page{}, false, fmt.Errorf("read dump token: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "page" {
			continue
		}

		var raw rawPage
		if err := d.xmlDec.DecodeElement(&raw, &start); err != nil {
			d.skipped++
			d.logger.Warn("skipping malformed page element",
				slog.String("error", err.Error()))
			continue
		}

		page, err := toPage(raw)
		if err != nil {
			d.skipped++
			d.logger.Warn("skipping page with invalid fields",
				slog.String("title", raw.Title),
				slog.String("error", err.Error()))
			continue
		}

		if d.opts.SkipNonArticle && !page.IsArticle() {
			continue
		}

		d.seen++
		return page, true, nil
	}
}

// Seen returns the number of pages successfully decoded and returned so far.
func (d *Decoder) Seen() int { return d.seen }

// Skipped returns the number of malformed page elements skipped so far.
func (d *Decoder) Skipped() int { return d.skipped }

// Close releases the underlying file handle.
func (d *Decoder) Close() error {
	return d.file.Close()
}

func toPage(raw rawPage) (Page, error) {
	if raw.Title == "" {
		return Page{}, fmt.Errorf("empty title")
	}
	ns := 0
	if raw.Ns != "" {
		n, err := strconv.Atoi(raw.Ns)
		if err != nil {
			return Page{}, fmt.Errorf("invalid namespace %q: %w", raw.Ns, err)
		}
		ns = n
	}
	redirect := ""
	if raw.Redirect != nil {
		redirect = raw.Redirect.Target
	}
	return Page{
		Title:          raw.Title,
		Namespace:      ns,
		Timestamp:      raw.Revision.Timestamp,
		Wikitext:       raw.Revision.Text,
		RedirectTarget: redirect,
	}, nil
}
