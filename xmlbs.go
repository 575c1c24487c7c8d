// Package xmlbs repairs malformed HTML-like markup into well-formed XML that
// conforms to a content model.
//
// A document goes through these stages: tokenize, drop unknown tags and
// attributes, build a tree, balance the tree against the content model,
// flatten it back to tokens and merge adjacent text. None of the stages
// fails on malformed input; every problem is recovered from by dropping,
// moving or implicitly closing markup.
package xmlbs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dpotapov/xmlbs/markup"
)

// ErrNotProcessed is returned when a Document is written before it was
// processed.
var ErrNotProcessed = errors.New("xmlbs: document not processed")

type options struct {
	annotate bool
	logger   *slog.Logger
}

// Option configures the repair pipeline.
type Option func(*options)

// WithAnnotate makes the pipeline leave a comment in place of every token
// it drops. The comments start with markup.AnnotationMarker.
func WithAnnotate(on bool) Option {
	return func(o *options) { o.annotate = on }
}

// WithLogger sets the logger for the pipeline stages. Stage results are
// logged at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Process repairs a token sequence against cm and returns the repaired
// sequence. Tag tokens of the input get their attributes filtered in place.
func Process(tokens []markup.Token, cm markup.ContentModel, opts ...Option) []markup.Token {
	p := &pipeline{cm: cm, er: markup.Entities(cm), opts: newOptions(opts)}
	return p.run(tokens)
}

// Document is a single markup document being repaired.
type Document struct {
	r    io.Reader
	cm   markup.ContentModel
	opts options

	tokens    []markup.Token
	fixes     []markup.Fix
	processed bool
}

// New returns a Document that reads its markup from r.
func New(r io.Reader, cm markup.ContentModel, opts ...Option) *Document {
	return &Document{r: r, cm: cm, opts: newOptions(opts)}
}

// Process reads and repairs the document. The only possible error is a
// failure to read the input.
func (d *Document) Process() error {
	toks, err := markup.Tokenize(d.r, d.cm)
	if err != nil {
		return fmt.Errorf("tokenize: %w", err)
	}
	p := &pipeline{cm: d.cm, er: markup.Entities(d.cm), opts: d.opts}
	d.tokens = p.run(toks)
	d.fixes = p.fixes
	d.processed = true
	return nil
}

// Tokens returns the repaired token sequence.
func (d *Document) Tokens() ([]markup.Token, error) {
	if !d.processed {
		return nil, ErrNotProcessed
	}
	return d.tokens, nil
}

// Fixes returns the recovery actions applied while processing.
func (d *Document) Fixes() []markup.Fix {
	return d.fixes
}

// WriteTo writes the repaired document to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	if !d.processed {
		return 0, ErrNotProcessed
	}
	var buf bytes.Buffer
	if err := markup.Render(&buf, d.tokens, markup.Entities(d.cm)); err != nil {
		return 0, err
	}
	return buf.WriteTo(w)
}

// Repair reads a document from r, repairs it and writes the result to w. It
// returns the recovery actions applied.
func Repair(r io.Reader, w io.Writer, cm markup.ContentModel, opts ...Option) ([]markup.Fix, error) {
	d := New(r, cm, opts...)
	if err := d.Process(); err != nil {
		return nil, err
	}
	if _, err := d.WriteTo(w); err != nil {
		return d.Fixes(), fmt.Errorf("write document: %w", err)
	}
	return d.Fixes(), nil
}
