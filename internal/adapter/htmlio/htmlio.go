// Package htmlio renders table rows as an HTML table fragment.
//
// Output is streamed: the header, each row and the closing tags are separate
// templ components rendered straight to the destination, so large tables
// never build up in memory.
package htmlio

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/plusplusco/rows/internal/adapter"
	"github.com/plusplusco/rows/internal/fields"
)

// Options configure the rendered table.
type Options struct {
	// Class is the table's class attribute. Defaults to "rows".
	Class string

	// Caption, when set, is rendered as the table caption.
	Caption string
}

// Writer is an adapter.Writer producing an HTML <table>.
type Writer struct {
	ctx    context.Context
	w      *bufio.Writer
	opts   Options
	cols   []adapter.Column
	header bool
}

var _ adapter.Writer = (*Writer)(nil)

// NewWriter wraps w. Close flushes but does not close w.
func NewWriter(ctx context.Context, w io.Writer, opts Options) *Writer {
	if opts.Class == "" {
		opts.Class = "rows"
	}
	return &Writer{ctx: ctx, w: bufio.NewWriter(w), opts: opts}
}

// WriteHeader opens the table and writes the column headings.
func (w *Writer) WriteHeader(cols []adapter.Column) error {
	w.cols = cols
	w.header = true
	return tableHead(w.opts, cols).Render(w.ctx, w.w)
}

// Write writes one row.
func (w *Writer) Write(row []string) error {
	return tableRow(w.cols, row).Render(w.ctx, w.w)
}

// Close closes the table and flushes.
func (w *Writer) Close() error {
	if !w.header {
		if err := tableHead(w.opts, nil).Render(w.ctx, w.w); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w.w, "</tbody></table>\n"); err != nil {
		return err
	}
	return w.w.Flush()
}

// Each component builds its fragment first and writes it once, so a failed
// write is always reported.

func tableHead(opts Options, cols []adapter.Column) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<table class="` + templ.EscapeString(opts.Class) + `">`)
		if opts.Caption != "" {
			b.WriteString("<caption>" + templ.EscapeString(opts.Caption) + "</caption>")
		}
		if len(cols) > 0 {
			b.WriteString("<thead><tr>")
			for _, c := range cols {
				b.WriteString(`<th data-type="` + templ.EscapeString(c.TypeName()) + `">`)
				b.WriteString(templ.EscapeString(c.Name))
				b.WriteString("</th>")
			}
			b.WriteString("</tr></thead>")
		}
		b.WriteString("<tbody>\n")
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func tableRow(cols []adapter.Column, row []string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<tr>")
		for i, v := range row {
			switch {
			case v == "" && i < len(cols) && cols[i].Nullable:
				b.WriteString(`<td class="null"></td>`)
				continue
			case i < len(cols) && isNumeric(cols[i].Type):
				b.WriteString(`<td class="num">`)
			default:
				b.WriteString("<td>")
			}
			b.WriteString(templ.EscapeString(v))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>\n")
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func isNumeric(t fields.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case fields.KindInteger, fields.KindDecimal, fields.KindPercent, fields.KindFloat:
		return true
	}
	return false
}

// ErrorAlert renders a user-facing error fragment with an optional
// suggested action and a support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div class="alert alert-error" role="alert"><p>`)
		b.WriteString(templ.EscapeString(message))
		b.WriteString("</p>")
		if action != "" {
			b.WriteString(`<p class="action">` + templ.EscapeString(action) + "</p>")
		}
		if code != "" {
			b.WriteString(`<small class="code">` + templ.EscapeString(code) + "</small>")
		}
		b.WriteString("</div>\n")
		_, err := io.WriteString(w, b.String())
		return err
	})
}
