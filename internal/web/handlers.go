package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/plusplusco/rows/internal/adapter/csvio"
	"github.com/plusplusco/rows/internal/adapter/htmlio"
	"github.com/plusplusco/rows/internal/adapter/jsonio"
	"github.com/plusplusco/rows/internal/adapter/pgxio"
	"github.com/plusplusco/rows/internal/config"
	"github.com/plusplusco/rows/internal/fields"
	"github.com/plusplusco/rows/internal/logging"
	"github.com/plusplusco/rows/internal/table"
)

// maxFailedRows caps the failed rows echoed back in a report.
const maxFailedRows = 100

var errNoFile = errors.New("no file provided")

// ----------------------------------------------------------------------------
// Response types
// ----------------------------------------------------------------------------

// TypeResponse describes one catalog type.
type TypeResponse struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Inferable bool   `json:"inferable"`
}

// TypesResponse lists the catalog in precedence order.
type TypesResponse struct {
	Locale string         `json:"locale"`
	Types  []TypeResponse `json:"types"`
}

// FieldResponse describes one resolved column.
type FieldResponse struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// FailedRowResponse is a row that could not be stored.
type FailedRowResponse struct {
	Line   int      `json:"line"`
	Reason string   `json:"reason"`
	Data   []string `json:"data"`
}

// ReportResponse summarizes a load.
type ReportResponse struct {
	TotalRows       int                 `json:"total_rows"`
	Loaded          int                 `json:"loaded"`
	Skipped         int                 `json:"skipped"`
	FailedRows      []FailedRowResponse `json:"failed_rows"`
	FailedTruncated bool                `json:"failed_truncated,omitempty"`
	Widened         []string            `json:"widened"`
	DurationMS      int64               `json:"duration_ms"`
}

// DetectResponse is returned by POST /api/detect.
type DetectResponse struct {
	Fields  []FieldResponse `json:"fields"`
	Report  ReportResponse  `json:"report"`
	Preview [][]string      `json:"preview,omitempty"`
}

// ImportResponse is returned by POST /api/import/{table}.
type ImportResponse struct {
	Table  string          `json:"table"`
	Copied int64           `json:"copied"`
	Fields []FieldResponse `json:"fields"`
	Report ReportResponse  `json:"report"`
}

func toFields(t *table.Table) []FieldResponse {
	flds := t.Fields()
	out := make([]FieldResponse, len(flds))
	for i, f := range flds {
		out[i] = FieldResponse{Name: f.Name, Type: f.Type.Name(), Nullable: f.Nullable}
	}
	return out
}

func toReport(r *table.Report) ReportResponse {
	resp := ReportResponse{
		TotalRows:  r.TotalRows,
		Loaded:     r.Loaded,
		Skipped:    r.Skipped,
		FailedRows: []FailedRowResponse{},
		Widened:    r.Widened,
		DurationMS: r.Duration.Milliseconds(),
	}
	if resp.Widened == nil {
		resp.Widened = []string{}
	}
	for i, fr := range r.FailedRows {
		if i == maxFailedRows {
			resp.FailedTruncated = true
			break
		}
		resp.FailedRows = append(resp.FailedRows, FailedRowResponse{Line: fr.Line, Reason: fr.Reason, Data: fr.Data})
	}
	return resp
}

// ----------------------------------------------------------------------------
// Request parsing
// ----------------------------------------------------------------------------

// requestOptions applies query parameter overrides to the server's
// default table options. The returned options always carry a catalog.
func (s *Server) requestOptions(r *http.Request) (table.Options, error) {
	opts := s.opts
	q := r.URL.Query()

	if v := q.Get("locale"); v != "" {
		loc, ok := fields.LookupLocale(v)
		if !ok {
			return opts, &paramError{Name: "locale", Err: fmt.Errorf("unknown locale %q", v)}
		}
		opts.Locale = loc
		opts.Catalog = nil
	}
	if v := q.Get("policy"); v != "" {
		p, err := table.ParsePolicy(v)
		if err != nil {
			return opts, &paramError{Name: "policy", Err: err}
		}
		opts.Policy = p
	}
	if v := q.Get("sample"); v != "" {
		n, err := config.ParseSampleSize(v)
		if err != nil {
			return opts, &paramError{Name: "sample", Err: err}
		}
		opts.SampleSize = n
	}
	if v := q.Get("normalize"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, &paramError{Name: "normalize", Err: err}
		}
		opts.NormalizeHeader = b
	}
	if v := q.Get("max_rows"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, &paramError{Name: "max_rows", Err: fmt.Errorf("must be a non-negative integer, got %q", v)}
		}
		opts.MaxRows = n
	}
	if v := q.Get("fields"); v != "" {
		opts.ImportFields = splitList(v)
	}

	cat, err := opts.ResolveCatalog()
	if err != nil {
		return opts, &paramError{Name: "locale", Err: err}
	}
	opts.Catalog = cat

	if v := q.Get("types"); v != "" {
		force := make(map[string]fields.Type)
		for _, pair := range splitList(v) {
			name, typeName, ok := strings.Cut(pair, ":")
			if !ok {
				return opts, &paramError{Name: "types", Err: fmt.Errorf("want name:type, got %q", pair)}
			}
			typ, ok := opts.Catalog.Lookup(strings.TrimSpace(typeName))
			if !ok {
				return opts, &paramError{Name: "types", Err: fmt.Errorf("unknown type %q", typeName)}
			}
			force[strings.TrimSpace(name)] = typ
		}
		opts.ForceTypes = force
	}
	return opts, nil
}

// readerOptions builds CSV input options from the query.
func readerOptions(r *http.Request) (csvio.ReaderOptions, error) {
	opts := csvio.ReaderOptions{SkipBlankRows: true}
	q := r.URL.Query()

	if v := q.Get("delimiter"); v != "" {
		if v == `\t` || v == "tab" {
			v = "\t"
		}
		c, size := utf8.DecodeRuneInString(v)
		if size != len(v) || c == '"' || c == '\r' || c == '\n' || c == utf8.RuneError {
			return opts, &paramError{Name: "delimiter", Err: fmt.Errorf("must be a single character, got %q", v)}
		}
		opts.Comma = c
	}
	if v := q.Get("clean"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, &paramError{Name: "clean", Err: err}
		}
		opts.CleanCells = b
	}
	return opts, nil
}

// openSource returns the CSV payload: the "file" part of a multipart form,
// or the raw body.
func openSource(r *http.Request) (io.Reader, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("read form: %w", err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, errNoFile
		}
		if err != nil {
			return nil, fmt.Errorf("read form: %w", err)
		}
		if part.FormName() == "file" {
			return part, nil
		}
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// loadCSV parses the request options and body into a table.
func (s *Server) loadCSV(r *http.Request, operation string) (*table.Table, *table.Report, error) {
	opts, err := s.requestOptions(r)
	if err != nil {
		return nil, nil, err
	}
	ropts, err := readerOptions(r)
	if err != nil {
		return nil, nil, err
	}
	src, err := openSource(r)
	if err != nil {
		return nil, nil, err
	}

	cr := csvio.NewReader(src, ropts)
	t, report, err := table.Load(r.Context(), cr, opts)
	s.metrics.RecordBytes(cr.BytesRead())
	if err != nil {
		return nil, nil, err
	}

	types := make([]string, 0, len(t.Fields()))
	for _, f := range t.Fields() {
		types = append(types, f.Type.Name())
	}
	s.metrics.RecordRows(operation, report.Loaded, report.Skipped)
	s.metrics.RecordColumns(types, len(report.Widened))
	return t, report, nil
}

// observe records a finished request.
func (s *Server) observe(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordRequest(operation, status, time.Since(start))
}

// ----------------------------------------------------------------------------
// Handlers
// ----------------------------------------------------------------------------

// handleTypes lists the catalog for the default or requested locale.
func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	opts, err := s.requestOptions(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	resp := TypesResponse{Locale: opts.Catalog.Locale().Name}
	for _, e := range opts.Catalog.Entries() {
		resp.Types = append(resp.Types, TypeResponse{
			Name:      e.Type.Name(),
			Kind:      e.Type.Kind().String(),
			Inferable: e.Infer,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDetect loads the CSV and reports the resolved fields. The preview
// parameter adds up to that many serialized rows.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	preview := 0
	if v := r.URL.Query().Get("preview"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			err = &paramError{Name: "preview", Err: fmt.Errorf("must be a non-negative integer, got %q", v)}
			s.respondError(w, r, err, statusFor(err))
			return
		}
		preview = n
	}

	t, report, err := s.loadCSV(r, "detect")
	var rows [][]string
	if err == nil && preview > 0 {
		rows, err = previewRows(t, preview)
	}
	s.observe("detect", start, err)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, DetectResponse{Fields: toFields(t), Report: toReport(report), Preview: rows})
}

func previewRows(t *table.Table, n int) ([][]string, error) {
	rows := make([][]string, 0, min(n, t.Len()))
	for row, err := range t.ExportRows() {
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
		if len(rows) == n {
			break
		}
	}
	return rows, nil
}

// handleConvert loads the CSV and writes it back in the requested format:
// csv (default), json, ndjson or html.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	format := strings.ToLower(q.Get("format"))
	if format == "" {
		format = "csv"
	}
	var jsonFormat jsonio.Format
	switch format {
	case "csv", "html":
	default:
		jf, err := jsonio.ParseFormat(format)
		if err != nil {
			err = fmt.Errorf("%w: %q", ErrUnknownFormat, format)
			s.observe("convert", start, err)
			s.respondError(w, r, err, statusFor(err))
			return
		}
		jsonFormat = jf
	}

	t, report, err := s.loadCSV(r, "convert")
	if err != nil {
		s.observe("convert", start, err)
		s.respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("X-Rows-Loaded", strconv.Itoa(report.Loaded))
	w.Header().Set("X-Rows-Failed", strconv.Itoa(report.Skipped))

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		bom, _ := strconv.ParseBool(q.Get("bom"))
		err = t.Export(csvio.NewWriter(w, csvio.WriterOptions{BOM: bom}))
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err = t.Export(htmlio.NewWriter(r.Context(), w, htmlio.Options{Caption: q.Get("caption")}))
	default:
		if jsonFormat == jsonio.FormatNDJSON {
			w.Header().Set("Content-Type", "application/x-ndjson")
		} else {
			w.Header().Set("Content-Type", "application/json")
		}
		err = t.ExportValues(jsonio.NewWriter(w, jsonFormat))
	}

	s.observe("convert", start, err)
	if err != nil {
		// Output has started; the status line is already sent.
		logging.FromContext(r.Context()).Error("convert output failed", "format", format, "error", err)
	}
}

// handleImport loads the CSV and copies it into a PostgreSQL table,
// creating the table when it does not exist.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	resp, err := s.importCSV(r)
	s.observe("import", start, err)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) importCSV(r *http.Request) (*ImportResponse, error) {
	if s.db == nil {
		return nil, ErrNoDatabase
	}
	ident, err := pgxio.ParseIdentifier(chi.URLParam(r, "table"))
	if err != nil {
		return nil, &tableNameError{Err: err}
	}

	t, report, err := s.loadCSV(r, "import")
	if err != nil {
		return nil, err
	}

	copied, err := s.copyTable(r.Context(), ident, t)
	if err != nil {
		return nil, err
	}

	logging.FromContext(r.Context()).Info("table imported",
		"table", ident.Sanitize(),
		"rows", copied,
		"failed", report.Skipped,
	)
	return &ImportResponse{
		Table:  ident.Sanitize(),
		Copied: copied,
		Fields: toFields(t),
		Report: toReport(report),
	}, nil
}

// txBeginner is implemented by *pgxpool.Pool and *pgx.Conn.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// copyTable writes t into ident. When the database can open transactions,
// the table creation and every batch commit together.
func (s *Server) copyTable(ctx context.Context, ident pgx.Identifier, t *table.Table) (int64, error) {
	opts := pgxio.WriterOptions{BatchSize: s.cfg.Database.CopyBatchSize, CreateTable: true}

	b, ok := s.db.(txBeginner)
	if !ok {
		w := pgxio.NewWriter(ctx, s.db, ident, opts)
		err := t.ExportValues(w)
		return w.Copied(), err
	}

	tx, err := b.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	// No-op once committed.
	defer tx.Rollback(ctx)

	w := pgxio.NewWriter(ctx, tx, ident, opts)
	if err := t.ExportValues(w); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return w.Copied(), nil
}
