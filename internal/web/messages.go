package web

// messages.go maps technical errors to user-facing messages with support
// codes. Users quote the code; the technical error is in the server log.
//
// # Request errors (REQ001-REQ099)
//
//	REQ001 - Invalid parameter: a query parameter could not be parsed
//	REQ002 - Unknown format: the requested output format is not supported
//
// # Schema errors (SCHEMA001-SCHEMA099)
//
//	SCHEMA001 - A column has no name
//	SCHEMA002 - Two columns share a name
//	SCHEMA003 - A requested column is not in the file
//	SCHEMA004 - A row has the wrong number of values
//
// # Row errors (ROW001-ROW099)
//
//	ROW001 - A value does not fit its column's type
//
// # File errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - Invalid CSV
//	FILE004 - No file part in a multipart upload
//	FILE005 - Empty file
//
// # Upload errors (UPL001-UPL099)
//
//	UPL002 - System busy
//	UPL004 - Request cancelled
//	UPL005 - Request timed out
//
// # Database errors (DB001-DB099)
//
//	DB001 - Duplicate key
//	DB003 - Foreign key violation
//	DB004 - Connection refused
//	DB006 - Timeout
//	DB008 - Table exists with a different layout
//	DB009 - Import is not configured
//	TBL001 - Invalid table name
//
// # Default (ERR000)
//
// Typed errors are matched first with errors.Is and errors.As. Anything
// else falls through to case-insensitive substring patterns, first match
// wins.

import (
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/plusplusco/rows/internal/fields"
	"github.com/plusplusco/rows/internal/table"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	// ErrBusy is returned when no conversion slot frees up in time.
	ErrBusy = errors.New("too many uploads in progress")

	// ErrNoDatabase is returned by import when no database is configured.
	ErrNoDatabase = errors.New("import is not configured")

	// ErrUnknownFormat is returned for an unsupported output format.
	ErrUnknownFormat = errors.New("unknown output format")
)

// paramError reports an invalid query parameter.
type paramError struct {
	Name string
	Err  error
}

func (e *paramError) Error() string { return "parameter " + e.Name + ": " + e.Err.Error() }
func (e *paramError) Unwrap() error { return e.Err }

// tableNameError reports an unusable import target name.
type tableNameError struct {
	Err error
}

func (e *tableNameError) Error() string { return "table name: " + e.Err.Error() }
func (e *tableNameError) Unwrap() error { return e.Err }

var (
	msgParam = UserMessage{
		Message: "A request parameter is invalid",
		Action:  "Check the locale, policy, sample and normalize parameters",
		Code:    "REQ001",
	}
	msgFormat = UserMessage{
		Message: "The requested output format is not supported",
		Action:  "Use csv, json, ndjson or html",
		Code:    "REQ002",
	}
	msgEmptyName = UserMessage{
		Message: "A column in the header has no name",
		Action:  "Name every column or enable header normalization",
		Code:    "SCHEMA001",
	}
	msgDuplicateName = UserMessage{
		Message: "Two columns have the same name",
		Action:  "Rename the duplicates or enable header normalization",
		Code:    "SCHEMA002",
	}
	msgUnknownField = UserMessage{
		Message: "A requested column is not in the file",
		Action:  "Verify column headers match the requested names exactly",
		Code:    "SCHEMA003",
	}
	msgRowShape = UserMessage{
		Message: "A row has the wrong number of values",
		Action:  "Ensure every row has one value per column",
		Code:    "SCHEMA004",
	}
	msgConversion = UserMessage{
		Message: "A value does not match its column's type",
		Action:  "Fix the value or use the widen policy",
		Code:    "ROW001",
	}
	msgTooLarge = UserMessage{
		Message: "File exceeds the maximum size limit",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	}
	msgInvalidCSV = UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Ensure fields are delimited consistently and quotes are balanced",
		Code:    "FILE002",
	}
	msgNoFile = UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV file to upload",
		Code:    "FILE004",
	}
	msgEmpty = UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Please upload a CSV file with a header row",
		Code:    "FILE005",
	}
	msgBusy = UserMessage{
		Message: "System is busy processing other uploads",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}
	msgDeadline = UserMessage{
		Message: "Request timed out",
		Action:  "Try uploading a smaller file or check your connection",
		Code:    "UPL005",
	}
	msgDuplicateKey = UserMessage{
		Message: "A record with this key already exists",
		Action:  "Check for duplicate entries in your CSV",
		Code:    "DB001",
	}
	msgForeignKey = UserMessage{
		Message: "Referenced record does not exist",
		Action:  "Ensure parent records are imported first",
		Code:    "DB003",
	}
	msgTableLayout = UserMessage{
		Message: "The target table does not match the file's columns",
		Action:  "Import into a new table or align the file with the table",
		Code:    "DB008",
	}
	msgNoDatabase = UserMessage{
		Message: "Database import is not available",
		Action:  "Configure DATABASE_URL to enable imports",
		Code:    "DB009",
	}
	msgTableName = UserMessage{
		Message: "The table name is invalid",
		Action:  "Use a name like orders or sales.orders",
		Code:    "TBL001",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catch errors that arrive as plain text, mostly from the
// database driver's connection layer.
var errorPatterns = []errorPattern{
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try uploading a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "invalid csv",
		msg:     msgInvalidCSV,
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		pe       *paramError
		tne      *tableNameError
		shapeErr *table.RowShapeError
		convErr  *fields.ConversionError
		maxErr   *http.MaxBytesError
		csvErr   *csv.ParseError
		pgErr    *pgconn.PgError
	)

	switch {
	case errors.Is(err, ErrBusy):
		return msgBusy
	case errors.Is(err, ErrNoDatabase):
		return msgNoDatabase
	case errors.Is(err, ErrUnknownFormat):
		return msgFormat
	case errors.As(err, &pe):
		return msgParam
	case errors.As(err, &tne):
		return msgTableName
	case errors.As(err, &maxErr):
		return msgTooLarge
	case errors.Is(err, errNoFile):
		return msgNoFile
	case errors.Is(err, table.ErrEmptyHeader):
		return msgEmpty
	case errors.Is(err, table.ErrEmptyName):
		return msgEmptyName
	case errors.Is(err, table.ErrDuplicateName):
		return msgDuplicateName
	case errors.Is(err, table.ErrUnknownField):
		return msgUnknownField
	case errors.As(err, &shapeErr):
		return msgRowShape
	case errors.As(err, &convErr):
		return msgConversion
	case errors.As(err, &csvErr):
		return msgInvalidCSV
	case errors.As(err, &pgErr):
		return pgMessage(pgErr)
	case errors.Is(err, context.Canceled):
		return msgCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return msgDeadline
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// pgMessage maps PostgreSQL SQLSTATE codes.
func pgMessage(e *pgconn.PgError) UserMessage {
	switch e.Code {
	case "23505":
		return msgDuplicateKey
	case "23503":
		return msgForeignKey
	case "42703", "42804", "22P02", "23502":
		// undefined_column, datatype_mismatch, invalid_text_representation, not_null_violation
		return msgTableLayout
	case "42602", "42P01", "3F000":
		// invalid_name, undefined_table, invalid_schema_name
		return msgTableName
	default:
		return defaultMessage
	}
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// statusFor picks the HTTP status for an error returned by a handler.
func statusFor(err error) int {
	var (
		maxErr *http.MaxBytesError
		pgErr  *pgconn.PgError
	)
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrBusy), errors.Is(err, ErrNoDatabase):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &pgErr):
		if pgMessage(pgErr) == defaultMessage {
			return http.StatusBadGateway
		}
		return http.StatusConflict
	}

	switch MapError(err).Code {
	case defaultMessage.Code:
		return http.StatusInternalServerError
	case "DB004", "DB006":
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}
