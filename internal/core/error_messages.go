package core

// # Error Codes Reference
//
// Row failures are logged with a short code so operators can grep for a
// class of problem across a run.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: a unique constraint other than the load key rejected the row
//	DB003 - Foreign key: referenced record does not exist
//	DB004 - Connection refused
//	DB005 - Connection reset
//	DB006 - Timeout
//	DB007 - Deadlock
//	DB008 - Not null: a required column was empty
//	DB009 - Check constraint violated
//	DB010 - Transaction aborted
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid date or time value
//	VAL002 - Invalid number or text representation for the column type
//	VAL005 - Column not found in the target table
//	VAL007 - Value too long for the column
//	VAL008 - Row has more values than the header
//
// # Table Errors (TBL001-TBL099)
//
//	TBL001 - Table not found
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error
//
// # Matching
//
// PostgreSQL errors are matched on SQLSTATE first. Everything else is matched
// case-insensitively on the message with strings.Contains; the first
// matching pattern wins.

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// UserMessage provides operator-facing error information.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for log searches
}

var (
	msgDuplicateKey = UserMessage{
		Message: "A unique constraint rejected the row",
		Action:  "Check the table's unique indexes against the load key",
		Code:    "DB001",
	}
	msgForeignKey = UserMessage{
		Message: "Referenced record does not exist",
		Action:  "Ensure parent tables are loaded first and contain the referenced key",
		Code:    "DB003",
	}
	msgNotNull = UserMessage{
		Message: "A required column is empty",
		Action:  "Fill in the column in the source file",
		Code:    "DB008",
	}
	msgCheck = UserMessage{
		Message: "A check constraint rejected the row",
		Action:  "Review the value against the table's check constraints",
		Code:    "DB009",
	}
	msgTxAborted = UserMessage{
		Message: "The transaction was aborted by an earlier error",
		Action:  "Inspect the first failure logged for this run",
		Code:    "DB010",
	}
	msgInvalidDate = UserMessage{
		Message: "Invalid date or time value",
		Action:  "Normalized values drop separators; use a compact form such as 20240131",
		Code:    "VAL001",
	}
	msgInvalidValue = UserMessage{
		Message: "Value cannot be converted to the column type",
		Action:  "Check the value in the source file",
		Code:    "VAL002",
	}
	msgUndefinedColumn = UserMessage{
		Message: "Column not found in target table",
		Action:  "Header names must match the table's column names",
		Code:    "VAL005",
	}
	msgTooLong = UserMessage{
		Message: "Value too long for column",
		Action:  "Shorten the value or widen the column",
		Code:    "VAL007",
	}
	msgUndefinedTable = UserMessage{
		Message: "Table does not exist",
		Action:  "Check the schema bootstrap file",
		Code:    "TBL001",
	}
	msgUnknown = UserMessage{
		Message: "An unexpected error occurred",
		Action:  "Check the logged error detail",
		Code:    "ERR000",
	}
)

// sqlStateMessages maps PostgreSQL SQLSTATE codes to messages.
var sqlStateMessages = map[string]UserMessage{
	"23505": msgDuplicateKey,
	"23503": msgForeignKey,
	"23502": msgNotNull,
	"23514": msgCheck,
	"25P02": msgTxAborted,
	"22007": msgInvalidDate,
	"22008": msgInvalidDate,
	"22P02": msgInvalidValue,
	"22003": msgInvalidValue,
	"22001": msgTooLong,
	"42703": msgUndefinedColumn,
	"42P01": msgUndefinedTable,
}

// errorPattern defines a pattern to match and its corresponding message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns are matched in order, so specific patterns come first.
var errorPatterns = []errorPattern{
	{pattern: "duplicate key", msg: msgDuplicateKey},
	{pattern: "violates unique", msg: msgDuplicateKey},
	{pattern: "violates foreign key", msg: msgForeignKey},
	{pattern: "violates not-null", msg: msgNotNull},
	{pattern: "violates check", msg: msgCheck},
	{pattern: "current transaction is aborted", msg: msgTxAborted},
	{pattern: "values, expected", msg: UserMessage{
		Message: "Row has more values than the header",
		Action:  "Check quoting and delimiters on the source line",
		Code:    "VAL008",
	}},
	{pattern: "invalid input syntax", msg: msgInvalidValue},
	{pattern: "connection refused", msg: UserMessage{
		Message: "Unable to connect to database",
		Action:  "Check DB_HOST and DB_PORT",
		Code:    "DB004",
	}},
	{pattern: "connection reset", msg: UserMessage{
		Message: "Database connection was interrupted",
		Action:  "Run the load again",
		Code:    "DB005",
	}},
	{pattern: "timeout", msg: UserMessage{
		Message: "Operation timed out",
		Action:  "Raise LOAD_TIMEOUT or load fewer rows",
		Code:    "DB006",
	}},
	{pattern: "deadlock", msg: UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Make sure no other writer is active during the load",
		Code:    "DB007",
	}},
}

// MapError converts a technical error to an operator-facing message.
// Returns an empty UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if msg, ok := sqlStateMessages[pgErr.Code]; ok {
			return msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(errStr, p.pattern) {
			return p.msg
		}
	}

	return msgUnknown
}

// FormatUserError returns the message, code and suggested action as one line.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Code == "" {
		return ""
	}
	return msg.Message + " (Code: " + msg.Code + "). " + msg.Action
}
