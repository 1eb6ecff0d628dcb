// Package core provides the reshape engine and conversion services.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. Operators quote the code when reporting a failed conversion.
//
// # Configuration Errors (CFG000-CFG099)
//
//	CFG001 - Index column missing from the input file
//	         Patterns: "index column"
//	CFG002 - No usable value columns to expand
//	         Patterns: "no usable columns"
//	CFG003 - Output field map is empty
//	         Patterns: "output map is empty"
//	CFG004 - Output configuration not confirmed
//	         Patterns: "not confirmed"
//	CFG005 - No input files
//	         Patterns: "no input files"
//	CFG006 - No columns selected for expansion
//	         Patterns: "no columns selected"
//	CFG000 - Any other configuration problem
//	         Patterns: "configuration error"
//
// # Rule and Batch Errors
//
//	RULE001  - Loaded rule references columns the file lacks
//	           Patterns: "rule mismatch"
//	BATCH001 - Batch files do not share one header
//	           Patterns: "header mismatch"
//
// # File Errors (FILE001-FILE099, WRITE001)
//
//	FILE001  - File too large       Patterns: "file too large"
//	FILE002  - Unsupported format   Patterns: "unsupported file type"
//	FILE003  - File unreadable      Patterns: "read error"
//	FILE004  - No file provided     Patterns: "no file provided"
//	WRITE001 - Output not written   Patterns: "write error"
//
// # Conversion Service Errors (CONV001-CONV099, HIST001, RATE001)
//
//	CONV001 - Too many conversions  Patterns: "too many concurrent conversions"
//	CONV002 - Request cancelled     Patterns: "context canceled"
//	CONV003 - Request timed out     Patterns: "context deadline exceeded"
//	HIST001 - History not enabled   Patterns: "history disabled"
//	RATE001 - Rate limited          Patterns: "rate limit"
//	REQ001  - Malformed request     Patterns: "invalid request"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches.
//
// # Pattern Matching
//
// Patterns are matched case-insensitively with strings.Contains against the
// full error chain text. The first match wins, so specific patterns precede
// general ones ("rule mismatch" before "index column", every CFG code before
// "configuration error").
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// Rule and batch structure (RULE001, BATCH001)
	// =========================================================================
	{
		pattern: "rule mismatch",
		msg: UserMessage{
			Message: "The rule does not fit the current file",
			Action:  "Check the file's header or configure the rule manually",
			Code:    "RULE001",
		},
	},
	{
		pattern: "header mismatch",
		msg: UserMessage{
			Message: "Batch files do not share the same header",
			Action:  "Make sure every file in the batch has exactly the same columns",
			Code:    "BATCH001",
		},
	},

	// =========================================================================
	// Configuration (CFG001-CFG006, CFG000)
	// =========================================================================
	{
		pattern: "index column",
		msg: UserMessage{
			Message: "The index column is not present in the file",
			Action:  "Choose an index column that exists in the file",
			Code:    "CFG001",
		},
	},
	{
		pattern: "no usable columns",
		msg: UserMessage{
			Message: "There are no usable columns to expand",
			Action:  "Select at least one column other than the index column",
			Code:    "CFG002",
		},
	},
	{
		pattern: "output map is empty",
		msg: UserMessage{
			Message: "No output fields are configured",
			Action:  "Configure the output fields and their order first",
			Code:    "CFG003",
		},
	},
	{
		pattern: "not confirmed",
		msg: UserMessage{
			Message: "The output configuration has not been confirmed",
			Action:  "Review and confirm the output fields and their order",
			Code:    "CFG004",
		},
	},
	{
		pattern: "no input files",
		msg: UserMessage{
			Message: "No input files were given",
			Action:  "Add at least one spreadsheet to convert",
			Code:    "CFG005",
		},
	},
	{
		pattern: "no columns selected",
		msg: UserMessage{
			Message: "No columns are selected for expansion",
			Action:  "Select the index column and at least one column to expand",
			Code:    "CFG006",
		},
	},
	{
		pattern: "configuration error",
		msg: UserMessage{
			Message: "The conversion settings are invalid",
			Action:  "Review the rule settings",
			Code:    "CFG000",
		},
	},

	// =========================================================================
	// Files (FILE001-FILE004, WRITE001)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the workbook into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "This file type is not supported",
			Action:  "Save the workbook as .xlsx (or .csv) and try again",
			Code:    "FILE002",
		},
	},
	{
		pattern: "read error",
		msg: UserMessage{
			Message: "The file could not be read",
			Action:  "Check that the file is a valid, unlocked spreadsheet",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a spreadsheet to convert",
			Code:    "FILE004",
		},
	},
	{
		pattern: "write error",
		msg: UserMessage{
			Message: "The output file could not be written",
			Action:  "Check the export folder exists and the file is not open elsewhere",
			Code:    "WRITE001",
		},
	},

	// =========================================================================
	// Service (CONV001-CONV003, HIST001, RATE001)
	// =========================================================================
	{
		pattern: "too many concurrent conversions",
		msg: UserMessage{
			Message: "System is busy with other conversions",
			Action:  "Please wait a moment and try again",
			Code:    "CONV001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "CONV002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "CONV003",
		},
	},
	{
		pattern: "history disabled",
		msg: UserMessage{
			Message: "Run history is not enabled",
			Action:  "Set DATABASE_URL to record conversion runs",
			Code:    "HIST001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request could not be understood",
			Action:  "Check the rule JSON and the form fields",
			Code:    "REQ001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It returns the first matching pattern, or ERR000 when nothing matches.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
