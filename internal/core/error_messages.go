package core

// error_messages.go maps technical errors to user-facing messages with a code
// support staff can look up.
//
//	FILE001  input file not found        ErrFileNotFound
//	FILE002  invalid csv                 ErrMalformedInput
//	FILE003  file too large              ErrFileTooLarge
//	FILE004  no file provided            ErrNoFile
//	VAL002   invalid timestamp           ErrParse
//	VAL004   missing required column     ErrMissingColumn
//	UPL002   too many concurrent cleans  ErrTooManyCleans
//	UPL004   context canceled
//	UPL005   context deadline exceeded
//	DB004    connection refused
//	DB006    timeout
//	ERR000   anything else
//
// Sentinel errors are matched with errors.Is first; other errors fall back to
// case-insensitive substring patterns, first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage is a user-facing description of an error.
type UserMessage struct {
	Message string // what happened
	Action  string // what to do about it
	Code    string // support reference
}

var sentinelMessages = []struct {
	target error
	msg    UserMessage
}{
	{ErrFileNotFound, UserMessage{
		Message: "The input file does not exist",
		Action:  "Check the input path",
		Code:    "FILE001",
	}},
	{ErrFileTooLarge, UserMessage{
		Message: "File exceeds the maximum size limit",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE003",
	}},
	{ErrNoFile, UserMessage{
		Message: "No file was provided",
		Action:  "Send a CSV file in the request body or the 'file' form field",
		Code:    "FILE004",
	}},
	{ErrMalformedInput, UserMessage{
		Message: "The file is not a valid CSV",
		Action:  "Ensure the file is comma-separated with a header row and consistent columns",
		Code:    "FILE002",
	}},
	{ErrParse, UserMessage{
		Message: "A created_at value is not a recognized timestamp",
		Action:  "Use ISO 8601 timestamps such as 2021-07-26T10:15:00Z",
		Code:    "VAL002",
	}},
	{ErrMissingColumn, UserMessage{
		Message: "A required column is missing from the CSV",
		Action:  "Include created_at, text and entities columns in the header",
		Code:    "VAL004",
	}},
	{ErrTooManyCleans, UserMessage{
		Message: "Too many files are being cleaned right now",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "UPL005",
	}},
}

var patternMessages = []struct {
	pattern string
	msg     UserMessage
}{
	{"connection refused", UserMessage{
		Message: "Unable to connect to the database",
		Action:  "Please try again in a few moments",
		Code:    "DB004",
	}},
	{"timeout", UserMessage{
		Message: "Operation timed out",
		Action:  "Please try again later",
		Code:    "DB006",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts err to a UserMessage. nil maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.target) {
			return s.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, p := range patternMessages {
		if strings.Contains(errStr, p.pattern) {
			return p.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
