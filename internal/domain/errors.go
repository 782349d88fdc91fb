package domain

import (
	"errors"
	"strings"
)

// ErrorCode is a numeric error reported by the watermarking service
type ErrorCode int

const (
	CodeGeneric                     ErrorCode = 1
	CodeInvalidWatermarkText        ErrorCode = 2
	CodeInvalidImageBuffer          ErrorCode = 3
	CodeInvalidWatermarkImageBuffer ErrorCode = 4
	CodeTooManyFields               ErrorCode = 5
	CodeTooManyFiles                ErrorCode = 6
	CodeFileTooLarge                ErrorCode = 7
	CodeFieldNameTooLong            ErrorCode = 8
	CodeFieldTooLong                ErrorCode = 9
	CodeInvalidFileType             ErrorCode = 10
	CodeNoPictureProvided           ErrorCode = 11
	CodeNoWatermarkDataProvided     ErrorCode = 12
)

// GenericMessage is shown whenever no more specific message applies
const GenericMessage = "Pieprasījums neizdevās. Lūdzu, pamēģiniet vēlreiz vēlāk."

var errorMessages = map[ErrorCode]string{
	CodeGeneric:                     GenericMessage,
	CodeInvalidWatermarkText:        "Nederīgs ūdenszīmes teksts.",
	CodeInvalidImageBuffer:          "Nederīgi attēla dati.",
	CodeInvalidWatermarkImageBuffer: "Nederīgi ūdenszīmes attēla dati.",
	CodeTooManyFields:               "Pārāk daudz pieprasījuma lauku.",
	CodeTooManyFiles:                "Pārāk daudz pieprasījuma failu.",
	CodeFileTooLarge:                "Fails ir pārāk liels.",
	CodeFieldNameTooLong:            "Pieprasījuma lauka nosaukums ir pārāk garš.",
	CodeFieldTooLong:                "Pieprasījuma lauka vērtība ir pārāk gara.",
	CodeInvalidFileType:             "Nederīgs faila tips.",
	CodeNoPictureProvided:           "Attēls nav sniegts.",
	CodeNoWatermarkDataProvided:     "Nav nodrošināta ūdenszīme.",
}

// Message returns the fixed message of a recognized code
func (c ErrorCode) Message() (string, bool) {
	m, ok := errorMessages[c]
	return m, ok
}

// MessageForCodes joins the messages of the recognized codes with newlines.
// Unknown codes are dropped; if none is recognized the generic message is returned.
func MessageForCodes(codes []ErrorCode) string {
	messages := make([]string, 0, len(codes))
	for _, c := range codes {
		if m, ok := c.Message(); ok {
			messages = append(messages, m)
		}
	}
	if len(messages) == 0 {
		return GenericMessage
	}
	return strings.Join(messages, "\n")
}

// ServiceError is a structured, code driven failure returned by the watermarking service
type ServiceError struct {
	StatusCode int
	Codes      []ErrorCode
}

// Error returns the message for the user
func (e *ServiceError) Error() string {
	return MessageForCodes(e.Codes)
}

// TransportError is a failure that happened before a structured response was obtained
type TransportError struct {
	Err error
}

// Error returns the generic failure message
func (e *TransportError) Error() string {
	return GenericMessage
}

// Unwrap returns the transport failure
func (e *TransportError) Unwrap() error {
	return e.Err
}

// FailureMessage normalizes any request error into the message shown to the user
func FailureMessage(err error) string {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Error()
	}
	return GenericMessage
}
