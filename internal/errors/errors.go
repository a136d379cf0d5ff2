package errors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable failure kind mapped to process exit codes.
type Code int

const (
	CodeSuccess          Code = 0
	CodeInternal         Code = 1
	CodeUsage            Code = 2
	CodeInvalidAddress   Code = 10
	CodeInvalidAmount    Code = 11
	CodeInvalidSymbol    Code = 12
	CodeBelowMinimum     Code = 13
	CodeNotFound         Code = 14
	CodeUnauthorized     Code = 15
	CodeLocked           Code = 16
	CodeNoRoute          Code = 17
	CodeNetwork          Code = 20
	CodeTransaction      Code = 21
	CodeSimulationFailed Code = 22
)

var codeNames = map[Code]string{
	CodeSuccess:          "success",
	CodeInternal:         "internal",
	CodeUsage:            "usage",
	CodeInvalidAddress:   "invalid_address",
	CodeInvalidAmount:    "invalid_amount",
	CodeInvalidSymbol:    "invalid_symbol",
	CodeBelowMinimum:     "below_minimum",
	CodeNotFound:         "not_found",
	CodeUnauthorized:     "unauthorized",
	CodeLocked:           "locked",
	CodeNoRoute:          "no_route",
	CodeNetwork:          "network_error",
	CodeTransaction:      "transaction_failed",
	CodeSimulationFailed: "simulation_failed",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "unknown"
}

// Error is a typed failure that carries a stable code through the service
// layer up to the command dispatcher, which is the single conversion boundary.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf reports the typed code carried by err, or CodeInternal for untyped
// errors that escaped a service without classification.
func CodeOf(err error) Code {
	if err == nil {
		return CodeSuccess
	}
	if typed, ok := As(err); ok {
		return typed.Code
	}
	return CodeInternal
}

func ExitCode(err error) int {
	return int(CodeOf(err))
}
