package service

import "errors"

// ErrUnauthenticated is returned when an operation is called without an
// authenticated actor in the context.
var ErrUnauthenticated = errors.New("caller is not authenticated")

// ErrNotFound is returned by read-only projections when the invitation does
// not exist or the caller is not a participant. Mutating operations report
// the same condition through a Result instead.
var ErrNotFound = errors.New("invitation not found")

// Code classifies why a sharing operation could not complete. Codes describe
// business outcomes; infrastructure failures surface as plain errors.
type Code string

const (
	CodeOK                Code = "ok"
	CodeNotFound          Code = "not_found"
	CodeInvalidState      Code = "invalid_state"
	CodeExpired           Code = "expired"
	CodeEncryptionFailure Code = "encryption_failure"
)

// Result is the common outcome envelope for mutating operations. Message is
// safe to render to end users and never carries credential material.
type Result struct {
	OK      bool   `json:"ok"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func okResult(msg string) Result {
	return Result{OK: true, Code: CodeOK, Message: msg}
}

func failResult(code Code, msg string) Result {
	return Result{OK: false, Code: code, Message: msg}
}

// ShareResult reports the outcome of ShareAccess.
type ShareResult struct {
	Result
	InvitationID string `json:"invitationId,omitempty"`
}

// AutoLoginResult carries decrypted credentials on success. Failure results
// leave the credential fields zero.
type AutoLoginResult struct {
	Result
	SessionID  string `json:"sessionId,omitempty"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
	ServiceURL string `json:"serviceUrl,omitempty"`
}

// RevokeResult reports the outcome of RevokeAccess.
type RevokeResult struct {
	Result
	SessionsClosed int64 `json:"sessionsClosed"`
}
