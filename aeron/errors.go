/*
Copyright 2016 Stanislav Liberman

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package aeron

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies conductor-originated failures so callers
// can branch on errors.As without string-matching messages.
type ErrorKind int

const (
	// KindInvalidState is an operation attempted on a closed conductor.
	KindInvalidState ErrorKind = iota
	// KindInvalidArgument is a key/label length (or similar) out of bounds,
	// raised before any command is issued.
	KindInvalidArgument
	// KindRegistrationFailure means the driver rejected a specific
	// correlation id with an error code and message.
	KindRegistrationFailure
	// KindDriverTimeout means no response arrived within driverTimeoutMs, or
	// the driver's keepalive went stale. The latter is fatal.
	KindDriverTimeout
	// KindConductorServiceTimeout means the gap between service ticks
	// exceeded interServiceTimeoutNs. Always fatal.
	KindConductorServiceTimeout
	// KindChannelEndpointError is an asynchronous, non-fatal notification
	// for a specific channel endpoint.
	KindChannelEndpointError
	// KindUnexpected wraps a panic/error raised by a user callback.
	KindUnexpected
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidState:
		return "InvalidState"
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindRegistrationFailure:
		return "RegistrationFailure"
	case KindDriverTimeout:
		return "DriverTimeout"
	case KindConductorServiceTimeout:
		return "ConductorServiceTimeout"
	case KindChannelEndpointError:
		return "ChannelEndpointError"
	case KindUnexpected:
		return "Unexpected"
	default:
		return "Unknown"
	}
}

// ConductorError is the concrete error type for every failure the conductor
// can originate. Fatal is true for the two kinds that tear the conductor
// down.
type ConductorError struct {
	Kind    ErrorKind
	Fatal   bool
	Message string

	// Only set for KindRegistrationFailure.
	DriverErrorCode int32
	// Only set for KindChannelEndpointError.
	ChannelStatusID int32

	cause error
}

func (e *ConductorError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ConductorError) Unwrap() error { return e.cause }

// Is lets errors.Is(err, aeron.ErrClosed) (and similar well-known sentinels
// below) match any ConductorError of the same Kind, regardless of message.
func (e *ConductorError) Is(target error) bool {
	t, ok := target.(*ConductorError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newError(kind ErrorKind, fatal bool, format string, args ...interface{}) *ConductorError {
	return &ConductorError{Kind: kind, Fatal: fatal, Message: fmt.Sprintf(format, args...)}
}

// Sentinel errors usable with errors.Is to test only the Kind.
var (
	ErrClosed                  = &ConductorError{Kind: KindInvalidState}
	ErrInvalidArgument         = &ConductorError{Kind: KindInvalidArgument}
	ErrRegistrationFailure     = &ConductorError{Kind: KindRegistrationFailure}
	ErrDriverTimeout           = &ConductorError{Kind: KindDriverTimeout}
	ErrConductorServiceTimeout = &ConductorError{Kind: KindConductorServiceTimeout}
	ErrChannelEndpointError    = &ConductorError{Kind: KindChannelEndpointError}
	ErrUnexpected              = &ConductorError{Kind: KindUnexpected}
)

func errClosedConductor() error {
	return newError(KindInvalidState, false, "conductor is closed")
}

func errInvalidArgument(format string, args ...interface{}) error {
	return newError(KindInvalidArgument, false, format, args...)
}

func errRegistrationFailure(correlationID int64, driverErrorCode int32, driverMessage string) error {
	e := newError(KindRegistrationFailure, false,
		"registration %d rejected by driver: code=%d message=%s", correlationID, driverErrorCode, driverMessage)
	e.DriverErrorCode = driverErrorCode
	return e
}

func errDriverTimeout(fatal bool, format string, args ...interface{}) error {
	return newError(KindDriverTimeout, fatal, format, args...)
}

func errConductorServiceTimeout(gapNs int64, thresholdNs int64) error {
	return newError(KindConductorServiceTimeout, true,
		"service gap %d ns exceeded inter-service timeout %d ns", gapNs, thresholdNs)
}

func errChannelEndpoint(statusID int32, message string) error {
	e := newError(KindChannelEndpointError, false, "channel endpoint %d: %s", statusID, message)
	e.ChannelStatusID = statusID
	return e
}

func errUnexpected(cause error, context string) error {
	e := newError(KindUnexpected, false, "%s", context)
	e.cause = errors.WithStack(cause)
	return e
}
