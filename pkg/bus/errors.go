/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package bus

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	// BusFailure the transport reported a non-success status
	BusFailure ErrorKind = iota
	// Unreachable no response, or the session is no longer valid
	Unreachable
	// ReadFault the transport faulted while serving the read
	ReadFault
	// InvalidAddress the address is outside the valid range for its space
	InvalidAddress
	// VerificationFailed a landmark check rejected an otherwise successful read
	VerificationFailed
	// SizeOutOfRange a count or size field exceeded its sanity bound
	SizeOutOfRange
)

var errorKindNames = map[ErrorKind]string{
	BusFailure:         "BusFailure",
	Unreachable:        "Unreachable",
	ReadFault:          "ReadFault",
	InvalidAddress:     "InvalidAddress",
	VerificationFailed: "VerificationFailed",
	SizeOutOfRange:     "SizeOutOfRange",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// RegisterError is the uniform error of every register access
type RegisterError struct {
	Kind  ErrorKind
	Addr  uint64
	Code  RCode
	Cause error
}

func (e RegisterError) Error() string {
	msg := fmt.Sprintf("%s: addr: 0x%012x", e.Kind, e.Addr)
	if e.Kind == BusFailure {
		msg = fmt.Sprintf("%s rcode: %s", msg, e.Code)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Cause)
	}
	return msg
}

func (e RegisterError) Unwrap() error {
	return e.Cause
}

// KindOf returns the kind of a RegisterError and false for any other error
func KindOf(err error) (ErrorKind, bool) {
	var regErr RegisterError
	if errors.As(err, &regErr) {
		return regErr.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is a RegisterError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func NewInvalidAddress(addr uint64, what string) error {
	return RegisterError{Kind: InvalidAddress, Addr: addr, Cause: errors.New(what)}
}

func NewVerificationFailed(addr uint64, what string) error {
	return RegisterError{Kind: VerificationFailed, Addr: addr, Cause: errors.New(what)}
}

func NewSizeOutOfRange(addr uint64, value, limit uint32) error {
	return RegisterError{
		Kind:  SizeOutOfRange,
		Addr:  addr,
		Cause: fmt.Errorf("value %d exceeds limit %d", value, limit),
	}
}

// classify converts a transport error into a RegisterError
func classify(addr uint64, err error) error {
	var regErr RegisterError
	if errors.As(err, &regErr) {
		return regErr
	}
	var busErr BusError
	if errors.As(err, &busErr) {
		if busErr.RCode == RCodeBusReset || busErr.RCode == RCodeNoAck {
			return RegisterError{Kind: Unreachable, Addr: addr, Code: busErr.RCode, Cause: err}
		}
		return RegisterError{Kind: BusFailure, Addr: addr, Code: busErr.RCode, Cause: err}
	}
	var noResp ErrNoResponse
	if errors.As(err, &noResp) {
		return RegisterError{Kind: Unreachable, Addr: addr, Cause: err}
	}
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return RegisterError{Kind: Unreachable, Addr: addr, Cause: err}
	}
	return RegisterError{Kind: BusFailure, Addr: addr, Code: RCodeUnknown, Cause: err}
}

// ErrImageFormat returned when a register image file can not be decoded
type ErrImageFormat struct {
	What string
}

func (e ErrImageFormat) Error() string {
	return fmt.Sprintf("Wrong register image format: %s", e.What)
}
