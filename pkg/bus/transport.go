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
	"fmt"
)

const (
	// MaxAddress is the last address of the 48-bit node address space
	MaxAddress uint64 = 0xFFFFFFFFFFFF
	// QuadletSize is the size of the atomic bus transfer unit in bytes
	QuadletSize = 4
	// MaxBlockSize bounds a single block read
	MaxBlockSize = 2048
)

// RCode is the response code a transport reports for a failed transaction
type RCode uint8

const (
	RCodeComplete RCode = 0x0
	RCodeConflict RCode = 0x4
	RCodeData     RCode = 0x5
	RCodeType     RCode = 0x6
	RCodeAddress  RCode = 0x7
	RCodeBusReset RCode = 0x10
	RCodeNoAck    RCode = 0x11
	RCodeUnknown  RCode = 0xFF
)

var rcodeNames = map[RCode]string{
	RCodeComplete: "complete",
	RCodeConflict: "conflict",
	RCodeData:     "data error",
	RCodeType:     "type error",
	RCodeAddress:  "address error",
	RCodeBusReset: "bus reset",
	RCodeNoAck:    "no ack",
	RCodeUnknown:  "unknown",
}

func (c RCode) String() string {
	if name, ok := rcodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("rcode 0x%02x", uint8(c))
}

// Transport is the raw bus session a device is reached through.
// Quadlet values are the four wire bytes assembled in big-endian order.
type Transport interface {
	ReadQuadlet(addr uint64) (uint32, error)
	ReadBlock(addr uint64, length int) ([]byte, error)
	WriteQuadlet(addr uint64, value uint32) error
	BusGeneration() uint32
}

// BusError is returned by transports when the node answered with a non-success response code
type BusError struct {
	Addr  uint64
	RCode RCode
}

func (e BusError) Error() string {
	return fmt.Sprintf("Bus transaction failed: addr: 0x%012x rcode: %s", e.Addr, e.RCode)
}

// ErrNoResponse is returned by transports when a transaction timed out or the node is gone
type ErrNoResponse struct {
	Addr uint64
	What string
}

func (e ErrNoResponse) Error() string {
	return fmt.Sprintf("No response from node: addr: 0x%012x %s", e.Addr, e.What)
}
