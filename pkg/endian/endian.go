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

package endian

import (
	"math/bits"
)

// Endianness is the byte order a device uses inside its private register space
type Endianness int

const (
	Unknown Endianness = iota
	Big
	Little
)

var names = map[Endianness]string{
	Unknown: "unknown",
	Big:     "big",
	Little:  "little",
}

func (e Endianness) String() string {
	return names[e]
}

// MarshalText lets the byte order appear by name in YAML and JSON documents
func (e Endianness) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *Endianness) UnmarshalText(text []byte) error {
	for k, v := range names {
		if v == string(text) {
			*e = k
			return nil
		}
	}
	*e = Unknown
	return nil
}

func Swap(v uint32) uint32 {
	return bits.ReverseBytes32(v)
}

func isPrintable(b byte) bool {
	return b >= 0x20 && b <= 0x7E
}

// CountPrintable counts printable ASCII bytes of v
func CountPrintable(v uint32) int {
	n := 0
	for shift := 0; shift < 32; shift += 8 {
		if isPrintable(byte(v >> shift)) {
			n++
		}
	}
	return n
}

// PrintablePrefix counts the printable ASCII bytes of v read from the most
// significant byte up to the first non-printable one, the way a C string is read.
// Unlike CountPrintable it tells the two byte orders apart.
func PrintablePrefix(v uint32) int {
	n := 0
	for shift := 24; shift >= 0; shift -= 8 {
		if !isPrintable(byte(v >> shift)) {
			break
		}
		n++
	}
	return n
}

// DeviceToHost converts a raw quadlet to a host value.
// Under Unknown the ordering with the longer printable prefix wins and a tie keeps the raw value.
func DeviceToHost(raw uint32, e Endianness) uint32 {
	switch e {
	case Little:
		return Swap(raw)
	case Unknown:
		swapped := Swap(raw)
		if PrintablePrefix(swapped) > PrintablePrefix(raw) {
			return swapped
		}
	}
	return raw
}

// HostToDevice converts a host value to the raw quadlet. Unknown is treated as big-endian.
func HostToDevice(v uint32, e Endianness) uint32 {
	if e == Little {
		return Swap(v)
	}
	return v
}

// Bytes returns the quadlet bytes in bus order
func Bytes(raw uint32) [4]byte {
	return [4]byte{byte(raw >> 24), byte(raw >> 16), byte(raw >> 8), byte(raw)}
}

// Text returns the quadlet bytes in the order the device stores characters
func Text(raw uint32, e Endianness) [4]byte {
	if e == Little {
		return Bytes(Swap(raw))
	}
	return Bytes(raw)
}

// DecodeText reads zero terminated text stored across raw quadlets
func DecodeText(raws []uint32, e Endianness) string {
	data := make([]byte, 0, len(raws)*4)
	for _, raw := range raws {
		b := Text(raw, e)
		for _, c := range b {
			if c == 0 {
				return string(data)
			}
			data = append(data, c)
		}
	}
	return string(data)
}
