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

package channels

import (
	"jinr.ru/greenlab/go-dice/pkg/bus"
	"jinr.ru/greenlab/go-dice/pkg/device"
	"jinr.ru/greenlab/go-dice/pkg/endian"
)

// MinStringLength is the shortest run reported as a string
const MinStringLength = 3

func printable(c byte) bool {
	return c >= 0x20 && c <= 0x7E
}

type run struct {
	text      []byte
	start     uint64
	byteLevel bool
	out       *[]device.StringMatch
}

func (r *run) add(addr uint64, text []byte) {
	if len(r.text) == 0 {
		r.start = addr
	}
	r.text = append(r.text, text...)
}

func (r *run) flush() {
	if len(r.text) >= MinStringLength {
		*r.out = append(*r.out, device.StringMatch{Text: string(r.text), Address: r.start, ByteLevel: r.byteLevel})
	}
	r.text = r.text[:0]
}

// ExtractStrings finds printable text in the register map with two passes over
// the address sorted values. The quadlet pass joins the printable bytes of
// consecutive quadlets. The byte pass splits at every non-printable byte.
// Both passes break on address gaps.
func ExtractStrings(regs device.RegisterMap, e endian.Endianness) []device.StringMatch {
	var matches []device.StringMatch
	addrs := regs.Addresses()

	quadlet := &run{out: &matches}
	var prev uint64
	for i, addr := range addrs {
		if i > 0 && addr != prev+bus.QuadletSize {
			quadlet.flush()
		}
		prev = addr
		bytes := endian.Bytes(endian.DeviceToHost(regs[addr], e))
		text := make([]byte, 0, bus.QuadletSize)
		for _, c := range bytes {
			if printable(c) {
				text = append(text, c)
			}
		}
		if len(text) == 0 {
			quadlet.flush()
			continue
		}
		quadlet.add(addr, text)
	}
	quadlet.flush()

	byteRun := &run{out: &matches, byteLevel: true}
	for i, addr := range addrs {
		if i > 0 && addr != prev+bus.QuadletSize {
			byteRun.flush()
		}
		prev = addr
		for j, c := range endian.Text(regs[addr], e) {
			if !printable(c) {
				byteRun.flush()
				continue
			}
			byteRun.add(addr+uint64(j), []byte{c})
		}
	}
	byteRun.flush()
	return matches
}
