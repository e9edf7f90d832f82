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

package endian_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jinr.ru/greenlab/go-dice/pkg/bus"
	"jinr.ru/greenlab/go-dice/pkg/configrom"
	"jinr.ru/greenlab/go-dice/pkg/endian"
	"jinr.ru/greenlab/go-dice/pkg/sample"
)

func TestRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 2, 0x12345678, 0xFFFFFFFF, 0x44494345, 0x00130e04}
	for _, e := range []endian.Endianness{endian.Big, endian.Little} {
		for _, v := range values {
			assert.Equal(t, v, endian.DeviceToHost(endian.HostToDevice(v, e), e), "%s 0x%08x", e, v)
		}
	}
}

func TestRoundTripUnknown(t *testing.T) {
	// text in device order and small integers are unambiguous
	for _, v := range []uint32{0x44494345, 0x4F555450, 0x00000002, 0x00001000} {
		assert.Equal(t, v, endian.DeviceToHost(endian.HostToDevice(v, endian.Unknown), endian.Unknown), "0x%08x", v)
	}
	// the swapped ordering wins when it reads as longer text
	assert.Equal(t, uint32(0x4A720000), endian.DeviceToHost(0x0000724A, endian.Unknown))
	assert.Equal(t, uint32(0x45434944), endian.DeviceToHost(0x45434944, endian.Unknown), "tie keeps raw")
}

func TestSwap(t *testing.T) {
	assert.Equal(t, uint32(0x78563412), endian.Swap(0x12345678))
	assert.Equal(t, [4]byte{'D', 'I', 'C', 'E'}, endian.Text(0x45434944, endian.Little))
	assert.Equal(t, [4]byte{'D', 'I', 'C', 'E'}, endian.Text(0x44494345, endian.Big))
}

func TestPrintable(t *testing.T) {
	assert.Equal(t, 4, endian.CountPrintable(0x44494345))
	assert.Equal(t, 2, endian.CountPrintable(0x4A720000))
	assert.Equal(t, 2, endian.PrintablePrefix(0x4A720000))
	assert.Equal(t, 0, endian.PrintablePrefix(0x0000724A))
}

func TestEndiannessText(t *testing.T) {
	var e endian.Endianness
	assert.NoError(t, e.UnmarshalText([]byte("little")))
	assert.Equal(t, endian.Little, e)
	text, err := endian.Big.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "big", string(text))
}

func infer(sim *bus.SimTransport) endian.Endianness {
	acc := bus.NewAccessor(sim)
	rom, _ := configrom.Read(acc)
	return endian.Infer(acc, rom)
}

func TestInferChipType(t *testing.T) {
	d := sample.NewDevice()
	assert.Equal(t, endian.Big, infer(bus.NewSimTransport(d.Image())))

	// DICE Jr reports chip type 2, which only reads as valid after a swap
	d.Endianness = endian.Little
	img := d.Image()
	raw := img.Quadlets[endian.ChipIDAddr]
	assert.Equal(t, uint32(3), raw&0xF)
	assert.Equal(t, endian.Little, infer(bus.NewSimTransport(img)))
}

func TestInferConfigRom(t *testing.T) {
	d := sample.NewDevice()
	d.Endianness = endian.Little
	sim := bus.NewSimTransport(d.Image())
	sim.Fail(endian.ChipIDAddr, bus.RCodeAddress)
	// the config ROM is big-endian regardless of the register space
	assert.Equal(t, endian.Big, infer(sim))
}

func TestInferName(t *testing.T) {
	d := sample.NewDevice()
	d.NoRom = true
	img := d.Image()
	img.Set(endian.ChipIDAddr, 0)

	tests := []struct {
		name string
		raw  uint32
		want endian.Endianness
	}{
		// "ICE" stored little-endian, the first bus byte is the terminator
		{"little", 0x00454349, endian.Little},
		{"big", 0x44494300, endian.Big},
		// "DICE" and "ECID" are both printable, the tie keeps big-endian
		{"tie", 0x44494345, endian.Big},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img.Set(endian.NameAddr, tt.raw)
			assert.Equal(t, tt.want, infer(bus.NewSimTransport(img)))
		})
	}
}

func TestPrintablePrefix(t *testing.T) {
	assert.Equal(t, 4, endian.CountPrintable(0x44494345))
	assert.Equal(t, 4, endian.CountPrintable(endian.Swap(0x44494345)))
	assert.Equal(t, 0, endian.PrintablePrefix(0x00454349))
	assert.Equal(t, 3, endian.PrintablePrefix(endian.Swap(0x00454349)))
	assert.Equal(t, uint32(0x49434500), endian.DeviceToHost(0x00454349, endian.Unknown))
	assert.Equal(t, uint32(0x44494345), endian.DeviceToHost(0x44494345, endian.Unknown))
}

func TestInferDefault(t *testing.T) {
	img := bus.NewImage(1)
	assert.Equal(t, endian.Big, infer(bus.NewSimTransport(img)))
}
