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

package discover

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-dice/pkg/bus"
	"jinr.ru/greenlab/go-dice/pkg/configrom"
	"jinr.ru/greenlab/go-dice/pkg/device"
	"jinr.ru/greenlab/go-dice/pkg/endian"
	"jinr.ru/greenlab/go-dice/pkg/log"
	"jinr.ru/greenlab/go-dice/pkg/sample"
)

func resolve(t *testing.T, img *bus.Image) (*device.AddressDiscoveryResult, error) {
	acc := bus.NewAccessor(bus.NewSimTransport(img))
	rom, _ := configrom.Read(acc)
	r := NewResolver(acc, endian.Big, rom, log.Device(img.GUID))
	return r.Resolve(context.Background())
}

func TestLegacyFallback(t *testing.T) {
	img := sample.NewDevice().Image()
	result, err := resolve(t, img)
	require.NoError(t, err)
	assert.Equal(t, device.LegacyFallback, result.Method)
	assert.True(t, result.Verified)
	assert.Equal(t, uint64(0xFFFFE0000000), *result.GlobalBase)
	assert.Equal(t, uint64(0xFFFFE0000400), *result.TxBase)
	assert.Equal(t, uint64(0xFFFFE0000800), *result.RxBase)
}

func TestPointerDiscovery(t *testing.T) {
	d := sample.NewDevice()
	d.Base = sample.BasePointers
	result, err := resolve(t, d.Image())
	require.NoError(t, err)
	assert.Equal(t, device.PointerDiscovery, result.Method)
	assert.Equal(t, d.GlobalBase(), *result.GlobalBase)
	assert.Equal(t, d.TxBase(), *result.TxBase)
	assert.Equal(t, d.RxBase(), *result.RxBase)
}

func TestConfigRomKeyPriority(t *testing.T) {
	tests := []struct {
		name  string
		setup func(img *bus.Image)
	}{
		{
			name: "over legacy fallback",
			setup: func(img *bus.Image) {
				img.Set(device.DiscoveryBase, 2)
			},
		},
		{
			name: "over pointer discovery",
			setup: func(img *bus.Image) {
				img.Set(device.DiscoveryBase+GlobalPtrHi, 0)
				img.Set(device.DiscoveryBase+GlobalPtrLo, sample.VendorKeyValue)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := sample.NewDevice()
			d.Base = sample.BaseConfigRom
			img := d.Image()
			tt.setup(img)

			result, err := resolve(t, img)
			require.NoError(t, err)
			assert.Equal(t, device.ConfigRomKey, result.Method)
			assert.True(t, result.Verified)
			assert.Equal(t, d.GlobalBase(), *result.GlobalBase)
			assert.Equal(t, d.TxBase(), *result.TxBase, "unusable pointer falls back to the fixed offset")
		})
	}
}

func TestConfigRomKeyUnitRelative(t *testing.T) {
	d := sample.NewDevice()
	d.Owner = 0x77
	img := d.Image()
	unit := uint64(configrom.Base + configrom.RootDirOffset + 0x04*4)
	img.Set(unit, 4<<16)
	img.Set(unit+4*4, uint32(configrom.KeyVendorFirst)<<24|0x3000)
	global := unit + 0x3000*4
	img.Set(global+device.RegMap[device.RegOwner].Offset, 2)

	result, err := resolve(t, img)
	require.NoError(t, err)
	assert.Equal(t, device.ConfigRomKey, result.Method)
	assert.True(t, result.Verified)
	assert.Equal(t, global, *result.GlobalBase)
	assert.Equal(t, global+device.LegacyTxOffset, *result.TxBase)
}

func TestNoBaseAddress(t *testing.T) {
	d := sample.NewDevice()
	d.Owner = 0x77
	_, err := resolve(t, d.Image())
	require.Error(t, err)
	assert.IsType(t, ErrNoBaseAddress{}, err)
	assert.Contains(t, err.Error(), "legacy_fallback")
}

func TestVerifyOwnerLittleEndian(t *testing.T) {
	d := sample.NewDevice()
	d.Endianness = endian.Little
	acc := bus.NewAccessor(bus.NewSimTransport(d.Image()))
	logger := log.Device(d.GUID)

	assert.NoError(t, NewResolver(acc, endian.Little, nil, logger).VerifyOwner(device.DiscoveryBase))
	assert.NoError(t, NewResolver(acc, endian.Unknown, nil, logger).VerifyOwner(device.DiscoveryBase))
	err := NewResolver(acc, endian.Big, nil, logger).VerifyOwner(device.DiscoveryBase)
	assert.True(t, bus.IsKind(err, bus.VerificationFailed))
}

func TestReadPointer(t *testing.T) {
	img := bus.NewImage(1)
	table := uint64(0xFFFFE0000000)
	img.Set(table+0x00, 0)
	img.Set(table+0x04, 0x100)
	img.Set(table+0x08, 0xFFFF)
	img.Set(table+0x0C, 0xE0000800)
	img.Set(table+0x10, 0x1)
	img.Set(table+0x14, 0x0)
	acc := bus.NewAccessor(bus.NewSimTransport(img))
	r := NewResolver(acc, endian.Big, nil, log.Device(1))

	addr, err := r.ReadPointer(table, 0x00, 0x04)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xFFFFE0000400), addr, "quadlet offset from the discovery base")

	addr, err = r.ReadPointer(table, 0x08, 0x0C)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xFFFFE0000800), addr, "absolute")

	_, err = r.ReadPointer(table, 0x10, 0x14)
	assert.True(t, bus.IsKind(err, bus.InvalidAddress))
}

func TestRegion(t *testing.T) {
	tests := map[uint64]string{
		0xFFFFE0000000: "Global",
		0xFFFFE0000404: "TX",
		0xFFFFE0000BFC: "RX",
		0xFFFFE0200064: "EAP",
		0xFFFFC7000014: "GPCSR",
		0xFFFFCE010000: "Subsystem",
		0xFFFFCF0000C0: "AVS",
		0xFFFFF0000400: "Unknown",
		0x1000:         "Unknown",
	}
	for addr, region := range tests {
		assert.Equal(t, region, Region(addr), "0x%012x", addr)
	}
}

func TestReadLayout(t *testing.T) {
	img := bus.NewImage(1)
	for i := uint32(0); i < 10; i++ {
		img.Set(device.DiscoveryBase+uint64(i)*4, endian.Swap(i+1))
	}
	acc := bus.NewAccessor(bus.NewSimTransport(img))
	layout, err := ReadLayout(acc, endian.Little, device.DiscoveryBase)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), layout.GlobalOffset)
	assert.Equal(t, uint32(6), layout.RxSize)
	assert.Equal(t, uint32(10), layout.Unused2Size)
}

func TestSelfTest(t *testing.T) {
	img := sample.NewDevice().Image()
	acc := bus.NewAccessor(bus.NewSimTransport(img))
	result, err := resolve(t, img)
	require.NoError(t, err)

	report := SelfTest(acc, result, log.Device(img.GUID))
	require.Len(t, report.Sections, 3)
	core := report.Section(SectionCore)
	assert.Equal(t, 3, core.Succeeded)
	assert.Equal(t, float64(100), core.Percent())
	assert.Equal(t, 9, report.Section(SectionEap).Succeeded)
	assert.Equal(t, 3, report.Section(SectionSubsystem).Succeeded)
}
