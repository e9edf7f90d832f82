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

package reg

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-dice/pkg/bus"
	"jinr.ru/greenlab/go-dice/pkg/device"
	"jinr.ru/greenlab/go-dice/pkg/endian"
	"jinr.ru/greenlab/go-dice/pkg/log"
	"jinr.ru/greenlab/go-dice/pkg/sample"
)

func newReader(t *testing.T, d *sample.Device, sim *bus.SimTransport) (*Reader, *device.DiscoveredDevice) {
	dev := device.NewDiscoveredDevice(d.GUID)
	dev.Endianness = d.Endianness
	global := d.GlobalBase()
	dev.Addresses = &device.AddressDiscoveryResult{GlobalBase: &global, Method: device.LegacyFallback, Verified: true}
	r, err := NewReader(bus.NewAccessor(sim), dev, log.Device(d.GUID))
	require.NoError(t, err)
	return r, dev
}

func TestReadAll(t *testing.T) {
	for _, e := range []endian.Endianness{endian.Big, endian.Little} {
		t.Run(e.String(), func(t *testing.T) {
			d := sample.NewDevice()
			d.Endianness = e
			r, dev := newReader(t, d, bus.NewSimTransport(d.Image()))
			require.NoError(t, r.ReadAll(context.Background()))

			g := dev.Global
			require.NotNil(t, g.Owner)
			assert.Equal(t, uint32(2), *g.Owner)
			require.NotNil(t, g.Nickname)
			assert.Equal(t, "Studio Jr", *g.Nickname)
			require.NotNil(t, g.RateHz)
			assert.Equal(t, uint32(48000), *g.RateHz)
			assert.Equal(t, "INTERNAL", *g.ClockSourceName)
			assert.Equal(t, uint32(48000), *g.SampleRate)
			assert.True(t, *g.Enabled)
			assert.True(t, *g.Locked)
			assert.Len(t, g.ClockSourceNames, 13)
			assert.Equal(t, "AES1", g.ClockSourceNames[0])
			assert.Equal(t, "INTERNAL", g.ClockSourceNames[12])

			s := dev.Subsystem
			assert.Equal(t, uint32(0x13), *s.ChipID)
			assert.Equal(t, device.ChipTypeC, *s.ChipType)
			assert.Equal(t, device.ChipTypeC, dev.ChipType)
			assert.Equal(t, uint32(1), *s.ClockSyncSource)
			assert.Equal(t, device.RateModeBase, *s.ClockRateMode)
			assert.True(t, *s.AesLocked)
			assert.Equal(t, uint32(0x12), *s.MixerChannels)
			assert.Equal(t, uint32(5), *s.AvsRxChannelID)
			assert.Equal(t, uint32(2), *s.AvsRxDBS)
			assert.Equal(t, uint32(2), *s.AvsTxDBS)
			assert.Equal(t, uint32(1), *s.AvsTxSysMode)

			// raw values are stored before any swap
			img := d.Image()
			assert.Equal(t, img.Quadlets[d.GlobalBase()], dev.Registers[d.GlobalBase()])
		})
	}
}

func TestReadAllSkipsFailures(t *testing.T) {
	d := sample.NewDevice()
	sim := bus.NewSimTransport(d.Image())
	g := d.GlobalBase()
	sim.Fail(g+0x5C, bus.RCodeType)
	sim.Panic(regAddr(device.RegGpcsrChipID, g))
	sim.Fail(g+0x10, bus.RCodeAddress) // second nickname quadlet

	r, dev := newReader(t, d, sim)
	require.NoError(t, r.ReadAll(context.Background()))

	assert.Nil(t, dev.Global.SampleRate)
	assert.NotContains(t, dev.Registers, g+0x5C)
	assert.Nil(t, dev.Subsystem.ChipType)
	assert.Equal(t, device.ChipUnknown, dev.ChipType)

	assert.Nil(t, dev.Global.Nickname)
	assert.Contains(t, dev.Registers, g+0x0C)
	assert.NotContains(t, dev.Registers, g+0x10)

	require.NotNil(t, dev.Global.Version)
	require.NotNil(t, dev.Subsystem.MixerChannels)
}

func regAddr(alias device.RegAlias, global uint64) uint64 {
	return device.RegMap[alias].Address(global)
}

func TestReadAllCancelled(t *testing.T) {
	d := sample.NewDevice()
	r, dev := newReader(t, d, bus.NewSimTransport(d.Image()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.ReadAll(ctx), context.Canceled)
	assert.Empty(t, dev.Registers)
}

func TestNoGlobalBase(t *testing.T) {
	dev := device.NewDiscoveredDevice(1)
	_, err := NewReader(bus.NewAccessor(bus.NewSimTransport(bus.NewImage(1))), dev, log.Device(1))
	assert.IsType(t, ErrNoGlobalBase{}, err)
}

func TestReadUnknownAlias(t *testing.T) {
	d := sample.NewDevice()
	r, _ := newReader(t, d, bus.NewSimTransport(d.Image()))
	_, err := r.Read(device.RegAliasLimit)
	assert.IsType(t, ErrUnknownRegister{}, err)
}
