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

package eap

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

func newReader(d *sample.Device, sim *bus.SimTransport, domain string) (*Reader, *device.DiscoveredDevice) {
	dev := device.NewDiscoveredDevice(d.GUID)
	dev.Endianness = d.Endianness
	vendor, model := d.VendorID, d.ModelID
	dev.Identity.VendorID = &vendor
	dev.Identity.ModelID = &model
	return NewReader(bus.NewAccessor(sim), dev, log.Device(d.GUID), domain), dev
}

func lowBlock(d *sample.Device) uint64 {
	return d.EapBase() + sample.EapCurOffsetQ*4 + StreamBlockOffset[device.RateLow]
}

func TestReadCapabilities(t *testing.T) {
	for _, e := range []endian.Endianness{endian.Big, endian.Little} {
		t.Run(e.String(), func(t *testing.T) {
			d := sample.NewDevice()
			d.Endianness = e
			r, dev := newReader(d, bus.NewSimTransport(d.Image()), RateDomainAuto)
			require.NoError(t, r.ReadCapabilities(context.Background()))

			cfg := dev.EAP
			require.NotNil(t, cfg)
			assert.Equal(t, d.EapBase(), cfg.Base)
			require.NotNil(t, cfg.Router)
			assert.True(t, cfg.Router.Exposed)
			assert.Equal(t, uint32(0x40), cfg.Router.MaxRoutes)
			require.NotNil(t, cfg.Mixer)
			assert.Equal(t, uint32(0x10), cfg.Mixer.Inputs)
			assert.Equal(t, uint32(0x12), cfg.Mixer.Outputs)
			require.NotNil(t, cfg.General)
			assert.Equal(t, uint32(1), cfg.General.MaxTx)
			assert.Equal(t, uint32(1), cfg.General.MaxRx)
			assert.Equal(t, device.ChipTypeC, cfg.ChipType)
			assert.Equal(t, device.ChipTypeC, dev.ChipType)
		})
	}
}

func TestReadCapabilitiesWordsIndependent(t *testing.T) {
	d := sample.NewDevice()
	sim := bus.NewSimTransport(d.Image())
	sim.Fail(d.EapBase()+sample.EapCapOffsetQ*4+CapMixer, bus.RCodeAddress)
	r, dev := newReader(d, sim, RateDomainAuto)
	require.NoError(t, r.ReadCapabilities(context.Background()))
	assert.Nil(t, dev.EAP.Mixer)
	assert.NotNil(t, dev.EAP.Router)
	assert.NotNil(t, dev.EAP.General)
}

func TestEapUnavailable(t *testing.T) {
	d := sample.NewDevice()
	d.Eap = false
	r, dev := newReader(d, bus.NewSimTransport(d.Image()), RateDomainAuto)

	err := r.Read(context.Background())
	require.Error(t, err)
	assert.IsType(t, ErrEapUnavailable{}, err)
	assert.True(t, bus.IsKind(err, bus.BusFailure))
	assert.Nil(t, dev.EAP)
}

func TestEapUnsupportedDevice(t *testing.T) {
	d := sample.NewDevice()
	d.VendorID = 0x10c73f
	d.ModelID = 0x1
	sim := bus.NewSimTransport(d.Image())
	r, dev := newReader(d, sim, RateDomainAuto)

	err := r.ReadCapabilities(context.Background())
	assert.IsType(t, ErrEapUnsupported{}, err)
	assert.Nil(t, dev.EAP)
	assert.Zero(t, sim.ReadCount(d.EapBase()))
}

func TestReadCurrentConfig(t *testing.T) {
	for _, e := range []endian.Endianness{endian.Big, endian.Little} {
		t.Run(e.String(), func(t *testing.T) {
			d := sample.NewDevice()
			d.Endianness = e
			r, dev := newReader(d, bus.NewSimTransport(d.Image()), RateDomainAuto)
			hz := uint32(48000)
			dev.Global.RateHz = &hz
			require.NoError(t, r.Read(context.Background()))

			cfg := dev.EAP
			assert.Equal(t, device.RateLow, cfg.RateDomain)
			sc := cfg.Current()
			require.NotNil(t, sc)
			assert.Equal(t, uint32(1), sc.TxCount)
			assert.Equal(t, uint32(1), sc.RxCount)
			require.Len(t, sc.Tx, 1)
			assert.Equal(t, uint32(2), sc.Tx[0].AudioChannels)
			assert.Equal(t, "OUTPUT CH1\\OUTPUT CH2\\\\", sc.Tx[0].Names)
			require.Len(t, sc.Rx, 1)
			assert.Equal(t, uint32(1), sc.Rx[0].AudioChannels)
			assert.Nil(t, cfg.NamesBase)
			require.NotNil(t, dev.Tx.EapCount)
			assert.Equal(t, uint32(1), *dev.Tx.EapCount)
			require.NotNil(t, dev.Rx.EapCount)
			assert.Equal(t, uint32(1), *dev.Rx.EapCount)
			assert.Empty(t, dev.Warnings)
			assert.Contains(t, dev.Registers, lowBlock(d))
		})
	}
}

func TestRateDomainFallback(t *testing.T) {
	d := sample.NewDevice()
	r, dev := newReader(d, bus.NewSimTransport(d.Image()), RateDomainAuto)
	require.NoError(t, r.Read(context.Background()))
	assert.Equal(t, device.RateLow, dev.EAP.RateDomain)
	require.Len(t, dev.Warnings, 1)
	assert.Contains(t, dev.Warnings[0], "Sample rate unknown")
}

func TestRateDomainConfigured(t *testing.T) {
	d := sample.NewDevice()
	r, dev := newReader(d, bus.NewSimTransport(d.Image()), "mid")
	hz := uint32(48000)
	dev.Global.RateHz = &hz
	require.NoError(t, r.Read(context.Background()))

	assert.Equal(t, device.RateMid, dev.EAP.RateDomain)
	sc := dev.EAP.Domains[device.RateMid]
	require.NotNil(t, sc)
	assert.Zero(t, sc.TxCount)
	assert.Empty(t, sc.Tx)

	r.RateDomain = "ultra"
	_, err := r.SelectRateDomain()
	assert.Error(t, err)
}

func TestStreamCountBound(t *testing.T) {
	d := sample.NewDevice()
	img := d.Image()
	img.Set(lowBlock(d), 65)
	r, dev := newReader(d, bus.NewSimTransport(img), "low")
	require.NoError(t, r.Read(context.Background()))

	sc := dev.EAP.Current()
	assert.Zero(t, sc.TxCount)
	assert.Equal(t, uint32(1), sc.RxCount)
	assert.NotEmpty(t, dev.Warnings)
	// with TX untrusted the first entry is taken as the RX entry
	require.Len(t, sc.Rx, 1)
}

func TestEapStreamCountPreferred(t *testing.T) {
	d := sample.NewDevice()
	img := d.Image()
	img.Set(lowBlock(d), 2)
	r, dev := newReader(d, bus.NewSimTransport(img), "low")
	audio := uint32(2)
	dev.Tx = device.StreamTopology{
		Direction: device.Tx,
		Reported:  1,
		Count:     1,
		Confirmed: true,
		Streams:   []device.StreamInfo{{Index: 0, Valid: true, AudioChannels: &audio}},
	}
	require.NoError(t, r.Read(context.Background()))

	assert.Equal(t, uint32(1), dev.Tx.Count)
	assert.Len(t, dev.Tx.Streams, 1)
	require.NotNil(t, dev.Tx.EapCount)
	assert.Equal(t, uint32(2), *dev.Tx.EapCount)
	assert.Equal(t, uint32(2), dev.Tx.StreamCount())
	// no RX streams were walked, so there is nothing to disagree with
	assert.Equal(t, uint32(1), dev.Rx.StreamCount())
	require.Len(t, dev.Warnings, 1)
	assert.Contains(t, dev.Warnings[0], "probe found 1, EAP reports 2")
}

func TestEapStreamCountUntrusted(t *testing.T) {
	d := sample.NewDevice()
	img := d.Image()
	img.Set(lowBlock(d), 65)
	r, dev := newReader(d, bus.NewSimTransport(img), "low")
	dev.Tx = device.StreamTopology{Direction: device.Tx, Count: 1, Streams: []device.StreamInfo{{Valid: true}}}
	require.NoError(t, r.Read(context.Background()))

	assert.Nil(t, dev.Tx.EapCount)
	assert.Equal(t, uint32(1), dev.Tx.StreamCount())
}

func TestNamesPointerScan(t *testing.T) {
	d := sample.NewDevice()
	img := d.Image()
	// second quadlet of the first entry points at the channel name table
	img.Set(lowBlock(d)+8+4, sample.NamesPointer)
	r, dev := newReader(d, bus.NewSimTransport(img), "low")
	require.NoError(t, r.Read(context.Background()))

	require.NotNil(t, dev.EAP.NamesBase)
	assert.Equal(t, device.DiscoveryBase+sample.NamesPointer*4, *dev.EAP.NamesBase)
}
