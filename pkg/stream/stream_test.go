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

package stream

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

func newProber(d *sample.Device, sim *bus.SimTransport) (*Prober, *device.DiscoveredDevice) {
	dev := device.NewDiscoveredDevice(d.GUID)
	dev.Endianness = d.Endianness
	global, tx, rx := d.GlobalBase(), d.TxBase(), d.RxBase()
	dev.Addresses = &device.AddressDiscoveryResult{GlobalBase: &global, TxBase: &tx, RxBase: &rx}
	return NewProber(bus.NewAccessor(sim), dev, log.Device(d.GUID)), dev
}

func streamAddr(base uint64, index int, reg device.StreamReg) uint64 {
	return base + uint64(index)*sample.StreamSize*4 + device.TxStreamRegs[reg]
}

func TestProbeStopsAfterFailures(t *testing.T) {
	d := sample.NewDevice()
	d.Tx = []sample.Stream{
		{IsoChannel: 1, AudioChannels: 2, Speed: 2},
		{IsoChannel: 2, AudioChannels: 2, Speed: 2},
		{IsoChannel: 3, AudioChannels: 4, Speed: 2},
	}
	reported := uint32(8)
	d.ReportedTx = &reported
	sim := bus.NewSimTransport(d.Image())
	p, dev := newProber(d, sim)

	got, stride, err := p.ReadHeader(device.Tx)
	require.NoError(t, err)
	assert.Equal(t, uint32(8), got)
	assert.Equal(t, uint32(sample.StreamSize), stride)

	count := p.Probe(device.Tx, got, stride)
	assert.Equal(t, uint32(3), count)
	assert.Equal(t, uint32(3), dev.Tx.Count)
	assert.Equal(t, uint32(8), dev.Tx.Reported)
	assert.True(t, dev.Tx.Confirmed)
	assert.Len(t, dev.Tx.ValidStreams(), 3)
	assert.NotEmpty(t, dev.Warnings)

	for i := 3; i <= 5; i++ {
		assert.Equal(t, 1, sim.ReadCount(streamAddr(d.TxBase(), i, device.StreamRegIsoc)), "stream %d", i)
	}
	for i := 6; i < 8; i++ {
		assert.Zero(t, sim.ReadCount(streamAddr(d.TxBase(), i, device.StreamRegIsoc)), "stream %d", i)
		assert.Zero(t, sim.ReadCount(streamAddr(d.TxBase(), i, device.StreamRegAudio)), "stream %d", i)
	}
}

func TestProbeCeiling(t *testing.T) {
	d := sample.NewDevice()
	sim := bus.NewSimTransport(d.Image())
	p, dev := newProber(d, sim)

	// unreported count probes up to the cap
	count := p.Probe(device.Tx, 0, sample.StreamSize)
	assert.Equal(t, uint32(1), count)
	assert.Len(t, dev.Tx.Streams, 4)

	// reported count below the cap bounds the probe
	sim.ResetCounters()
	count = p.Probe(device.Rx, 1, sample.StreamSize)
	assert.Equal(t, uint32(1), count)
	assert.Len(t, dev.Rx.Streams, 1)
}

func TestProbeStreamFields(t *testing.T) {
	for _, e := range []endian.Endianness{endian.Big, endian.Little} {
		t.Run(e.String(), func(t *testing.T) {
			d := sample.NewDevice()
			d.Endianness = e
			p, dev := newProber(d, bus.NewSimTransport(d.Image()))
			require.NoError(t, p.ProbeAll(context.Background()))

			require.Len(t, dev.Tx.ValidStreams(), 1)
			tx := dev.Tx.Streams[0]
			assert.Equal(t, uint32(1), *tx.IsoChannel)
			assert.Equal(t, uint32(2), *tx.AudioChannels)
			assert.Equal(t, uint32(0), *tx.MidiPorts)
			assert.Equal(t, uint32(2), *tx.Speed)
			assert.Nil(t, tx.SeqStart)
			require.NotNil(t, tx.NamesAddress)
			assert.Equal(t, d.NamesAddress(), *tx.NamesAddress)
			assert.Empty(t, tx.Warnings)

			require.Len(t, dev.Rx.ValidStreams(), 1)
			rx := dev.Rx.Streams[0]
			assert.Equal(t, uint32(1), *rx.AudioChannels)
			assert.NotNil(t, rx.SeqStart)
			assert.Nil(t, rx.Speed)
		})
	}
}

func TestProbeNoStreams(t *testing.T) {
	d := sample.NewDevice()
	d.Tx = nil
	reported := uint32(2)
	d.ReportedTx = &reported
	p, dev := newProber(d, bus.NewSimTransport(d.Image()))

	count := p.Probe(device.Tx, 2, sample.StreamSize)
	assert.Equal(t, uint32(2), count)
	assert.False(t, dev.Tx.Confirmed)
	assert.Equal(t, uint32(2), dev.Tx.Count)
}

func TestProbeWarnings(t *testing.T) {
	d := sample.NewDevice()
	d.Tx = []sample.Stream{{IsoChannel: 70, AudioChannels: 40, MidiPorts: 20, Speed: 5}}
	p, dev := newProber(d, bus.NewSimTransport(d.Image()))
	p.Probe(device.Tx, 1, sample.StreamSize)

	require.Len(t, dev.Tx.Streams, 1)
	assert.Len(t, dev.Tx.Streams[0].Warnings, 4)
}

func TestReadHeaderSanity(t *testing.T) {
	d := sample.NewDevice()
	img := d.Image()
	img.Set(d.TxBase(), 100)
	img.Set(d.TxBase()+4, 0)
	p, _ := newProber(d, bus.NewSimTransport(img))

	reported, stride, err := p.ReadHeader(device.Tx)
	require.NoError(t, err)
	assert.Zero(t, reported)
	assert.Equal(t, uint32(DefaultStreamSize), stride)
}

func TestReadHeaderNoBase(t *testing.T) {
	d := sample.NewDevice()
	p, _ := newProber(d, bus.NewSimTransport(d.Image()))
	delete(p.bases, device.Rx)
	_, _, err := p.ReadHeader(device.Rx)
	assert.IsType(t, ErrNoStreamBase{}, err)
}
