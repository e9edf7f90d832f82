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

package scanner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-dice/pkg/bus"
	"jinr.ru/greenlab/go-dice/pkg/device"
	"jinr.ru/greenlab/go-dice/pkg/discover"
	"jinr.ru/greenlab/go-dice/pkg/endian"
	"jinr.ru/greenlab/go-dice/pkg/sample"
)

func TestScan(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(d *sample.Device)
		method device.Method
	}{
		{"legacy big", func(d *sample.Device) {}, device.LegacyFallback},
		{"legacy little", func(d *sample.Device) { d.Endianness = endian.Little }, device.LegacyFallback},
		{"pointers", func(d *sample.Device) { d.Base = sample.BasePointers }, device.PointerDiscovery},
		{"config rom", func(d *sample.Device) { d.Base = sample.BaseConfigRom }, device.ConfigRomKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := sample.NewDevice()
			tt.setup(d)
			dev, err := Scan(context.Background(), bus.NewSimTransport(d.Image()), 0, DefaultOptions())
			require.NoError(t, err)

			assert.Equal(t, d.GUID, dev.Identity.GUID)
			assert.Equal(t, d.Nickname, dev.Identity.Name)
			assert.Equal(t, d.Endianness, dev.Endianness)
			assert.Equal(t, device.ChipTypeC, dev.ChipType)
			require.NotNil(t, dev.Addresses)
			assert.Equal(t, tt.method, dev.Addresses.Method)
			assert.Equal(t, d.GlobalBase(), *dev.Addresses.GlobalBase)
			assert.Equal(t, d.TxBase(), *dev.Addresses.TxBase)
			assert.Equal(t, d.RxBase(), *dev.Addresses.RxBase)

			assert.Len(t, dev.Tx.ValidStreams(), 1)
			assert.Len(t, dev.Rx.ValidStreams(), 1)
			assert.Equal(t, uint32(1), dev.Tx.StreamCount())
			assert.Equal(t, uint32(1), dev.Rx.StreamCount())
			require.NotNil(t, dev.EAP)
			assert.Equal(t, device.RateLow, dev.EAP.RateDomain)

			cat := dev.Channels
			assert.Equal(t, uint32(2), cat.Final.TotalOutputs)
			assert.Equal(t, uint32(1), cat.Final.TotalInputs)
			assert.Equal(t, device.SourceEap, cat.OutputSource)
			assert.Equal(t, device.SourceEap, cat.InputSource)
			assert.False(t, cat.HasDiscrepancy)
			assert.Equal(t, uint32(2), cat.FromNames.TotalOutputs)
			assert.Equal(t, uint32(2), cat.FromStreams.TotalOutputs)
			require.NotNil(t, cat.NamesAddress)
			assert.Equal(t, d.NamesAddress(), *cat.NamesAddress)
		})
	}
}

func TestScanIdempotent(t *testing.T) {
	d := sample.NewDevice()
	d.Endianness = endian.Little
	sim := bus.NewSimTransport(d.Image())

	first, err := Scan(context.Background(), sim, 0, DefaultOptions())
	require.NoError(t, err)
	second, err := Scan(context.Background(), sim, 0, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestScanNoBaseAddress(t *testing.T) {
	d := sample.NewDevice()
	d.Owner = 0x77
	dev, err := Scan(context.Background(), bus.NewSimTransport(d.Image()), 0, DefaultOptions())
	require.Error(t, err)
	require.NotNil(t, dev)

	var stageErr ErrStage
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageBases, stageErr.Stage)
	var noBase discover.ErrNoBaseAddress
	assert.True(t, errors.As(err, &noBase))
	assert.Nil(t, dev.Addresses)
	assert.Equal(t, d.GUID, dev.Identity.GUID)
}

func TestScanWithoutEap(t *testing.T) {
	d := sample.NewDevice()
	sim := bus.NewSimTransport(d.Image())
	sim.Fail(d.EapBase(), bus.RCodeAddress)

	dev, err := Scan(context.Background(), sim, 0, DefaultOptions())
	require.NoError(t, err)
	assert.False(t, dev.Channels.FromEap.HasData())
	assert.Equal(t, device.SourceStreams, dev.Channels.OutputSource)
	assert.Equal(t, device.SourceStreams, dev.Channels.InputSource)
	assert.Equal(t, uint32(2), dev.Channels.Final.TotalOutputs)
	found := false
	for _, w := range dev.Warnings {
		if len(w) > 15 && w[:15] == "EAP unavailable" {
			found = true
		}
	}
	assert.True(t, found, "warnings: %v", dev.Warnings)
}

func TestScanCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := sample.NewDevice()
	dev, err := Scan(ctx, bus.NewSimTransport(d.Image()), d.GUID, DefaultOptions())
	require.ErrorIs(t, err, context.Canceled)
	assert.NotNil(t, dev)
}

func simTarget(name string, d *sample.Device) Target {
	return Target{
		Name: name,
		Open: func() (bus.Transport, error) {
			return bus.NewSimTransport(d.Image()), nil
		},
	}
}

func TestScanAll(t *testing.T) {
	little := sample.NewDevice()
	little.Endianness = endian.Little
	little.GUID = 0x00130e0402004714
	pointers := sample.NewDevice()
	pointers.Base = sample.BasePointers
	pointers.GUID = 0x00130e0402004715

	targets := []Target{
		simTarget("big", sample.NewDevice()),
		{Name: "broken", Open: func() (bus.Transport, error) { return nil, errors.New("no bridge") }},
		simTarget("little", little),
		simTarget("pointers", pointers),
	}
	results := ScanAll(context.Background(), targets, 2, DefaultOptions())
	require.Len(t, results, len(targets))

	for i, r := range results {
		assert.Equal(t, targets[i].Name, r.Target)
	}
	var targetErr ErrTarget
	require.ErrorAs(t, results[1].Err, &targetErr)
	assert.Nil(t, results[1].Device)
	assert.Contains(t, results[1].Error, "no bridge")

	assert.Equal(t, sample.NewDevice().GUID, results[0].Device.Identity.GUID)
	assert.Equal(t, little.GUID, results[2].Device.Identity.GUID)
	assert.Equal(t, endian.Little, results[2].Device.Endianness)
	assert.Equal(t, device.PointerDiscovery, results[3].Device.Addresses.Method)
	for _, i := range []int{0, 2, 3} {
		assert.NoError(t, results[i].Err)
		assert.Equal(t, uint32(2), results[i].Device.Channels.Final.TotalOutputs)
	}
}

func TestReport(t *testing.T) {
	d := sample.NewDevice()
	dev, err := Scan(context.Background(), bus.NewSimTransport(d.Image()), 0, DefaultOptions())
	require.NoError(t, err)

	report := Report(dev)
	assert.Contains(t, report, "Studio Jr")
	assert.Contains(t, report, "legacy_fallback")
	assert.Contains(t, report, "0xffffe0000400 [TX]")
	assert.Contains(t, report, "OUTPUT CH1, OUTPUT CH2")
	assert.Contains(t, report, "discrepancy: false")
	assert.Contains(t, report, "(confirmed), EAP 1")

	summary := Summary(Result{Target: "sample", Device: dev})
	assert.Contains(t, summary, "out 2 in 1 (eap) ok")
}
