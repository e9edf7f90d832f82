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

package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"
)

func TestFieldGet(t *testing.T) {
	assert.Equal(t, uint32(2), FieldRateCode.Get(0x0000020C))
	assert.Equal(t, uint32(0x0C), FieldClockSource.Get(0x0000020C))
	assert.Equal(t, uint32(0x13), FieldChipID.Get(0x13000002))
	assert.Equal(t, uint32(2), FieldChipType.Get(0x13000002))
	assert.Equal(t, uint32(1), FieldDomainRate.Get(0x10))
}

func TestChipLimits(t *testing.T) {
	assert.Equal(t, ChipLimits{MaxTx: 4, MaxRx: 4}, ChipTypeA.Limits())
	assert.Equal(t, ChipLimits{MaxTx: 1, MaxRx: 1}, ChipTypeFromCode(2).Limits())
	assert.Equal(t, ChipUnknown, ChipTypeFromCode(7))
	assert.Equal(t, ChipLimits{MaxTx: 2, MaxRx: 2}, ChipType(42).Limits())
}

func TestEapSupported(t *testing.T) {
	vendor, model := uint32(0x10c73f), uint32(1)
	assert.False(t, EapSupported(&vendor, &model))
	other := uint32(2)
	assert.True(t, EapSupported(&vendor, &other))
	assert.True(t, EapSupported(nil, &model))
}

func TestRateDomainForHz(t *testing.T) {
	tests := []struct {
		hz     uint32
		domain RateDomain
		ok     bool
	}{
		{0, RateLow, false},
		{44100, RateLow, true},
		{96000, RateMid, true},
		{192000, RateHigh, true},
		{384000, RateLow, false},
	}
	for _, tt := range tests {
		domain, ok := RateDomainForHz(tt.hz)
		assert.Equal(t, tt.domain, domain, tt.hz)
		assert.Equal(t, tt.ok, ok, tt.hz)
	}
}

func TestDecodeCaps(t *testing.T) {
	general := DecodeGeneralCaps(0x00020215)
	assert.True(t, general.StreamCfgEnable)
	assert.False(t, general.FlashEnable)
	assert.True(t, general.PeakEnable)
	assert.Equal(t, uint32(1), general.MaxTx)
	assert.Equal(t, uint32(2), general.MaxRx)
	assert.Equal(t, ChipTypeC, general.Chip)

	mixer := DecodeMixerCaps(0x12100001)
	assert.True(t, mixer.Exposed)
	assert.Equal(t, uint32(0x10), mixer.Inputs)
	assert.Equal(t, uint32(0x12), mixer.Outputs)

	router := DecodeRouterCaps(0x01000003)
	assert.True(t, router.ReadOnly)
	assert.Equal(t, uint32(0x100), router.MaxRoutes)
}

func TestRegisterAddress(t *testing.T) {
	assert.Equal(t, uint64(0xFFFFE000004C), RegMap[RegClockSelect].Address(DiscoveryBase))
	assert.Equal(t, uint64(0xFFFFE00000CC), RegMap[RegClockSelect].Address(DiscoveryBase+0x80))
	assert.Equal(t, uint64(0xFFFFC7000014), RegMap[RegGpcsrChipID].Address(DiscoveryBase+0x80))
	assert.Equal(t, uint64(0xFFFFCF0000C0), RegMap[RegAvsTxCfg].Address(0))

	alias, ok := RegByName("clock_domain_ctrl")
	require.True(t, ok)
	assert.Equal(t, RegClockDomainCtrl, alias)
	assert.Len(t, RegMap, int(RegAliasLimit))
}

func TestDeviceDocument(t *testing.T) {
	d := NewDiscoveredDevice(0x00130e0402004713)
	d.ChipType = ChipTypeC
	d.Registers[0xffffe0000000] = 2
	d.Tx.Reported = 1
	d.Channels.OutputSource = SourceStreams
	d.EAP = &EapConfig{RateDomain: RateMid, Domains: map[RateDomain]*StreamConfig{RateMid: {TxCount: 1}}}
	d.Warn("stream %d has no names", 0)

	data, err := yaml.Marshal(d)
	require.NoError(t, err)
	loaded := &DiscoveredDevice{}
	require.NoError(t, yaml.Unmarshal(data, loaded))
	assert.Equal(t, d, loaded)
	assert.Contains(t, d.String(), "DICE Jr")
	assert.Equal(t, uint32(1), loaded.EAP.Current().TxCount)
}
