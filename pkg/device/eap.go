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
	"fmt"
)

// RateDomain selects one of the three current configuration blocks
type RateDomain int

const (
	RateLow  RateDomain = iota // 32k..48k
	RateMid                    // 88.2k..96k
	RateHigh                   // 176.4k..192k
)

var rateDomainNames = map[RateDomain]string{
	RateLow:  "low",
	RateMid:  "mid",
	RateHigh: "high",
}

func (r RateDomain) String() string {
	return rateDomainNames[r]
}

func (r RateDomain) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *RateDomain) UnmarshalText(text []byte) error {
	d, err := ParseRateDomain(string(text))
	if err != nil {
		return err
	}
	*r = d
	return nil
}

func ParseRateDomain(s string) (RateDomain, error) {
	for k, v := range rateDomainNames {
		if v == s {
			return k, nil
		}
	}
	return RateLow, fmt.Errorf("Unknown rate domain: %s", s)
}

// RateDomainForHz maps a sample rate to its configuration block
func RateDomainForHz(hz uint32) (RateDomain, bool) {
	switch {
	case hz == 0:
		return RateLow, false
	case hz <= 48000:
		return RateLow, true
	case hz <= 96000:
		return RateMid, true
	case hz <= 192000:
		return RateHigh, true
	}
	return RateLow, false
}

type RouterCaps struct {
	Raw         uint32 `json:"raw"`
	Exposed     bool   `json:"exposed"`
	ReadOnly    bool   `json:"read_only"`
	FlashStored bool   `json:"flash_stored"`
	MaxRoutes   uint32 `json:"max_routes"`
}

type MixerCaps struct {
	Raw         uint32 `json:"raw"`
	Exposed     bool   `json:"exposed"`
	ReadOnly    bool   `json:"read_only"`
	FlashStored bool   `json:"flash_stored"`
	InputDevice uint32 `json:"input_device"`
	OutputDev   uint32 `json:"output_device"`
	Inputs      uint32 `json:"inputs"`
	Outputs     uint32 `json:"outputs"`
}

type GeneralCaps struct {
	Raw             uint32   `json:"raw"`
	StreamCfgEnable bool     `json:"stream_cfg_enable"`
	FlashEnable     bool     `json:"flash_enable"`
	PeakEnable      bool     `json:"peak_enable"`
	MaxTx           uint32   `json:"max_tx"`
	MaxRx           uint32   `json:"max_rx"`
	StreamCfgFlash  uint32   `json:"stream_cfg_flash"`
	Chip            ChipType `json:"chip"`
}

var (
	FieldRouterMaxRoutes  = Field{Mask: 0xFFFF0000, Shift: 16}
	FieldMixerInputDevice = Field{Mask: 0x000000F0, Shift: 4}
	FieldMixerOutputDev   = Field{Mask: 0x00000F00, Shift: 8}
	FieldMixerInputs      = Field{Mask: 0x00FF0000, Shift: 16}
	FieldMixerOutputs     = Field{Mask: 0xFF000000, Shift: 24}
	FieldGeneralMaxTx     = Field{Mask: 0x000000F0, Shift: 4}
	FieldGeneralMaxRx     = Field{Mask: 0x00000F00, Shift: 8}
	FieldGeneralCfgFlash  = Field{Mask: 0x0000F000, Shift: 12}
	FieldGeneralChip      = Field{Mask: 0x00FF0000, Shift: 16}
)

func bit(v uint32, n uint) bool {
	return v&(1<<n) != 0
}

func DecodeRouterCaps(v uint32) *RouterCaps {
	return &RouterCaps{
		Raw:         v,
		Exposed:     bit(v, 0),
		ReadOnly:    bit(v, 1),
		FlashStored: bit(v, 2),
		MaxRoutes:   FieldRouterMaxRoutes.Get(v),
	}
}

func DecodeMixerCaps(v uint32) *MixerCaps {
	return &MixerCaps{
		Raw:         v,
		Exposed:     bit(v, 0),
		ReadOnly:    bit(v, 1),
		FlashStored: bit(v, 2),
		InputDevice: FieldMixerInputDevice.Get(v),
		OutputDev:   FieldMixerOutputDev.Get(v),
		Inputs:      FieldMixerInputs.Get(v),
		Outputs:     FieldMixerOutputs.Get(v),
	}
}

func DecodeGeneralCaps(v uint32) *GeneralCaps {
	return &GeneralCaps{
		Raw:             v,
		StreamCfgEnable: bit(v, 0),
		FlashEnable:     bit(v, 1),
		PeakEnable:      bit(v, 2),
		MaxTx:           FieldGeneralMaxTx.Get(v),
		MaxRx:           FieldGeneralMaxRx.Get(v),
		StreamCfgFlash:  FieldGeneralCfgFlash.Get(v),
		Chip:            ChipTypeFromCode(FieldGeneralChip.Get(v)),
	}
}

type StreamEntry struct {
	AudioChannels uint32 `json:"audio_channels"`
	MidiPorts     uint32 `json:"midi_ports"`
	Names         string `json:"names,omitempty"`
}

// StreamConfig is one rate domain block of the current configuration
type StreamConfig struct {
	TxCount uint32        `json:"tx_count"`
	RxCount uint32        `json:"rx_count"`
	Tx      []StreamEntry `json:"tx,omitempty"`
	Rx      []StreamEntry `json:"rx,omitempty"`
}

type EapConfig struct {
	Base       uint64                       `json:"base"`
	Router     *RouterCaps                  `json:"router,omitempty"`
	Mixer      *MixerCaps                   `json:"mixer,omitempty"`
	General    *GeneralCaps                 `json:"general,omitempty"`
	ChipType   ChipType                     `json:"chip_type"`
	RateDomain RateDomain                   `json:"rate_domain"`
	Domains    map[RateDomain]*StreamConfig `json:"domains,omitempty"`
	NamesBase  *uint64                      `json:"names_base,omitempty"`
}

// Current returns the stream configuration of the selected rate domain
func (e *EapConfig) Current() *StreamConfig {
	if e == nil {
		return nil
	}
	return e.Domains[e.RateDomain]
}
