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

const (
	// DiscoveryBase is the start of the private register space of the chip
	DiscoveryBase uint64 = 0xFFFFE0000000

	LegacyTxOffset uint64 = 0x400
	LegacyRxOffset uint64 = 0x800

	EapOffset  uint64 = 0x200000
	EapMaxSize uint64 = 0xF00000

	NicknameSize         = 64  // bytes
	ClockSourceNamesSize = 256 // bytes
)

type RegAlias int

const (
	RegOwner RegAlias = iota
	RegNotification
	RegNickname
	RegClockSelect
	RegEnable
	RegStatus
	RegExtStatus
	RegSampleRate
	RegVersion
	RegClockCaps
	RegClockSourceNames
	RegGpcsrAudioSelect
	RegGpcsrChipID
	RegClockSyncCtrl
	RegClockDomainCtrl
	RegAesRxStatAll
	RegMixerNumOfCh
	RegAvsRxCfg0
	RegAvsRxCfg1
	RegAvsTxCfg
	RegAliasLimit
)

// Space is what a register offset is relative to
type Space int

const (
	SpaceGlobal Space = iota // the resolved global base
	SpaceGpcsr
	SpaceClock
	SpaceAes
	SpaceMixer
	SpaceAvsRx
	SpaceAvsTx
)

// ChipBase maps node addresses onto the chip's internal address space.
// The subsystem blocks live at ChipBase plus their internal address.
const ChipBase uint64 = 0xFFFF00000000

// internal addresses of the chip subsystem blocks
var SpaceOffset = map[Space]uint64{
	SpaceGpcsr: 0xC7000000,
	SpaceClock: 0xCE010000,
	SpaceAes:   0xCE020000,
	SpaceMixer: 0xCE060000,
	SpaceAvsRx: 0xCF000000,
	SpaceAvsTx: 0xCF0000C0,
}

const (
	GpcsrBase     = ChipBase + 0xC7000000
	SubsystemBase = ChipBase + 0xCE000000
	AvsBase       = ChipBase + 0xCF000000
	BlockSize     = 0x1000000
)

type Register struct {
	Name     string
	Space    Space
	Offset   uint64
	Quadlets int
}

// Address returns the absolute address of the register
func (r Register) Address(globalBase uint64) uint64 {
	if r.Space == SpaceGlobal {
		return globalBase + r.Offset
	}
	return ChipBase + SpaceOffset[r.Space] + r.Offset
}

var RegMap = map[RegAlias]Register{
	RegOwner:            {Name: "owner", Space: SpaceGlobal, Offset: 0x00, Quadlets: 1},
	RegNotification:     {Name: "notification", Space: SpaceGlobal, Offset: 0x08, Quadlets: 1},
	RegNickname:         {Name: "nickname", Space: SpaceGlobal, Offset: 0x0C, Quadlets: NicknameSize / 4},
	RegClockSelect:      {Name: "clock_select", Space: SpaceGlobal, Offset: 0x4C, Quadlets: 1},
	RegEnable:           {Name: "enable", Space: SpaceGlobal, Offset: 0x50, Quadlets: 1},
	RegStatus:           {Name: "status", Space: SpaceGlobal, Offset: 0x54, Quadlets: 1},
	RegExtStatus:        {Name: "ext_status", Space: SpaceGlobal, Offset: 0x58, Quadlets: 1},
	RegSampleRate:       {Name: "sample_rate", Space: SpaceGlobal, Offset: 0x5C, Quadlets: 1},
	RegVersion:          {Name: "version", Space: SpaceGlobal, Offset: 0x60, Quadlets: 1},
	RegClockCaps:        {Name: "clock_caps", Space: SpaceGlobal, Offset: 0x64, Quadlets: 1},
	RegClockSourceNames: {Name: "clock_source_names", Space: SpaceGlobal, Offset: 0x68, Quadlets: ClockSourceNamesSize / 4},
	RegGpcsrAudioSelect: {Name: "gpcsr_audio_select", Space: SpaceGpcsr, Offset: 0x04, Quadlets: 1},
	RegGpcsrChipID:      {Name: "gpcsr_chip_id", Space: SpaceGpcsr, Offset: 0x14, Quadlets: 1},
	RegClockSyncCtrl:    {Name: "clock_sync_ctrl", Space: SpaceClock, Offset: 0x00, Quadlets: 1},
	RegClockDomainCtrl:  {Name: "clock_domain_ctrl", Space: SpaceClock, Offset: 0x04, Quadlets: 1},
	RegAesRxStatAll:     {Name: "aes_rx_stat_all", Space: SpaceAes, Offset: 0x04, Quadlets: 1},
	RegMixerNumOfCh:     {Name: "mixer_numofch", Space: SpaceMixer, Offset: 0x08, Quadlets: 1},
	RegAvsRxCfg0:        {Name: "avs_rx_cfg0", Space: SpaceAvsRx, Offset: 0x00, Quadlets: 1},
	RegAvsRxCfg1:        {Name: "avs_rx_cfg1", Space: SpaceAvsRx, Offset: 0x04, Quadlets: 1},
	RegAvsTxCfg:         {Name: "avs_tx_cfg", Space: SpaceAvsTx, Offset: 0x00, Quadlets: 1},
}

// RegByName looks a catalog entry up by its name
func RegByName(name string) (RegAlias, bool) {
	for alias, reg := range RegMap {
		if reg.Name == name {
			return alias, true
		}
	}
	return RegAliasLimit, false
}

// Field is a bitfield of a register value
type Field struct {
	Mask  uint32
	Shift uint
}

func (f Field) Get(v uint32) uint32 {
	return (v & f.Mask) >> f.Shift
}

var (
	FieldClockSource    = Field{Mask: 0x000000FF, Shift: 0}
	FieldRateCode       = Field{Mask: 0x0000FF00, Shift: 8}
	FieldEnable         = Field{Mask: 0x00000001, Shift: 0}
	FieldStatusLocked   = Field{Mask: 0x00000001, Shift: 0}
	FieldChipID         = Field{Mask: 0xFF000000, Shift: 24}
	FieldChipType       = Field{Mask: 0x0000000F, Shift: 0}
	FieldSyncSource     = Field{Mask: 0x00000003, Shift: 0}
	FieldDomainRate     = Field{Mask: 0x00000030, Shift: 4}
	FieldAesLock        = Field{Mask: 0x00000001, Shift: 0}
	FieldMixerChannels  = Field{Mask: 0x000000FF, Shift: 0}
	FieldAvsRxChannelID = Field{Mask: 0x0000003F, Shift: 0}
	FieldAvsRxDBS       = Field{Mask: 0x01FE0000, Shift: 17}
	FieldAvsTxDBS       = Field{Mask: 0x000001F0, Shift: 4}
	FieldAvsTxSysMode   = Field{Mask: 0x00300000, Shift: 20}
)

var ownerNames = map[uint32]string{
	1: "DICE I",
	2: "DICE II",
	3: "DICE Mini",
	4: "DICE Jr",
}

// OwnerName names the chip variant an owner register value identifies
func OwnerName(v uint32) string {
	if name, ok := ownerNames[v]; ok {
		return name
	}
	return "Unknown DICE variant"
}

var rateHz = map[uint32]uint32{
	0: 32000,
	1: 44100,
	2: 48000,
	3: 88200,
	4: 96000,
	5: 176400,
	6: 192000,
}

// RateHz converts a clock select rate code to Hz
func RateHz(code uint32) (uint32, bool) {
	hz, ok := rateHz[code]
	return hz, ok
}

var clockSources = []string{
	"AES1", "AES2", "AES3", "AES4", "AES_ANY", "ADAT", "TDIF", "WC",
	"ARX1", "ARX2", "ARX3", "ARX4", "INTERNAL",
}

func ClockSourceName(code uint32) string {
	if int(code) < len(clockSources) {
		return clockSources[code]
	}
	return fmt.Sprintf("UNKNOWN(%d)", code)
}

// RateMode is the router rate mode of the clock domain
type RateMode int

const (
	RateModeBase RateMode = iota
	RateModeDouble
	RateModeQuad
	RateModeUnknown
)

var rateModeNames = map[RateMode]string{
	RateModeBase:    "base",
	RateModeDouble:  "double",
	RateModeQuad:    "quad",
	RateModeUnknown: "unknown",
}

func (m RateMode) String() string {
	return rateModeNames[m]
}

func (m RateMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *RateMode) UnmarshalText(text []byte) error {
	for k, v := range rateModeNames {
		if v == string(text) {
			*m = k
			return nil
		}
	}
	*m = RateModeUnknown
	return nil
}

func RateModeFromCode(code uint32) RateMode {
	if code <= uint32(RateModeQuad) {
		return RateMode(code)
	}
	return RateModeUnknown
}

type StreamReg int

const (
	StreamRegCount StreamReg = iota
	StreamRegSize
	StreamRegIsoc
	StreamRegSeqStart
	StreamRegAudio
	StreamRegMidi
	StreamRegSpeed
	StreamRegNames
	StreamRegAC3Caps
	StreamRegAC3Enable
)

// Count and size are section headers, the rest repeat per stream at index*stride
var TxStreamRegs = map[StreamReg]uint64{
	StreamRegCount:     0x000,
	StreamRegSize:      0x004,
	StreamRegIsoc:      0x008,
	StreamRegAudio:     0x00C,
	StreamRegMidi:      0x010,
	StreamRegSpeed:     0x014,
	StreamRegNames:     0x018,
	StreamRegAC3Caps:   0x118,
	StreamRegAC3Enable: 0x11C,
}

var RxStreamRegs = map[StreamReg]uint64{
	StreamRegCount:     0x000,
	StreamRegSize:      0x004,
	StreamRegIsoc:      0x008,
	StreamRegSeqStart:  0x00C,
	StreamRegAudio:     0x010,
	StreamRegMidi:      0x014,
	StreamRegNames:     0x018,
	StreamRegAC3Caps:   0x118,
	StreamRegAC3Enable: 0x11C,
}

// Regs returns the register offset table of the direction
func (d Direction) Regs() map[StreamReg]uint64 {
	if d == Rx {
		return RxStreamRegs
	}
	return TxStreamRegs
}

// LegacyOffset is the fixed offset of the direction's section from the discovery base
func (d Direction) LegacyOffset() uint64 {
	if d == Rx {
		return LegacyRxOffset
	}
	return LegacyTxOffset
}

// ChannelNamesFallback are addresses where channel name tables were found on known devices
var ChannelNamesFallback = []uint64{
	0xffffe00001a8,
	0xffffe0000090,
	0xffffe0000100,
	0xffffe0000200,
}
