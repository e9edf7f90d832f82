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
	"sort"

	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-dice/pkg/endian"
)

type Method int

const (
	MethodNone Method = iota
	ConfigRomKey
	PointerDiscovery
	LegacyFallback
)

var methodNames = map[Method]string{
	MethodNone:       "none",
	ConfigRomKey:     "config_rom_key",
	PointerDiscovery: "pointer_discovery",
	LegacyFallback:   "legacy_fallback",
}

func (m Method) String() string {
	return methodNames[m]
}

func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Method) UnmarshalText(text []byte) error {
	for k, v := range methodNames {
		if v == string(text) {
			*m = k
			return nil
		}
	}
	return fmt.Errorf("Unknown discovery method: %s", text)
}

// AddressDiscoveryResult holds the bases of the register spaces.
// Verified is only set when the owner register at GlobalBase answered a known chip identity.
type AddressDiscoveryResult struct {
	GlobalBase *uint64 `json:"global_base,omitempty"`
	TxBase     *uint64 `json:"tx_base,omitempty"`
	RxBase     *uint64 `json:"rx_base,omitempty"`
	Method     Method  `json:"method"`
	Verified   bool    `json:"verified"`
}

type Identity struct {
	GUID     uint64  `json:"guid"`
	Name     string  `json:"name,omitempty"`
	Vendor   string  `json:"vendor,omitempty"`
	VendorID *uint32 `json:"vendor_id,omitempty"`
	ModelID  *uint32 `json:"model_id,omitempty"`
}

// RegisterMap holds raw quadlets as they came off the bus.
// An address is present only if it was read successfully.
type RegisterMap map[uint64]uint32

func (m RegisterMap) Addresses() []uint64 {
	addrs := make([]uint64, 0, len(m))
	for addr := range m {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

type GlobalState struct {
	Owner            *uint32  `json:"owner,omitempty"`
	Notification     *uint32  `json:"notification,omitempty"`
	Nickname         *string  `json:"nickname,omitempty"`
	ClockSelect      *uint32  `json:"clock_select,omitempty"`
	ClockSource      *uint32  `json:"clock_source,omitempty"`
	ClockSourceName  *string  `json:"clock_source_name,omitempty"`
	RateCode         *uint32  `json:"rate_code,omitempty"`
	RateHz           *uint32  `json:"rate_hz,omitempty"`
	Enabled          *bool    `json:"enabled,omitempty"`
	Status           *uint32  `json:"status,omitempty"`
	Locked           *bool    `json:"locked,omitempty"`
	ExtStatus        *uint32  `json:"ext_status,omitempty"`
	SampleRate       *uint32  `json:"sample_rate,omitempty"`
	Version          *uint32  `json:"version,omitempty"`
	ClockCaps        *uint32  `json:"clock_caps,omitempty"`
	ClockSourceNames []string `json:"clock_source_names,omitempty"`
}

type SubsystemState struct {
	ChipID          *uint32   `json:"chip_id,omitempty"`
	ChipType        *ChipType `json:"chip_type,omitempty"`
	AudioSelect     *uint32   `json:"audio_select,omitempty"`
	ClockSyncSource *uint32   `json:"clock_sync_source,omitempty"`
	ClockRateMode   *RateMode `json:"clock_rate_mode,omitempty"`
	AesLocked       *bool     `json:"aes_locked,omitempty"`
	MixerChannels   *uint32   `json:"mixer_channels,omitempty"`
	AvsRxChannelID  *uint32   `json:"avs_rx_channel_id,omitempty"`
	AvsRxDBS        *uint32   `json:"avs_rx_dbs,omitempty"`
	AvsTxDBS        *uint32   `json:"avs_tx_dbs,omitempty"`
	AvsTxSysMode    *uint32   `json:"avs_tx_sys_mode,omitempty"`
}

// Layout is the space table the device reports at its discovery base.
// Offsets and sizes are in quadlets.
type Layout struct {
	GlobalOffset  uint32 `json:"global_offset"`
	GlobalSize    uint32 `json:"global_size"`
	TxOffset      uint32 `json:"tx_offset"`
	TxSize        uint32 `json:"tx_size"`
	RxOffset      uint32 `json:"rx_offset"`
	RxSize        uint32 `json:"rx_size"`
	Unused1Offset uint32 `json:"unused1_offset"`
	Unused1Size   uint32 `json:"unused1_size"`
	Unused2Offset uint32 `json:"unused2_offset"`
	Unused2Size   uint32 `json:"unused2_size"`
}

type StringMatch struct {
	Text      string `json:"text"`
	Address   uint64 `json:"address"`
	ByteLevel bool   `json:"byte_level,omitempty"`
}

type DiscoveredDevice struct {
	Identity   Identity                `json:"identity"`
	ChipType   ChipType                `json:"chip_type"`
	Endianness endian.Endianness       `json:"endianness"`
	Addresses  *AddressDiscoveryResult `json:"addresses,omitempty"`
	Layout     *Layout                 `json:"layout,omitempty"`
	SelfTest   *SelfTestReport         `json:"self_test,omitempty"`
	Registers  RegisterMap             `json:"registers"`
	Global     GlobalState             `json:"global"`
	Subsystem  SubsystemState          `json:"subsystem"`
	Tx         StreamTopology          `json:"tx"`
	Rx         StreamTopology          `json:"rx"`
	EAP        *EapConfig              `json:"eap,omitempty"`
	Channels   ChannelCatalog          `json:"channels"`
	Strings    []StringMatch           `json:"strings,omitempty"`
	Warnings   []string                `json:"warnings,omitempty"`
}

func NewDiscoveredDevice(guid uint64) *DiscoveredDevice {
	return &DiscoveredDevice{
		Identity:  Identity{GUID: guid},
		ChipType:  ChipUnknown,
		Registers: RegisterMap{},
		Tx:        StreamTopology{Direction: Tx},
		Rx:        StreamTopology{Direction: Rx},
	}
}

// Warn records a warning that ends up in the report
func (d *DiscoveredDevice) Warn(format string, v ...interface{}) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, v...))
}

// Topology returns the stream topology for the direction
func (d *DiscoveredDevice) Topology(dir Direction) *StreamTopology {
	if dir == Rx {
		return &d.Rx
	}
	return &d.Tx
}

func (d *DiscoveredDevice) String() string {
	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Sprintf("DiscoveredDevice{guid: %016x}", d.Identity.GUID)
	}
	return string(data)
}
