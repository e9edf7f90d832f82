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

// Direction selects the transmit or the receive stream register table
type Direction int

const (
	Tx Direction = iota
	Rx
)

func (d Direction) String() string {
	if d == Rx {
		return "rx"
	}
	return "tx"
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "tx":
		*d = Tx
	case "rx":
		*d = Rx
	default:
		return fmt.Errorf("Unknown stream direction: %s", text)
	}
	return nil
}

type StreamInfo struct {
	Index         uint32   `json:"index"`
	Valid         bool     `json:"valid"`
	IsoChannel    *uint32  `json:"iso_channel,omitempty"`
	AudioChannels *uint32  `json:"audio_channels,omitempty"`
	MidiPorts     *uint32  `json:"midi_ports,omitempty"`
	Speed         *uint32  `json:"speed,omitempty"`
	SeqStart      *uint32  `json:"seq_start,omitempty"`
	NamesPointer  *uint32  `json:"names_pointer,omitempty"`
	NamesAddress  *uint64  `json:"names_address,omitempty"`
	AC3Caps       *uint32  `json:"ac3_caps,omitempty"`
	AC3Enable     *uint32  `json:"ac3_enable,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

// StreamTopology keeps the probed stream count in Count. EapCount is the
// stream count of the current EAP configuration, when it was sane.
type StreamTopology struct {
	Direction Direction    `json:"direction"`
	Reported  uint32       `json:"reported"`
	Count     uint32       `json:"count"`
	EapCount  *uint32      `json:"eap_count,omitempty"`
	Confirmed bool         `json:"confirmed"`
	Stride    uint32       `json:"stride"`
	Streams   []StreamInfo `json:"streams,omitempty"`
}

// StreamCount prefers the EAP stream count over the probed one
func (t *StreamTopology) StreamCount() uint32 {
	if t.EapCount != nil {
		return *t.EapCount
	}
	return t.Count
}

// ValidStreams returns the streams that answered a probe
func (t *StreamTopology) ValidStreams() []StreamInfo {
	var valid []StreamInfo
	for _, s := range t.Streams {
		if s.Valid {
			valid = append(valid, s)
		}
	}
	return valid
}
