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

type ChipType int

const (
	ChipTypeA ChipType = iota // DICE II
	ChipTypeB                 // DICE Mini
	ChipTypeC                 // DICE Jr
	ChipUnknown
)

var chipNames = map[ChipType]string{
	ChipTypeA:   "DICE II",
	ChipTypeB:   "DICE Mini",
	ChipTypeC:   "DICE Jr",
	ChipUnknown: "unknown",
}

// ChipLimits are the stream counts a chip type supports
type ChipLimits struct {
	MaxTx uint32
	MaxRx uint32
}

var chipLimits = map[ChipType]ChipLimits{
	ChipTypeA:   {MaxTx: 4, MaxRx: 4},
	ChipTypeB:   {MaxTx: 2, MaxRx: 2},
	ChipTypeC:   {MaxTx: 1, MaxRx: 1},
	ChipUnknown: {MaxTx: 2, MaxRx: 2},
}

// ChipTypeFromCode maps the chip type code reported by GPCSR or EAP
func ChipTypeFromCode(code uint32) ChipType {
	if code <= uint32(ChipTypeC) {
		return ChipType(code)
	}
	return ChipUnknown
}

func (c ChipType) String() string {
	if name, ok := chipNames[c]; ok {
		return name
	}
	return fmt.Sprintf("chip type %d", int(c))
}

func (c ChipType) Limits() ChipLimits {
	if l, ok := chipLimits[c]; ok {
		return l
	}
	return chipLimits[ChipUnknown]
}

func (c ChipType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ChipType) UnmarshalText(text []byte) error {
	for k, v := range chipNames {
		if v == string(text) {
			*c = k
			return nil
		}
	}
	*c = ChipUnknown
	return nil
}

// EAP is known to be absent on these vendor/model pairs
var eapUnsupported = []struct {
	VendorID uint32
	ModelID  uint32
}{
	{VendorID: 0x10c73f, ModelID: 0x1},
}

func EapSupported(vendorID, modelID *uint32) bool {
	if vendorID == nil || modelID == nil {
		return true
	}
	for _, d := range eapUnsupported {
		if d.VendorID == *vendorID && d.ModelID == *modelID {
			return false
		}
	}
	return true
}
