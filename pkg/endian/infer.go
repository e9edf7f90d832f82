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

package endian

import (
	"jinr.ru/greenlab/go-dice/pkg/bus"
	"jinr.ru/greenlab/go-dice/pkg/configrom"
	"jinr.ru/greenlab/go-dice/pkg/log"
)

const (
	// ChipIDAddr is the GPCSR chip id register
	ChipIDAddr = 0xFFFF00000000 + 0xC7000000 + 0x14
	// NameAddr is the first quadlet of the device name in the global section
	NameAddr = 0xFFFFE0000034

	chipTypeMask = 0xF
	maxChipType  = 2
	maxVendorID  = 0xFFFFFF
)

func validChipType(v uint32) bool {
	return v&chipTypeMask <= maxChipType
}

// Infer decides the byte order of the device. The first decisive signal wins:
// the GPCSR chip type, the config ROM vendor entries, the device name, and big-endian otherwise.
// rom may be nil.
func Infer(acc *bus.Accessor, rom *configrom.ROM) Endianness {
	if raw, err := acc.ReadQuadlet(ChipIDAddr); err == nil {
		big := validChipType(raw)
		little := validChipType(Swap(raw))
		switch {
		case big && !little:
			log.Info("Device is big-endian by chip type: raw: 0x%08x", raw)
			return Big
		case little && !big:
			log.Info("Device is little-endian by chip type: raw: 0x%08x", raw)
			return Little
		case big && little:
			log.Debug("Chip type is valid under both byte orders: raw: 0x%08x", raw)
		default:
			log.Debug("Chip type is invalid under both byte orders: raw: 0x%08x", raw)
		}
	} else {
		log.Debug("Chip id register unreadable: %s", err)
	}

	if rom != nil && rom.Root != nil {
		for _, e := range rom.Root.Entries {
			if e.Key != configrom.KeyVendor && e.Key != configrom.KeyNodeCaps {
				continue
			}
			if e.Value != 0 && e.Value < maxVendorID {
				log.Info("Device is big-endian by config ROM entry 0x%02x: 0x%06x", e.Key, e.Value)
				return Big
			}
		}
	}

	if raw, err := acc.ReadQuadlet(NameAddr); err == nil {
		big := PrintablePrefix(raw)
		little := PrintablePrefix(Swap(raw))
		if little > big {
			log.Info("Device is little-endian by device name")
			return Little
		}
		if big > little {
			log.Info("Device is big-endian by device name")
			return Big
		}
	}

	log.Info("Device byte order undecided, assuming big-endian")
	return Big
}
