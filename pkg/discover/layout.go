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

package discover

import (
	"jinr.ru/greenlab/go-dice/pkg/bus"
	"jinr.ru/greenlab/go-dice/pkg/device"
	"jinr.ru/greenlab/go-dice/pkg/endian"
)

const layoutQuadlets = 10

// ReadLayout reads the space table at base. The table is informational,
// a partially readable one is returned together with the error.
func ReadLayout(acc *bus.Accessor, e endian.Endianness, base uint64) (*device.Layout, error) {
	raw, err := acc.ReadQuadlets(base, layoutQuadlets)
	if len(raw) == 0 {
		return nil, err
	}
	v := make([]uint32, layoutQuadlets)
	for i, q := range raw {
		v[i] = endian.DeviceToHost(q, e)
	}
	return &device.Layout{
		GlobalOffset:  v[0],
		GlobalSize:    v[1],
		TxOffset:      v[2],
		TxSize:        v[3],
		RxOffset:      v[4],
		RxSize:        v[5],
		Unused1Offset: v[6],
		Unused1Size:   v[7],
		Unused2Offset: v[8],
		Unused2Size:   v[9],
	}, err
}

// Region names the part of the register space an address falls into
func Region(addr uint64) string {
	switch {
	case addr >= device.GpcsrBase && addr < device.GpcsrBase+device.BlockSize:
		return "GPCSR"
	case addr >= device.SubsystemBase && addr < device.SubsystemBase+device.BlockSize:
		return "Subsystem"
	case addr >= device.AvsBase && addr < device.AvsBase+device.BlockSize:
		return "AVS"
	case addr < device.DiscoveryBase:
		return "Unknown"
	}
	off := addr - device.DiscoveryBase
	switch {
	case off < 0x400:
		return "Global"
	case off < 0x800:
		return "TX"
	case off < 0xC00:
		return "RX"
	case off >= device.EapOffset && off < device.EapOffset+device.EapMaxSize:
		return "EAP"
	}
	return "Unknown"
}
