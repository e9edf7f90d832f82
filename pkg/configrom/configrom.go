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

// Package configrom parses the IEEE 1212 configuration ROM of a node.
// The ROM is big-endian on every device regardless of the byte order
// the chip uses for its private register space.
package configrom

import (
	"fmt"

	"jinr.ru/greenlab/go-dice/pkg/bus"
	"jinr.ru/greenlab/go-dice/pkg/log"
)

const (
	Base = 0xFFFFF0000400

	BusInfoGUIDHiOffset = 0x0C
	BusInfoGUIDLoOffset = 0x10
	RootDirHeaderOffset = 0x14
	RootDirOffset       = 0x18

	// MaxDirLength bounds the number of entries read from one directory
	MaxDirLength = 64
)

// Directory keys
const (
	KeyVendor      uint8 = 0x03
	KeyModel       uint8 = 0x07
	KeyNodeCaps    uint8 = 0x0C
	KeyUnitSpecID  uint8 = 0x12
	KeyUnitSWVer   uint8 = 0x13
	KeyUnitDir     uint8 = 0x17
	KeyVendorFirst uint8 = 0xC1
	KeyVendorLast  uint8 = 0xDF
)

const entryValueMask = 0x00FFFFFF

var keyNames = map[uint8]string{
	KeyVendor:      "Vendor",
	KeyModel:       "Model",
	KeyNodeCaps:    "NodeCapabilities",
	KeyUnitSpecID:  "UnitSpecID",
	KeyUnitSWVer:   "UnitSWVersion",
	KeyUnitDir:     "UnitDirectory",
	KeyVendorFirst: "UnitDependent",
}

// Entry is one directory entry
type Entry struct {
	Key     uint8
	Value   uint32 // low 24 bits of the entry
	Address uint64 // where the entry itself lives
}

func (e Entry) IsVendor() bool {
	return e.Key >= KeyVendorFirst && e.Key <= KeyVendorLast
}

func (e Entry) String() string {
	name, ok := keyNames[e.Key]
	if !ok {
		name = "Unknown"
		if e.IsVendor() {
			name = "VendorSpecific"
		}
	}
	return fmt.Sprintf("key: 0x%02x (%s) value: 0x%06x", e.Key, name, e.Value)
}

type Directory struct {
	Address uint64 // address of the directory header
	Length  int
	Entries []Entry
}

// Find returns the first entry with the key
func (d *Directory) Find(key uint8) (Entry, bool) {
	if d == nil {
		return Entry{}, false
	}
	for _, e := range d.Entries {
		if e.Key == key {
			return e, true
		}
	}
	return Entry{}, false
}

type ROM struct {
	GUID     *uint64
	VendorID *uint32
	ModelID  *uint32
	Root     *Directory
	Unit     *Directory
}

// VendorEntries returns the unit directory entries in the vendor key range
func (r *ROM) VendorEntries() []Entry {
	var entries []Entry
	if r == nil || r.Unit == nil {
		return entries
	}
	for _, e := range r.Unit.Entries {
		if e.IsVendor() {
			entries = append(entries, e)
		}
	}
	return entries
}

// readDirectory reads the directory whose header is at addr.
// The length is the upper half of the header quadlet.
func readDirectory(acc *bus.Accessor, addr uint64) (*Directory, error) {
	header, err := acc.ReadQuadlet(addr)
	if err != nil {
		return nil, err
	}
	length := int(header >> 16)
	if length == 0 || length > MaxDirLength {
		return nil, ErrDirectory{Addr: addr, What: fmt.Sprintf("length %d outside 1..%d", length, MaxDirLength)}
	}
	dir := &Directory{Address: addr, Length: length}
	for i := 0; i < length; i++ {
		entryAddr := addr + uint64((i+1)*bus.QuadletSize)
		raw, err := acc.ReadQuadlet(entryAddr)
		if err != nil {
			return dir, err
		}
		dir.Entries = append(dir.Entries, Entry{
			Key:     uint8(raw >> 24),
			Value:   raw & entryValueMask,
			Address: entryAddr,
		})
	}
	return dir, nil
}

// Read parses the bus info block, the root directory and the unit directory.
// A ROM without a readable root directory is an error. Everything else is best effort.
func Read(acc *bus.Accessor) (*ROM, error) {
	rom := &ROM{}

	if hi, err := acc.ReadQuadlet(Base + BusInfoGUIDHiOffset); err == nil {
		if lo, err := acc.ReadQuadlet(Base + BusInfoGUIDLoOffset); err == nil {
			guid := uint64(hi)<<32 | uint64(lo)
			rom.GUID = &guid
		}
	}

	root, err := readDirectory(acc, Base+RootDirHeaderOffset)
	if err != nil && root == nil {
		return nil, err
	}
	if err != nil {
		log.Warning("Config ROM root directory truncated after %d entries: %s", len(root.Entries), err)
	}
	rom.Root = root

	if e, ok := root.Find(KeyVendor); ok {
		v := e.Value
		rom.VendorID = &v
	}

	unitEntry, ok := root.Find(KeyUnitDir)
	if !ok {
		log.Debug("Config ROM has no unit directory")
		return rom, nil
	}
	// unit directory offset is in quadlets from the first root entry
	unitAddr := Base + RootDirOffset + uint64(unitEntry.Value)*bus.QuadletSize
	unit, err := readDirectory(acc, unitAddr)
	if err != nil {
		log.Warning("Config ROM unit directory at 0x%012x: %s", unitAddr, err)
	}
	rom.Unit = unit
	if e, ok := unit.Find(KeyModel); ok {
		v := e.Value
		rom.ModelID = &v
	}
	return rom, nil
}
