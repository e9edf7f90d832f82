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

// Package sample builds register images of synthetic DICE devices.
// They back the sim transport in tests and the "image sample" command.
package sample

import (
	"jinr.ru/greenlab/go-dice/pkg/bus"
	"jinr.ru/greenlab/go-dice/pkg/configrom"
	"jinr.ru/greenlab/go-dice/pkg/device"
	"jinr.ru/greenlab/go-dice/pkg/endian"
)

// Base selects how the device exposes its global base
type Base int

const (
	// BaseLegacy places the global section at the discovery base
	BaseLegacy Base = iota
	// BasePointers publishes quadlet offsets in the pointer table and leaves the discovery base owner empty
	BasePointers
	// BaseConfigRom publishes the global base through a vendor key of the unit directory
	BaseConfigRom
)

const (
	StreamSize     = 0x46 // quadlets
	VendorKeyValue = 0x2000
	PointerGlobalQ = 0x28
	PointerTxQ     = 0x200
	PointerRxQ     = 0x300
	NamesPointer   = 0x6A

	EapCapOffsetQ = 0x19
	EapCurOffsetQ = 0x800
)

type Stream struct {
	IsoChannel    uint32
	AudioChannels uint32
	MidiPorts     uint32
	Speed         uint32
	Names         string
}

type Device struct {
	GUID         uint64
	VendorID     uint32
	ModelID      uint32
	Vendor       string
	Nickname     string
	Endianness   endian.Endianness
	ChipType     device.ChipType
	ChipID       uint32
	Base         Base
	Owner        uint32
	ClockSelect  uint32
	SampleRate   uint32
	Tx           []Stream
	Rx           []Stream
	ReportedTx   *uint32
	ReportedRx   *uint32
	ChannelNames []string // stored at the global base plus NamesPointer quadlets
	Eap          bool
	NoRom        bool
}

// NewDevice returns a big-endian DICE Jr with one stream each way
func NewDevice() *Device {
	return &Device{
		GUID:         0x00130e0402004713,
		VendorID:     0x00130e,
		ModelID:      0x000004,
		Vendor:       "Synthetic Audio",
		Nickname:     "Studio Jr",
		Endianness:   endian.Big,
		ChipType:     device.ChipTypeC,
		ChipID:       0x13,
		Base:         BaseLegacy,
		Owner:        2,
		ClockSelect:  0x020C, // 48k internal
		SampleRate:   48000,
		Tx:           []Stream{{IsoChannel: 1, AudioChannels: 2, Speed: 2, Names: "OUTPUT CH1\\OUTPUT CH2\\\\"}},
		Rx:           []Stream{{IsoChannel: 0, AudioChannels: 1, Speed: 2, Names: "INPUT CH1\\\\"}},
		ChannelNames: []string{"OUTPUT CH1", "OUTPUT CH2", "INPUT CH1"},
		Eap:          true,
	}
}

type builder struct {
	img *bus.Image
	e   endian.Endianness
}

func (b *builder) set(addr uint64, v uint32) {
	b.img.Set(addr, endian.HostToDevice(v, b.e))
}

// text stores zero padded text the way the device would
func (b *builder) text(addr uint64, s string, size int) {
	data := make([]byte, size)
	copy(data, s)
	for i := 0; i+4 <= len(data); i += 4 {
		v := uint32(data[i])<<24 | uint32(data[i+1])<<16 | uint32(data[i+2])<<8 | uint32(data[i+3])
		b.set(addr+uint64(i), v)
	}
}

// GlobalBase is where the device keeps its global section
func (d *Device) GlobalBase() uint64 {
	switch d.Base {
	case BasePointers:
		return device.DiscoveryBase + PointerGlobalQ*4
	case BaseConfigRom:
		return device.DiscoveryBase + VendorKeyValue*4
	}
	return device.DiscoveryBase
}

func (d *Device) TxBase() uint64 {
	if d.Base == BasePointers {
		return device.DiscoveryBase + PointerTxQ*4
	}
	return d.GlobalBase() + device.LegacyTxOffset
}

func (d *Device) RxBase() uint64 {
	if d.Base == BasePointers {
		return device.DiscoveryBase + PointerRxQ*4
	}
	return d.GlobalBase() + device.LegacyRxOffset
}

func (d *Device) NamesAddress() uint64 {
	return d.GlobalBase() + NamesPointer*4
}

func (d *Device) EapBase() uint64 {
	return device.DiscoveryBase + device.EapOffset
}

// Image renders the device into a register image
func (d *Device) Image() *bus.Image {
	b := &builder{img: bus.NewImage(d.GUID), e: d.Endianness}
	b.img.Name = d.Nickname
	b.img.Vendor = d.Vendor
	if !d.NoRom {
		d.rom(b)
	}
	d.bases(b)
	d.global(b)
	d.streams(b, device.Tx, d.TxBase(), d.Tx, d.ReportedTx)
	d.streams(b, device.Rx, d.RxBase(), d.Rx, d.ReportedRx)
	if len(d.ChannelNames) > 0 {
		data := []byte{}
		for _, name := range d.ChannelNames {
			data = append(data, name...)
			data = append(data, 0)
		}
		b.text(d.NamesAddress(), string(data), (len(data)+3)/4*4)
	}
	d.subsystem(b)
	if d.Eap {
		d.eap(b)
	}
	return b.img
}

// rom is always big-endian
func (d *Device) rom(b *builder) {
	base := uint64(configrom.Base)
	b.img.Set(base, 0x04040000)
	b.img.Set(base+0x04, 0x31333934) // "1394"
	b.img.Set(base+0x08, 0xE0008102)
	b.img.Set(base+configrom.BusInfoGUIDHiOffset, uint32(d.GUID>>32))
	b.img.Set(base+configrom.BusInfoGUIDLoOffset, uint32(d.GUID))
	// root directory: vendor, node caps, unit directory
	root := base + configrom.RootDirHeaderOffset
	b.img.Set(root, 3<<16)
	b.img.Set(root+0x04, uint32(configrom.KeyVendor)<<24|d.VendorID)
	b.img.Set(root+0x08, uint32(configrom.KeyNodeCaps)<<24|0x0083C0)
	b.img.Set(root+0x0C, uint32(configrom.KeyUnitDir)<<24|0x04)
	// unit directory: spec id, sw version, model, and the vendor key for config ROM bases
	unit := base + configrom.RootDirOffset + 0x04*4
	entries := []uint32{
		uint32(configrom.KeyUnitSpecID)<<24 | d.VendorID,
		uint32(configrom.KeyUnitSWVer)<<24 | 0x000001,
		uint32(configrom.KeyModel)<<24 | d.ModelID,
	}
	if d.Base == BaseConfigRom {
		entries = append(entries, uint32(configrom.KeyVendorFirst)<<24|VendorKeyValue)
	}
	b.img.Set(unit, uint32(len(entries))<<16)
	for i, e := range entries {
		b.img.Set(unit+uint64(i+1)*4, e)
	}
}

func (d *Device) bases(b *builder) {
	if d.Base == BasePointers {
		base := device.DiscoveryBase
		b.set(base+0x00, 0)
		b.set(base+0x04, PointerGlobalQ)
		b.set(base+0x08, 0)
		b.set(base+0x0C, PointerTxQ)
		b.set(base+0x18, 0)
		b.set(base+0x1C, PointerRxQ)
	}
}

func (d *Device) global(b *builder) {
	g := d.GlobalBase()
	b.set(g+0x00, d.Owner)
	b.set(g+0x04, 0)
	b.set(g+0x08, 0)
	b.text(g+0x0C, d.Nickname, device.NicknameSize)
	b.set(g+0x4C, d.ClockSelect)
	b.set(g+0x50, 1)
	b.set(g+0x54, 0x0201)
	b.set(g+0x58, 0)
	b.set(g+0x5C, d.SampleRate)
	b.set(g+0x60, 0x01000400)
	b.set(g+0x64, 0x00001E7F)
	b.text(g+0x68, "AES1\\AES2\\AES3\\AES4\\AES_ANY\\ADAT\\TDIF\\WC\\ARX1\\ARX2\\ARX3\\ARX4\\INTERNAL\\\\", device.ClockSourceNamesSize)
}

func (d *Device) streams(b *builder, dir device.Direction, base uint64, streams []Stream, reported *uint32) {
	regs := dir.Regs()
	count := uint32(len(streams))
	if reported != nil {
		count = *reported
	}
	b.set(base+regs[device.StreamRegCount], count)
	b.set(base+regs[device.StreamRegSize], StreamSize)
	for i, s := range streams {
		at := base + uint64(i)*StreamSize*4
		b.set(at+regs[device.StreamRegIsoc], s.IsoChannel)
		b.set(at+regs[device.StreamRegAudio], s.AudioChannels)
		b.set(at+regs[device.StreamRegMidi], s.MidiPorts)
		if dir == device.Tx {
			b.set(at+regs[device.StreamRegSpeed], s.Speed)
		} else {
			b.set(at+regs[device.StreamRegSeqStart], 0)
		}
		b.set(at+regs[device.StreamRegNames], NamesPointer)
		b.set(at+regs[device.StreamRegAC3Caps], 0)
		b.set(at+regs[device.StreamRegAC3Enable], 0)
	}
}

func (d *Device) subsystem(b *builder) {
	reg := func(alias device.RegAlias) uint64 {
		return device.RegMap[alias].Address(d.GlobalBase())
	}
	b.set(reg(device.RegGpcsrAudioSelect), 0x0000030F)
	b.set(reg(device.RegGpcsrChipID), d.ChipID<<24|uint32(d.ChipType))
	b.set(reg(device.RegClockSyncCtrl), 0x1)
	b.set(reg(device.RegClockDomainCtrl), 0x00)
	b.set(reg(device.RegAesRxStatAll), 0x1)
	b.set(reg(device.RegMixerNumOfCh), 0x12)
	b.set(reg(device.RegAvsRxCfg0), 0x05)
	b.set(reg(device.RegAvsRxCfg1), 0x00040000)
	b.set(reg(device.RegAvsTxCfg), 0x00100020)
}

const (
	eapEntrySize = 264
	eapLowStream = 0x1000
)

func (d *Device) eap(b *builder) {
	base := d.EapBase()
	// section table: offset and size pairs in quadlets
	sections := []uint32{
		EapCapOffsetQ, 0x4,
		0x1D, 0x4,
		0x21, 0x100,
		0x121, 0x40,
		0x161, 0x100,
		0x261, 0x400,
		EapCurOffsetQ, 0x1800,
		0x2000, 0x100,
		0x2100, 0x10,
	}
	for i, v := range sections {
		b.set(base+uint64(i)*4, v)
	}
	caps := base + EapCapOffsetQ*4
	b.set(caps+0x0, 0x00400001)
	b.set(caps+0x4, 0x12100001)
	chip := uint32(d.ChipType)
	b.set(caps+0x8, chip<<16|uint32(len(d.Rx))<<8|uint32(len(d.Tx))<<4|0x5)

	block := base + EapCurOffsetQ*4 + eapLowStream
	b.set(block+0, uint32(len(d.Tx)))
	b.set(block+4, uint32(len(d.Rx)))
	at := block + 8
	for _, s := range append(append([]Stream{}, d.Tx...), d.Rx...) {
		b.set(at, s.AudioChannels)
		b.set(at+4, s.MidiPorts)
		b.text(at+8, s.Names, 256)
		at += eapEntrySize
	}
}
