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

// Package eap reads the Extended Application Protocol space of a DICE device:
// the capability words and the current stream configuration.
package eap

import (
	"context"
	"encoding/binary"
	"strings"

	"jinr.ru/greenlab/go-dice/pkg/bus"
	"jinr.ru/greenlab/go-dice/pkg/device"
	"jinr.ru/greenlab/go-dice/pkg/endian"
	"jinr.ru/greenlab/go-dice/pkg/log"
)

// Section table at the EAP base. Each section has an offset and a size quadlet,
// both in quadlets relative to the EAP base.
const (
	CapabilityOffset   = 0x00
	CmdOffset          = 0x08
	MixerOffset        = 0x10
	PeakOffset         = 0x18
	NewRoutingOffset   = 0x20
	NewStreamCfgOffset = 0x28
	CurrentCfgOffset   = 0x30
	StandaloneOffset   = 0x38
	ApplicationOffset  = 0x40
)

// capability words relative to the capability section
const (
	CapRouter  = 0x0
	CapMixer   = 0x4
	CapGeneral = 0x8
)

const (
	// MaxStreamCount above which a stream count is not trusted
	MaxStreamCount = 64
	// EntrySize is the size of a stream entry in bytes: audio, midi and 256 bytes of names
	EntrySize = 264
	NamesSize = 256

	RateDomainAuto = "auto"

	namesScanStreams = 8
	namesScanWindow  = 4 // quadlets
	maxNamesPointer  = 0x100000
	namesProbeSize   = 16 // quadlets
)

// offsets of the stream blocks of each rate domain within the current configuration
var StreamBlockOffset = map[device.RateDomain]uint64{
	device.RateLow:  0x1000,
	device.RateMid:  0x3000,
	device.RateHigh: 0x5000,
}

type Reader struct {
	acc  *bus.Accessor
	dev  *device.DiscoveredDevice
	log  *log.DeviceLogger
	base uint64
	// RateDomain is auto, low, mid or high
	RateDomain string
}

func NewReader(acc *bus.Accessor, dev *device.DiscoveredDevice, logger *log.DeviceLogger, rateDomain string) *Reader {
	if rateDomain == "" {
		rateDomain = RateDomainAuto
	}
	return &Reader{
		acc:        acc,
		dev:        dev,
		log:        logger,
		base:       device.DiscoveryBase + device.EapOffset,
		RateDomain: rateDomain,
	}
}

func (r *Reader) Base() uint64 {
	return r.base
}

func (r *Reader) read(addr uint64) (uint32, error) {
	raw, err := r.acc.ReadQuadlet(addr)
	if err != nil {
		return 0, err
	}
	r.dev.Registers[addr] = raw
	return endian.DeviceToHost(raw, r.dev.Endianness), nil
}

// readRaw reads count quadlets with one block read and falls back to single
// quadlets when the device refuses the block.
func (r *Reader) readRaw(addr uint64, count int) ([]uint32, error) {
	var raws []uint32
	data, err := r.acc.ReadBlock(addr, count*bus.QuadletSize)
	if err == nil {
		for i := 0; i < count; i++ {
			raws = append(raws, binary.BigEndian.Uint32(data[i*bus.QuadletSize:]))
		}
	} else {
		r.log.Debug("Block read at 0x%012x failed, reading quadlets: %s", addr, err)
		raws, err = r.acc.ReadQuadlets(addr, count)
	}
	for i, raw := range raws {
		r.dev.Registers[addr+uint64(i*bus.QuadletSize)] = raw
	}
	return raws, err
}

// section returns the absolute address of a section from its table entry
func (r *Reader) section(entry uint64) (uint64, error) {
	addr := r.base + entry
	off, err := r.read(addr)
	if err != nil {
		return 0, ErrEapUnavailable{Addr: addr, Cause: err}
	}
	return r.base + uint64(off)*bus.QuadletSize, nil
}

// ReadCapabilities reads the router, mixer and general capability words.
// Failing to read the section offset is fatal, the words themselves are read independently.
func (r *Reader) ReadCapabilities(ctx context.Context) error {
	id := r.dev.Identity
	if !device.EapSupported(id.VendorID, id.ModelID) {
		r.log.Info("Skipping EAP on vendor 0x%06x model 0x%x", *id.VendorID, *id.ModelID)
		return ErrEapUnsupported{VendorID: *id.VendorID, ModelID: *id.ModelID}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	caps, err := r.section(CapabilityOffset)
	if err != nil {
		return err
	}
	cfg := &device.EapConfig{
		Base:     r.base,
		ChipType: device.ChipUnknown,
		Domains:  map[device.RateDomain]*device.StreamConfig{},
	}
	r.dev.EAP = cfg

	if v, err := r.read(caps + CapRouter); err == nil {
		cfg.Router = device.DecodeRouterCaps(v)
	} else {
		r.log.Warning("EAP router capability: %s", err)
	}
	if v, err := r.read(caps + CapMixer); err == nil {
		cfg.Mixer = device.DecodeMixerCaps(v)
	} else {
		r.log.Warning("EAP mixer capability: %s", err)
	}
	if v, err := r.read(caps + CapGeneral); err == nil {
		cfg.General = device.DecodeGeneralCaps(v)
		cfg.ChipType = cfg.General.Chip
		if r.dev.ChipType == device.ChipUnknown {
			r.dev.ChipType = cfg.ChipType
		}
		r.log.Info("EAP chip %s, up to %d TX and %d RX streams", cfg.ChipType, cfg.General.MaxTx, cfg.General.MaxRx)
	} else {
		r.log.Warning("EAP general capability: %s", err)
	}
	return nil
}

// SelectRateDomain picks the configuration block to read. Under auto it follows
// the sample rate of the device and falls back to low with a warning.
func (r *Reader) SelectRateDomain() (device.RateDomain, error) {
	if r.RateDomain != RateDomainAuto {
		return device.ParseRateDomain(r.RateDomain)
	}
	g := r.dev.Global
	for _, hz := range []*uint32{g.RateHz, g.SampleRate} {
		if hz == nil {
			continue
		}
		if domain, ok := device.RateDomainForHz(*hz); ok {
			return domain, nil
		}
	}
	r.dev.Warn("Sample rate unknown, reading the %s rate EAP configuration", device.RateLow)
	r.log.Warning("Sample rate unknown, reading the %s rate EAP configuration", device.RateLow)
	return device.RateLow, nil
}

func (r *Reader) readCount(addr uint64, what string) uint32 {
	v, err := r.read(addr)
	if err != nil {
		r.log.Warning("EAP %s count: %s", what, err)
		return 0
	}
	if v > MaxStreamCount {
		r.dev.Warn("EAP %s count %d exceeds %d, ignored", what, v, MaxStreamCount)
		return 0
	}
	return v
}

// adoptCount records a nonzero EAP stream count next to the probed one.
// Probe results are left as they are.
func (r *Reader) adoptCount(dir device.Direction, n uint32) {
	if n == 0 {
		return
	}
	topo := r.dev.Topology(dir)
	topo.EapCount = &n
	if topo.Streams != nil && topo.Count != n {
		r.dev.Warn("%s stream count: probe found %d, EAP reports %d", dir, topo.Count, n)
		r.log.Warning("%s stream count: probe found %d, EAP reports %d", dir, topo.Count, n)
	}
}

func (r *Reader) readEntry(addr uint64) (device.StreamEntry, error) {
	raws, err := r.readRaw(addr, EntrySize/bus.QuadletSize)
	if err != nil {
		return device.StreamEntry{}, err
	}
	e := r.dev.Endianness
	return device.StreamEntry{
		AudioChannels: endian.DeviceToHost(raws[0], e),
		MidiPorts:     endian.DeviceToHost(raws[1], e),
		Names:         endian.DecodeText(raws[2:], e),
	}, nil
}

// ReadCurrentConfig reads the stream configuration of the selected rate domain
// and scans it for a channel names pointer.
func (r *Reader) ReadCurrentConfig(ctx context.Context) error {
	cfg := r.dev.EAP
	if cfg == nil {
		return ErrEapUnavailable{Addr: r.base + CapabilityOffset, Cause: errNoCapabilities}
	}
	current, err := r.section(CurrentCfgOffset)
	if err != nil {
		return err
	}
	domain, err := r.SelectRateDomain()
	if err != nil {
		return err
	}
	cfg.RateDomain = domain
	block := current + StreamBlockOffset[domain]
	r.log.Debug("EAP %s rate stream block at 0x%012x", domain, block)

	sc := &device.StreamConfig{
		TxCount: r.readCount(block, "TX"),
		RxCount: r.readCount(block+4, "RX"),
	}
	cfg.Domains[domain] = sc
	r.adoptCount(device.Tx, sc.TxCount)
	r.adoptCount(device.Rx, sc.RxCount)

	at := block + 8
	for i := uint32(0); i < sc.TxCount+sc.RxCount; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, err := r.readEntry(at)
		if err != nil {
			r.log.Warning("EAP stream entry %d at 0x%012x: %s", i, at, err)
		} else if i < sc.TxCount {
			sc.Tx = append(sc.Tx, entry)
		} else {
			sc.Rx = append(sc.Rx, entry)
		}
		at += EntrySize
	}

	if addr, ok := r.scanNamesPointer(block, sc); ok {
		cfg.NamesBase = &addr
		r.log.Info("EAP channel names at 0x%012x", addr)
	}
	return nil
}

// Read reads the capabilities and then the current configuration
func (r *Reader) Read(ctx context.Context) error {
	if err := r.ReadCapabilities(ctx); err != nil {
		return err
	}
	return r.ReadCurrentConfig(ctx)
}

// scanNamesPointer looks at the first quadlets of each stream entry for a
// quadlet offset that points at channel name text.
func (r *Reader) scanNamesPointer(block uint64, sc *device.StreamConfig) (uint64, bool) {
	streams := int(sc.TxCount + sc.RxCount)
	if streams == 0 || streams > namesScanStreams {
		streams = namesScanStreams
	}
	for s := 0; s < streams; s++ {
		entry := block + 8 + uint64(s*EntrySize)
		for q := 0; q < namesScanWindow; q++ {
			v, err := r.read(entry + uint64(q*bus.QuadletSize))
			if err != nil || v == 0 || v >= maxNamesPointer {
				continue
			}
			addr := device.DiscoveryBase + uint64(v)*bus.QuadletSize
			if r.looksLikeNames(addr) {
				return addr, true
			}
		}
	}
	return 0, false
}

func (r *Reader) looksLikeNames(addr uint64) bool {
	raws, err := r.acc.ReadQuadlets(addr, namesProbeSize)
	if len(raws) == 0 {
		return false
	}
	if err != nil {
		r.log.Debug("Names probe at 0x%012x cut short: %s", addr, err)
	}
	var sb strings.Builder
	for _, raw := range raws {
		for _, c := range endian.Text(raw, r.dev.Endianness) {
			if c >= 0x20 && c <= 0x7E {
				sb.WriteByte(c)
			} else {
				sb.WriteByte(' ')
			}
		}
	}
	text := strings.ToUpper(sb.String())
	return strings.Contains(text, "IN") || strings.Contains(text, "OUT")
}
