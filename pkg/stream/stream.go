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

// Package stream probes the isochronous stream sections of a device.
// The count the device reports is only an upper bound: streams are confirmed
// by reading their registers.
package stream

import (
	"context"
	"fmt"

	"jinr.ru/greenlab/go-dice/pkg/bus"
	"jinr.ru/greenlab/go-dice/pkg/device"
	"jinr.ru/greenlab/go-dice/pkg/endian"
	"jinr.ru/greenlab/go-dice/pkg/log"
)

const (
	DefaultProbeCap     = 16
	DefaultFailureLimit = 3

	// MaxReportedCount above which the count register is treated as unreported
	MaxReportedCount = 64
	// MaxStreamSize and DefaultStreamSize are in quadlets
	MaxStreamSize     = 1024
	DefaultStreamSize = 256

	maxIsoChannel   = 63
	isoUnassigned   = 0xFFFFFFFF
	maxAudio        = 32
	maxMidi         = 16
	maxSpeed        = 2
	maxNamesPointer = 0x1000000
)

type Prober struct {
	acc    *bus.Accessor
	dev    *device.DiscoveredDevice
	log    *log.DeviceLogger
	global uint64
	bases  map[device.Direction]uint64
	// ProbeCap bounds the number of streams probed per direction
	ProbeCap uint32
	// FailureLimit consecutive invalid streams end the probe
	FailureLimit int
}

// NewProber prepares a prober for the bases resolved on dev. A direction
// without a base is skipped by Probe.
func NewProber(acc *bus.Accessor, dev *device.DiscoveredDevice, logger *log.DeviceLogger) *Prober {
	p := &Prober{
		acc:          acc,
		dev:          dev,
		log:          logger,
		bases:        map[device.Direction]uint64{},
		ProbeCap:     DefaultProbeCap,
		FailureLimit: DefaultFailureLimit,
	}
	if a := dev.Addresses; a != nil {
		if a.GlobalBase != nil {
			p.global = *a.GlobalBase
		}
		if a.TxBase != nil {
			p.bases[device.Tx] = *a.TxBase
		}
		if a.RxBase != nil {
			p.bases[device.Rx] = *a.RxBase
		}
	}
	return p
}

func (p *Prober) read(addr uint64) (uint32, error) {
	raw, err := p.acc.ReadQuadlet(addr)
	if err != nil {
		return 0, err
	}
	p.dev.Registers[addr] = raw
	return endian.DeviceToHost(raw, p.dev.Endianness), nil
}

// ReadHeader reads the stream count and the per stream size of the section.
// A count above MaxReportedCount reads as 0 (unreported). A size that is zero,
// too large or unreadable falls back to DefaultStreamSize.
func (p *Prober) ReadHeader(dir device.Direction) (reported, stride uint32, err error) {
	base, ok := p.bases[dir]
	if !ok {
		return 0, 0, ErrNoStreamBase{Direction: dir}
	}
	regs := dir.Regs()

	stride = DefaultStreamSize
	size, sizeErr := p.read(base + regs[device.StreamRegSize])
	switch {
	case sizeErr != nil:
		p.log.Warning("%s stream size unreadable, using %d quadlets: %s", dir, DefaultStreamSize, sizeErr)
	case size == 0 || size > MaxStreamSize:
		rangeErr := bus.NewSizeOutOfRange(base+regs[device.StreamRegSize], size, MaxStreamSize)
		p.log.Warning("%s stream size, using %d quadlets: %s", dir, DefaultStreamSize, rangeErr)
	default:
		stride = size
	}

	count, err := p.read(base + regs[device.StreamRegCount])
	if err != nil {
		return 0, stride, err
	}
	if count > MaxReportedCount {
		p.log.Warning("%s stream count %d is implausible, treating as unreported", dir, count)
		count = 0
	}
	return count, stride, nil
}

// Probe walks the streams of the direction and fills its topology.
// It returns the number of streams that answered, or the reported count when none did.
func (p *Prober) Probe(dir device.Direction, reported, stride uint32) uint32 {
	topo := p.dev.Topology(dir)
	topo.Direction = dir
	topo.Reported = reported
	topo.Stride = stride
	topo.Streams = nil

	base, ok := p.bases[dir]
	if !ok {
		p.log.Warning("%s stream base unknown, skipping probe", dir)
		topo.Count = reported
		return reported
	}

	ceiling := p.ProbeCap
	if reported > 0 && reported < ceiling {
		ceiling = reported
	}

	valid := uint32(0)
	consecutive := 0
	for i := uint32(0); i < ceiling; i++ {
		info := p.probeStream(dir, base, i, stride)
		topo.Streams = append(topo.Streams, info)
		if !info.Valid {
			consecutive++
			if consecutive >= p.FailureLimit {
				p.log.Debug("%s probe stopped at stream %d after %d invalid streams", dir, i, consecutive)
				break
			}
			continue
		}
		consecutive = 0
		valid++
	}

	if valid == 0 {
		p.log.Warning("%s: no stream answered, keeping reported count %d", dir, reported)
		topo.Count = reported
		topo.Confirmed = false
		return reported
	}
	if reported != 0 && valid != reported {
		p.dev.Warn("%s stream count: device reports %d, probe found %d", dir, reported, valid)
		p.log.Warning("%s stream count: device reports %d, probe found %d", dir, reported, valid)
	}
	topo.Count = valid
	topo.Confirmed = true
	return valid
}

// ProbeAll reads the header and probes both directions
func (p *Prober) ProbeAll(ctx context.Context) error {
	for _, dir := range []device.Direction{device.Tx, device.Rx} {
		if err := ctx.Err(); err != nil {
			return err
		}
		reported, stride, err := p.ReadHeader(dir)
		if err != nil {
			p.log.Warning("%s stream header: %s", dir, err)
		}
		if stride == 0 {
			stride = DefaultStreamSize
		}
		p.Probe(dir, reported, stride)
	}
	return nil
}

func ptr(v uint32) *uint32 {
	return &v
}

// probeStream reads one stream. ISOC and NB_AUDIO decide validity, the rest is best effort.
func (p *Prober) probeStream(dir device.Direction, base uint64, index, stride uint32) device.StreamInfo {
	regs := dir.Regs()
	at := base + uint64(index)*uint64(stride)*bus.QuadletSize
	info := device.StreamInfo{Index: index}
	warn := func(format string, v ...interface{}) {
		msg := fmt.Sprintf(format, v...)
		info.Warnings = append(info.Warnings, msg)
		p.log.Warning("%s[%d] %s", dir, index, msg)
	}

	if v, err := p.read(at + regs[device.StreamRegIsoc]); err == nil {
		info.Valid = true
		info.IsoChannel = ptr(v)
		if v > maxIsoChannel && v != isoUnassigned {
			warn("iso channel %d outside 0..%d", v, maxIsoChannel)
		}
	}
	if v, err := p.read(at + regs[device.StreamRegAudio]); err == nil {
		info.Valid = true
		info.AudioChannels = ptr(v)
		if v == 0 {
			warn("audio channel count is zero")
		} else if v > maxAudio {
			warn("audio channel count %d exceeds %d", v, maxAudio)
		}
	}
	if !info.Valid {
		p.log.Debug("%s[%d] at 0x%012x does not answer", dir, index, at)
		return info
	}

	if v, err := p.read(at + regs[device.StreamRegMidi]); err == nil {
		info.MidiPorts = ptr(v)
		if v > maxMidi {
			warn("MIDI port count %d exceeds %d", v, maxMidi)
		}
	}
	if dir == device.Tx {
		if v, err := p.read(at + regs[device.StreamRegSpeed]); err == nil {
			info.Speed = ptr(v)
			if v > maxSpeed {
				warn("speed %d is not S100, S200 or S400", v)
			}
		}
	} else if v, err := p.read(at + regs[device.StreamRegSeqStart]); err == nil {
		info.SeqStart = ptr(v)
	}
	if v, err := p.read(at + regs[device.StreamRegNames]); err == nil {
		info.NamesPointer = ptr(v)
		if v == 0 || v > maxNamesPointer {
			warn("names pointer 0x%x is implausible", v)
		} else {
			addr := p.global + uint64(v)*bus.QuadletSize
			info.NamesAddress = &addr
		}
	}
	if v, err := p.read(at + regs[device.StreamRegAC3Caps]); err == nil {
		info.AC3Caps = ptr(v)
	}
	if v, err := p.read(at + regs[device.StreamRegAC3Enable]); err == nil {
		info.AC3Enable = ptr(v)
	}
	return info
}
