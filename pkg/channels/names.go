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

package channels

import (
	"context"
	"encoding/binary"
	"sort"

	"jinr.ru/greenlab/go-dice/pkg/bus"
	"jinr.ru/greenlab/go-dice/pkg/device"
	"jinr.ru/greenlab/go-dice/pkg/log"
)

// NamesWindow is the number of quadlets read at a candidate names address
const NamesWindow = 256

type Extractor struct {
	acc      *bus.Accessor
	dev      *device.DiscoveredDevice
	log      *log.DeviceLogger
	Patterns *PatternTable
}

func NewExtractor(acc *bus.Accessor, dev *device.DiscoveredDevice, logger *log.DeviceLogger, patterns *PatternTable) *Extractor {
	if patterns == nil {
		patterns = DefaultPatterns()
	}
	return &Extractor{
		acc:      acc,
		dev:      dev,
		log:      logger,
		Patterns: patterns,
	}
}

// Candidates lists the addresses that may hold the channel name table in the
// order they are tried: stream NAMES pointers, the EAP names base, then the
// addresses seen on known devices.
func (x *Extractor) Candidates() []uint64 {
	seen := map[uint64]bool{}
	var addrs []uint64
	add := func(addr uint64) {
		if !seen[addr] {
			seen[addr] = true
			addrs = append(addrs, addr)
		}
	}
	for _, topo := range []*device.StreamTopology{&x.dev.Tx, &x.dev.Rx} {
		for _, s := range topo.ValidStreams() {
			if s.NamesAddress != nil {
				add(*s.NamesAddress)
			}
		}
	}
	if x.dev.EAP != nil && x.dev.EAP.NamesBase != nil {
		add(*x.dev.EAP.NamesBase)
	}
	for _, addr := range device.ChannelNamesFallback {
		add(addr)
	}
	return addrs
}

// readWindow reads up to NamesWindow quadlets at addr. A block read is tried
// first, then single quadlets up to the first failure.
func (x *Extractor) readWindow(addr uint64) (device.RegisterMap, error) {
	window := device.RegisterMap{}
	data, err := x.acc.ReadBlock(addr, NamesWindow*bus.QuadletSize)
	if err == nil {
		for i := 0; i < NamesWindow; i++ {
			window[addr+uint64(i*bus.QuadletSize)] = binary.BigEndian.Uint32(data[i*bus.QuadletSize:])
		}
	} else {
		raws, qErr := x.acc.ReadQuadlets(addr, NamesWindow)
		if len(raws) == 0 {
			return nil, qErr
		}
		for i, raw := range raws {
			window[addr+uint64(i*bus.QuadletSize)] = raw
		}
	}
	for a, v := range window {
		x.dev.Registers[a] = v
	}
	return window, nil
}

// FindNamesAddress returns the first candidate whose text looks like channel labels
func (x *Extractor) FindNamesAddress(ctx context.Context) (uint64, bool) {
	for _, addr := range x.Candidates() {
		if ctx.Err() != nil {
			return 0, false
		}
		window, err := x.readWindow(addr)
		if err != nil {
			x.log.Debug("Names candidate 0x%012x unreadable: %s", addr, err)
			continue
		}
		if x.Patterns.Detect(JoinText(ExtractStrings(window, x.dev.Endianness))) {
			x.log.Info("Channel names at 0x%012x", addr)
			return addr, true
		}
		x.log.Debug("Names candidate 0x%012x holds no channel labels", addr)
	}
	return 0, false
}

func mergeNames(sets ...Matches) []string {
	var names []string
	for _, m := range sets {
		names = append(names, m.SortedNames()...)
	}
	sort.Strings(names)
	return names
}

// Extract locates the name table, extracts every string of the register map
// and counts the channel labels found in them.
func (x *Extractor) Extract(ctx context.Context) error {
	cat := &x.dev.Channels
	if addr, ok := x.FindNamesAddress(ctx); ok {
		cat.NamesAddress = &addr
	} else {
		x.log.Warning("No channel name table found")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	x.dev.Strings = ExtractStrings(x.dev.Registers, x.dev.Endianness)
	res := x.Patterns.Analyze(x.dev.Strings)
	cat.FromNames = res.Counts()
	cat.OutputNames = mergeNames(res.Outputs, res.StereoOutputs)
	cat.InputNames = mergeNames(res.Inputs, res.StereoInputs)
	x.log.Debug("%d strings, %d output and %d input labels", len(x.dev.Strings), len(cat.OutputNames), len(cat.InputNames))
	return nil
}
