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
	"context"
	"fmt"

	"jinr.ru/greenlab/go-dice/pkg/bus"
	"jinr.ru/greenlab/go-dice/pkg/configrom"
	"jinr.ru/greenlab/go-dice/pkg/device"
	"jinr.ru/greenlab/go-dice/pkg/endian"
	"jinr.ru/greenlab/go-dice/pkg/log"
)

// Pointer table at a discovery base, hi and lo quadlet offsets
const (
	GlobalPtrHi = 0x00
	GlobalPtrLo = 0x04
	TxPtrHi     = 0x08
	TxPtrLo     = 0x0C
	RxPtrHi     = 0x18
	RxPtrLo     = 0x1C
)

// values the owner landmark takes on a live chip
var ownerDomain = map[uint32]bool{1: true, 2: true, 3: true, 4: true}

// Strategy tries one way of finding the bases
type Strategy struct {
	Method device.Method
	Run    func(ctx context.Context, r *Resolver) (*device.AddressDiscoveryResult, error)
}

// DefaultStrategies in priority order
var DefaultStrategies = []Strategy{
	{Method: device.ConfigRomKey, Run: configRomKey},
	{Method: device.PointerDiscovery, Run: pointerDiscovery},
	{Method: device.LegacyFallback, Run: legacyFallback},
}

type Resolver struct {
	acc        *bus.Accessor
	endianness endian.Endianness
	rom        *configrom.ROM
	log        *log.DeviceLogger
	Strategies []Strategy
	Warnings   []string
}

func NewResolver(acc *bus.Accessor, e endian.Endianness, rom *configrom.ROM, logger *log.DeviceLogger) *Resolver {
	return &Resolver{
		acc:        acc,
		endianness: e,
		rom:        rom,
		log:        logger,
		Strategies: DefaultStrategies,
	}
}

func (r *Resolver) warn(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	r.log.Warning("%s", msg)
	r.Warnings = append(r.Warnings, msg)
}

// Resolve runs the strategies in order and returns the first verified result
func (r *Resolver) Resolve(ctx context.Context) (*device.AddressDiscoveryResult, error) {
	tried := []string{}
	for _, s := range r.Strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := s.Run(ctx, r)
		if err != nil {
			r.log.Debug("Base discovery %s failed: %s", s.Method, err)
			tried = append(tried, s.Method.String())
			continue
		}
		result.Method = s.Method
		result.Verified = true
		r.log.Info("Global base 0x%012x found by %s", *result.GlobalBase, s.Method)
		return result, nil
	}
	return nil, ErrNoBaseAddress{Tried: tried}
}

// VerifyOwner reads the owner register at base and checks it is a known chip identity.
// Under Unknown byte order either ordering may match.
func (r *Resolver) VerifyOwner(base uint64) error {
	raw, err := r.acc.ReadQuadlet(base + device.RegMap[device.RegOwner].Offset)
	if err != nil {
		return err
	}
	candidates := []uint32{endian.DeviceToHost(raw, r.endianness)}
	if r.endianness == endian.Unknown {
		candidates = []uint32{raw, endian.Swap(raw)}
	}
	for _, v := range candidates {
		if ownerDomain[v] {
			r.log.Debug("Owner at 0x%012x is %d", base, v)
			return nil
		}
	}
	return bus.NewVerificationFailed(base, fmt.Sprintf("owner 0x%08x is not a known chip identity", raw))
}

// ReadPointer reads a hi/lo pointer pair at table. Values below the discovery
// base are quadlet offsets from it, the rest are absolute addresses.
func (r *Resolver) ReadPointer(table uint64, hiOff, loOff uint64) (uint64, error) {
	rawHi, err := r.acc.ReadQuadlet(table + hiOff)
	if err != nil {
		return 0, err
	}
	rawLo, err := r.acc.ReadQuadlet(table + loOff)
	if err != nil {
		return 0, err
	}
	hi := endian.DeviceToHost(rawHi, r.endianness)
	lo := endian.DeviceToHost(rawLo, r.endianness)
	ptr := uint64(hi)<<32 | uint64(lo)
	if ptr == 0 {
		return 0, bus.NewInvalidAddress(table+hiOff, "null pointer")
	}
	addr := ptr
	if ptr < device.DiscoveryBase {
		addr = device.DiscoveryBase + ptr*bus.QuadletSize
	}
	if addr > bus.MaxAddress {
		return 0, bus.NewInvalidAddress(table+hiOff, fmt.Sprintf("pointer 0x%x resolves beyond 48 bits", ptr))
	}
	return addr, nil
}

func uptr(v uint64) *uint64 {
	return &v
}

// streamBases reads the TX/RX pointers at table, falling back to the fixed offsets from global
func (r *Resolver) streamBases(table, global uint64) (tx, rx *uint64) {
	if addr, err := r.ReadPointer(table, TxPtrHi, TxPtrLo); err == nil {
		tx = uptr(addr)
	} else {
		r.warn("TX pointer at 0x%012x unusable, using global base + 0x%x: %s", table, device.LegacyTxOffset, err)
		tx = uptr(global + device.LegacyTxOffset)
	}
	if addr, err := r.ReadPointer(table, RxPtrHi, RxPtrLo); err == nil {
		rx = uptr(addr)
	} else {
		r.warn("RX pointer at 0x%012x unusable, using global base + 0x%x: %s", table, device.LegacyRxOffset, err)
		rx = uptr(global + device.LegacyRxOffset)
	}
	return tx, rx
}

func configRomKey(ctx context.Context, r *Resolver) (*device.AddressDiscoveryResult, error) {
	entries := r.rom.VendorEntries()
	if len(entries) == 0 {
		return nil, ErrStrategy{What: "no vendor keys in the config ROM unit directory"}
	}
	for _, e := range entries {
		// the value is a quadlet offset from the discovery base, or failing
		// that from the unit directory itself
		offset := uint64(e.Value) * bus.QuadletSize
		for _, candidate := range []uint64{device.DiscoveryBase + offset, r.rom.Unit.Address + offset} {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if candidate > bus.MaxAddress {
				continue
			}
			if err := r.VerifyOwner(candidate); err != nil {
				r.log.Debug("Vendor key 0x%02x candidate 0x%012x rejected: %s", e.Key, candidate, err)
				continue
			}
			tx, rx := r.streamBases(candidate, candidate)
			return &device.AddressDiscoveryResult{GlobalBase: uptr(candidate), TxBase: tx, RxBase: rx}, nil
		}
	}
	return nil, ErrStrategy{What: "no vendor key candidate passed owner verification"}
}

func pointerDiscovery(ctx context.Context, r *Resolver) (*device.AddressDiscoveryResult, error) {
	global, err := r.ReadPointer(device.DiscoveryBase, GlobalPtrHi, GlobalPtrLo)
	if err != nil {
		return nil, err
	}
	if err := r.VerifyOwner(global); err != nil {
		return nil, err
	}
	result := &device.AddressDiscoveryResult{GlobalBase: uptr(global)}
	if addr, err := r.ReadPointer(device.DiscoveryBase, TxPtrHi, TxPtrLo); err == nil {
		result.TxBase = uptr(addr)
	} else {
		r.warn("TX pointer unreadable: %s", err)
	}
	if addr, err := r.ReadPointer(device.DiscoveryBase, RxPtrHi, RxPtrLo); err == nil {
		result.RxBase = uptr(addr)
	} else {
		r.warn("RX pointer unreadable: %s", err)
	}
	return result, nil
}

func legacyFallback(ctx context.Context, r *Resolver) (*device.AddressDiscoveryResult, error) {
	global := device.DiscoveryBase
	if err := r.VerifyOwner(global); err != nil {
		return nil, err
	}
	return &device.AddressDiscoveryResult{
		GlobalBase: uptr(global),
		TxBase:     uptr(global + device.LegacyTxOffset),
		RxBase:     uptr(global + device.LegacyRxOffset),
	}, nil
}
