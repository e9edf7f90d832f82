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

// Package reg reads the register catalog of a device and decodes its bitfields.
package reg

import (
	"context"
	"strings"

	"jinr.ru/greenlab/go-dice/pkg/bus"
	"jinr.ru/greenlab/go-dice/pkg/device"
	"jinr.ru/greenlab/go-dice/pkg/endian"
	"jinr.ru/greenlab/go-dice/pkg/log"
)

// clock source names are separated by a backslash and the list ends with two
const nameSeparator = "\\"

type Reader struct {
	acc    *bus.Accessor
	dev    *device.DiscoveredDevice
	log    *log.DeviceLogger
	global uint64
}

func NewReader(acc *bus.Accessor, dev *device.DiscoveredDevice, logger *log.DeviceLogger) (*Reader, error) {
	if dev.Addresses == nil || dev.Addresses.GlobalBase == nil {
		return nil, ErrNoGlobalBase{GUID: dev.Identity.GUID}
	}
	return &Reader{
		acc:    acc,
		dev:    dev,
		log:    logger,
		global: *dev.Addresses.GlobalBase,
	}, nil
}

// Address returns where the register lives on this device
func (r *Reader) Address(alias device.RegAlias) uint64 {
	return device.RegMap[alias].Address(r.global)
}

// Read reads one catalog entry. Every quadlet that answered is stored in the
// register map even when a later quadlet of the same entry failed.
func (r *Reader) Read(alias device.RegAlias) ([]uint32, error) {
	reg, ok := device.RegMap[alias]
	if !ok {
		return nil, ErrUnknownRegister{Alias: alias}
	}
	addr := reg.Address(r.global)
	values, err := r.acc.ReadQuadlets(addr, reg.Quadlets)
	for i, v := range values {
		r.dev.Registers[addr+uint64(i*bus.QuadletSize)] = v
	}
	if err != nil {
		return nil, err
	}
	return values, nil
}

// ReadAll reads every catalog entry. A failed read is logged and leaves its
// decoded fields unset, it does not stop the others.
func (r *Reader) ReadAll(ctx context.Context) error {
	failed := 0
	for alias := device.RegOwner; alias < device.RegAliasLimit; alias++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		raws, err := r.Read(alias)
		if err != nil {
			failed++
			r.log.Debug("Register %s at 0x%012x: %s", device.RegMap[alias].Name, r.Address(alias), err)
			continue
		}
		r.decode(alias, raws)
	}
	if failed > 0 {
		r.log.Info("Register catalog: %d of %d registers unreadable", failed, int(device.RegAliasLimit))
	}
	return nil
}

func u32(v uint32) *uint32 {
	return &v
}

func flag(v bool) *bool {
	return &v
}

func text(s string) *string {
	return &s
}

func (r *Reader) decode(alias device.RegAlias, raws []uint32) {
	e := r.dev.Endianness
	v := endian.DeviceToHost(raws[0], e)
	g := &r.dev.Global
	s := &r.dev.Subsystem

	switch alias {
	case device.RegOwner:
		g.Owner = u32(v)
		r.log.Debug("Owner: %d (%s)", v, device.OwnerName(v))
	case device.RegNotification:
		g.Notification = u32(v)
	case device.RegNickname:
		g.Nickname = text(strings.TrimSpace(endian.DecodeText(raws, e)))
	case device.RegClockSelect:
		g.ClockSelect = u32(v)
		source := device.FieldClockSource.Get(v)
		g.ClockSource = u32(source)
		g.ClockSourceName = text(device.ClockSourceName(source))
		code := device.FieldRateCode.Get(v)
		g.RateCode = u32(code)
		if hz, ok := device.RateHz(code); ok {
			g.RateHz = u32(hz)
		}
	case device.RegEnable:
		g.Enabled = flag(device.FieldEnable.Get(v) != 0)
	case device.RegStatus:
		g.Status = u32(v)
		g.Locked = flag(device.FieldStatusLocked.Get(v) != 0)
	case device.RegExtStatus:
		g.ExtStatus = u32(v)
	case device.RegSampleRate:
		g.SampleRate = u32(v)
	case device.RegVersion:
		g.Version = u32(v)
	case device.RegClockCaps:
		g.ClockCaps = u32(v)
	case device.RegClockSourceNames:
		g.ClockSourceNames = splitNames(endian.DecodeText(raws, e))
	case device.RegGpcsrAudioSelect:
		s.AudioSelect = u32(v)
	case device.RegGpcsrChipID:
		s.ChipID = u32(device.FieldChipID.Get(v))
		chip := device.ChipTypeFromCode(device.FieldChipType.Get(v))
		s.ChipType = &chip
		if r.dev.ChipType == device.ChipUnknown {
			r.dev.ChipType = chip
		}
	case device.RegClockSyncCtrl:
		s.ClockSyncSource = u32(device.FieldSyncSource.Get(v))
	case device.RegClockDomainCtrl:
		mode := device.RateModeFromCode(device.FieldDomainRate.Get(v))
		s.ClockRateMode = &mode
	case device.RegAesRxStatAll:
		s.AesLocked = flag(device.FieldAesLock.Get(v) != 0)
	case device.RegMixerNumOfCh:
		s.MixerChannels = u32(device.FieldMixerChannels.Get(v))
	case device.RegAvsRxCfg0:
		s.AvsRxChannelID = u32(device.FieldAvsRxChannelID.Get(v))
	case device.RegAvsRxCfg1:
		s.AvsRxDBS = u32(device.FieldAvsRxDBS.Get(v))
	case device.RegAvsTxCfg:
		s.AvsTxDBS = u32(device.FieldAvsTxDBS.Get(v))
		s.AvsTxSysMode = u32(device.FieldAvsTxSysMode.Get(v))
	}
}

func splitNames(s string) []string {
	var names []string
	for _, name := range strings.Split(s, nameSeparator) {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
