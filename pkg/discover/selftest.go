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
	"fmt"

	"jinr.ru/greenlab/go-dice/pkg/bus"
	"jinr.ru/greenlab/go-dice/pkg/device"
	"jinr.ru/greenlab/go-dice/pkg/log"
)

const (
	SectionCore      = "core"
	SectionEap       = "eap"
	SectionSubsystem = "subsystem"
)

type check struct {
	name string
	addr uint64
}

// SelfTest reads a battery of registers that should answer on a device with the
// given bases and reports how many did. It is advisory and never changes the result.
func SelfTest(acc *bus.Accessor, result *device.AddressDiscoveryResult, logger *log.DeviceLogger) *device.SelfTestReport {
	report := &device.SelfTestReport{}
	if result == nil || result.GlobalBase == nil {
		return report
	}
	global := *result.GlobalBase

	core := []check{{"owner", global}}
	if result.TxBase != nil {
		core = append(core, check{"tx_size", *result.TxBase + device.TxStreamRegs[device.StreamRegSize]})
	}
	if result.RxBase != nil {
		core = append(core, check{"rx_size", *result.RxBase + device.RxStreamRegs[device.StreamRegSize]})
	}

	eapBase := device.DiscoveryBase + device.EapOffset
	eap := []check{}
	for i, name := range []string{"capability", "command", "mixer", "peak", "new_routing",
		"new_stream_cfg", "current_cfg", "standalone", "application"} {
		eap = append(eap, check{name + "_offset", eapBase + uint64(i)*8})
	}

	subsystem := []check{
		{"gpcsr_chip_id", device.RegMap[device.RegGpcsrChipID].Address(global)},
		{"clock_sync_ctrl", device.RegMap[device.RegClockSyncCtrl].Address(global)},
		{"avs_rx_cfg0", device.RegMap[device.RegAvsRxCfg0].Address(global)},
	}

	for _, group := range []struct {
		name   string
		checks []check
	}{
		{SectionCore, core},
		{SectionEap, eap},
		{SectionSubsystem, subsystem},
	} {
		section := &device.SelfTestSection{Name: group.name}
		for _, c := range group.checks {
			section.Attempted++
			if _, err := acc.ReadQuadlet(c.addr); err != nil {
				section.Failed = append(section.Failed, fmt.Sprintf("%s@0x%012x", c.name, c.addr))
				continue
			}
			section.Succeeded++
		}
		logger.Info("Self test %s: %d/%d (%.0f%%)", section.Name, section.Succeeded, section.Attempted, section.Percent())
		report.Sections = append(report.Sections, section)
	}
	return report
}
