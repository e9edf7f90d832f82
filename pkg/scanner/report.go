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

package scanner

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"jinr.ru/greenlab/go-dice/pkg/device"
	"jinr.ru/greenlab/go-dice/pkg/discover"
)

func hex(p *uint32) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("0x%06x", *p)
}

func num(p *uint32) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *p)
}

func base(p *uint64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("0x%012x [%s]", *p, discover.Region(*p))
}

func writeStreams(w io.Writer, topo *device.StreamTopology) {
	confirmed := ""
	if topo.Confirmed {
		confirmed = " (confirmed)"
	}
	eap := ""
	if topo.EapCount != nil {
		eap = fmt.Sprintf(", EAP %d", *topo.EapCount)
	}
	fmt.Fprintf(w, "%s streams: reported %d, found %d%s%s\n", strings.ToUpper(topo.Direction.String()), topo.Reported, topo.Count, confirmed, eap)
	for _, s := range topo.ValidStreams() {
		names := "-"
		if s.NamesAddress != nil {
			names = fmt.Sprintf("0x%012x", *s.NamesAddress)
		}
		fmt.Fprintf(w, "  #%d iso %s audio %s midi %s names %s\n", s.Index, num(s.IsoChannel), num(s.AudioChannels), num(s.MidiPorts), names)
	}
}

// Report renders the scan result for people
func Report(dev *device.DiscoveredDevice) string {
	b := &strings.Builder{}
	id := dev.Identity
	fmt.Fprintf(b, "Device %016x %q vendor %s model %s\n", id.GUID, id.Name, hex(id.VendorID), hex(id.ModelID))
	if id.Vendor != "" {
		fmt.Fprintf(b, "Vendor: %s\n", id.Vendor)
	}
	fmt.Fprintf(b, "Chip: %s  Byte order: %s\n", dev.ChipType, dev.Endianness)

	if a := dev.Addresses; a != nil {
		fmt.Fprintf(b, "Bases by %s (verified: %t)\n", a.Method, a.Verified)
		fmt.Fprintf(b, "  global %s\n  tx     %s\n  rx     %s\n", base(a.GlobalBase), base(a.TxBase), base(a.RxBase))
	} else {
		fmt.Fprintf(b, "Bases: not found\n")
	}
	if dev.SelfTest != nil {
		for _, s := range dev.SelfTest.Sections {
			fmt.Fprintf(b, "Self-test %s: %d/%d (%.1f%%)\n", s.Name, s.Succeeded, s.Attempted, s.Percent())
		}
	}

	g := dev.Global
	if g.RateHz != nil || g.ClockSourceName != nil {
		source := "-"
		if g.ClockSourceName != nil {
			source = *g.ClockSourceName
		}
		locked := g.Locked != nil && *g.Locked
		fmt.Fprintf(b, "Clock: %s Hz source %s locked %t\n", num(g.RateHz), source, locked)
	}

	writeStreams(b, &dev.Tx)
	writeStreams(b, &dev.Rx)

	if cfg := dev.EAP; cfg != nil {
		fmt.Fprintf(b, "EAP at 0x%012x, rate domain %s\n", cfg.Base, cfg.RateDomain)
		if sc := cfg.Current(); sc != nil {
			fmt.Fprintf(b, "  tx %d rx %d\n", sc.TxCount, sc.RxCount)
		}
	}

	cat := dev.Channels
	fmt.Fprintf(b, "Channels:\n")
	tw := tabwriter.NewWriter(b, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "  source\toutputs\tinputs\tmono out/in\tstereo pairs out/in\n")
	fmt.Fprintf(tw, "  names\t%d\t%d\t%d/%d\t%d/%d\n", cat.FromNames.TotalOutputs, cat.FromNames.TotalInputs,
		cat.FromNames.MonoOutputs, cat.FromNames.MonoInputs, cat.FromNames.StereoOutputPairs, cat.FromNames.StereoInputPairs)
	fmt.Fprintf(tw, "  streams\t%d\t%d\t\t\n", cat.FromStreams.TotalOutputs, cat.FromStreams.TotalInputs)
	fmt.Fprintf(tw, "  eap\t%d\t%d\t\t\n", cat.FromEap.TotalOutputs, cat.FromEap.TotalInputs)
	fmt.Fprintf(tw, "  final (%s)\t%d\t%d\t\t\n", cat.FinalSources(), cat.Final.TotalOutputs, cat.Final.TotalInputs)
	tw.Flush()
	fmt.Fprintf(b, "  discrepancy: %t\n", cat.HasDiscrepancy)
	if cat.NamesAddress != nil {
		fmt.Fprintf(b, "  names at 0x%012x\n", *cat.NamesAddress)
	}
	if len(cat.OutputNames) > 0 {
		fmt.Fprintf(b, "  outputs: %s\n", strings.Join(cat.OutputNames, ", "))
	}
	if len(cat.InputNames) > 0 {
		fmt.Fprintf(b, "  inputs: %s\n", strings.Join(cat.InputNames, ", "))
	}

	if len(dev.Warnings) > 0 {
		fmt.Fprintf(b, "Warnings:\n")
		for _, w := range dev.Warnings {
			fmt.Fprintf(b, "  - %s\n", w)
		}
	}
	return b.String()
}

// Summary is a one line view of a result
func Summary(r Result) string {
	if r.Device == nil {
		return fmt.Sprintf("%s: %s", r.Target, r.Error)
	}
	cat := r.Device.Channels
	status := "ok"
	if r.Error != "" {
		status = r.Error
	} else if cat.HasDiscrepancy {
		status = "discrepancy"
	}
	return fmt.Sprintf("%s: %016x %s out %d in %d (%s) %s", r.Target, r.Device.Identity.GUID,
		r.Device.ChipType, cat.Final.TotalOutputs, cat.Final.TotalInputs, cat.FinalSources(), status)
}
