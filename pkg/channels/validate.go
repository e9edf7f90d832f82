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
	"jinr.ru/greenlab/go-dice/pkg/device"
)

const (
	maxStreamAudio = 32
	maxStreamMidi  = 16
)

// StreamCounts sums the audio and MIDI channels of the valid streams.
// Values outside 1..32 audio and 0..16 MIDI are left out.
func StreamCounts(dev *device.DiscoveredDevice) device.SourceCounts {
	var c device.SourceCounts
	sum := func(topo *device.StreamTopology, audio, midi *uint32) {
		for _, s := range topo.ValidStreams() {
			if s.AudioChannels != nil && *s.AudioChannels > 0 && *s.AudioChannels <= maxStreamAudio {
				*audio += *s.AudioChannels
			}
			if s.MidiPorts != nil && *s.MidiPorts <= maxStreamMidi {
				*midi += *s.MidiPorts
			}
		}
	}
	sum(&dev.Tx, &c.AudioOutputs, &c.MidiOutputs)
	sum(&dev.Rx, &c.AudioInputs, &c.MidiInputs)
	c.TotalOutputs = c.AudioOutputs + c.MidiOutputs
	c.TotalInputs = c.AudioInputs + c.MidiInputs
	return c
}

// EapCounts sums the stream entries of the selected rate domain
func EapCounts(cfg *device.EapConfig) device.SourceCounts {
	var c device.SourceCounts
	sc := cfg.Current()
	if sc == nil {
		return c
	}
	for _, e := range sc.Tx {
		c.AudioOutputs += e.AudioChannels
		c.MidiOutputs += e.MidiPorts
	}
	for _, e := range sc.Rx {
		c.AudioInputs += e.AudioChannels
		c.MidiInputs += e.MidiPorts
	}
	c.TotalOutputs = c.AudioOutputs + c.MidiOutputs
	c.TotalInputs = c.AudioInputs + c.MidiInputs
	return c
}

type candidate struct {
	source device.Source
	total  uint32
}

// reconcile picks the first nonzero total in priority order and reports
// whether any two nonzero totals disagree.
func reconcile(candidates []candidate) (uint32, device.Source, bool) {
	var present []candidate
	for _, c := range candidates {
		if c.total > 0 {
			present = append(present, c)
		}
	}
	if len(present) == 0 {
		return 0, device.SourceNone, false
	}
	mismatch := false
	for i := 0; i < len(present); i++ {
		for j := i + 1; j < len(present); j++ {
			if present[i].total != present[j].total {
				mismatch = true
			}
		}
	}
	return present[0].total, present[0].source, mismatch
}

// Validate reconciles the three sources of the catalog for outputs and inputs
// independently. The final count comes from EAP, then streams, then names.
func Validate(cat *device.ChannelCatalog) *device.ChannelCatalog {
	outputs, outSource, outMismatch := reconcile([]candidate{
		{device.SourceEap, cat.FromEap.TotalOutputs},
		{device.SourceStreams, cat.FromStreams.TotalOutputs},
		{device.SourceNames, cat.FromNames.TotalOutputs},
	})
	inputs, inSource, inMismatch := reconcile([]candidate{
		{device.SourceEap, cat.FromEap.TotalInputs},
		{device.SourceStreams, cat.FromStreams.TotalInputs},
		{device.SourceNames, cat.FromNames.TotalInputs},
	})
	cat.Final = device.SourceCounts{TotalOutputs: outputs, TotalInputs: inputs}
	cat.HasDiscrepancy = outMismatch || inMismatch
	cat.OutputSource = outSource
	cat.InputSource = inSource
	return cat
}

// Reconcile fills the stream and EAP counts of the device catalog and validates it
func Reconcile(dev *device.DiscoveredDevice) *device.ChannelCatalog {
	cat := &dev.Channels
	cat.FromStreams = StreamCounts(dev)
	cat.FromEap = EapCounts(dev.EAP)
	Validate(cat)
	if cat.HasDiscrepancy {
		dev.Warn("Channel counts disagree: names %d/%d, streams %d/%d, EAP %d/%d (outputs/inputs)",
			cat.FromNames.TotalOutputs, cat.FromNames.TotalInputs,
			cat.FromStreams.TotalOutputs, cat.FromStreams.TotalInputs,
			cat.FromEap.TotalOutputs, cat.FromEap.TotalInputs)
	}
	if total := cat.Final.TotalOutputs + cat.Final.TotalInputs; total > device.MaxReasonableChannels {
		dev.Warn("Final channel count %d exceeds %d", total, device.MaxReasonableChannels)
	}
	return cat
}
