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

package device

// Source names where a channel count came from
type Source int

const (
	SourceNone Source = iota
	SourceNames
	SourceStreams
	SourceEap
)

var sourceNames = map[Source]string{
	SourceNone:    "none",
	SourceNames:   "names",
	SourceStreams: "streams",
	SourceEap:     "eap",
}

func (s Source) String() string {
	return sourceNames[s]
}

func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Source) UnmarshalText(text []byte) error {
	for k, v := range sourceNames {
		if v == string(text) {
			*s = k
			return nil
		}
	}
	*s = SourceNone
	return nil
}

// SourceCounts are the channel counts one source reports.
// Names fill the mono/stereo fields, streams and EAP fill the audio/midi fields.
type SourceCounts struct {
	MonoOutputs       uint32 `json:"mono_outputs,omitempty"`
	MonoInputs        uint32 `json:"mono_inputs,omitempty"`
	StereoOutputPairs uint32 `json:"stereo_output_pairs,omitempty"`
	StereoInputPairs  uint32 `json:"stereo_input_pairs,omitempty"`
	AudioOutputs      uint32 `json:"audio_outputs,omitempty"`
	AudioInputs       uint32 `json:"audio_inputs,omitempty"`
	MidiOutputs       uint32 `json:"midi_outputs,omitempty"`
	MidiInputs        uint32 `json:"midi_inputs,omitempty"`
	TotalOutputs      uint32 `json:"total_outputs"`
	TotalInputs       uint32 `json:"total_inputs"`
}

// HasData reports whether the source saw any channel at all
func (c SourceCounts) HasData() bool {
	return c.TotalOutputs > 0 || c.TotalInputs > 0
}

type ChannelCatalog struct {
	FromNames      SourceCounts `json:"from_names"`
	FromStreams    SourceCounts `json:"from_streams"`
	FromEap        SourceCounts `json:"from_eap"`
	Final          SourceCounts `json:"final"`
	OutputSource   Source       `json:"output_source"`
	InputSource    Source       `json:"input_source"`
	HasDiscrepancy bool         `json:"has_discrepancy"`
	NamesAddress   *uint64      `json:"names_address,omitempty"`
	OutputNames    []string     `json:"output_names,omitempty"`
	InputNames     []string     `json:"input_names,omitempty"`
}

// FinalSources names the source of the final counts, outputs/inputs when they differ
func (c *ChannelCatalog) FinalSources() string {
	if c.OutputSource == c.InputSource {
		return c.OutputSource.String()
	}
	return c.OutputSource.String() + "/" + c.InputSource.String()
}

// MaxReasonableChannels is the total above which a count is reported as implausible
const MaxReasonableChannels = 128
