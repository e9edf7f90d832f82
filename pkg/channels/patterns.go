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
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-dice/pkg/device"
)

// Labels end at whitespace, at the backslash separating names in a name
// table, or at the end of the text.
const (
	DefaultMonoOutput   = `\b(?:OUT|OUTPUT)[\s\-_]*(?:CH)?(\d+)(?:[\s\\]|$)`
	DefaultMonoInput    = `\b(?:IN|INPUT)[\s\-_]*(?:CH)?(\d+)(?:[\s\\]|$)`
	DefaultStereoOutput = `\b(?:OUT|OUTPUT)[\s\-_]*(?:ST|STEREO)[\s\-_]*(?:CH)?(\d+)([LR])(?:[\s\\]|$)`
	DefaultStereoInput  = `\b(?:IN|INPUT)[\s\-_]*(?:ST|STEREO)[\s\-_]*(?:CH)?(\d+)([LR])(?:[\s\\]|$)`
	DefaultDetect       = `\b(?:OUT|OUTPUT|IN|INPUT)[\s\-_]*(?:ST|STEREO)?[\s\-_]*(?:CH)?\d+[LR]?`
)

// PatternTable holds the channel label heuristics. The first capture group of
// every pattern except DetectPattern is the channel index.
type PatternTable struct {
	MonoOutput    string `json:"mono_output"`
	MonoInput     string `json:"mono_input"`
	StereoOutput  string `json:"stereo_output"`
	StereoInput   string `json:"stereo_input"`
	DetectPattern string `json:"detect"`

	monoOutput   *regexp.Regexp
	monoInput    *regexp.Regexp
	stereoOutput *regexp.Regexp
	stereoInput  *regexp.Regexp
	detect       *regexp.Regexp
}

func DefaultPatterns() *PatternTable {
	t := &PatternTable{
		MonoOutput:    DefaultMonoOutput,
		MonoInput:     DefaultMonoInput,
		StereoOutput:  DefaultStereoOutput,
		StereoInput:   DefaultStereoInput,
		DetectPattern: DefaultDetect,
	}
	if err := t.Compile(); err != nil {
		panic(err)
	}
	return t
}

// LoadPatterns reads a pattern table from a YAML file.
// Patterns missing from the file keep their defaults.
func LoadPatterns(path string) (*PatternTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrPatternFile{Path: path, Cause: err}
	}
	t := DefaultPatterns()
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, ErrPatternFile{Path: path, Cause: err}
	}
	if err := t.Compile(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *PatternTable) Compile() error {
	for _, p := range []struct {
		name string
		expr string
		re   **regexp.Regexp
	}{
		{"mono_output", t.MonoOutput, &t.monoOutput},
		{"mono_input", t.MonoInput, &t.monoInput},
		{"stereo_output", t.StereoOutput, &t.stereoOutput},
		{"stereo_input", t.StereoInput, &t.stereoInput},
		{"detect", t.DetectPattern, &t.detect},
	} {
		re, err := regexp.Compile(p.expr)
		if err != nil {
			return ErrPattern{Name: p.name, Cause: err}
		}
		*p.re = re
	}
	return nil
}

// Matches is a set of channel labels and the set of their indices
type Matches struct {
	Names   map[string]bool
	Indices map[int]bool
}

func newMatches() Matches {
	return Matches{Names: map[string]bool{}, Indices: map[int]bool{}}
}

// SortedNames returns the distinct labels in order
func (m Matches) SortedNames() []string {
	names := make([]string, 0, len(m.Names))
	for name := range m.Names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m Matches) SortedIndices() []int {
	indices := make([]int, 0, len(m.Indices))
	for i := range m.Indices {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

type PatternResults struct {
	Outputs       Matches
	Inputs        Matches
	StereoOutputs Matches
	StereoInputs  Matches
}

func NewPatternResults() *PatternResults {
	return &PatternResults{
		Outputs:       newMatches(),
		Inputs:        newMatches(),
		StereoOutputs: newMatches(),
		StereoInputs:  newMatches(),
	}
}

// collect adds every match of re in text. The label runs from the start of
// the match to the end of its last capture group.
func collect(re *regexp.Regexp, text string, m Matches) {
	for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
		if len(loc) < 4 || loc[2] < 0 {
			continue
		}
		end := loc[len(loc)-1]
		if end < 0 {
			end = loc[3]
		}
		index, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		m.Names[text[loc[0]:end]] = true
		m.Indices[index] = true
	}
}

// FindChannelPatterns collects mono output and input labels
func (t *PatternTable) FindChannelPatterns(text string, res *PatternResults) {
	collect(t.monoOutput, text, res.Outputs)
	collect(t.monoInput, text, res.Inputs)
}

// FindStereoChannelPatterns collects stereo pair members, L and R share an index
func (t *PatternTable) FindStereoChannelPatterns(text string, res *PatternResults) {
	collect(t.stereoOutput, text, res.StereoOutputs)
	collect(t.stereoInput, text, res.StereoInputs)
}

// Detect reports whether text holds anything that looks like a channel label
func (t *PatternTable) Detect(text string) bool {
	return t.detect.MatchString(text)
}

// JoinText concatenates the matched text the patterns run on
func JoinText(matches []device.StringMatch) string {
	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		texts = append(texts, m.Text)
	}
	return strings.Join(texts, " ")
}

// Analyze classifies the labels found in the extracted strings
func (t *PatternTable) Analyze(matches []device.StringMatch) *PatternResults {
	text := JoinText(matches)
	res := NewPatternResults()
	t.FindChannelPatterns(text, res)
	t.FindStereoChannelPatterns(text, res)
	return res
}

// Counts turns the label sets into the names source counts
func (r *PatternResults) Counts() device.SourceCounts {
	c := device.SourceCounts{
		MonoOutputs:       uint32(len(r.Outputs.Names)),
		MonoInputs:        uint32(len(r.Inputs.Names)),
		StereoOutputPairs: uint32(len(r.StereoOutputs.Indices)),
		StereoInputPairs:  uint32(len(r.StereoInputs.Indices)),
	}
	c.TotalOutputs = c.MonoOutputs + c.StereoOutputPairs
	c.TotalInputs = c.MonoInputs + c.StereoInputPairs
	return c
}
