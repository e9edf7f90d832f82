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

// SelfTestSection is one group of the advisory register checks run after base discovery
type SelfTestSection struct {
	Name      string   `json:"name"`
	Attempted int      `json:"attempted"`
	Succeeded int      `json:"succeeded"`
	Failed    []string `json:"failed,omitempty"`
}

func (s *SelfTestSection) Percent() float64 {
	if s.Attempted == 0 {
		return 0
	}
	return float64(s.Succeeded) * 100 / float64(s.Attempted)
}

type SelfTestReport struct {
	Sections []*SelfTestSection `json:"sections"`
}

func (r *SelfTestReport) Section(name string) *SelfTestSection {
	for _, s := range r.Sections {
		if s.Name == name {
			return s
		}
	}
	return nil
}
