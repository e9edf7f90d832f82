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
	"fmt"
)

// ErrPattern returned when a channel pattern does not compile
type ErrPattern struct {
	Name  string
	Cause error
}

func (e ErrPattern) Error() string {
	return fmt.Sprintf("Wrong channel pattern %s: %s", e.Name, e.Cause)
}

type ErrPatternFile struct {
	Path  string
	Cause error
}

func (e ErrPatternFile) Error() string {
	return fmt.Sprintf("Can not load channel patterns from %s: %s", e.Path, e.Cause)
}

func (e ErrPatternFile) Unwrap() error {
	return e.Cause
}
