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
)

// ErrStage wraps the error that ended a scan with the stage it came from
type ErrStage struct {
	Stage string
	Cause error
}

func (e ErrStage) Error() string {
	return fmt.Sprintf("Scan stopped at %s: %s", e.Stage, e.Cause)
}

func (e ErrStage) Unwrap() error {
	return e.Cause
}

type ErrTarget struct {
	Name  string
	Cause error
}

func (e ErrTarget) Error() string {
	return fmt.Sprintf("Can not open device %s: %s", e.Name, e.Cause)
}

func (e ErrTarget) Unwrap() error {
	return e.Cause
}
