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

package stream

import (
	"fmt"

	"jinr.ru/greenlab/go-dice/pkg/device"
)

// ErrNoStreamBase returned when the base of a stream section was not resolved
type ErrNoStreamBase struct {
	Direction device.Direction
}

func (e ErrNoStreamBase) Error() string {
	return fmt.Sprintf("No %s stream base", e.Direction)
}
