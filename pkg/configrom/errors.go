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

package configrom

import (
	"fmt"
)

// ErrDirectory returned when a directory of the configuration ROM can not be parsed
type ErrDirectory struct {
	Addr uint64
	What string
}

func (e ErrDirectory) Error() string {
	return fmt.Sprintf("Wrong config ROM directory at 0x%012x: %s", e.Addr, e.What)
}
