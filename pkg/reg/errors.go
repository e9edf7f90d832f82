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

package reg

import (
	"fmt"

	"jinr.ru/greenlab/go-dice/pkg/device"
)

// ErrNoGlobalBase returned when the catalog is read before the global base is known
type ErrNoGlobalBase struct {
	GUID uint64
}

func (e ErrNoGlobalBase) Error() string {
	return fmt.Sprintf("Global base of device %016x is not resolved", e.GUID)
}

type ErrUnknownRegister struct {
	Alias device.RegAlias
}

func (e ErrUnknownRegister) Error() string {
	return fmt.Sprintf("Unknown register alias: %d", e.Alias)
}
