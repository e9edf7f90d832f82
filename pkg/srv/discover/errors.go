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

package discover

import (
	"fmt"
)

type ErrDeviceNotFound struct {
	GUID uint64
}

func (e ErrDeviceNotFound) Error() string {
	return fmt.Sprintf("Device not found: %016x", e.GUID)
}

// ErrScanInProgress returned when a scan is requested while another one runs
type ErrScanInProgress struct {
	RunID string
}

func (e ErrScanInProgress) Error() string {
	return fmt.Sprintf("Scan %s is in progress", e.RunID)
}
