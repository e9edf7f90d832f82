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

package eap

import (
	"errors"
	"fmt"
)

// ErrEapUnavailable returned when the EAP section table does not answer
type ErrEapUnavailable struct {
	Addr  uint64
	Cause error
}

func (e ErrEapUnavailable) Error() string {
	return fmt.Sprintf("EAP unavailable: section offset at 0x%012x: %s", e.Addr, e.Cause)
}

func (e ErrEapUnavailable) Unwrap() error {
	return e.Cause
}

// ErrEapUnsupported returned for devices known to misbehave when EAP is read
type ErrEapUnsupported struct {
	VendorID uint32
	ModelID  uint32
}

func (e ErrEapUnsupported) Error() string {
	return fmt.Sprintf("EAP not supported by vendor 0x%06x model 0x%x", e.VendorID, e.ModelID)
}

var errNoCapabilities = errors.New("capabilities not read")
