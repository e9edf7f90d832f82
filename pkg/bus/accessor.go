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

package bus

import (
	"fmt"
)

// Accessor wraps a Transport with fault containment and a uniform RegisterError result.
// It keeps no state besides the bus generation it was opened on and never retries.
type Accessor struct {
	transport  Transport
	generation uint32
	// known is false while the transport has not answered a generation query
	known bool
}

// NewAccessor opens an accessor on the current bus generation of the transport.
// When the generation query faults, the first later answer is adopted.
func NewAccessor(t Transport) *Accessor {
	a := &Accessor{transport: t}
	if gen, err := a.queryGeneration(0); err == nil {
		a.generation = gen
		a.known = true
	}
	return a
}

func (a *Accessor) Transport() Transport {
	return a.transport
}

func (a *Accessor) Generation() uint32 {
	return a.generation
}

// queryGeneration asks the transport for the bus generation with the same
// fault containment as a read
func (a *Accessor) queryGeneration(addr uint64) (gen uint32, err error) {
	defer func() {
		if r := recover(); r != nil {
			gen = 0
			err = faultError(addr, r)
		}
	}()
	return a.transport.BusGeneration(), nil
}

func (a *Accessor) checkGeneration(addr uint64) error {
	current, err := a.queryGeneration(addr)
	if err != nil {
		return err
	}
	if !a.known {
		a.generation = current
		a.known = true
		return nil
	}
	if current != a.generation {
		return RegisterError{
			Kind:  Unreachable,
			Addr:  addr,
			Code:  RCodeBusReset,
			Cause: fmt.Errorf("bus generation changed from %d to %d", a.generation, current),
		}
	}
	return nil
}

func checkQuadletAddr(addr uint64) error {
	if addr > MaxAddress-QuadletSize+1 {
		return NewInvalidAddress(addr, "address beyond 48-bit space")
	}
	if addr%QuadletSize != 0 {
		return NewInvalidAddress(addr, "address is not quadlet aligned")
	}
	return nil
}

func faultError(addr uint64, r interface{}) error {
	return RegisterError{Kind: ReadFault, Addr: addr, Cause: fmt.Errorf("transport fault: %v", r)}
}

// ReadQuadlet reads one raw quadlet. A panic raised by the transport is
// trapped here and returned as ReadFault.
func (a *Accessor) ReadQuadlet(addr uint64) (value uint32, err error) {
	if err = checkQuadletAddr(addr); err != nil {
		return 0, err
	}
	if err = a.checkGeneration(addr); err != nil {
		return 0, err
	}
	defer func() {
		if r := recover(); r != nil {
			value = 0
			err = faultError(addr, r)
		}
	}()
	value, err = a.transport.ReadQuadlet(addr)
	if err != nil {
		return 0, classify(addr, err)
	}
	return value, nil
}

// ReadBlock reads length bytes starting at addr
func (a *Accessor) ReadBlock(addr uint64, length int) (data []byte, err error) {
	if length <= 0 || length > MaxBlockSize {
		return nil, RegisterError{
			Kind:  SizeOutOfRange,
			Addr:  addr,
			Cause: fmt.Errorf("block length %d outside 1..%d", length, MaxBlockSize),
		}
	}
	if addr > MaxAddress || MaxAddress-addr < uint64(length-1) {
		return nil, NewInvalidAddress(addr, "block crosses the end of 48-bit space")
	}
	if err = a.checkGeneration(addr); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			data = nil
			err = faultError(addr, r)
		}
	}()
	data, err = a.transport.ReadBlock(addr, length)
	if err != nil {
		return nil, classify(addr, err)
	}
	if len(data) != length {
		return nil, RegisterError{
			Kind:  BusFailure,
			Addr:  addr,
			Code:  RCodeData,
			Cause: fmt.Errorf("short block: got %d bytes, want %d", len(data), length),
		}
	}
	return data, nil
}

// ReadQuadlets reads count consecutive quadlets one at a time and stops at the
// first failure. The quadlets read before the failure are returned with the error.
func (a *Accessor) ReadQuadlets(addr uint64, count int) ([]uint32, error) {
	values := make([]uint32, 0, count)
	for i := 0; i < count; i++ {
		v, err := a.ReadQuadlet(addr + uint64(i*QuadletSize))
		if err != nil {
			return values, err
		}
		values = append(values, v)
	}
	return values, nil
}

// WriteQuadlet is a passthrough; faults are contained the same way as reads
func (a *Accessor) WriteQuadlet(addr uint64, value uint32) (err error) {
	if err = checkQuadletAddr(addr); err != nil {
		return err
	}
	if err = a.checkGeneration(addr); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = faultError(addr, r)
		}
	}()
	if err = a.transport.WriteQuadlet(addr, value); err != nil {
		return classify(addr, err)
	}
	return nil
}
