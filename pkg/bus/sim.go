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
	"encoding/binary"
	"sort"
	"sync"
)

// SimTransport serves a register image from memory. Addresses missing from
// the image answer with an address error. Individual addresses can be made
// to fail or to panic, and every read is counted.
type SimTransport struct {
	mu         sync.Mutex
	image      *Image
	failing    map[uint64]RCode
	panicking  map[uint64]bool
	reads      map[uint64]int
	generation uint32
}

var _ Transport = &SimTransport{}

func NewSimTransport(img *Image) *SimTransport {
	if img.Quadlets == nil {
		img.Quadlets = map[uint64]uint32{}
	}
	return &SimTransport{
		image:      img,
		failing:    map[uint64]RCode{},
		panicking:  map[uint64]bool{},
		reads:      map[uint64]int{},
		generation: img.Generation,
	}
}

// Fail makes reads of addr answer with rcode
func (s *SimTransport) Fail(addr uint64, rcode RCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[addr] = rcode
}

// Panic makes reads of addr panic inside the transport
func (s *SimTransport) Panic(addr uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panicking[addr] = true
}

// BusReset bumps the bus generation
func (s *SimTransport) BusReset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

func (s *SimTransport) BusGeneration() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// ReadCount returns how many times addr was read
func (s *SimTransport) ReadCount(addr uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[addr]
}

// ReadAddresses returns every address read so far in ascending order
func (s *SimTransport) ReadAddresses() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	addrs := make([]uint64, 0, len(s.reads))
	for addr := range s.reads {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// ResetCounters forgets the read history
func (s *SimTransport) ResetCounters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads = map[uint64]int{}
}

func (s *SimTransport) Image() *Image {
	return s.image
}

func (s *SimTransport) readLocked(addr uint64) (uint32, error) {
	s.reads[addr]++
	if s.panicking[addr] {
		panic("simulated hardware fault")
	}
	if rcode, ok := s.failing[addr]; ok {
		return 0, BusError{Addr: addr, RCode: rcode}
	}
	value, ok := s.image.Quadlets[addr]
	if !ok {
		return 0, BusError{Addr: addr, RCode: RCodeAddress}
	}
	return value, nil
}

func (s *SimTransport) ReadQuadlet(addr uint64) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(addr)
}

func (s *SimTransport) ReadBlock(addr uint64, length int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := addr &^ (QuadletSize - 1)
	skip := int(addr - start)
	data := make([]byte, 0, length+2*QuadletSize)
	for q := start; len(data) < skip+length; q += QuadletSize {
		value, err := s.readLocked(q)
		if err != nil {
			return nil, err
		}
		data = binary.BigEndian.AppendUint32(data, value)
	}
	return data[skip : skip+length], nil
}

func (s *SimTransport) WriteQuadlet(addr uint64, value uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rcode, ok := s.failing[addr]; ok {
		return BusError{Addr: addr, RCode: rcode}
	}
	s.image.Quadlets[addr] = value
	return nil
}
