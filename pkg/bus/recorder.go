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
	"sync"
)

// Recorder passes transactions through to a transport and keeps every quadlet
// it successfully read. Replaying the image on a SimTransport reproduces the session.
type Recorder struct {
	Transport
	mu  sync.Mutex
	img *Image
}

func NewRecorder(t Transport, guid uint64) *Recorder {
	return &Recorder{
		Transport: t,
		img:       NewImage(guid),
	}
}

func (r *Recorder) ReadQuadlet(addr uint64) (uint32, error) {
	v, err := r.Transport.ReadQuadlet(addr)
	if err != nil {
		return v, err
	}
	r.mu.Lock()
	r.img.Set(addr, v)
	r.mu.Unlock()
	return v, nil
}

func (r *Recorder) ReadBlock(addr uint64, length int) ([]byte, error) {
	data, err := r.Transport.ReadBlock(addr, length)
	if err != nil {
		return data, err
	}
	r.mu.Lock()
	for i := 0; i+QuadletSize <= len(data); i += QuadletSize {
		r.img.Set(addr+uint64(i), binary.BigEndian.Uint32(data[i:i+QuadletSize]))
	}
	r.mu.Unlock()
	return data, nil
}

// Image returns what was recorded so far
func (r *Recorder) Image() *Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.img.Generation = r.Transport.BusGeneration()
	return r.img
}
