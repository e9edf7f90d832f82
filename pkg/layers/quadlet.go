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

package layers

import (
	"encoding/binary"
	"errors"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// QuadletLayerNum identifies the layer
	QuadletLayerNum = 1395
	// AddrMask keeps the 48 significant bits of a node address
	AddrMask = 0xFFFFFFFFFFFF
)

// QuadletLayer is the payload of quadlet read/write requests and responses
type QuadletLayer struct {
	layers.BaseLayer
	Addr     uint64 // 48 bits
	Value    uint32 // ignored if HasValue is false
	HasValue bool   // read requests and write responses carry no value
}

var QuadletLayerType = gopacket.RegisterLayerType(QuadletLayerNum,
	gopacket.LayerTypeMetadata{Name: "QuadletLayerType", Decoder: gopacket.DecodeFunc(DecodeQuadletLayer)})

// LayerType returns the type of the quadlet layer in the layer catalog
func (q *QuadletLayer) LayerType() gopacket.LayerType {
	return QuadletLayerType
}

// Len returns the serialized size of the layer
func (q *QuadletLayer) Len() int {
	if q.HasValue {
		return 12
	}
	return 8
}

// Serialize serializes the quadlet layer to a buffer
func (q *QuadletLayer) Serialize(buf []byte) {
	binary.BigEndian.PutUint64(buf[0:8], q.Addr&AddrMask)
	if q.HasValue {
		binary.BigEndian.PutUint32(buf[8:12], q.Value)
	}
}

// SerializeTo serializes the quadlet layer into bytes and writes the bytes to the SerializeBuffer
func (q *QuadletLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.AppendBytes(q.Len())
	if err != nil {
		return err
	}
	q.Serialize(bytes)
	return nil
}

func (q *QuadletLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < 8 {
		df.SetTruncated()
		return errors.New("Quadlet payload too short")
	}
	q.Addr = binary.BigEndian.Uint64(data[0:8]) & AddrMask
	q.HasValue = len(data) >= 12
	if q.HasValue {
		q.Value = binary.BigEndian.Uint32(data[8:12])
	}
	q.BaseLayer = layers.BaseLayer{
		Contents: data[:q.Len()],
		Payload:  []byte{},
	}
	return nil
}

func DecodeQuadletLayer(data []byte, p gopacket.PacketBuilder) error {
	q := &QuadletLayer{}
	err := q.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(q)
	return nil
}
