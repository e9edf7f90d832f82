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
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// BlockLayerNum identifies the layer
	BlockLayerNum = 1396
	// BlockHeaderSize address (8 bytes) + length (2 bytes) + padding (2 bytes)
	BlockHeaderSize = 12
)

// BlockLayer is the payload of block read requests and responses
type BlockLayer struct {
	layers.BaseLayer
	Addr   uint64 // 48 bits
	Length uint16 // requested length in bytes
	Data   []byte // empty for requests
}

var BlockLayerType = gopacket.RegisterLayerType(BlockLayerNum,
	gopacket.LayerTypeMetadata{Name: "BlockLayerType", Decoder: gopacket.DecodeFunc(DecodeBlockLayer)})

// LayerType returns the type of the block layer in the layer catalog
func (bl *BlockLayer) LayerType() gopacket.LayerType {
	return BlockLayerType
}

// Serialize serializes the block layer to a buffer of BlockHeaderSize + len(Data) bytes
func (bl *BlockLayer) Serialize(buf []byte) {
	binary.BigEndian.PutUint64(buf[0:8], bl.Addr&AddrMask)
	binary.BigEndian.PutUint16(buf[8:10], bl.Length)
	binary.BigEndian.PutUint16(buf[10:12], 0)
	copy(buf[BlockHeaderSize:], bl.Data)
}

// SerializeTo serializes the block layer into bytes and writes the bytes to the SerializeBuffer
func (bl *BlockLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.AppendBytes(BlockHeaderSize + len(bl.Data))
	if err != nil {
		return err
	}
	bl.Serialize(bytes)
	return nil
}

func (bl *BlockLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < BlockHeaderSize {
		df.SetTruncated()
		return errors.New("Block payload too short")
	}
	bl.Addr = binary.BigEndian.Uint64(data[0:8]) & AddrMask
	bl.Length = binary.BigEndian.Uint16(data[8:10])
	rest := data[BlockHeaderSize:]
	if len(rest) > 0 && len(rest) < int(bl.Length) {
		df.SetTruncated()
		return fmt.Errorf("Block data truncated: want %d bytes, got %d", bl.Length, len(rest))
	}
	bl.Data = nil
	if len(rest) > 0 {
		bl.Data = make([]byte, bl.Length)
		copy(bl.Data, rest)
	}
	bl.BaseLayer = layers.BaseLayer{
		Contents: data[:BlockHeaderSize+len(bl.Data)],
		Payload:  []byte{},
	}
	return nil
}

func DecodeBlockLayer(data []byte, p gopacket.PacketBuilder) error {
	bl := &BlockLayer{}
	err := bl.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(bl)
	return nil
}
