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

	"jinr.ru/greenlab/go-dice/pkg/log"
)

func init() {
	initUnknownTCodes()
	initActualTCodes()
}

const (
	// BridgeLayerNum identifies the layer
	BridgeLayerNum = 1394
	// BridgeSync is a magic number that appears in the beginning of each bridge frame
	BridgeSync = 0x1394
	// BridgeHeaderSize is the size of the bridge frame header in bytes
	BridgeHeaderSize = 16
	// BridgeMaxFrameSize is the max size of a bridge frame including header
	BridgeMaxFrameSize = 4096
	// BridgePort is the default UDP port of the bus bridge
	BridgePort = 13940
)

// TCode is the transaction code of an asynchronous bus transaction
type TCode uint8

const (
	TCodeWriteQuadletRequest TCode = 0x0
	TCodeWriteResponse       TCode = 0x2
	TCodeReadQuadletRequest  TCode = 0x4
	TCodeReadBlockRequest    TCode = 0x5
	TCodeReadQuadletResponse TCode = 0x6
	TCodeReadBlockResponse   TCode = 0x7
	// TCodeStatus is local to the bridge, it carries the bus generation only
	TCodeStatus TCode = 0xF
)

type errorDecoderForTCode int

func (e *errorDecoderForTCode) Decode(data []byte, p gopacket.PacketBuilder) error {
	return e
}

func (e *errorDecoderForTCode) Error() string {
	return fmt.Sprintf("Unable to decode tcode %d", int(*e))
}

var errorDecodersForTCode [16]errorDecoderForTCode
var TCodeMetadata [16]layers.EnumMetadata

func initUnknownTCodes() {
	for i := 0; i < 16; i++ {
		errorDecodersForTCode[i] = errorDecoderForTCode(i)
		TCodeMetadata[i] = layers.EnumMetadata{
			DecodeWith: &errorDecodersForTCode[i],
			Name:       "UnknownTCode",
		}
	}
}

func initActualTCodes() {
	quadlet := gopacket.DecodeFunc(DecodeQuadletLayer)
	block := gopacket.DecodeFunc(DecodeBlockLayer)
	TCodeMetadata[TCodeWriteQuadletRequest] = layers.EnumMetadata{DecodeWith: quadlet, Name: "WriteQuadletRequest", LayerType: QuadletLayerType}
	TCodeMetadata[TCodeWriteResponse] = layers.EnumMetadata{DecodeWith: quadlet, Name: "WriteResponse", LayerType: QuadletLayerType}
	TCodeMetadata[TCodeReadQuadletRequest] = layers.EnumMetadata{DecodeWith: quadlet, Name: "ReadQuadletRequest", LayerType: QuadletLayerType}
	TCodeMetadata[TCodeReadQuadletResponse] = layers.EnumMetadata{DecodeWith: quadlet, Name: "ReadQuadletResponse", LayerType: QuadletLayerType}
	TCodeMetadata[TCodeReadBlockRequest] = layers.EnumMetadata{DecodeWith: block, Name: "ReadBlockRequest", LayerType: BlockLayerType}
	TCodeMetadata[TCodeReadBlockResponse] = layers.EnumMetadata{DecodeWith: block, Name: "ReadBlockResponse", LayerType: BlockLayerType}
	TCodeMetadata[TCodeStatus] = layers.EnumMetadata{DecodeWith: gopacket.DecodePayload, Name: "Status", LayerType: gopacket.LayerTypePayload}
}

// LayerType returns TCodeMetadata.LayerType
func (t TCode) LayerType() gopacket.LayerType {
	return TCodeMetadata[t&0xF].LayerType
}

// Decode calls TCodeMetadata.DecodeWith's decoder
func (t TCode) Decode(data []byte, p gopacket.PacketBuilder) error {
	return TCodeMetadata[t&0xF].DecodeWith.Decode(data, p)
}

// String returns TCodeMetadata.Name
func (t TCode) String() string {
	return TCodeMetadata[t&0xF].Name
}

// IsResponse reports whether the transaction code is a response
func (t TCode) IsResponse() bool {
	switch t {
	case TCodeWriteResponse, TCodeReadQuadletResponse, TCodeReadBlockResponse:
		return true
	}
	return false
}

// Response returns the response code matching a request code
func (t TCode) Response() TCode {
	switch t {
	case TCodeWriteQuadletRequest:
		return TCodeWriteResponse
	case TCodeReadQuadletRequest:
		return TCodeReadQuadletResponse
	case TCodeReadBlockRequest:
		return TCodeReadBlockResponse
	}
	return t
}

type BridgeHeader struct {
	Sync       uint16
	TCode      TCode
	TLabel     uint8 // transaction label, matches responses to requests
	Generation uint32
	Node       uint16
	RCode      uint8
	Len        uint16 // length of the payload in bytes NOT including the header
}

type BridgeLayer struct {
	layers.BaseLayer
	BridgeHeader
}

var BridgeLayerType = gopacket.RegisterLayerType(BridgeLayerNum,
	gopacket.LayerTypeMetadata{Name: "BridgeLayerType", Decoder: gopacket.DecodeFunc(decodeBridgeLayer)})

func (bl *BridgeLayer) LayerType() gopacket.LayerType {
	return BridgeLayerType
}

// SerializeHeader serializes the bridge header to a buffer
func (bl *BridgeLayer) SerializeHeader(buf []byte) {
	binary.BigEndian.PutUint16(buf[0:2], bl.Sync)
	buf[2] = uint8(bl.TCode)
	buf[3] = bl.TLabel
	binary.BigEndian.PutUint32(buf[4:8], bl.Generation)
	binary.BigEndian.PutUint16(buf[8:10], bl.Node)
	buf[10] = bl.RCode
	buf[11] = 0
	binary.BigEndian.PutUint16(buf[12:14], bl.Len)
	binary.BigEndian.PutUint16(buf[14:16], 0)
}

// SerializeTo prepends the header to whatever the payload layers already wrote.
// Len is taken from the buffer when FixLengths is set.
func (bl *BridgeLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	payloadLen := len(b.Bytes())
	headerBytes, err := b.PrependBytes(BridgeHeaderSize)
	if err != nil {
		return err
	}
	if opts.FixLengths {
		bl.Len = uint16(payloadLen)
	}
	bl.SerializeHeader(headerBytes)
	return nil
}

// DecodeFromBytes attempts to decode the byte slice as a bridge frame
func (bl *BridgeLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < BridgeHeaderSize {
		df.SetTruncated()
		return errors.New("Bridge frame too short")
	}
	if binary.BigEndian.Uint16(data[0:2]) != BridgeSync {
		log.Debug("Bridge sync is invalid")
		return fmt.Errorf("Wrong bridge sync. Must be 0x%04x", BridgeSync)
	}
	bl.Sync = binary.BigEndian.Uint16(data[0:2])
	bl.TCode = TCode(data[2] & 0xF)
	bl.TLabel = data[3]
	bl.Generation = binary.BigEndian.Uint32(data[4:8])
	bl.Node = binary.BigEndian.Uint16(data[8:10])
	bl.RCode = data[10]
	bl.Len = binary.BigEndian.Uint16(data[12:14])
	end := BridgeHeaderSize + int(bl.Len)
	if end > len(data) {
		df.SetTruncated()
		return fmt.Errorf("Bridge frame truncated: header says %d payload bytes, got %d", bl.Len, len(data)-BridgeHeaderSize)
	}
	bl.BaseLayer = layers.BaseLayer{
		Contents: data[:BridgeHeaderSize],
		Payload:  data[BridgeHeaderSize:end],
	}
	return nil
}

func (bl *BridgeLayer) NextLayerType() gopacket.LayerType {
	return bl.TCode.LayerType()
}

func decodeBridgeLayer(data []byte, p gopacket.PacketBuilder) error {
	bl := &BridgeLayer{}
	err := bl.DecodeFromBytes(data, p)
	if err != nil {
		log.Error("Error while decoding bridge layer: %s", err)
		return err
	}
	p.AddLayer(bl)
	if len(bl.Payload) == 0 {
		return nil
	}
	return p.NextDecoder(bl.TCode)
}
