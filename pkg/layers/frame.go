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
	"fmt"

	"github.com/google/gopacket"
)

// Frame is a decoded bridge frame. Payload is a *QuadletLayer, a *BlockLayer or nil.
type Frame struct {
	*BridgeLayer
	Quadlet *QuadletLayer
	Block   *BlockLayer
}

// SerializeFrame builds a bridge frame around the payload layer
func SerializeFrame(hdr BridgeHeader, payload gopacket.SerializableLayer) ([]byte, error) {
	hdr.Sync = BridgeSync
	bl := &BridgeLayer{BridgeHeader: hdr}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	var err error
	if payload == nil {
		err = gopacket.SerializeLayers(buf, opts, bl)
	} else {
		err = gopacket.SerializeLayers(buf, opts, bl, payload)
	}
	if err != nil {
		return nil, err
	}
	if len(buf.Bytes()) > BridgeMaxFrameSize {
		return nil, fmt.Errorf("Bridge frame too long: %d bytes", len(buf.Bytes()))
	}
	return buf.Bytes(), nil
}

// DecodeFrame decodes a bridge frame received from the wire
func DecodeFrame(data []byte) (*Frame, error) {
	packet := gopacket.NewPacket(data, BridgeLayerType, gopacket.Default)
	return FrameFromPacket(packet)
}

// FrameFromPacket extracts the bridge layers from an already decoded packet
func FrameFromPacket(packet gopacket.Packet) (*Frame, error) {
	if errLayer := packet.ErrorLayer(); errLayer != nil {
		return nil, errLayer.Error()
	}
	layer := packet.Layer(BridgeLayerType)
	if layer == nil {
		return nil, fmt.Errorf("Not a bridge frame")
	}
	frame := &Frame{BridgeLayer: layer.(*BridgeLayer)}
	if q := packet.Layer(QuadletLayerType); q != nil {
		frame.Quadlet = q.(*QuadletLayer)
	}
	if b := packet.Layer(BlockLayerType); b != nil {
		frame.Block = b.(*BlockLayer)
	}
	return frame, nil
}
