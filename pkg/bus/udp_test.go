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
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-dice/pkg/layers"
)

// serveBridge answers bridge frames from sim until the connection is closed
func serveBridge(t *testing.T, conn *net.UDPConn, sim *SimTransport) {
	buffer := make([]byte, layers.BridgeMaxFrameSize)
	for {
		length, addr, err := conn.ReadFromUDP(buffer)
		if err != nil {
			return
		}
		req, err := layers.DecodeFrame(buffer[:length])
		if err != nil {
			continue
		}
		hdr := req.BridgeHeader
		hdr.TCode = req.TCode.Response()
		hdr.Generation = sim.BusGeneration()
		var payload gopacket.SerializableLayer
		switch req.TCode {
		case layers.TCodeReadQuadletRequest:
			v, rerr := sim.ReadQuadlet(req.Quadlet.Addr)
			if rerr != nil {
				hdr.RCode = uint8(RCodeAddress)
			}
			payload = &layers.QuadletLayer{Addr: req.Quadlet.Addr, Value: v, HasValue: rerr == nil}
		case layers.TCodeReadBlockRequest:
			data, rerr := sim.ReadBlock(req.Block.Addr, int(req.Block.Length))
			if rerr != nil {
				hdr.RCode = uint8(RCodeAddress)
			}
			payload = &layers.BlockLayer{Addr: req.Block.Addr, Length: req.Block.Length, Data: data}
		case layers.TCodeWriteQuadletRequest:
			_ = sim.WriteQuadlet(req.Quadlet.Addr, req.Quadlet.Value)
			payload = &layers.QuadletLayer{Addr: req.Quadlet.Addr}
		}
		data, err := layers.SerializeFrame(hdr, payload)
		require.NoError(t, err)
		_, _ = conn.WriteToUDP(data, addr)
	}
}

func TestUDPTransport(t *testing.T) {
	sim := newTestSim()
	sim.BusReset()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer conn.Close()
	go serveBridge(t, conn, sim)

	tr, err := DialUDP(conn.LocalAddr().String(), 0xffc0)
	require.NoError(t, err)
	defer tr.Close()
	assert.Equal(t, uint32(1), tr.BusGeneration())

	acc := NewAccessor(tr)
	v, err := acc.ReadQuadlet(testBase)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), v)

	data, err := acc.ReadBlock(testBase+0x34, 8)
	require.NoError(t, err)
	assert.Equal(t, "DICE Jr\x00", string(data))

	require.NoError(t, acc.WriteQuadlet(testBase+0x4c, 7))
	assert.Equal(t, uint32(7), sim.Image().Quadlets[testBase+0x4c])

	_, err = acc.ReadQuadlet(testBase + 0x200)
	assert.True(t, IsKind(err, BusFailure))
}

func TestUDPTransportTimeout(t *testing.T) {
	// a bound socket nobody answers on
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer conn.Close()

	tr := &UDPTransport{Timeout: 20 * time.Millisecond, buffer: make([]byte, layers.BridgeMaxFrameSize)}
	tr.conn, err = net.DialUDP("udp", nil, conn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer tr.Close()

	_, err = NewAccessor(tr).ReadQuadlet(testBase)
	assert.True(t, IsKind(err, Unreachable))
}
