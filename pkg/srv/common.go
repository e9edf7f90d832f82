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

package srv

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/google/gopacket"

	"jinr.ru/greenlab/go-dice/pkg/config"
)

type InPacket struct {
	Data []byte
	gopacket.CaptureInfo
}

type OutPacket struct {
	Data []byte
	*net.UDPAddr
}

// GetAddrPort returns the UDPAddr of the peer that sent the packet
func GetAddrPort(packet gopacket.Packet) (*net.UDPAddr, error) {
	meta := packet.Metadata()
	if len(meta.CaptureInfo.AncillaryData) >= 1 {
		ancillary := meta.CaptureInfo.AncillaryData[0]
		udpAddr, ok := ancillary.(*net.UDPAddr)
		if !ok {
			return nil, ErrGetAddr{}
		}
		return udpAddr, nil
	}
	return nil, ErrGetAddr{}
}

// Server is the common part of the UDP servers. Captured datagrams go through
// ChIn and are decoded by a gopacket packet source reading from the server.
type Server struct {
	context.Context
	*config.Config
	*net.UDPAddr
	ChIn  chan InPacket
	ChOut chan OutPacket
}

// ReadPacketData reads the ChIn channel and returns packet data and metadata.
// This method is from PacketDataSource interface. io.EOF ends the packet source
// once the server context is done.
func (s *Server) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	select {
	case p := <-s.ChIn:
		return p.Data, p.CaptureInfo, nil
	case <-s.Context.Done():
		return nil, gopacket.CaptureInfo{}, io.EOF
	}
}

// Capture reads datagrams from conn into ChIn until the connection fails
func (s *Server) Capture(conn *net.UDPConn, errChan chan<- error) {
	buffer := make([]byte, 65536)
	for {
		length, udpAddr, err := conn.ReadFromUDP(buffer)
		if err != nil {
			errChan <- err
			return
		}
		captureInfo := gopacket.CaptureInfo{
			Length:        length,
			CaptureLength: length,
			Timestamp:     time.Now(),
			AncillaryData: []interface{}{udpAddr},
		}
		packet := InPacket{CaptureInfo: captureInfo, Data: make([]byte, length)}
		copy(packet.Data, buffer[:length])
		select {
		case s.ChIn <- packet:
		case <-s.Context.Done():
			return
		}
	}
}

// Send writes everything from ChOut to conn
func (s *Server) Send(conn *net.UDPConn, errChan chan<- error) {
	for {
		select {
		case p := <-s.ChOut:
			if _, err := conn.WriteToUDP(p.Data, p.UDPAddr); err != nil {
				errChan <- err
				return
			}
		case <-s.Context.Done():
			return
		}
	}
}

func Now() uint64 {
	return uint64(time.Now().UnixNano()) * uint64(time.Nanosecond) / uint64(time.Millisecond)
}
