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

package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/google/gopacket"

	"jinr.ru/greenlab/go-dice/pkg/bus"
	"jinr.ru/greenlab/go-dice/pkg/config"
	"jinr.ru/greenlab/go-dice/pkg/layers"
	"jinr.ru/greenlab/go-dice/pkg/log"
	"jinr.ru/greenlab/go-dice/pkg/srv"
)

// BridgeServer exposes a transport over the bridge frame protocol. Requests are
// served one at a time in the order they arrive.
type BridgeServer struct {
	srv.Server
	transport bus.Transport
	conn      *net.UDPConn
}

func NewBridgeServer(ctx context.Context, cfg *config.Config, t bus.Transport) (*BridgeServer, error) {
	log.Info("Initializing bridge server with address: %s", cfg.BridgeAddr())
	uaddr, err := net.ResolveUDPAddr("udp", cfg.BridgeAddr())
	if err != nil {
		return nil, err
	}
	return &BridgeServer{
		Server: srv.Server{
			Context: ctx,
			Config:  cfg,
			UDPAddr: uaddr,
			ChIn:    make(chan srv.InPacket),
			ChOut:   make(chan srv.OutPacket),
		},
		transport: t,
	}, nil
}

// Listen binds the UDP socket. Run calls it when it was not called before.
func (s *BridgeServer) Listen() (*net.UDPAddr, error) {
	conn, err := net.ListenUDP("udp", s.UDPAddr)
	if err != nil {
		return nil, err
	}
	s.conn = conn
	return conn.LocalAddr().(*net.UDPAddr), nil
}

func (s *BridgeServer) Run() error {
	if s.conn == nil {
		if _, err := s.Listen(); err != nil {
			return err
		}
	}
	defer s.conn.Close()
	log.Info("Bridge server listening on %s", s.conn.LocalAddr())

	errChan := make(chan error, 2)
	go s.Capture(s.conn, errChan)
	go s.Send(s.conn, errChan)

	// Decode captured frames and answer them from the transport
	go func() {
		source := gopacket.NewPacketSource(&s.Server, layers.BridgeLayerType)
		for packet := range source.Packets() {
			udpAddr, err := srv.GetAddrPort(packet)
			if err != nil {
				log.Error("%s", err)
				continue
			}
			req, err := layers.FrameFromPacket(packet)
			if err != nil {
				log.Debug("Drop frame from %s: %s", udpAddr, err)
				continue
			}
			data, err := s.Handle(req)
			if err != nil {
				log.Error("Can not answer %s from %s: %s", req.TCode, udpAddr, err)
				continue
			}
			select {
			case s.ChOut <- srv.OutPacket{Data: data, UDPAddr: udpAddr}:
			case <-s.Context.Done():
				return
			}
		}
	}()

	select {
	case <-s.Context.Done():
		return s.Context.Err()
	case err := <-errChan:
		return err
	}
}

func rcode(err error) bus.RCode {
	var busErr bus.BusError
	if errors.As(err, &busErr) {
		return busErr.RCode
	}
	var regErr bus.RegisterError
	if errors.As(err, &regErr) && regErr.Code != bus.RCodeComplete {
		return regErr.Code
	}
	return bus.RCodeUnknown
}

// safe turns a transport panic into an error so one bad request does not
// take the server down
func safe(addr uint64, f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = bus.RegisterError{Kind: bus.ReadFault, Addr: addr, Code: bus.RCodeData, Cause: fmt.Errorf("%v", r)}
		}
	}()
	return f()
}

// Handle serves one request frame and returns the serialized response
func (s *BridgeServer) Handle(req *layers.Frame) ([]byte, error) {
	hdr := req.BridgeHeader
	hdr.TCode = req.TCode.Response()
	hdr.RCode = uint8(bus.RCodeComplete)
	var payload gopacket.SerializableLayer

	fail := func(err error) {
		log.Debug("Bridge %s failed: %s", req.TCode, err)
		hdr.RCode = uint8(rcode(err))
	}

	switch req.TCode {
	case layers.TCodeStatus:
	case layers.TCodeReadQuadletRequest:
		if req.Quadlet == nil {
			return nil, ErrBadRequest{TCode: req.TCode}
		}
		addr := req.Quadlet.Addr
		var v uint32
		err := safe(addr, func() (err error) {
			v, err = s.transport.ReadQuadlet(addr)
			return err
		})
		if err != nil {
			fail(err)
		}
		payload = &layers.QuadletLayer{Addr: addr, Value: v, HasValue: err == nil}
	case layers.TCodeReadBlockRequest:
		if req.Block == nil {
			return nil, ErrBadRequest{TCode: req.TCode}
		}
		addr := req.Block.Addr
		var data []byte
		err := safe(addr, func() (err error) {
			data, err = s.transport.ReadBlock(addr, int(req.Block.Length))
			return err
		})
		if err != nil {
			fail(err)
			data = nil
		}
		payload = &layers.BlockLayer{Addr: addr, Length: req.Block.Length, Data: data}
	case layers.TCodeWriteQuadletRequest:
		if req.Quadlet == nil || !req.Quadlet.HasValue {
			return nil, ErrBadRequest{TCode: req.TCode}
		}
		addr := req.Quadlet.Addr
		if err := safe(addr, func() error { return s.transport.WriteQuadlet(addr, req.Quadlet.Value) }); err != nil {
			fail(err)
		}
		payload = &layers.QuadletLayer{Addr: addr}
	default:
		return nil, ErrBadRequest{TCode: req.TCode}
	}
	hdr.Generation = s.transport.BusGeneration()
	return layers.SerializeFrame(hdr, payload)
}
