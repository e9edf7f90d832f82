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
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/gopacket"

	"jinr.ru/greenlab/go-dice/pkg/layers"
	"jinr.ru/greenlab/go-dice/pkg/log"
)

const (
	DefaultTimeout = 500 * time.Millisecond
	DefaultRetries = 2
)

// UDPTransport reaches a node through a bus bridge speaking the bridge
// frame protocol over UDP. One transaction is in flight at a time.
type UDPTransport struct {
	mu         sync.Mutex
	conn       *net.UDPConn
	node       uint16
	tlabel     uint8
	generation uint32
	Timeout    time.Duration
	Retries    int
	buffer     []byte
}

var _ Transport = &UDPTransport{}

// DialUDP connects to the bridge and fetches the current bus generation
func DialUDP(address string, node uint16) (*UDPTransport, error) {
	log.Debug("Dialing bus bridge: %s node: 0x%04x", address, node)
	uaddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, uaddr)
	if err != nil {
		return nil, err
	}
	t := &UDPTransport{
		conn:    conn,
		node:    node,
		Timeout: DefaultTimeout,
		Retries: DefaultRetries,
		buffer:  make([]byte, layers.BridgeMaxFrameSize),
	}
	if _, err := t.Status(); err != nil {
		conn.Close()
		return nil, err
	}
	return t, nil
}

func (t *UDPTransport) Close() error {
	return t.conn.Close()
}

// Status asks the bridge for the current bus generation
func (t *UDPTransport) Status() (uint32, error) {
	frame, err := t.transact(0, layers.TCodeStatus, nil)
	if err != nil {
		return 0, err
	}
	return frame.Generation, nil
}

func (t *UDPTransport) BusGeneration() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generation
}

func (t *UDPTransport) ReadQuadlet(addr uint64) (uint32, error) {
	frame, err := t.transact(addr, layers.TCodeReadQuadletRequest, &layers.QuadletLayer{Addr: addr})
	if err != nil {
		return 0, err
	}
	if frame.Quadlet == nil || !frame.Quadlet.HasValue {
		return 0, BusError{Addr: addr, RCode: RCodeData}
	}
	return frame.Quadlet.Value, nil
}

func (t *UDPTransport) ReadBlock(addr uint64, length int) ([]byte, error) {
	if length <= 0 || length > MaxBlockSize {
		return nil, fmt.Errorf("Wrong block length: %d", length)
	}
	frame, err := t.transact(addr, layers.TCodeReadBlockRequest,
		&layers.BlockLayer{Addr: addr, Length: uint16(length)})
	if err != nil {
		return nil, err
	}
	if frame.Block == nil {
		return nil, BusError{Addr: addr, RCode: RCodeData}
	}
	return frame.Block.Data, nil
}

func (t *UDPTransport) WriteQuadlet(addr uint64, value uint32) error {
	_, err := t.transact(addr, layers.TCodeWriteQuadletRequest,
		&layers.QuadletLayer{Addr: addr, Value: value, HasValue: true})
	return err
}

// transact sends one request and waits for the response with the same label.
// Stale responses from earlier timed out attempts are dropped.
func (t *UDPTransport) transact(addr uint64, tcode layers.TCode, payload gopacket.SerializableLayer) (*layers.Frame, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt <= t.Retries; attempt++ {
		t.tlabel = (t.tlabel + 1) & 0x3F
		data, err := layers.SerializeFrame(layers.BridgeHeader{
			TCode:      tcode,
			TLabel:     t.tlabel,
			Generation: t.generation,
			Node:       t.node,
		}, payload)
		if err != nil {
			return nil, err
		}
		if _, err := t.conn.Write(data); err != nil {
			return nil, err
		}
		frame, err := t.receive(addr, tcode.Response(), t.tlabel)
		if err == nil {
			return frame, nil
		}
		lastErr = err
		var noResp ErrNoResponse
		if !errors.As(err, &noResp) {
			return nil, err
		}
		log.Debug("Bridge transaction timed out: addr: 0x%012x attempt: %d", addr, attempt)
	}
	return nil, lastErr
}

func (t *UDPTransport) receive(addr uint64, want layers.TCode, tlabel uint8) (*layers.Frame, error) {
	deadline := time.Now().Add(t.Timeout)
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	for {
		length, err := t.conn.Read(t.buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil, ErrNoResponse{Addr: addr, What: "timeout"}
			}
			return nil, err
		}
		frame, err := layers.DecodeFrame(t.buffer[:length])
		if err != nil {
			log.Debug("Drop bridge frame: %s", err)
			continue
		}
		if frame.TLabel != tlabel || frame.TCode != want {
			log.Debug("Drop bridge frame: tcode: %s tlabel: %d", frame.TCode, frame.TLabel)
			continue
		}
		t.generation = frame.Generation
		if RCode(frame.RCode) != RCodeComplete {
			return nil, BusError{Addr: addr, RCode: RCode(frame.RCode)}
		}
		return frame, nil
	}
}
