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
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"jinr.ru/greenlab/go-dice/pkg/bus"
	"jinr.ru/greenlab/go-dice/pkg/discover"
	"jinr.ru/greenlab/go-dice/pkg/endian"
	"jinr.ru/greenlab/go-dice/pkg/scanner"
)

const (
	ShellPrompt  = "dice> "
	MaxShellRead = 256 // quadlets
)

// Shell is an interactive register console over one transport session
type Shell struct {
	t     bus.Transport
	acc   *bus.Accessor
	guid  uint64
	opts  scanner.Options
	order endian.Endianness
	out   io.Writer
	rl    *readline.Instance
}

func newShell(t bus.Transport, guid uint64, opts scanner.Options, out io.Writer) *Shell {
	return &Shell{
		t:     t,
		acc:   bus.NewAccessor(t),
		guid:  guid,
		opts:  opts,
		order: endian.Big,
		out:   out,
	}
}

func NewShell(t bus.Transport, guid uint64, opts scanner.Options) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ShellPrompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	s := newShell(t, guid, opts, rl.Stdout())
	s.rl = rl
	return s, nil
}

// Run reads commands until quit, EOF or ctx is done
func (s *Shell) Run(ctx context.Context) {
	defer s.rl.Close()
	s.printHelp()
	for ctx.Err() == nil {
		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			return
		}
		if quit := s.Exec(ctx, line); quit {
			return
		}
	}
}

func parseAddr(s string) (uint64, error) {
	addr, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, err
	}
	if addr > bus.MaxAddress {
		return 0, bus.NewInvalidAddress(addr, "beyond the node address space")
	}
	return addr, nil
}

// Exec runs one command line and reports whether the shell should exit
func (s *Shell) Exec(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	var err error
	switch args := parts[1:]; strings.ToLower(parts[0]) {
	case "help", "?":
		s.printHelp()
	case "read", "r":
		err = s.cmdRead(args)
	case "write", "w":
		err = s.cmdWrite(args)
	case "endian":
		err = s.cmdEndian(args)
	case "region":
		err = s.cmdRegion(args)
	case "scan":
		err = s.cmdScan(ctx)
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", parts[0])
	}
	if err != nil {
		fmt.Fprintf(s.out, "Error: %s\n", err)
	}
	return false
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `Commands:
  read <addr> [count]  - read quadlets
  write <addr> <value> - write a quadlet
  endian big|little    - byte order used to show values and text
  region <addr>        - name the register block an address belongs to
  scan                 - discover the device and print the report
  quit                 - leave the shell`)
}

func (s *Shell) cmdRead(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: read <addr> [count]")
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	count := 1
	if len(args) == 2 {
		if count, err = strconv.Atoi(args[1]); err != nil {
			return err
		}
		if count < 1 || count > MaxShellRead {
			return fmt.Errorf("count must be within 1..%d", MaxShellRead)
		}
	}
	values, err := s.acc.ReadQuadlets(addr, count)
	for i, raw := range values {
		a := addr + uint64(i*bus.QuadletSize)
		text := endian.Text(raw, s.order)
		fmt.Fprintf(s.out, "0x%012x  0x%08x  %-9s %q\n", a, endian.DeviceToHost(raw, s.order), discover.Region(a), printable(text))
	}
	return err
}

func printable(b [4]byte) string {
	out := make([]byte, 0, 4)
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			c = '.'
		}
		out = append(out, c)
	}
	return string(out)
}

func (s *Shell) cmdWrite(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: write <addr> <value>")
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	value, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return err
	}
	if err := s.acc.WriteQuadlet(addr, endian.HostToDevice(uint32(value), s.order)); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "0x%012x  0x%08x  written\n", addr, value)
	return nil
}

func (s *Shell) cmdEndian(args []string) error {
	if len(args) != 1 {
		fmt.Fprintf(s.out, "Byte order: %s\n", s.order)
		return nil
	}
	var order endian.Endianness
	order.UnmarshalText([]byte(args[0]))
	if order == endian.Unknown {
		return fmt.Errorf("unknown byte order %q", args[0])
	}
	s.order = order
	return nil
}

func (s *Shell) cmdRegion(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: region <addr>")
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "0x%012x  %s\n", addr, discover.Region(addr))
	return nil
}

// cmdScan runs discovery on the session and adopts the byte order it inferred
func (s *Shell) cmdScan(ctx context.Context) error {
	dev, err := scanner.Scan(ctx, s.t, s.guid, s.opts)
	fmt.Fprint(s.out, scanner.Report(dev))
	if dev.Endianness != endian.Unknown {
		s.order = dev.Endianness
	}
	return err
}
