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

package scanner

import (
	"context"
	"errors"

	"jinr.ru/greenlab/go-dice/pkg/bus"
	"jinr.ru/greenlab/go-dice/pkg/channels"
	"jinr.ru/greenlab/go-dice/pkg/configrom"
	"jinr.ru/greenlab/go-dice/pkg/device"
	"jinr.ru/greenlab/go-dice/pkg/discover"
	"jinr.ru/greenlab/go-dice/pkg/eap"
	"jinr.ru/greenlab/go-dice/pkg/endian"
	"jinr.ru/greenlab/go-dice/pkg/log"
	"jinr.ru/greenlab/go-dice/pkg/reg"
	"jinr.ru/greenlab/go-dice/pkg/stream"
)

const (
	StageConfigRom  = "config_rom"
	StageEndianness = "endianness"
	StageBases      = "bases"
	StageSelfTest   = "self_test"
	StageRegisters  = "registers"
	StageStreams    = "streams"
	StageEap        = "eap"
	StageChannels   = "channels"
	StageValidate   = "validate"
)

// Stage is one step of the scan. An error ends the scan.
type Stage struct {
	Name string
	Run  func(c *Context) error
}

// Pipeline runs in order, no stage looks at what a later one produces
var Pipeline = []Stage{
	{StageConfigRom, readConfigRom},
	{StageEndianness, inferEndianness},
	{StageBases, resolveBases},
	{StageSelfTest, selfTest},
	{StageRegisters, readRegisters},
	{StageStreams, probeStreams},
	{StageEap, readEap},
	{StageChannels, extractChannels},
	{StageValidate, validateChannels},
}

// Scan runs the pipeline against one device. The device is returned even
// when a stage stopped the scan, with everything learned up to that point.
func Scan(ctx context.Context, t bus.Transport, guid uint64, opts Options) (*device.DiscoveredDevice, error) {
	c := NewContext(ctx, t, guid, opts)
	for _, stage := range Pipeline {
		if err := ctx.Err(); err != nil {
			return c.Dev, ErrStage{Stage: stage.Name, Cause: err}
		}
		c.Log.Debug("Stage %s", stage.Name)
		if err := stage.Run(c); err != nil {
			c.Log.Error("Stage %s failed: %s", stage.Name, err)
			return c.Dev, ErrStage{Stage: stage.Name, Cause: err}
		}
	}
	c.Log.Info("Scan complete: %d outputs, %d inputs from %s",
		c.Dev.Channels.Final.TotalOutputs, c.Dev.Channels.Final.TotalInputs, c.Dev.Channels.FinalSources())
	return c.Dev, nil
}

func readConfigRom(c *Context) error {
	rom, err := configrom.Read(c.Acc)
	if err != nil {
		c.Log.Info("Config ROM unreadable: %s", err)
		return nil
	}
	c.ROM = rom
	id := &c.Dev.Identity
	if rom.GUID != nil && id.GUID == 0 {
		id.GUID = *rom.GUID
		c.Log = log.Device(id.GUID)
	}
	id.VendorID = rom.VendorID
	id.ModelID = rom.ModelID
	return nil
}

func inferEndianness(c *Context) error {
	c.Dev.Endianness = endian.Infer(c.Acc, c.ROM)
	return nil
}

// resolveBases is a hard stop when no strategy finds the global base. A stream
// section the strategy left out is placed at its legacy offset from the global base.
func resolveBases(c *Context) error {
	r := discover.NewResolver(c.Acc, c.Dev.Endianness, c.ROM, c.Log)
	result, err := r.Resolve(c)
	for _, w := range r.Warnings {
		c.Dev.Warn("%s", w)
	}
	if err != nil {
		return err
	}
	global := *result.GlobalBase
	if result.TxBase == nil {
		tx := global + device.Tx.LegacyOffset()
		result.TxBase = &tx
		c.warn("TX base unknown, using legacy offset: 0x%012x", tx)
	}
	if result.RxBase == nil {
		rx := global + device.Rx.LegacyOffset()
		result.RxBase = &rx
		c.warn("RX base unknown, using legacy offset: 0x%012x", rx)
	}
	c.Dev.Addresses = result
	return nil
}

func selfTest(c *Context) error {
	c.Dev.SelfTest = discover.SelfTest(c.Acc, c.Dev.Addresses, c.Log)
	if layout, err := discover.ReadLayout(c.Acc, c.Dev.Endianness, device.DiscoveryBase); err == nil {
		c.Dev.Layout = layout
	}
	return nil
}

func readRegisters(c *Context) error {
	r, err := reg.NewReader(c.Acc, c.Dev, c.Log)
	if err != nil {
		return err
	}
	if err := r.ReadAll(c); err != nil {
		return err
	}
	if c.Dev.Identity.Name == "" && c.Dev.Global.Nickname != nil {
		c.Dev.Identity.Name = *c.Dev.Global.Nickname
	}
	return nil
}

func probeStreams(c *Context) error {
	p := stream.NewProber(c.Acc, c.Dev, c.Log)
	p.ProbeCap = c.ProbeCap
	p.FailureLimit = c.FailureLimit
	return p.ProbeAll(c)
}

// readEap leaves the EAP section out when the device does not answer it. The
// rest of the scan goes on without it.
func readEap(c *Context) error {
	err := eap.NewReader(c.Acc, c.Dev, c.Log, c.RateDomain).Read(c)
	if err == nil {
		return nil
	}
	if ctxErr := c.Err(); ctxErr != nil {
		return ctxErr
	}
	var unsupported eap.ErrEapUnsupported
	if errors.As(err, &unsupported) {
		c.Log.Info("%s", err)
		return nil
	}
	c.warn("EAP unavailable: %s", err)
	return nil
}

func extractChannels(c *Context) error {
	return channels.NewExtractor(c.Acc, c.Dev, c.Log, c.Patterns).Extract(c)
}

func validateChannels(c *Context) error {
	channels.Reconcile(c.Dev)
	return nil
}
