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

	"jinr.ru/greenlab/go-dice/pkg/bus"
	"jinr.ru/greenlab/go-dice/pkg/channels"
	"jinr.ru/greenlab/go-dice/pkg/config"
	"jinr.ru/greenlab/go-dice/pkg/configrom"
	"jinr.ru/greenlab/go-dice/pkg/device"
	"jinr.ru/greenlab/go-dice/pkg/eap"
	"jinr.ru/greenlab/go-dice/pkg/log"
	"jinr.ru/greenlab/go-dice/pkg/stream"
)

// Options tune one scan. The zero value is not usable, start from DefaultOptions.
type Options struct {
	RateDomain   string
	ProbeCap     uint32
	FailureLimit int
	Patterns     *channels.PatternTable
}

func DefaultOptions() Options {
	return Options{
		RateDomain:   eap.RateDomainAuto,
		ProbeCap:     stream.DefaultProbeCap,
		FailureLimit: stream.DefaultFailureLimit,
		Patterns:     channels.DefaultPatterns(),
	}
}

// OptionsFromConfig applies the discovery section. Zero values keep the defaults.
func OptionsFromConfig(cfg *config.DiscoveryConfig) (Options, error) {
	opts := DefaultOptions()
	if cfg == nil {
		return opts, nil
	}
	if cfg.RateDomain != "" {
		opts.RateDomain = cfg.RateDomain
	}
	if cfg.ProbeCap > 0 {
		opts.ProbeCap = cfg.ProbeCap
	}
	if cfg.FailureLimit > 0 {
		opts.FailureLimit = cfg.FailureLimit
	}
	if cfg.PatternsFile != "" {
		patterns, err := channels.LoadPatterns(cfg.PatternsFile)
		if err != nil {
			return opts, err
		}
		opts.Patterns = patterns
	}
	return opts, nil
}

// Context is the state of one device scan. Stages read what earlier stages
// left in it and nothing is shared between scans.
type Context struct {
	context.Context
	Options
	Acc *bus.Accessor
	Dev *device.DiscoveredDevice
	ROM *configrom.ROM
	Log *log.DeviceLogger
}

func NewContext(ctx context.Context, t bus.Transport, guid uint64, opts Options) *Context {
	if opts.Patterns == nil {
		opts.Patterns = channels.DefaultPatterns()
	}
	return &Context{
		Context: ctx,
		Options: opts,
		Acc:     bus.NewAccessor(t),
		Dev:     device.NewDiscoveredDevice(guid),
		Log:     log.Device(guid),
	}
}

// warn logs the message and keeps it on the device
func (c *Context) warn(format string, v ...interface{}) {
	c.Log.Warning(format, v...)
	c.Dev.Warn(format, v...)
}
