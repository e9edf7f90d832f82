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
	"io"
	"sync"
	"time"

	"jinr.ru/greenlab/go-dice/pkg/bus"
	"jinr.ru/greenlab/go-dice/pkg/config"
	"jinr.ru/greenlab/go-dice/pkg/device"
	"jinr.ru/greenlab/go-dice/pkg/log"
	"jinr.ru/greenlab/go-dice/pkg/sample"
)

// Target is a device to scan. Open is called from the worker that scans it,
// so every scan owns its transport session.
type Target struct {
	Name string
	GUID uint64
	Open func() (bus.Transport, error)
}

type Result struct {
	Target string                   `json:"target"`
	Device *device.DiscoveredDevice `json:"device,omitempty"`
	Error  string                   `json:"error,omitempty"`
	Err    error                    `json:"-"`
}

// NewTarget builds a target from a configured device
func NewTarget(d *config.DeviceConfig, bridge *config.BridgeConfig) Target {
	target := Target{Name: d.Name, GUID: d.GUID}
	switch d.Transport {
	case config.TransportUDP:
		target.Open = func() (bus.Transport, error) {
			t, err := bus.DialUDP(d.Address, d.Node)
			if err != nil {
				return nil, err
			}
			if bridge != nil && bridge.Timeout > 0 {
				t.Timeout = time.Duration(bridge.Timeout) * time.Millisecond
			}
			return t, nil
		}
	default:
		target.Open = func() (bus.Transport, error) {
			img, err := LoadImage(d.Image)
			if err != nil {
				return nil, err
			}
			return bus.NewSimTransport(img), nil
		}
	}
	return target
}

// LoadImage reads a register image file. An empty path gives the built-in sample device.
func LoadImage(path string) (*bus.Image, error) {
	if path == "" {
		return sample.NewDevice().Image(), nil
	}
	return bus.LoadImage(path)
}

// Targets returns a target for every configured device
func Targets(cfg *config.Config) []Target {
	targets := make([]Target, 0, len(cfg.Devices))
	for _, d := range cfg.Devices {
		targets = append(targets, NewTarget(d, cfg.Bridge))
	}
	return targets
}

// SelectTargets picks configured devices by name, all of them when names is empty
func SelectTargets(cfg *config.Config, names []string) ([]Target, error) {
	if len(names) == 0 {
		return Targets(cfg), nil
	}
	targets := make([]Target, 0, len(names))
	for _, name := range names {
		d := cfg.GetDeviceByName(name)
		if d == nil {
			return nil, config.ErrDeviceNotFound{Name: name}
		}
		targets = append(targets, NewTarget(d, cfg.Bridge))
	}
	return targets, nil
}

func scanTarget(ctx context.Context, target Target, opts Options) Result {
	result := Result{Target: target.Name}
	if err := ctx.Err(); err != nil {
		result.Err = err
		result.Error = err.Error()
		return result
	}
	t, err := target.Open()
	if err != nil {
		result.Err = ErrTarget{Name: target.Name, Cause: err}
		result.Error = result.Err.Error()
		log.Error("%s", result.Err)
		return result
	}
	if closer, ok := t.(io.Closer); ok {
		defer closer.Close()
	}
	result.Device, result.Err = Scan(ctx, t, target.GUID, opts)
	id := &result.Device.Identity
	if sim, ok := t.(*bus.SimTransport); ok {
		if id.Name == "" {
			id.Name = sim.Image().Name
		}
		id.Vendor = sim.Image().Vendor
	}
	if id.Name == "" {
		id.Name = target.Name
	}
	if result.Err != nil {
		result.Error = result.Err.Error()
	}
	return result
}

// ScanAll scans the targets on a pool of workers. Results keep the order of targets.
func ScanAll(ctx context.Context, targets []Target, workers int, opts Options) []Result {
	if workers < 1 {
		workers = 1
	}
	results := make([]Result, len(targets))
	jobs := make(chan int)
	wg := &sync.WaitGroup{}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = scanTarget(ctx, targets[i], opts)
			}
		}()
	}
	for i := range targets {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}
