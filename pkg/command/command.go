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
	"io"

	"jinr.ru/greenlab/go-dice/pkg/bus"
	"jinr.ru/greenlab/go-dice/pkg/config"
	"jinr.ru/greenlab/go-dice/pkg/log"
	"jinr.ru/greenlab/go-dice/pkg/scanner"
	"jinr.ru/greenlab/go-dice/pkg/srv/bridge"
	"jinr.ru/greenlab/go-dice/pkg/srv/discover"
)

// StartDiscoverServer runs the discover server until ctx is done
func StartDiscoverServer(ctx context.Context, cfg *config.Config) error {
	s, err := discover.NewDiscoverServer(ctx, cfg)
	if err != nil {
		return err
	}
	return s.Run()
}

// StartBridgeServer serves a register image over the bridge protocol.
// An empty path serves the built-in sample device.
func StartBridgeServer(ctx context.Context, cfg *config.Config, imagePath string) error {
	img, err := scanner.LoadImage(imagePath)
	if err != nil {
		return err
	}
	s, err := bridge.NewBridgeServer(ctx, cfg, bus.NewSimTransport(img))
	if err != nil {
		return err
	}
	return s.Run()
}

// ScanDevices scans configured devices in this process without a server
func ScanDevices(ctx context.Context, cfg *config.Config, names []string) ([]scanner.Result, error) {
	targets, err := scanner.SelectTargets(cfg, names)
	if err != nil {
		return nil, err
	}
	opts, err := scanner.OptionsFromConfig(cfg.Discovery)
	if err != nil {
		return nil, err
	}
	return scanner.ScanAll(ctx, targets, cfg.Discovery.Workers, opts), nil
}

// Snapshot scans a device and records every quadlet the scan read.
// The image replays the same scan on the sim transport.
func Snapshot(ctx context.Context, target scanner.Target, opts scanner.Options) (*bus.Image, scanner.Result, error) {
	result := scanner.Result{Target: target.Name}
	t, err := target.Open()
	if err != nil {
		return nil, result, scanner.ErrTarget{Name: target.Name, Cause: err}
	}
	if closer, ok := t.(io.Closer); ok {
		defer closer.Close()
	}
	rec := bus.NewRecorder(t, target.GUID)
	result.Device, result.Err = scanner.Scan(ctx, rec, target.GUID, opts)
	if result.Err != nil {
		result.Error = result.Err.Error()
		log.Warning("Snapshot of %s is incomplete: %s", target.Name, result.Err)
	}
	img := rec.Image()
	img.GUID = result.Device.Identity.GUID
	img.Name = result.Device.Identity.Name
	if sim, ok := t.(*bus.SimTransport); ok {
		img.Vendor = sim.Image().Vendor
		if img.Name == "" {
			img.Name = sim.Image().Name
		}
	}
	return img, result, nil
}
