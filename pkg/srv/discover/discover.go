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

package discover

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"jinr.ru/greenlab/go-dice/pkg/bus"
	"jinr.ru/greenlab/go-dice/pkg/config"
	"jinr.ru/greenlab/go-dice/pkg/log"
	"jinr.ru/greenlab/go-dice/pkg/scanner"
	"jinr.ru/greenlab/go-dice/pkg/srv"
)

// ScanRun is what one scan request produced
type ScanRun struct {
	ID      string           `json:"id"`
	Results []scanner.Result `json:"results"`
}

// DiscoverServer runs scans of the configured devices on demand and keeps the
// latest result of every device in the state database.
type DiscoverServer struct {
	context.Context
	*config.Config
	state   *State
	api     *ApiServer
	opts    scanner.Options
	mu      sync.Mutex
	running string
}

func NewDiscoverServer(ctx context.Context, cfg *config.Config) (*DiscoverServer, error) {
	log.Info("Initializing discover server: db: %s devices: %d", cfg.DBPath, len(cfg.Devices))
	opts, err := scanner.OptionsFromConfig(cfg.Discovery)
	if err != nil {
		return nil, err
	}
	state, err := NewState(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	s := &DiscoverServer{
		Context: ctx,
		Config:  cfg,
		state:   state,
		opts:    opts,
	}
	apiServer, err := NewApiServer(ctx, cfg, s)
	if err != nil {
		state.Close()
		return nil, err
	}
	s.api = apiServer
	return s, nil
}

func (s *DiscoverServer) State() *State {
	return s.state
}

func (s *DiscoverServer) Close() {
	s.state.Close()
}

// Scan scans the named devices and stores every device that was identified.
// Only one scan runs at a time.
func (s *DiscoverServer) Scan(ctx context.Context, names []string) (*ScanRun, error) {
	targets, err := scanner.SelectTargets(s.Config, names)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.running != "" {
		defer s.mu.Unlock()
		return nil, ErrScanInProgress{RunID: s.running}
	}
	run := &ScanRun{ID: uuid.New().String()}
	s.running = run.ID
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = ""
		s.mu.Unlock()
	}()

	log.Info("Scan %s: %d devices", run.ID, len(targets))
	run.Results = scanner.ScanAll(ctx, targets, s.Config.Discovery.Workers, s.opts)
	timestamp := srv.Now()
	for _, r := range run.Results {
		log.Info("Scan %s: %s", run.ID, scanner.Summary(r))
		if r.Device == nil || r.Device.Identity.GUID == 0 {
			continue
		}
		rec := &DeviceRecord{
			Target:    r.Target,
			RunID:     run.ID,
			Timestamp: timestamp,
			Error:     r.Error,
			Device:    r.Device,
		}
		if err := s.state.SetDevice(rec); err != nil {
			log.Error("Error while storing device %016x: %s", r.Device.Identity.GUID, err)
		}
	}
	return run, nil
}

// Open opens a session to a configured device for raw register access.
// The returned function ends the session.
func (s *DiscoverServer) Open(name string) (*bus.Accessor, func(), error) {
	d := s.Config.GetDeviceByName(name)
	if d == nil {
		return nil, nil, config.ErrDeviceNotFound{Name: name}
	}
	t, err := scanner.NewTarget(d, s.Config.Bridge).Open()
	if err != nil {
		return nil, nil, err
	}
	done := func() {}
	if closer, ok := t.(io.Closer); ok {
		done = func() { closer.Close() }
	}
	return bus.NewAccessor(t), done, nil
}

func (s *DiscoverServer) Run() error {
	defer s.Close()
	errChan := make(chan error, 1)
	go func() {
		errChan <- s.api.Run()
	}()
	select {
	case <-s.Context.Done():
		return s.Context.Err()
	case err := <-errChan:
		return err
	}
}

// Handler is the API handler without a listener, for embedding and tests
func (s *DiscoverServer) Handler() http.Handler {
	return s.api.Handler()
}
