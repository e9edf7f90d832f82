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

// go-dice API
//
// RESTful APIs to scan DICE devices and read their register maps
//
//     Schemes: http
//     Host: localhost:8004
//     Version: 1.0.0
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
// swagger:meta
package discover

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-openapi/loads"
	"github.com/go-openapi/runtime/middleware"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"jinr.ru/greenlab/go-dice/pkg/bus"
	"jinr.ru/greenlab/go-dice/pkg/config"
	pkgdiscover "jinr.ru/greenlab/go-dice/pkg/discover"
	"jinr.ru/greenlab/go-dice/pkg/log"
	"jinr.ru/greenlab/go-dice/pkg/scanner"
)

//go:embed swagger.json
var swaggerJSON []byte

const (
	GuidPattern = "{guid:[0-9a-fA-F]{16}}"
	AddrPattern = "{addr:0x[0-9a-fA-F]{1,12}}"
)

type ApiServer struct {
	context.Context
	*config.Config
	*mux.Router
	discover *DiscoverServer
	spec     *loads.Document
}

func NewApiServer(ctx context.Context, cfg *config.Config, discover *DiscoverServer) (*ApiServer, error) {
	spec, err := loads.Analyzed(json.RawMessage(swaggerJSON), "")
	if err != nil {
		return nil, err
	}
	log.Info("Initializing API server with address: %s api version: %s", cfg.ApiAddr(), spec.Spec().Info.Version)
	s := &ApiServer{
		Context:  ctx,
		Config:   cfg,
		discover: discover,
		spec:     spec,
	}
	s.configureRouter()
	return s, nil
}

// Handler wraps the router with the docs endpoints and the access log
func (s *ApiServer) Handler() http.Handler {
	var h http.Handler = s.Router
	h = middleware.Redoc(middleware.RedocOpts{BasePath: "/", Path: "docs", SpecURL: "/swagger.json", Title: "go-dice API"}, h)
	h = middleware.Spec("/", swaggerJSON, h)
	h = handlers.CORS(handlers.AllowedOrigins([]string{"*"}), handlers.AllowedMethods([]string{"GET", "POST"}))(h)
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
	return handlers.CombinedLoggingHandler(log.Writer(), h)
}

func (s *ApiServer) Run() error {
	log.Info("Starting API server: address: %s", s.Config.ApiAddr())
	httpServer := &http.Server{
		Handler: s.Handler(),
		Addr:    s.Config.ApiAddr(),
	}
	go func() {
		<-s.Context.Done()
		httpServer.Close()
	}()
	return httpServer.ListenAndServe()
}

// RegHex is a register address and value in hexadecimal
type RegHex struct {
	Addr  string `json:"addr"`
	Value string `json:"value"`
}

type RegisterValue struct {
	Addr   string `json:"addr"`
	Value  string `json:"value"`
	Region string `json:"region"`
}

// ScanRequest names the configured devices to scan, empty means all
type ScanRequest struct {
	Devices []string `json:"devices,omitempty"`
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	subRouter.HandleFunc("/devices", s.handleDevices()).Methods("GET")
	subRouter.HandleFunc("/devices/"+GuidPattern, s.handleDevice()).Methods("GET")
	subRouter.HandleFunc("/devices/"+GuidPattern+"/registers", s.handleRegisters()).Methods("GET")
	subRouter.HandleFunc("/devices/"+GuidPattern+"/report", s.handleReport()).Methods("GET")
	subRouter.HandleFunc("/devices/"+GuidPattern+"/runs", s.handleRuns()).Methods("GET")
	subRouter.HandleFunc("/scan", s.handleScan()).Methods("POST")
	// addr and value must be hexadecimal integers
	subRouter.HandleFunc("/reg/r/{device}/"+AddrPattern, s.handleRegRead()).Methods("GET")
	subRouter.HandleFunc("/reg/w/{device}", s.handleRegWrite()).Methods("POST")
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Error while encoding response: %s", err)
	}
}

func statusOf(err error) int {
	var notFound ErrDeviceNotFound
	var notConfigured config.ErrDeviceNotFound
	var inProgress ErrScanInProgress
	switch {
	case errors.As(err, &notFound), errors.As(err, &notConfigured):
		return http.StatusNotFound
	case errors.As(err, &inProgress):
		return http.StatusConflict
	}
	if _, ok := bus.KindOf(err); ok {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *ApiServer) record(w http.ResponseWriter, r *http.Request) *DeviceRecord {
	guid, err := ParseGUID(mux.Vars(r)["guid"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}
	rec, err := s.discover.state.GetDevice(guid)
	if err != nil {
		http.Error(w, err.Error(), statusOf(err))
		return nil
	}
	return rec
}

func (s *ApiServer) handleDevices() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling devices request")
		records, err := s.discover.state.GetAllDevices()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, records)
	}
}

func (s *ApiServer) handleDevice() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rec := s.record(w, r); rec != nil {
			writeJSON(w, rec)
		}
	}
}

func (s *ApiServer) handleRegisters() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := s.record(w, r)
		if rec == nil {
			return
		}
		regs := rec.Device.Registers
		values := make([]RegisterValue, 0, len(regs))
		for _, addr := range regs.Addresses() {
			values = append(values, RegisterValue{
				Addr:   fmt.Sprintf("0x%012x", addr),
				Value:  fmt.Sprintf("0x%08x", regs[addr]),
				Region: pkgdiscover.Region(addr),
			})
		}
		writeJSON(w, values)
	}
}

func (s *ApiServer) handleReport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := s.record(w, r)
		if rec == nil {
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(scanner.Report(rec.Device)))
	}
}

func (s *ApiServer) handleRuns() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guid, err := ParseGUID(mux.Vars(r)["guid"])
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		runs, err := s.discover.state.GetRuns(guid)
		if err != nil {
			http.Error(w, err.Error(), statusOf(err))
			return
		}
		writeJSON(w, runs)
	}
}

func (s *ApiServer) handleScan() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scanReq := &ScanRequest{}
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(scanReq); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		run, err := s.discover.Scan(r.Context(), scanReq.Devices)
		if err != nil {
			http.Error(w, err.Error(), statusOf(err))
			return
		}
		writeJSON(w, run)
	}
}

func (s *ApiServer) handleRegRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		addr, err := strconv.ParseUint(vars["addr"], 0, 64)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		acc, done, err := s.discover.Open(vars["device"])
		if err != nil {
			http.Error(w, err.Error(), statusOf(err))
			return
		}
		defer done()
		value, err := acc.ReadQuadlet(addr)
		if err != nil {
			http.Error(w, err.Error(), statusOf(err))
			return
		}
		writeJSON(w, &RegHex{Addr: fmt.Sprintf("0x%012x", addr), Value: fmt.Sprintf("0x%08x", value)})
	}
}

func (s *ApiServer) handleRegWrite() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		regHex := &RegHex{}
		if err := json.NewDecoder(r.Body).Decode(regHex); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		addr, err := strconv.ParseUint(regHex.Addr, 0, 64)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		value, err := strconv.ParseUint(regHex.Value, 0, 32)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		acc, done, err := s.discover.Open(mux.Vars(r)["device"])
		if err != nil {
			http.Error(w, err.Error(), statusOf(err))
			return
		}
		defer done()
		if err := acc.WriteQuadlet(addr, uint32(value)); err != nil {
			http.Error(w, err.Error(), statusOf(err))
			return
		}
		writeJSON(w, regHex)
	}
}
