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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-dice/pkg/config"
	"jinr.ru/greenlab/go-dice/pkg/device"
	"jinr.ru/greenlab/go-dice/pkg/sample"
)

func newTestServer(t *testing.T) *DiscoverServer {
	cfg := config.NewDefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), config.DBFile)
	cfg.Devices = append(cfg.Devices, &config.DeviceConfig{
		Name:      "missing-image",
		Transport: config.TransportSim,
		Image:     filepath.Join(t.TempDir(), "nothing.yaml"),
	})
	s, err := NewDiscoverServer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestParseGUID(t *testing.T) {
	guid, err := ParseGUID("00130e0402004713")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x00130e0402004713), guid)
	assert.Equal(t, "device_00130e0402004713", BucketName(guid))

	_, err = ParseGUID("not-a-guid")
	assert.Error(t, err)
}

func TestStateRuns(t *testing.T) {
	state, err := NewState(context.Background(), filepath.Join(t.TempDir(), "db", config.DBFile))
	require.NoError(t, err)
	defer state.Close()

	guid := uint64(0x00130e0402004713)
	_, err = state.GetDevice(guid)
	require.ErrorAs(t, err, &ErrDeviceNotFound{})

	dev := device.NewDiscoveredDevice(guid)
	dev.Channels.Final.TotalOutputs = 2
	dev.Channels.Final.TotalInputs = 1
	dev.Channels.OutputSource = device.SourceEap
	dev.Channels.InputSource = device.SourceStreams
	dev.Registers[0xffffe0000000] = 0x0000000a
	for i, id := range []string{"run-1", "run-2"} {
		require.NoError(t, state.SetDevice(&DeviceRecord{
			Target:    "sample",
			RunID:     id,
			Timestamp: uint64(i + 1),
			Device:    dev,
		}))
	}

	rec, err := state.GetDevice(guid)
	require.NoError(t, err)
	assert.Equal(t, "run-2", rec.RunID)
	assert.Equal(t, uint32(0x0000000a), rec.Device.Registers[0xffffe0000000])

	runs, err := state.GetRuns(guid)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, uint32(2), runs[1].Outputs)
	assert.Equal(t, device.SourceEap, runs[1].OutputSource)
	assert.Equal(t, device.SourceStreams, runs[1].InputSource)

	all, err := state.GetAllDevices()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestScanStoresDevices(t *testing.T) {
	s := newTestServer(t)

	run, err := s.Scan(context.Background(), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	require.Len(t, run.Results, 2)
	assert.Empty(t, run.Results[0].Error)
	assert.NotEmpty(t, run.Results[1].Error)

	rec, err := s.State().GetDevice(sample.NewDevice().GUID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, rec.RunID)
	assert.Equal(t, uint32(2), rec.Device.Channels.Final.TotalOutputs)

	_, err = s.Scan(context.Background(), []string{"nope"})
	require.ErrorAs(t, err, &config.ErrDeviceNotFound{})
}

func TestScanInProgress(t *testing.T) {
	s := newTestServer(t)
	s.running = "busy"
	_, err := s.Scan(context.Background(), []string{"sample"})
	var inProgress ErrScanInProgress
	require.ErrorAs(t, err, &inProgress)
	assert.Equal(t, "busy", inProgress.RunID)
	assert.Equal(t, http.StatusConflict, statusOf(err))
}

func get(t *testing.T, url string) (int, []byte) {
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestApi(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.api.Handler())
	defer ts.Close()
	d := sample.NewDevice()
	guid := fmt.Sprintf("%016x", d.GUID)

	code, _ := get(t, ts.URL+"/api/devices/"+guid)
	assert.Equal(t, http.StatusNotFound, code)

	resp, err := http.Post(ts.URL+"/api/scan", "application/json", strings.NewReader(`{"devices":["sample"]}`))
	require.NoError(t, err)
	run := &ScanRun{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(run))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, run.Results, 1)

	code, body := get(t, ts.URL+"/api/devices")
	require.Equal(t, http.StatusOK, code)
	var records []*DeviceRecord
	require.NoError(t, json.Unmarshal(body, &records))
	require.Len(t, records, 1)
	assert.Equal(t, "sample", records[0].Target)

	code, body = get(t, ts.URL+"/api/devices/"+guid+"/registers")
	require.Equal(t, http.StatusOK, code)
	var regs []RegisterValue
	require.NoError(t, json.Unmarshal(body, &regs))
	assert.NotEmpty(t, regs)
	assert.Contains(t, string(body), `"region":"Global"`)

	code, body = get(t, ts.URL+"/api/devices/"+guid+"/report")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), d.Nickname)

	code, body = get(t, ts.URL+"/api/devices/"+guid+"/runs")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), run.ID)

	code, body = get(t, fmt.Sprintf("%s/api/reg/r/sample/0x%012x", ts.URL, d.GlobalBase()+0x5C))
	require.Equal(t, http.StatusOK, code)
	regHex := &RegHex{}
	require.NoError(t, json.Unmarshal(body, regHex))
	assert.Equal(t, fmt.Sprintf("0x%08x", d.SampleRate), regHex.Value)

	code, _ = get(t, ts.URL+"/api/reg/r/sample/0xfffff0000000")
	assert.Equal(t, http.StatusBadGateway, code)

	code, _ = get(t, ts.URL+"/api/reg/r/unknown/0xffffe0000000")
	assert.Equal(t, http.StatusNotFound, code)

	code, body = get(t, ts.URL+"/swagger.json")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "go-dice API")
}
