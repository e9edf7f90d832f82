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
	"errors"
	"fmt"
	"io"

	"github.com/imroc/req"

	"jinr.ru/greenlab/go-dice/pkg/config"
	"jinr.ru/greenlab/go-dice/pkg/srv/discover"
)

// ApiClient talks to a running discover server
type ApiClient struct {
	*config.Config
	ApiPrefix string
}

func NewApiClient(cfg *config.Config) *ApiClient {
	return &ApiClient{
		Config:    cfg,
		ApiPrefix: fmt.Sprintf("http://%s/api", cfg.ApiAddr()),
	}
}

func (c *ApiClient) deviceUrl(guid, suffix string) string {
	return fmt.Sprintf("%s/devices/%s%s", c.ApiPrefix, guid, suffix)
}

func (c *ApiClient) regReadUrl(device, addr string) string {
	return fmt.Sprintf("%s/reg/r/%s/%s", c.ApiPrefix, device, addr)
}

func (c *ApiClient) regWriteUrl(device string) string {
	return fmt.Sprintf("%s/reg/w/%s", c.ApiPrefix, device)
}

func check(r *req.Resp) error {
	if r.Response().StatusCode != 200 {
		msg, _ := r.ToString()
		if msg != "" {
			return fmt.Errorf("%s: %s", r.Response().Status, msg)
		}
		return errors.New(r.Response().Status)
	}
	return nil
}

// ListDevices returns the latest record of every scanned device
func (c *ApiClient) ListDevices() ([]*discover.DeviceRecord, error) {
	r, err := req.Get(c.ApiPrefix + "/devices")
	if err != nil {
		return nil, err
	}
	if err := check(r); err != nil {
		return nil, err
	}
	var records []*discover.DeviceRecord
	if err := r.ToJSON(&records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *ApiClient) GetDevice(guid string) (*discover.DeviceRecord, error) {
	r, err := req.Get(c.deviceUrl(guid, ""))
	if err != nil {
		return nil, err
	}
	if err := check(r); err != nil {
		return nil, err
	}
	rec := &discover.DeviceRecord{}
	if err := r.ToJSON(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Report writes the text report of the latest scan of a device
func (c *ApiClient) Report(guid string, out io.Writer) error {
	r, err := req.Get(c.deviceUrl(guid, "/report"))
	if err != nil {
		return err
	}
	if err := check(r); err != nil {
		return err
	}
	_, err = out.Write(r.Bytes())
	return err
}

func (c *ApiClient) Runs(guid string) ([]*discover.Run, error) {
	r, err := req.Get(c.deviceUrl(guid, "/runs"))
	if err != nil {
		return nil, err
	}
	if err := check(r); err != nil {
		return nil, err
	}
	var runs []*discover.Run
	if err := r.ToJSON(&runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// Scan asks the server to scan the named devices, all configured devices when none are given
func (c *ApiClient) Scan(devices []string) (*discover.ScanRun, error) {
	r, err := req.Post(c.ApiPrefix+"/scan", req.BodyJSON(&discover.ScanRequest{Devices: devices}))
	if err != nil {
		return nil, err
	}
	if err := check(r); err != nil {
		return nil, err
	}
	run := &discover.ScanRun{}
	if err := r.ToJSON(run); err != nil {
		return nil, err
	}
	return run, nil
}

// RegRead sends request to get the value of a register of a device
func (c *ApiClient) RegRead(device, addr string) (string, error) {
	r, err := req.Get(c.regReadUrl(device, addr))
	if err != nil {
		return "", err
	}
	if err := check(r); err != nil {
		return "", err
	}
	reg := &discover.RegHex{}
	if err := r.ToJSON(reg); err != nil {
		return "", err
	}
	return reg.Value, nil
}

// RegWrite sends request to write the value to a register of a device
func (c *ApiClient) RegWrite(device, addr, value string) error {
	reg := &discover.RegHex{
		Addr:  addr,
		Value: value,
	}
	r, err := req.Post(c.regWriteUrl(device), req.BodyJSON(reg))
	if err != nil {
		return err
	}
	return check(r)
}
