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

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

type ApiConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

type BridgeConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	Timeout int    `yaml:"timeout"` // milliseconds
}

type DiscoveryConfig struct {
	RateDomain   string `yaml:"rate_domain"`
	Workers      int    `yaml:"workers"`
	ProbeCap     uint32 `yaml:"probe_cap"`
	FailureLimit int    `yaml:"failure_limit"`
	PatternsFile string `yaml:"patterns_file,omitempty"`
}

// DeviceConfig names a device and tells how to reach it.
// A sim device with no image runs against the built-in sample device.
type DeviceConfig struct {
	Name      string `yaml:"name"`
	GUID      uint64 `yaml:"guid,omitempty"`
	Transport string `yaml:"transport"`
	Image     string `yaml:"image,omitempty"`
	Address   string `yaml:"address,omitempty"`
	Node      uint16 `yaml:"node,omitempty"`
}

type Config struct {
	LogLevel  string           `yaml:"log_level"`
	DBPath    string           `yaml:"db_path"`
	Api       *ApiConfig       `yaml:"api"`
	Bridge    *BridgeConfig    `yaml:"bridge"`
	Discovery *DiscoveryConfig `yaml:"discovery"`
	Devices   []*DeviceConfig  `yaml:"devices"`
	filepath  string
}

func (c *Config) Path() string {
	return c.filepath
}

func (c *Config) SetPath(path string) {
	c.filepath = path
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.filepath), 0755); err != nil {
		return err
	}
	return os.WriteFile(c.filepath, data, 0644)
}

// Load reads the config file over the current values. Sections missing from
// the file keep what they had.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.filepath)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	for _, d := range c.Devices {
		if d.Transport != TransportSim && d.Transport != TransportUDP {
			return ErrTransport{Device: d.Name, Transport: d.Transport}
		}
	}
	return nil
}

func (c *Config) GetDeviceByName(name string) *DeviceConfig {
	for _, d := range c.Devices {
		if d.Name == name {
			return d
		}
	}
	return nil
}

func (c *Config) ApiAddr() string {
	return fmt.Sprintf("%s:%d", c.Api.Address, c.Api.Port)
}

func (c *Config) BridgeAddr() string {
	return fmt.Sprintf("%s:%d", c.Bridge.Address, c.Bridge.Port)
}

func (c *Config) BridgeTimeout() time.Duration {
	return time.Duration(c.Bridge.Timeout) * time.Millisecond
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, ConfigFile)
}

func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, DBFile)
}

func NewDefaultConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		DBPath:   DefaultDBPath(),
		Api: &ApiConfig{
			Address: DefaultApiAddress,
			Port:    DefaultApiPort,
		},
		Bridge: &BridgeConfig{
			Address: DefaultBridgeAddress,
			Port:    DefaultBridgePort,
			Timeout: DefaultBridgeTimeout,
		},
		Discovery: &DiscoveryConfig{
			RateDomain:   DefaultRateDomain,
			Workers:      DefaultWorkers,
			ProbeCap:     DefaultProbeCap,
			FailureLimit: DefaultFailureLimit,
		},
		Devices: []*DeviceConfig{
			{
				Name:      "sample",
				Transport: TransportSim,
			},
		},
		filepath: DefaultConfigPath(),
	}
}
