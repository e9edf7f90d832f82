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
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.etcd.io/bbolt"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-dice/pkg/device"
	"jinr.ru/greenlab/go-dice/pkg/log"
)

const (
	BucketPrefix = "device_"
	DeviceKey    = "device"
	RunsBucket   = "runs"
)

// DeviceRecord is the latest scan result of a device
type DeviceRecord struct {
	Target    string                   `json:"target"`
	RunID     string                   `json:"run_id"`
	Timestamp uint64                   `json:"timestamp"`
	Error     string                   `json:"error,omitempty"`
	Device    *device.DiscoveredDevice `json:"device"`
}

// Run is the history entry one scan leaves for a device
type Run struct {
	ID           string        `json:"id"`
	Timestamp    uint64        `json:"timestamp"`
	Error        string        `json:"error,omitempty"`
	Outputs      uint32        `json:"outputs"`
	Inputs       uint32        `json:"inputs"`
	OutputSource device.Source `json:"output_source"`
	InputSource  device.Source `json:"input_source"`
	Discrepancy  bool          `json:"discrepancy"`
}

type State struct {
	context.Context
	DB *bbolt.DB
}

func NewState(ctx context.Context, path string) (*State, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	return &State{
		Context: ctx,
		DB:      db,
	}, nil
}

func (s *State) Close() {
	s.DB.Close()
}

func BucketName(guid uint64) string {
	return fmt.Sprintf("%s%016x", BucketPrefix, guid)
}

// ParseGUID accepts the 16 digit hex form used in bucket names and URLs
func ParseGUID(s string) (uint64, error) {
	return strconv.ParseUint(s, 16, 64)
}

func uint64ToByte(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// SetDevice stores the record as the latest state of its device and appends a run entry
func (s *State) SetDevice(rec *DeviceRecord) error {
	guid := rec.Device.Identity.GUID
	log.Debug("Setting device record: device: %016x run: %s", guid, rec.RunID)
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(BucketName(guid)))
		if err != nil {
			return err
		}
		recBytes, err := yaml.Marshal(rec)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(DeviceKey), recBytes); err != nil {
			return err
		}
		runs, err := b.CreateBucketIfNotExists([]byte(RunsBucket))
		if err != nil {
			return err
		}
		cat := rec.Device.Channels
		runBytes, err := yaml.Marshal(&Run{
			ID:           rec.RunID,
			Timestamp:    rec.Timestamp,
			Error:        rec.Error,
			Outputs:      cat.Final.TotalOutputs,
			Inputs:       cat.Final.TotalInputs,
			OutputSource: cat.OutputSource,
			InputSource:  cat.InputSource,
			Discrepancy:  cat.HasDiscrepancy,
		})
		if err != nil {
			return err
		}
		seq, err := runs.NextSequence()
		if err != nil {
			return err
		}
		return runs.Put(uint64ToByte(seq), runBytes)
	})
}

func (s *State) GetDevice(guid uint64) (*DeviceRecord, error) {
	log.Debug("Getting device record: device: %016x", guid)
	rec := &DeviceRecord{}
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketName(guid)))
		if b == nil {
			return ErrDeviceNotFound{GUID: guid}
		}
		recBytes := b.Get([]byte(DeviceKey))
		if recBytes == nil {
			return ErrDeviceNotFound{GUID: guid}
		}
		return yaml.Unmarshal(recBytes, rec)
	}); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *State) GetAllDevices() ([]*DeviceRecord, error) {
	log.Debug("Getting all device records")
	var records []*DeviceRecord
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, b *bbolt.Bucket) error {
			recBytes := b.Get([]byte(DeviceKey))
			if recBytes == nil {
				log.Warning("Bucket %s has no device record", name)
				return nil
			}
			rec := &DeviceRecord{}
			if err := yaml.Unmarshal(recBytes, rec); err != nil {
				log.Error("Error while unmarshalling device record %s: %s", name, err)
				return err
			}
			records = append(records, rec)
			return nil
		})
	}); err != nil {
		return nil, err
	}
	return records, nil
}

// GetRuns returns the scan history of a device, oldest first
func (s *State) GetRuns(guid uint64) ([]*Run, error) {
	var result []*Run
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketName(guid)))
		if b == nil {
			return ErrDeviceNotFound{GUID: guid}
		}
		runs := b.Bucket([]byte(RunsBucket))
		if runs == nil {
			return nil
		}
		return runs.ForEach(func(_, v []byte) error {
			run := &Run{}
			if err := yaml.Unmarshal(v, run); err != nil {
				return err
			}
			result = append(result, run)
			return nil
		})
	}); err != nil {
		return nil, err
	}
	return result, nil
}
