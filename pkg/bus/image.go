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

package bus

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"sigs.k8s.io/yaml"
)

const (
	ImageFormatYAML = "yaml"
	ImageFormatCBOR = "cbor"
)

// Image is a sparse snapshot of a node address space
type Image struct {
	GUID       uint64            `cbor:"1,keyasint"`
	Name       string            `cbor:"2,keyasint,omitempty"`
	Vendor     string            `cbor:"3,keyasint,omitempty"`
	Generation uint32            `cbor:"4,keyasint"`
	Quadlets   map[uint64]uint32 `cbor:"5,keyasint"`
}

// imageDoc is the YAML form of Image with hexadecimal addresses and values
type imageDoc struct {
	GUID       string            `json:"guid"`
	Name       string            `json:"name,omitempty"`
	Vendor     string            `json:"vendor,omitempty"`
	Generation uint32            `json:"generation"`
	Quadlets   map[string]string `json:"quadlets"`
}

func NewImage(guid uint64) *Image {
	return &Image{
		GUID:     guid,
		Quadlets: map[uint64]uint32{},
	}
}

// Set stores a raw quadlet
func (img *Image) Set(addr uint64, value uint32) {
	img.Quadlets[addr] = value
}

// SetText stores text in bus byte order starting at addr, zero padded to a quadlet boundary
func (img *Image) SetText(addr uint64, text string) {
	data := []byte(text)
	for len(data)%QuadletSize != 0 {
		data = append(data, 0)
	}
	img.SetBytes(addr, data)
}

// SetBytes stores data in bus byte order, len(data) must be a multiple of a quadlet
func (img *Image) SetBytes(addr uint64, data []byte) {
	for i := 0; i+QuadletSize <= len(data); i += QuadletSize {
		img.Quadlets[addr+uint64(i)] = binary.BigEndian.Uint32(data[i : i+QuadletSize])
	}
}

// Addresses returns the image addresses in ascending order
func (img *Image) Addresses() []uint64 {
	addrs := make([]uint64, 0, len(img.Quadlets))
	for addr := range img.Quadlets {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

func (img *Image) EncodeYAML() ([]byte, error) {
	doc := &imageDoc{
		GUID:       fmt.Sprintf("0x%016x", img.GUID),
		Name:       img.Name,
		Vendor:     img.Vendor,
		Generation: img.Generation,
		Quadlets:   make(map[string]string, len(img.Quadlets)),
	}
	for addr, value := range img.Quadlets {
		doc.Quadlets[fmt.Sprintf("0x%012x", addr)] = fmt.Sprintf("0x%08x", value)
	}
	return yaml.Marshal(doc)
}

func (img *Image) DecodeYAML(data []byte) error {
	doc := &imageDoc{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return err
	}
	guid, err := strconv.ParseUint(doc.GUID, 0, 64)
	if err != nil {
		return ErrImageFormat{What: fmt.Sprintf("guid %q: %s", doc.GUID, err)}
	}
	img.GUID = guid
	img.Name = doc.Name
	img.Vendor = doc.Vendor
	img.Generation = doc.Generation
	img.Quadlets = make(map[uint64]uint32, len(doc.Quadlets))
	for hexAddr, hexValue := range doc.Quadlets {
		addr, err := strconv.ParseUint(hexAddr, 0, 64)
		if err != nil || addr > MaxAddress {
			return ErrImageFormat{What: fmt.Sprintf("address %q", hexAddr)}
		}
		value, err := strconv.ParseUint(hexValue, 0, 32)
		if err != nil {
			return ErrImageFormat{What: fmt.Sprintf("value %q at %s", hexValue, hexAddr)}
		}
		img.Quadlets[addr] = uint32(value)
	}
	return nil
}

func (img *Image) MarshalCBOR() ([]byte, error) {
	type plain Image
	return cbor.Marshal((*plain)(img))
}

func (img *Image) UnmarshalCBOR(data []byte) error {
	type plain Image
	if err := cbor.Unmarshal(data, (*plain)(img)); err != nil {
		return err
	}
	if img.Quadlets == nil {
		img.Quadlets = map[uint64]uint32{}
	}
	return nil
}

// ImageFormat picks the image format from the file extension
func ImageFormat(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".cbor") {
		return ImageFormatCBOR
	}
	return ImageFormatYAML
}

// LoadImage reads an image file in YAML or CBOR form
func LoadImage(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img := &Image{}
	switch ImageFormat(path) {
	case ImageFormatCBOR:
		err = img.UnmarshalCBOR(data)
	default:
		err = img.DecodeYAML(data)
	}
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Save writes the image to path in the given format
func (img *Image) Save(path, format string) error {
	var data []byte
	var err error
	switch format {
	case ImageFormatCBOR:
		data, err = img.MarshalCBOR()
	case ImageFormatYAML:
		data, err = img.EncodeYAML()
	default:
		return ErrImageFormat{What: fmt.Sprintf("unknown format %q", format)}
	}
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Range is a span of quadlets to snapshot
type Range struct {
	Start    uint64
	Quadlets int
}

// DumpImage reads every quadlet of the ranges. Unreadable quadlets are left out.
func DumpImage(acc *Accessor, guid uint64, ranges []Range) *Image {
	img := NewImage(guid)
	img.Generation = acc.Generation()
	for _, r := range ranges {
		for i := 0; i < r.Quadlets; i++ {
			addr := r.Start + uint64(i*QuadletSize)
			v, err := acc.ReadQuadlet(addr)
			if err != nil {
				continue
			}
			img.Set(addr, v)
		}
	}
	return img
}
