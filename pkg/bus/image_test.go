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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageSaveLoad(t *testing.T) {
	img := newTestSim().Image()
	img.Name = "DICE Jr"
	img.Vendor = "TC Applied Technologies"
	img.Generation = 5
	dir := t.TempDir()

	for _, name := range []string{"dev.yaml", "dev.cbor"} {
		path := filepath.Join(dir, name)
		require.NoError(t, img.Save(path, ImageFormat(path)))
		loaded, err := LoadImage(path)
		require.NoError(t, err, name)
		assert.Equal(t, img, loaded, name)
	}
}

func TestImageYAMLIsHex(t *testing.T) {
	img := NewImage(0x10)
	img.Set(0xffffe0000000, 0x2)
	data, err := img.EncodeYAML()
	require.NoError(t, err)
	assert.Contains(t, string(data), "0xffffe0000000")
	assert.Contains(t, string(data), "0x00000002")
}

func TestImageDecodeErrors(t *testing.T) {
	img := &Image{}
	err := img.DecodeYAML([]byte("guid: \"0x1\"\nquadlets:\n  nothex: \"0x1\"\n"))
	assert.Error(t, err)
	err = img.Save(filepath.Join(t.TempDir(), "x"), "xml")
	assert.Error(t, err)
}

func TestDumpImage(t *testing.T) {
	sim := newTestSim()
	img := DumpImage(NewAccessor(sim), 0x42, []Range{{Start: testBase, Quadlets: 4}})
	assert.Equal(t, uint64(0x42), img.GUID)
	assert.Equal(t, []uint64{testBase, testBase + 4}, img.Addresses())
}

func TestRecorder(t *testing.T) {
	rec := NewRecorder(newTestSim(), 0x42)
	acc := NewAccessor(rec)

	_, err := acc.ReadQuadlet(testBase + 4)
	require.NoError(t, err)
	_, err = acc.ReadBlock(testBase+0x34, 8)
	require.NoError(t, err)
	_, err = acc.ReadQuadlet(testBase + 0x100)
	require.Error(t, err)

	img := rec.Image()
	assert.Equal(t, []uint64{testBase + 4, testBase + 0x34, testBase + 0x38}, img.Addresses())

	replay := NewAccessor(NewSimTransport(img))
	data, err := replay.ReadBlock(testBase+0x34, 8)
	require.NoError(t, err)
	assert.Equal(t, "DICE Jr\x00", string(data))
}
