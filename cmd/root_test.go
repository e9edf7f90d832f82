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
package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-dice/pkg/bus"
)

func run(t *testing.T, args ...string) string {
	out := &bytes.Buffer{}
	cmd := NewRootCommand(out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "config")}, args...))
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestScanCommand(t *testing.T) {
	out := run(t, "scan", "--summary")
	assert.Contains(t, out, "sample: 00130e0402004713")
	assert.Contains(t, out, "out 2 in 1")

	out = run(t, "scan", "sample")
	assert.Contains(t, out, "Studio Jr")
}

func TestImageCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "little.cbor")
	out := run(t, "image", "sample", "--out", path, "--little-endian", "--base", "pointers")
	assert.Contains(t, out, "quadlets written")

	img, err := bus.LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x00130e0402004713), img.GUID)

	dump := filepath.Join(dir, "dump.yaml")
	out = run(t, "image", "dump", "--device", "sample", "--out", dump)
	assert.Contains(t, out, "ok")
	_, err = bus.LoadImage(dump)
	require.NoError(t, err)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "go-dice", "config")
	out := &bytes.Buffer{}
	cmd := NewRootCommand(out)
	cmd.SetArgs([]string{"--config", path, "config", "init"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), path)

	cmd = NewRootCommand(out)
	cmd.SetArgs([]string{"--config", path, "config", "init"})
	assert.Error(t, cmd.Execute())
}
