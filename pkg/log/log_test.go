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

package log

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	defer Init(os.Stderr, "info")

	require.NoError(t, SetLevel("debug"))
	assert.Equal(t, DebugLevel, Level())

	err := SetLevel("verbose")
	require.Error(t, err)
	assert.Contains(t, err.Error(), HelpLevels)
	assert.Equal(t, DebugLevel, Level())
}

func TestLevelFiltering(t *testing.T) {
	defer Init(os.Stderr, "info")
	buf := &bytes.Buffer{}
	Init(buf, "warning")

	Debug("hidden %d", 1)
	Info("hidden %d", 2)
	Warning("shown %d", 3)
	Error("shown %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, WarningPrefix+"shown 3")
	assert.Contains(t, out, ErrorPrefix+"shown 4")
	assert.Contains(t, out, LogPrefix)
}

func TestDeviceLogger(t *testing.T) {
	defer Init(os.Stderr, "info")
	buf := &bytes.Buffer{}
	Init(buf, "debug")

	Device(0x00130e0402004713).Debug("probing stream %d", 2)
	assert.Contains(t, buf.String(), DebugPrefix+"[00130e0402004713] probing stream 2")
}
