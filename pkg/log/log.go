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
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

type LogLevel int

const (
	LogPrefix     = "[go-dice] "
	ErrorPrefix   = "[error] "
	WarningPrefix = "[warn] "
	InfoPrefix    = "[info] "
	DebugPrefix   = "[debug] "
	HelpLevels    = "Must be one of: error, warning, info, debug."
)

const (
	ErrorLevel LogLevel = iota
	WarningLevel
	InfoLevel
	DebugLevel
)

var levelMapping = map[string]LogLevel{
	"error":   ErrorLevel,
	"warning": WarningLevel,
	"info":    InfoLevel,
	"debug":   DebugLevel,
}

type Logger struct {
	mu    sync.RWMutex
	level LogLevel
	*log.Logger
}

var logger = &Logger{
	level:  InfoLevel,
	Logger: log.New(os.Stderr, LogPrefix, log.LstdFlags),
}

// ParseLevel converts a level name to LogLevel
func ParseLevel(strLevel string) (LogLevel, error) {
	level, ok := levelMapping[strLevel]
	if !ok {
		return ErrorLevel, errors.New("Wrong log level. " + HelpLevels)
	}
	return level, nil
}

func SetLevel(strLevel string) error {
	level, err := ParseLevel(strLevel)
	if err != nil {
		return err
	}
	logger.mu.Lock()
	logger.level = level
	logger.mu.Unlock()
	return nil
}

func Level() LogLevel {
	logger.mu.RLock()
	defer logger.mu.RUnlock()
	return logger.level
}

func Init(out io.Writer, strLevel string) {
	logger.SetOutput(out)
	if err := SetLevel(strLevel); err != nil {
		panic(err)
	}
}

// Writer returns the writer log lines currently go to.
// The API server uses it for its access log.
func Writer() io.Writer {
	return logger.Writer()
}

func output(level LogLevel, prefix, format string, v ...interface{}) {
	if Level() >= level {
		logger.Println(fmt.Sprintf(prefix+format, v...))
	}
}

func Error(format string, v ...interface{}) {
	output(ErrorLevel, ErrorPrefix, format, v...)
}

func Warning(format string, v ...interface{}) {
	output(WarningLevel, WarningPrefix, format, v...)
}

func Info(format string, v ...interface{}) {
	output(InfoLevel, InfoPrefix, format, v...)
}

func Debug(format string, v ...interface{}) {
	output(DebugLevel, DebugPrefix, format, v...)
}

// DeviceLogger tags every line with the device it belongs to.
// Scans of several devices run in parallel and interleave on the same output.
type DeviceLogger struct {
	tag string
}

// Device returns a logger for the device with the given bus unique id
func Device(guid uint64) *DeviceLogger {
	return &DeviceLogger{tag: fmt.Sprintf("[%016x] ", guid)}
}

func (l *DeviceLogger) Error(format string, v ...interface{}) {
	output(ErrorLevel, ErrorPrefix+l.tag, format, v...)
}

func (l *DeviceLogger) Warning(format string, v ...interface{}) {
	output(WarningLevel, WarningPrefix+l.tag, format, v...)
}

func (l *DeviceLogger) Info(format string, v ...interface{}) {
	output(InfoLevel, InfoPrefix+l.tag, format, v...)
}

func (l *DeviceLogger) Debug(format string, v ...interface{}) {
	output(DebugLevel, DebugPrefix+l.tag, format, v...)
}
