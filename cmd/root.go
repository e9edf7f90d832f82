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
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-dice/cmd/bridge"
	"jinr.ru/greenlab/go-dice/cmd/completion"
	"jinr.ru/greenlab/go-dice/cmd/config"
	"jinr.ru/greenlab/go-dice/cmd/discover"
	"jinr.ru/greenlab/go-dice/cmd/image"
	"jinr.ru/greenlab/go-dice/cmd/reg"
	"jinr.ru/greenlab/go-dice/cmd/scan"
	"jinr.ru/greenlab/go-dice/cmd/shell"
	pkgconfig "jinr.ru/greenlab/go-dice/pkg/config"
	"jinr.ru/greenlab/go-dice/pkg/log"
)

const (
	LogLevelOptionName = "log-level"
	ConfigOptionName   = "config"
)

func NewRootCommand(out io.Writer) *cobra.Command {
	var logLevel, configPath string
	cfg := pkgconfig.NewDefaultConfig()
	cmd := &cobra.Command{
		Use:           "go-dice",
		Short:         "Tool to discover DICE FireWire audio devices and decode their register maps",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				cfg.SetPath(configPath)
			}
			// a missing config file leaves the defaults
			if err := cfg.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			return log.SetLevel(cfg.LogLevel)
		},
	}
	log.Init(cmd.ErrOrStderr(), pkgconfig.DefaultLogLevel)
	cmd.SetOut(out)
	cmd.AddCommand(config.NewCommand(cfg))
	cmd.AddCommand(scan.NewCommand(cfg))
	cmd.AddCommand(discover.NewCommand(cfg))
	cmd.AddCommand(bridge.NewCommand(cfg))
	cmd.AddCommand(reg.NewCommand(cfg))
	cmd.AddCommand(image.NewCommand(cfg))
	cmd.AddCommand(shell.NewCommand(cfg))
	cmd.AddCommand(completion.NewCommand())
	cmd.PersistentFlags().StringVar(&logLevel, LogLevelOptionName, "", fmt.Sprintf("Log level. %s", log.HelpLevels))
	cmd.PersistentFlags().StringVar(&configPath, ConfigOptionName, "", fmt.Sprintf("Config file path. Default %s", pkgconfig.DefaultConfigPath()))
	return cmd
}
