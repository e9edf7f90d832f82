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
package shell

import (
	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-dice/pkg/command"
	"jinr.ru/greenlab/go-dice/pkg/config"
	"jinr.ru/greenlab/go-dice/pkg/scanner"
)

const (
	DeviceOptionName = "device"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	var device string
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive register console for a configured device",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := cfg.GetDeviceByName(device)
			if d == nil {
				return config.ErrDeviceNotFound{Name: device}
			}
			opts, err := scanner.OptionsFromConfig(cfg.Discovery)
			if err != nil {
				return err
			}
			t, err := scanner.NewTarget(d, cfg.Bridge).Open()
			if err != nil {
				return err
			}
			s, err := command.NewShell(t, d.GUID, opts)
			if err != nil {
				return err
			}
			s.Run(cmd.Context())
			return nil
		},
	}
	cmd.Flags().StringVar(&device, DeviceOptionName, "sample", "Device name")
	return cmd
}
