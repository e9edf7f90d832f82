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
package bridge

import (
	"fmt"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-dice/pkg/command"
	"jinr.ru/greenlab/go-dice/pkg/config"
)

const (
	ImageOptionName   = "image"
	AddressOptionName = "address"
	PortOptionName    = "port"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	var image, address string
	var port int
	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Serve a register image over the UDP bridge protocol",
		Long:  "Serve a register image over the UDP bridge protocol. Without --image the built-in sample device is served.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if address != "" {
				cfg.Bridge.Address = address
			}
			if port != 0 {
				cfg.Bridge.Port = port
			}
			return command.StartBridgeServer(cmd.Context(), cfg, image)
		},
	}
	cmd.Flags().StringVar(&image, ImageOptionName, "", "Register image file (.yaml or .cbor)")
	cmd.Flags().StringVar(&address, AddressOptionName, "", fmt.Sprintf("Address to bind. E.g. %s", config.DefaultBridgeAddress))
	cmd.Flags().IntVar(&port, PortOptionName, 0, fmt.Sprintf("Port number to bind. E.g. %d", config.DefaultBridgePort))
	return cmd
}
