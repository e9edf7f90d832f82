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
	"fmt"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-dice/pkg/command"
	"jinr.ru/greenlab/go-dice/pkg/config"
)

const (
	AddressOptionName = "address"
	PortOptionName    = "port"
	DBOptionName      = "db"
)

// NewCommand returns the discover server command with its client subcommands
func NewCommand(cfg *config.Config) *cobra.Command {
	var address, db string
	var port int
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Start discover server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if address != "" {
				cfg.Api.Address = address
			}
			if port != 0 {
				cfg.Api.Port = port
			}
			if db != "" {
				cfg.DBPath = db
			}
			return command.StartDiscoverServer(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&address, AddressOptionName, "", fmt.Sprintf("Address to bind. E.g. %s", config.DefaultApiAddress))
	cmd.Flags().IntVar(&port, PortOptionName, 0, fmt.Sprintf("Port number to bind. E.g. %d", config.DefaultApiPort))
	cmd.Flags().StringVar(&db, DBOptionName, "", "State database path")
	cmd.AddCommand(NewListCommand(cfg))
	cmd.AddCommand(NewReportCommand(cfg))
	cmd.AddCommand(NewRunsCommand(cfg))
	cmd.AddCommand(NewScanCommand(cfg))
	return cmd
}
