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
package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	pkgconfig "jinr.ru/greenlab/go-dice/pkg/config"
)

const (
	ForceOptionName = "force"
)

func NewCommand(cfg *pkgconfig.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	cmd.AddCommand(NewInitCommand(cfg))
	cmd.AddCommand(NewShowCommand(cfg))
	return cmd
}

func NewInitCommand(cfg *pkgconfig.Config) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the current config to the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Persist(force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", cfg.Path())
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, ForceOptionName, false, "Overwrite existing config file")
	return cmd
}

func NewShowCommand(cfg *pkgconfig.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	return cmd
}
