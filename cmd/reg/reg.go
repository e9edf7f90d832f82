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
package reg

import (
	"fmt"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-dice/pkg/command"
	"jinr.ru/greenlab/go-dice/pkg/config"
)

const (
	DeviceOptionName = "device"
	AddrOptionName   = "addr"
	ValueOptionName  = "value"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reg",
		Short: "Read and write device registers through the discover server",
	}
	cmd.AddCommand(NewReadCommand(cfg))
	cmd.AddCommand(NewWriteCommand(cfg))
	return cmd
}

func NewReadCommand(cfg *config.Config) *cobra.Command {
	var device, addr string
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read value from register",
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := command.NewApiClient(cfg).RegRead(device, addr)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Register state: %s = %s\n", addr, value)
			return nil
		},
	}
	cmd.Flags().StringVar(&device, DeviceOptionName, "", "Device name")
	cmd.MarkFlagRequired(DeviceOptionName)
	cmd.Flags().StringVar(&addr, AddrOptionName, "", "Register address (hexadecimal, e.g. 0xffffe000005c)")
	cmd.MarkFlagRequired(AddrOptionName)
	return cmd
}

func NewWriteCommand(cfg *config.Config) *cobra.Command {
	var device, addr, value string
	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write value to register",
		RunE: func(cmd *cobra.Command, args []string) error {
			return command.NewApiClient(cfg).RegWrite(device, addr, value)
		},
	}
	cmd.Flags().StringVar(&device, DeviceOptionName, "", "Device name")
	cmd.MarkFlagRequired(DeviceOptionName)
	cmd.Flags().StringVar(&addr, AddrOptionName, "", "Register address (hexadecimal)")
	cmd.MarkFlagRequired(AddrOptionName)
	cmd.Flags().StringVar(&value, ValueOptionName, "", "Register value (hexadecimal, raw bus order)")
	cmd.MarkFlagRequired(ValueOptionName)
	return cmd
}
