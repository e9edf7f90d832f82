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
package image

import (
	"fmt"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-dice/pkg/bus"
	"jinr.ru/greenlab/go-dice/pkg/command"
	"jinr.ru/greenlab/go-dice/pkg/config"
	"jinr.ru/greenlab/go-dice/pkg/endian"
	"jinr.ru/greenlab/go-dice/pkg/sample"
	"jinr.ru/greenlab/go-dice/pkg/scanner"
)

const (
	DeviceOptionName = "device"
	OutOptionName    = "out"
	FormatOptionName = "format"
	LittleOptionName = "little-endian"
	BaseOptionName   = "base"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Create register images for the sim transport and the bridge",
	}
	cmd.AddCommand(NewDumpCommand(cfg))
	cmd.AddCommand(NewSampleCommand())
	return cmd
}

func format(path, f string) string {
	if f != "" {
		return f
	}
	return bus.ImageFormat(path)
}

func NewDumpCommand(cfg *config.Config) *cobra.Command {
	var device, out, f string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Scan a configured device and save every quadlet the scan read",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := cfg.GetDeviceByName(device)
			if d == nil {
				return config.ErrDeviceNotFound{Name: device}
			}
			opts, err := scanner.OptionsFromConfig(cfg.Discovery)
			if err != nil {
				return err
			}
			img, result, err := command.Snapshot(cmd.Context(), scanner.NewTarget(d, cfg.Bridge), opts)
			if err != nil {
				return err
			}
			if err := img.Save(out, format(out, f)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), scanner.Summary(result))
			fmt.Fprintf(cmd.OutOrStdout(), "%d quadlets written to %s\n", len(img.Quadlets), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&device, DeviceOptionName, "", "Device name")
	cmd.MarkFlagRequired(DeviceOptionName)
	cmd.Flags().StringVar(&out, OutOptionName, "", "Output file")
	cmd.MarkFlagRequired(OutOptionName)
	cmd.Flags().StringVar(&f, FormatOptionName, "", "yaml or cbor, taken from the file extension when empty")
	return cmd
}

var bases = map[string]sample.Base{
	"legacy":    sample.BaseLegacy,
	"pointers":  sample.BasePointers,
	"configrom": sample.BaseConfigRom,
}

func NewSampleCommand() *cobra.Command {
	var out, f, base string
	var little bool
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write the built-in sample device",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := sample.NewDevice()
			if little {
				d.Endianness = endian.Little
			}
			b, ok := bases[base]
			if !ok {
				return fmt.Errorf("unknown base %q, must be one of legacy, pointers, configrom", base)
			}
			d.Base = b
			img := d.Image()
			if err := img.Save(out, format(out, f)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d quadlets written to %s\n", len(img.Quadlets), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, OutOptionName, "", "Output file")
	cmd.MarkFlagRequired(OutOptionName)
	cmd.Flags().StringVar(&f, FormatOptionName, "", "yaml or cbor, taken from the file extension when empty")
	cmd.Flags().BoolVar(&little, LittleOptionName, false, "Store registers little-endian")
	cmd.Flags().StringVar(&base, BaseOptionName, "legacy", "How the device publishes its global base: legacy, pointers or configrom")
	return cmd
}
