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
package scan

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-dice/pkg/command"
	"jinr.ru/greenlab/go-dice/pkg/config"
	"jinr.ru/greenlab/go-dice/pkg/scanner"
)

const (
	JSONOptionName       = "json"
	SummaryOptionName    = "summary"
	RateDomainOptionName = "rate-domain"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	var asJSON, summary bool
	var rateDomain string
	cmd := &cobra.Command{
		Use:   "scan [device...]",
		Short: "Scan configured devices and print what was found",
		Long:  "Scan configured devices in this process. Without arguments every configured device is scanned.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if rateDomain != "" {
				cfg.Discovery.RateDomain = rateDomain
			}
			results, err := command.ScanDevices(cmd.Context(), cfg, args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			for _, r := range results {
				if summary || r.Device == nil {
					fmt.Fprintln(out, scanner.Summary(r))
					continue
				}
				fmt.Fprintln(out, scanner.Report(r.Device))
				if r.Error != "" {
					fmt.Fprintf(out, "error: %s\n\n", r.Error)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, JSONOptionName, false, "Print results as JSON")
	cmd.Flags().BoolVar(&summary, SummaryOptionName, false, "Print one line per device")
	cmd.Flags().StringVar(&rateDomain, RateDomainOptionName, "", "EAP rate domain: auto, low, mid or high")
	return cmd
}
