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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-dice/pkg/command"
	"jinr.ru/greenlab/go-dice/pkg/config"
	"jinr.ru/greenlab/go-dice/pkg/scanner"
	"jinr.ru/greenlab/go-dice/pkg/srv"
)

const (
	// StaleAfter marks records older than this many milliseconds
	StaleAfter = 24 * 3600 * 1000
)

func NewListCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scanned devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			records, err := apiClient.ListDevices()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "GUID\tNAME\tTARGET\tOUT\tIN\tSOURCE\tRUN")
			now := srv.Now()
			for _, rec := range records {
				dev := rec.Device
				run := rec.RunID
				if now-rec.Timestamp > StaleAfter {
					run += " (stale)"
				}
				fmt.Fprintf(w, "%016x\t%s\t%s\t%d\t%d\t%s\t%s\n", dev.Identity.GUID, dev.Identity.Name, rec.Target,
					dev.Channels.Final.TotalOutputs, dev.Channels.Final.TotalInputs, dev.Channels.FinalSources(), run)
			}
			return w.Flush()
		},
	}
	return cmd
}

func NewReportCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <guid>",
		Short: "Print the report of the latest scan of a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return command.NewApiClient(cfg).Report(args[0], cmd.OutOrStdout())
		},
	}
	return cmd
}

func NewRunsCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs <guid>",
		Short: "Print the scan history of a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := command.NewApiClient(cfg).Runs(args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tTIMESTAMP\tOUT\tIN\tOUT SOURCE\tIN SOURCE\tDISCREPANCY\tERROR")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%s\t%t\t%s\n", r.ID, r.Timestamp, r.Outputs, r.Inputs,
					r.OutputSource, r.InputSource, r.Discrepancy, r.Error)
			}
			return w.Flush()
		},
	}
	return cmd
}

func NewScanCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [device...]",
		Short: "Ask the discover server to scan devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := command.NewApiClient(cfg).Scan(args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s\n", run.ID)
			for _, r := range run.Results {
				fmt.Fprintln(cmd.OutOrStdout(), scanner.Summary(r))
			}
			return nil
		},
	}
	return cmd
}
