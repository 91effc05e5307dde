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

package session

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/cansat-ground/go-relay/pkg/command"
	"github.com/cansat-ground/go-relay/pkg/config"
	pkgsession "github.com/cansat-ground/go-relay/pkg/session"
)

const (
	ActiveOptionName = "active"
	OutputOptionName = "output"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect viewer sessions",
	}
	cmd.AddCommand(newListCommand(cfg))
	cmd.AddCommand(newSamplesCommand(cfg))
	return cmd
}

func printSessions(out io.Writer, infos []pkgsession.Info) {
	for _, info := range infos {
		source := info.Source
		if source == "" {
			source = "-"
		}
		fmt.Fprintf(out, "%s  %-12s  %s samples  %s\n",
			info.ID, humanize.Time(info.StartedAt), humanize.Comma(int64(info.Samples)), source)
	}
}

func newListCommand(cfg *config.Config) *cobra.Command {
	var active bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored or active sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			var infos []pkgsession.Info
			var err error
			if active {
				infos, err = apiClient.ActiveSessions()
			} else {
				infos, err = apiClient.Sessions()
			}
			if err != nil {
				return err
			}
			printSessions(cmd.OutOrStdout(), infos)
			return nil
		},
	}
	cmd.Flags().BoolVar(&active, ActiveOptionName, false, "Only sessions with a connected viewer")
	return cmd
}

func newSamplesCommand(cfg *config.Config) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "samples ID",
		Short: "Print the stored samples of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, err := command.NewApiClient(cfg).Samples(args[0])
			if err != nil {
				return err
			}
			var data []byte
			switch output {
			case "json":
				data, err = json.MarshalIndent(samples, "", "  ")
			case "yaml":
				data, err = yaml.Marshal(samples)
			default:
				return fmt.Errorf("Wrong output format %s. Must be one of json/yaml", output)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
	cmd.Flags().StringVarP(&output, OutputOptionName, "o", "json", "Output format: json or yaml")
	return cmd
}
