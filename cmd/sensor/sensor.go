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

package sensor

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cansat-ground/go-relay/pkg/command"
	"github.com/cansat-ground/go-relay/pkg/config"
	"github.com/cansat-ground/go-relay/pkg/telemetry"
)

func sensorNames() []string {
	var names []string
	for _, s := range telemetry.Sensors() {
		names = append(names, string(s))
	}
	return names
}

func NewCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sensor",
		Short: "List and toggle payload sensors",
	}
	cmd.AddCommand(newListCommand(cfg))
	cmd.AddCommand(newSetCommand(cfg, true))
	cmd.AddCommand(newSetCommand(cfg, false))
	return cmd
}

func newListCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show sensor defaults of new sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			states, err := command.NewApiClient(cfg).Sensors()
			if err != nil {
				return err
			}
			for _, s := range states {
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s code=%d enabled=%t\n", s.Name, s.Code, s.Enabled)
			}
			return nil
		},
	}
}

func newSetCommand(cfg *config.Config, enabled bool) *cobra.Command {
	use, short := "disable", "Disable a sensor"
	if enabled {
		use, short = "enable", "Enable a sensor"
	}
	return &cobra.Command{
		Use:       use + " SENSOR",
		Short:     short,
		Args:      cobra.ExactValidArgs(1),
		ValidArgs: sensorNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := command.NewApiClient(cfg).SetSensor(args[0], enabled)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s enabled=%t\n", state.Name, state.Enabled)
			return nil
		},
	}
}
