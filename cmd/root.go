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

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cansat-ground/go-relay/cmd/capture"
	"github.com/cansat-ground/go-relay/cmd/completion"
	"github.com/cansat-ground/go-relay/cmd/config"
	"github.com/cansat-ground/go-relay/cmd/ports"
	"github.com/cansat-ground/go-relay/cmd/replay"
	"github.com/cansat-ground/go-relay/cmd/sensor"
	"github.com/cansat-ground/go-relay/cmd/serve"
	"github.com/cansat-ground/go-relay/cmd/session"
	"github.com/cansat-ground/go-relay/cmd/transmission"
	pkgconfig "github.com/cansat-ground/go-relay/pkg/config"
	"github.com/cansat-ground/go-relay/pkg/log"
)

const (
	LogLevelOptionName = "log-level"
)

func NewRootCommand(out io.Writer) *cobra.Command {
	var logLevel string
	cfg := pkgconfig.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:           "go-relay",
		Short:         "Ground station relay between a CanSat payload and telemetry viewers",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			log.Init(cmd.ErrOrStderr(), cfg.LogLevel)
		},
	}
	cmd.SetOut(out)
	cmd.AddCommand(serve.NewCommand(cfg))
	cmd.AddCommand(sensor.NewCommand(cfg))
	cmd.AddCommand(transmission.NewCommand(cfg))
	cmd.AddCommand(session.NewCommand(cfg))
	cmd.AddCommand(capture.NewCommand(cfg))
	cmd.AddCommand(replay.NewCommand(cfg))
	cmd.AddCommand(config.NewCommand(cfg))
	cmd.AddCommand(ports.NewCommand())
	cmd.AddCommand(completion.NewCommand())
	cmd.PersistentFlags().StringVar(&logLevel, LogLevelOptionName, "", fmt.Sprintf("Log level. %s", log.HelpLevels))
	return cmd
}
