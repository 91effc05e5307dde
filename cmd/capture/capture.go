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

package capture

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cansat-ground/go-relay/pkg/command"
	"github.com/cansat-ground/go-relay/pkg/config"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	var filePrefix string
	var dir string
	cmd := &cobra.Command{
		Use:       "capture start|stop",
		Short:     "Start/stop capturing the raw link bytes",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"start", "stop"},
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			switch args[0] {
			case "start":
				filename, err := apiClient.Persist(dir, filePrefix)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Capturing to %s\n", filename)
				return nil
			case "stop":
				capture, err := apiClient.Flush()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Captured %s to %s\n", humanize.Bytes(capture.Bytes), capture.Filename)
				return nil
			default:
				return errors.New("Wrong capture command. Must be one of start/stop")
			}
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory path where to persist data")
	cmd.Flags().StringVar(&filePrefix, "file-prefix", "", "File name prefix")

	return cmd
}
