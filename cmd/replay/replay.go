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

package replay

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cansat-ground/go-relay/pkg/command"
	"github.com/cansat-ground/go-relay/pkg/config"
	"github.com/cansat-ground/go-relay/pkg/log"
	"github.com/cansat-ground/go-relay/pkg/store"
)

const (
	StoreOptionName = "store"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	var persist bool
	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Run a captured link stream through a new session",
		Long:  "Run a captured link stream through a new session and print forwarded records as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			var st store.Store
			if persist {
				st, err = store.Open(cfg.Store)
				if err != nil {
					return err
				}
				defer st.Close()
			}
			info, err := command.Replay(cfg, filepath.Base(args[0]), f, cmd.OutOrStdout(), st)
			if err != nil {
				return err
			}
			log.Info("Session %s: %d samples", info.ID, info.Samples)
			return nil
		},
	}
	cmd.Flags().BoolVar(&persist, StoreOptionName, false, "Persist samples to the configured store backends")
	return cmd
}
