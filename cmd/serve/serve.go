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

package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cansat-ground/go-relay/pkg/command"
	"github.com/cansat-ground/go-relay/pkg/config"
)

const (
	SerialPortOptionName  = "serial-port"
	BaudRateOptionName    = "baud-rate"
	AddressOptionName     = "address"
	PortOptionName        = "port"
	AcknowledgeOptionName = "acknowledge"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	var serialPort, address string
	var baudRate, port int
	var acknowledge bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Read the payload link and serve viewers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if serialPort != "" {
				cfg.Serial.Port = serialPort
			}
			if baudRate != 0 {
				cfg.Serial.BaudRate = baudRate
			}
			if address != "" {
				cfg.Server.Address = address
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed(AcknowledgeOptionName) {
				cfg.Serial.Acknowledge = acknowledge
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return command.StartRelayServer(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&serialPort, SerialPortOptionName, "", fmt.Sprintf("Serial port of the radio. E.g. %s", config.DefaultSerialPort))
	cmd.Flags().IntVar(&baudRate, BaudRateOptionName, 0, fmt.Sprintf("Serial baud rate. E.g. %d", config.DefaultBaudRate))
	cmd.Flags().StringVar(&address, AddressOptionName, "", fmt.Sprintf("Address to bind. E.g. %s", config.DefaultServerAddress))
	cmd.Flags().IntVar(&port, PortOptionName, 0, fmt.Sprintf("Port to bind. E.g. %d", config.DefaultServerPort))
	cmd.Flags().BoolVar(&acknowledge, AcknowledgeOptionName, false, "Answer every telemetry frame with an acknowledgment line")

	return cmd
}
