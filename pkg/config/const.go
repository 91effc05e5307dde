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

package config

import "time"

const (
	ConfigDir  = ".go-relay"
	ConfigFile = "config"

	DefaultLogLevel = "info"

	DefaultSerialPort        = "/dev/ttyUSB0"
	DefaultBaudRate          = 115200
	DefaultSerialReadTimeout = 50 * time.Millisecond

	DefaultServerAddress = "127.0.0.1"
	DefaultServerPort    = 8765

	DefaultDataTimeout  = 100 * time.Millisecond
	DefaultTextTimeout  = time.Second
	DefaultPollInterval = 5 * time.Millisecond

	DefaultMaxSkew           = 10 * time.Minute
	DefaultBroadcastInterval = 500 * time.Millisecond

	DefaultGravity = 9.82

	StoreBackendBolt   = "bolt"
	StoreBackendSqlite = "sqlite"
	StoreBackendCSV    = "csv"

	DefaultStoreBackend = StoreBackendBolt
	DefaultBoltFile     = "relay.db"
	DefaultSqliteFile   = "relay.sqlite"
	DefaultCSVDir       = "data"

	DefaultMQTTBroker      = "tcp://127.0.0.1:1883"
	DefaultMQTTTopicPrefix = "cansat"
)
