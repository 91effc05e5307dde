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

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/cansat-ground/go-relay/pkg/log"
)

type SerialConfig struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baudRate"`
	ReadTimeout time.Duration `yaml:"readTimeout"`
	// Acknowledge makes the relay answer every telemetry frame with a text line
	Acknowledge bool `yaml:"acknowledge"`
}

type ServerConfig struct {
	Address        string   `yaml:"address"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type RelayConfig struct {
	DataTimeout  time.Duration `yaml:"dataTimeout"`
	TextTimeout  time.Duration `yaml:"textTimeout"`
	PollInterval time.Duration `yaml:"pollInterval"`
}

type PipelineConfig struct {
	MaxSkew           time.Duration `yaml:"maxSkew"`
	BroadcastInterval time.Duration `yaml:"broadcastInterval"`
	// Sensors holds the enable state every new session starts with.
	// Sensors missing from the map are enabled.
	Sensors map[string]bool `yaml:"sensors"`
}

type Affine struct {
	K float64 `yaml:"k"`
	M float64 `yaml:"m"`
}

type Offset struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

type AccelerationCalibration struct {
	X Affine `yaml:"x"`
	Y Affine `yaml:"y"`
	Z Affine `yaml:"z"`
	// Gravity converts normalized units to m/s^2
	Gravity float64 `yaml:"gravity"`
}

type CalibrationConfig struct {
	Acceleration      AccelerationCalibration `yaml:"acceleration"`
	GyroscopeOffset   Offset                  `yaml:"gyroscopeOffset"`
	TemperatureInside Affine                  `yaml:"temperatureInside"`
	HumidityInside    Affine                  `yaml:"humidityInside"`
	HumidityOutside   Affine                  `yaml:"humidityOutside"`
}

type StoreConfig struct {
	// Backends is the list of enabled persistence backends, the first one serves queries
	Backends   []string `yaml:"backends"`
	BoltPath   string   `yaml:"boltPath"`
	SqlitePath string   `yaml:"sqlitePath"`
	CSVDir     string   `yaml:"csvDir"`
}

type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topicPrefix"`
	QoS         byte   `yaml:"qos"`
	Retain      bool   `yaml:"retain"`
}

type Config struct {
	LogLevel    string             `yaml:"logLevel"`
	Serial      *SerialConfig      `yaml:"serial"`
	Server      *ServerConfig      `yaml:"server"`
	Relay       *RelayConfig       `yaml:"relay"`
	Pipeline    *PipelineConfig    `yaml:"pipeline"`
	Calibration *CalibrationConfig `yaml:"calibration"`
	Store       *StoreConfig       `yaml:"store"`
	MQTT        *MQTTConfig        `yaml:"mqtt"`
	filepath    string
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	return os.WriteFile(c.filepath, data, 0644)
}

// LoadConfig reads the config file over the current values.
// Sections left empty in the file keep their current values. On error c is unchanged.
func (c *Config) LoadConfig() error {
	data, err := os.ReadFile(c.filepath)
	if err != nil {
		return err
	}
	loaded, err := c.clone()
	if err != nil {
		return err
	}
	if err = yaml.Unmarshal(data, loaded); err != nil {
		return err
	}
	loaded.restoreSections(c)
	if err := loaded.Validate(); err != nil {
		return err
	}
	*c = *loaded
	return nil
}

func (c *Config) clone() (*Config, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	cp := &Config{filepath: c.filepath}
	if err := yaml.Unmarshal(data, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// restoreSections puts back the sections a null YAML value has cleared
func (c *Config) restoreSections(prev *Config) {
	if c.Serial == nil {
		c.Serial = prev.Serial
	}
	if c.Server == nil {
		c.Server = prev.Server
	}
	if c.Relay == nil {
		c.Relay = prev.Relay
	}
	if c.Pipeline == nil {
		c.Pipeline = prev.Pipeline
	}
	if c.Calibration == nil {
		c.Calibration = prev.Calibration
	}
	if c.Store == nil {
		c.Store = prev.Store
	}
	if c.MQTT == nil {
		c.MQTT = prev.MQTT
	}
}

// Load reads the config file if it exists. A missing or invalid file keeps the current values.
func (c *Config) Load() {
	err := c.LoadConfig()
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		log.Warning("Can not load config %s, keeping defaults: %s", c.filepath, err)
	}
}

func (c *Config) Path() string {
	return c.filepath
}

func (c *Config) SetPath(path string) {
	c.filepath = path
}

func (c *Config) Validate() error {
	for name, missing := range map[string]bool{
		"serial":      c.Serial == nil,
		"server":      c.Server == nil,
		"relay":       c.Relay == nil,
		"pipeline":    c.Pipeline == nil,
		"calibration": c.Calibration == nil,
		"store":       c.Store == nil,
		"mqtt":        c.MQTT == nil,
	} {
		if missing {
			return ErrInvalidConfig{Field: name, What: "section is missing"}
		}
	}
	if !log.ValidLevel(c.LogLevel) {
		return ErrInvalidConfig{Field: "logLevel", What: log.HelpLevels}
	}
	if c.Serial.BaudRate <= 0 {
		return ErrInvalidConfig{Field: "serial.baudRate", What: "must be positive"}
	}
	if c.Relay.DataTimeout <= 0 || c.Relay.TextTimeout <= 0 {
		return ErrInvalidConfig{Field: "relay", What: "timeouts must be positive"}
	}
	if c.Relay.PollInterval <= 0 {
		return ErrInvalidConfig{Field: "relay.pollInterval", What: "must be positive"}
	}
	if c.Pipeline.MaxSkew <= 0 {
		return ErrInvalidConfig{Field: "pipeline.maxSkew", What: "must be positive"}
	}
	if c.Calibration.Acceleration.Gravity == 0 {
		return ErrInvalidConfig{Field: "calibration.acceleration.gravity", What: "must not be zero"}
	}
	for _, backend := range c.Store.Backends {
		switch backend {
		case StoreBackendBolt, StoreBackendSqlite, StoreBackendCSV:
		default:
			return ErrInvalidConfig{Field: "store.backends", What: "unknown backend " + backend}
		}
	}
	return nil
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, ConfigFile)
}

func identity() Affine {
	return Affine{K: 1, M: 0}
}

func NewDefaultConfig() *Config {
	home := filepath.Dir(DefaultConfigPath())
	return &Config{
		LogLevel: DefaultLogLevel,
		Serial: &SerialConfig{
			Port:        DefaultSerialPort,
			BaudRate:    DefaultBaudRate,
			ReadTimeout: DefaultSerialReadTimeout,
		},
		Server: &ServerConfig{
			Address:        DefaultServerAddress,
			Port:           DefaultServerPort,
			AllowedOrigins: []string{"*"},
		},
		Relay: &RelayConfig{
			DataTimeout:  DefaultDataTimeout,
			TextTimeout:  DefaultTextTimeout,
			PollInterval: DefaultPollInterval,
		},
		Pipeline: &PipelineConfig{
			MaxSkew:           DefaultMaxSkew,
			BroadcastInterval: DefaultBroadcastInterval,
			Sensors:           map[string]bool{},
		},
		Calibration: &CalibrationConfig{
			Acceleration: AccelerationCalibration{
				X:       identity(),
				Y:       identity(),
				Z:       identity(),
				Gravity: DefaultGravity,
			},
			TemperatureInside: identity(),
			HumidityInside:    identity(),
			HumidityOutside:   identity(),
		},
		Store: &StoreConfig{
			Backends:   []string{DefaultStoreBackend},
			BoltPath:   filepath.Join(home, DefaultBoltFile),
			SqlitePath: filepath.Join(home, DefaultSqliteFile),
			CSVDir:     DefaultCSVDir,
		},
		MQTT: &MQTTConfig{
			Broker:      DefaultMQTTBroker,
			TopicPrefix: DefaultMQTTTopicPrefix,
		},
		filepath: DefaultConfigPath(),
	}
}
