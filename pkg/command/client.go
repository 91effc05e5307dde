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

package command

import (
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/imroc/req"

	"github.com/cansat-ground/go-relay/pkg/config"
	"github.com/cansat-ground/go-relay/pkg/session"
	"github.com/cansat-ground/go-relay/pkg/srv"
	"github.com/cansat-ground/go-relay/pkg/telemetry"
)

type ApiClient struct {
	*config.Config
	ApiPrefix string
}

func NewApiClient(cfg *config.Config) *ApiClient {
	host := cfg.Server.Address
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	return &ApiClient{
		Config:    cfg,
		ApiPrefix: fmt.Sprintf("http://%s/api", net.JoinHostPort(host, strconv.Itoa(cfg.Server.Port))),
	}
}

func check(r *req.Resp) error {
	if r.Response().StatusCode != http.StatusOK {
		return ErrApi{Status: r.Response().Status, Message: r.String()}
	}
	return nil
}

func (c *ApiClient) get(path string, v interface{}) error {
	r, err := req.Get(c.ApiPrefix + path)
	if err != nil {
		return err
	}
	if err := check(r); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	return r.ToJSON(v)
}

func (c *ApiClient) post(path string, body, v interface{}) error {
	var params []interface{}
	if body != nil {
		params = append(params, req.BodyJSON(body))
	}
	r, err := req.Post(c.ApiPrefix+path, params...)
	if err != nil {
		return err
	}
	if err := check(r); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	return r.ToJSON(v)
}

// Sensors returns the sensor defaults new sessions start with
func (c *ApiClient) Sensors() ([]srv.SensorState, error) {
	var states []srv.SensorState
	err := c.get("/sensors", &states)
	return states, err
}

// SetSensor enables or disables a sensor on the payload and in every session
func (c *ApiClient) SetSensor(name string, enabled bool) (*srv.SensorState, error) {
	action := "disable"
	if enabled {
		action = "enable"
	}
	state := &srv.SensorState{}
	if err := c.post(fmt.Sprintf("/sensors/%s/%s", name, action), nil, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Transmission starts or stops payload transmission
func (c *ApiClient) Transmission(start bool) error {
	action := "stop"
	if start {
		action = "start"
	}
	return c.post("/transmission/"+action, nil, nil)
}

func (c *ApiClient) Sessions() ([]session.Info, error) {
	var infos []session.Info
	err := c.get("/sessions", &infos)
	return infos, err
}

func (c *ApiClient) ActiveSessions() ([]session.Info, error) {
	var infos []session.Info
	err := c.get("/sessions/active", &infos)
	return infos, err
}

func (c *ApiClient) Samples(id string) ([]telemetry.Sample, error) {
	var samples []telemetry.Sample
	err := c.get(fmt.Sprintf("/sessions/%s/samples", id), &samples)
	return samples, err
}

// Persist starts capturing the raw link bytes to a file in dir
func (c *ApiClient) Persist(dir, filePrefix string) (string, error) {
	capture := &srv.Capture{}
	err := c.post("/persist", &srv.Persist{Dir: dir, FilePrefix: filePrefix}, capture)
	return capture.Filename, err
}

// Flush stops the running capture
func (c *ApiClient) Flush() (*srv.Capture, error) {
	capture := &srv.Capture{}
	if err := c.get("/flush", capture); err != nil {
		return nil, err
	}
	return capture, nil
}
