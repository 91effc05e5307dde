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

package store

import (
	_ "embed"
)

const (
	insertSessionSQL = `
INSERT INTO sessions (id,
                      started_at,
                      source)
VALUES (?, ?, ?)`

	updateSessionSamplesSQL = `
UPDATE sessions
SET samples = samples + 1
WHERE id = ?`

	selectSessionsSQL = `
SELECT id,
       started_at,
       source,
       samples
FROM sessions
ORDER BY started_at`

	selectSessionExistsSQL = `
SELECT COUNT(*)
FROM sessions
WHERE id = ?`

	insertSampleSQL = `
INSERT INTO samples (session_id,
                     time,
                     received_at,
                     strange,
                     accel_x,
                     accel_y,
                     accel_z,
                     gyro_x,
                     gyro_y,
                     gyro_z,
                     temperature_outside,
                     distance,
                     air_quality,
                     sound,
                     temperature_inside,
                     humidity_inside,
                     humidity_outside)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectSamplesSQL = `
SELECT time,
       received_at,
       strange,
       accel_x,
       accel_y,
       accel_z,
       gyro_x,
       gyro_y,
       gyro_z,
       temperature_outside,
       distance,
       air_quality,
       sound,
       temperature_inside,
       humidity_inside,
       humidity_outside
FROM samples
WHERE session_id = ?
ORDER BY id`
)

//go:embed schema.sql
var schemaSQL string
