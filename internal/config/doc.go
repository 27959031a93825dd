// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package config loads scsconsole settings.

Sources are layered, later ones winning:

 1. built-in defaults
 2. an optional YAML file (--config, SCS_CONFIG, or one of DefaultConfigPaths)
 3. environment variables prefixed SCS_

Environment names are the koanf path upper-cased with dots replaced by
underscores, for example SCS_DEVICE_CARD_ADDR for device.card_addr. List
values such as proxy.paths accept a comma-separated string.

Example file:

	server:
	  listen: 127.0.0.1:8080
	  static_dir: /srv/scsconsole/www
	device:
	  card_addr: 127.0.0.1:60001
	  key_addr: 127.0.0.1:60001
	  session_timeout: 30s
	  down_period: 1000
	  up_period: 1000
	mappings:
	  card_slot_file: /var/lib/scsconsole/cardSlotMapping.json
	  touch_screen_file: /var/lib/scsconsole/touchScreenMapping.json
	  watch: true
	logging:
	  level: debug
*/
package config
