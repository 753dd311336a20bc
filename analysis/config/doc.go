// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package config provides a simple way to manage mkint's configuration files.

Use [Load](filename) to load a configuration from a specific filename.

Use [SetGlobalConfig](filename) to set filename as the global config, and then
[LoadGlobal]() to load the global config.

A config file is in yaml format. For example:

	log-level: 4
	iteration-cap: 64
	extra-sources:
	  - prefix: "net_recv_"
	extra-sinks:
	  - regex: "^my_.*_alloc$"

# Identifying functions

[NamePattern] identifies a function either by a literal name prefix or, if
Regex is set, a compiled regular expression matched against the full name.
*/
package config
