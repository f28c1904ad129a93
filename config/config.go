// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package config

type StartType int

const (
	// Tells way2shell to start a repl in parallel for interacting with it
	START_REPL = StartType(iota)
	// Tells way2shell to execute a specific command on startup
	START_SINGLE_COMMAND
	// Tells way2shell to start without any specific targets
	START_NONE
)

type Config struct {
	StartType StartType `envconfig:"START_TYPE,omitempty" toml:"start_type,omitempty" yaml:"start_type,omitempty"`
	// What command to execute on start. Only matters if StartType is set to START_SINGLE_COMMAND
	StartCommand *string `envconfig:"START_COMMAND,omitempty" toml:"start_command,omitempty" yaml:"start_command,omitempty"`
	// Logrus level name (trace, debug, info, warn, error)
	LogLevel string `envconfig:"LOG_LEVEL,omitempty" toml:"log_level,omitempty" yaml:"log_level,omitempty"`
	// Name of the wl_seat to create
	SeatName string `envconfig:"SEAT_NAME,omitempty" toml:"seat_name,omitempty" yaml:"seat_name,omitempty"`
	// Log a warning when a layer surface acks a serial that was never sent
	WarnLayerAcks bool `envconfig:"WARN_LAYER_ACKS,omitempty" toml:"warn_layer_acks,omitempty" yaml:"warn_layer_acks,omitempty"`
}

// Default returns the config used when no file is found
func Default() Config {
	return Config{
		StartType:     START_REPL,
		LogLevel:      "info",
		SeatName:      "seat0",
		WarnLayerAcks: true,
	}
}
