// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"flag"

	"github.com/mstarongithub/way2shell/config"
	"github.com/sirupsen/logrus"
)

var (
	configPath = flag.String(
		"config",
		"",
		"Path to the config file. If empty, the xdg config dirs are searched for way2shell/config.toml (or .yaml)",
	)
	toolMode = flag.Bool(
		"tool",
		false,
		"Start as a tool instead of a compositor",
	)
	help = flag.Bool(
		"help",
		false,
		"Show this help message (or the tool one if -tool is set)",
	)
)

func main() {
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Warnln("Failed to load config, continuing with defaults")
	}
	if level, err := logrus.ParseLevel(conf.LogLevel); err == nil {
		logrus.SetLevel(level)
	} else if conf.LogLevel != "" {
		logrus.WithField("log_level", conf.LogLevel).Warnln("Unknown log level in config")
	}

	if *toolMode {
		utilMain(&conf)
	} else {
		wlMain(&conf)
	}
}
