// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Load reads the config from the given path. An empty path searches the
// xdg config dirs for way2shell/config.toml, then config.yaml. If no file
// exists anywhere, the defaults are returned without error.
func Load(path string) (Config, error) {
	if path == "" {
		found, err := searchDefaultPaths()
		if err != nil {
			logrus.Debugln("No config file found, using defaults")
			return Default(), nil
		}
		path = found
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	conf := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &conf)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &conf)
	default:
		return Default(), fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return Default(), fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	logrus.WithField("path", path).Debugln("Loaded config")
	return conf, nil
}

func searchDefaultPaths() (string, error) {
	for _, name := range []string{"way2shell/config.toml", "way2shell/config.yaml"} {
		if path, err := xdg.SearchConfigFile(name); err == nil {
			return path, nil
		}
	}
	return "", os.ErrNotExist
}
