// Copyright 2025 The gVisor Authors.
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

// Package config provides basic infrastructure to set configuration settings
// for runk. Each setting is a flag, and may also come from a TOML file
// passed with --config.
package config

import (
	"fmt"

	"gokern.dev/gokern/pkg/hostarch"
	"gokern.dev/gokern/pkg/log"
)

// Config holds configuration that is not part of the application itself.
type Config struct {
	// LogFilename is the filename to log to, if not empty. It may contain
	// %COMMAND% and %TIMESTAMP%.
	LogFilename string `flag:"log" toml:"log" yaml:"log"`

	// LogFormat is the log format. Valid values are "text", "json" and
	// "json-k8s".
	LogFormat string `flag:"log-format" toml:"log-format" yaml:"log-format"`

	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug" toml:"debug" yaml:"debug"`

	// Strace indicates that every syscall should be logged.
	Strace bool `flag:"strace" toml:"strace" yaml:"strace"`

	// MemoryBase is the physical address where memory starts.
	MemoryBase uint64 `flag:"memory-base" toml:"memory-base" yaml:"memory-base"`

	// MemorySize is the size of physical memory in bytes.
	MemorySize uint64 `flag:"memory-size" toml:"memory-size" yaml:"memory-size"`

	// MaxUserAddress is the exclusive upper bound of user mappings.
	MaxUserAddress uint64 `flag:"max-user-address" toml:"max-user-address" yaml:"max-user-address"`

	// UserStackTop is the exclusive end of every task's stack.
	UserStackTop uint64 `flag:"user-stack-top" toml:"user-stack-top" yaml:"user-stack-top"`

	// UserStackPages is the number of pages of every task's stack.
	UserStackPages uint64 `flag:"user-stack-pages" toml:"user-stack-pages" yaml:"user-stack-pages"`
}

func (c *Config) validate() error {
	switch c.LogFormat {
	case "text", "json", "json-k8s":
	default:
		return fmt.Errorf("invalid log format %q, must be 'text', 'json', or 'json-k8s'", c.LogFormat)
	}
	if c.MemorySize == 0 || c.MemorySize%hostarch.PageSize != 0 {
		return fmt.Errorf("memory-size %#x must be a positive multiple of the page size", c.MemorySize)
	}
	if c.MemoryBase%hostarch.PageSize != 0 {
		return fmt.Errorf("memory-base %#x is not page aligned", c.MemoryBase)
	}
	if c.MemoryBase+c.MemorySize < c.MemoryBase {
		return fmt.Errorf("memory [%#x, +%#x) overflows", c.MemoryBase, c.MemorySize)
	}
	if c.MaxUserAddress == 0 || c.MaxUserAddress%hostarch.PageSize != 0 {
		return fmt.Errorf("max-user-address %#x must be positive and page aligned", c.MaxUserAddress)
	}
	if c.UserStackTop%hostarch.PageSize != 0 || c.UserStackTop > c.MaxUserAddress {
		return fmt.Errorf("user-stack-top %#x must be page aligned and at most max-user-address %#x", c.UserStackTop, c.MaxUserAddress)
	}
	// Programs keep their scratch data on the stack.
	if c.UserStackPages == 0 {
		return fmt.Errorf("user-stack-pages must be at least 1")
	}
	if c.UserStackPages > c.UserStackTop/hostarch.PageSize {
		return fmt.Errorf("%d stack pages do not fit below user-stack-top %#x", c.UserStackPages, c.UserStackTop)
	}
	return nil
}

// Log logs the configuration.
func (c *Config) Log() {
	log.Infof("Config.LogFilename: %s", c.LogFilename)
	log.Infof("Config.LogFormat: %s", c.LogFormat)
	log.Infof("Config.Debug: %t", c.Debug)
	log.Infof("Config.Strace: %t", c.Strace)
	log.Infof("Config.MemoryBase: %#x", c.MemoryBase)
	log.Infof("Config.MemorySize: %#x", c.MemorySize)
	log.Infof("Config.MaxUserAddress: %#x", c.MaxUserAddress)
	log.Infof("Config.UserStackTop: %#x", c.UserStackTop)
	log.Infof("Config.UserStackPages: %d", c.UserStackPages)
}
