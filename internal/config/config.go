// Package config loads memorymatch settings from an HCL file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// DefaultFile is read when no config path is given
const DefaultFile = "memorymatch.hcl"

// Config is the complete configuration
type Config struct {
	Cards           string          `hcl:"cards,optional" validate:"required"`
	MismatchDelayMs int             `hcl:"mismatch_delay_ms,optional" validate:"gt=0,lte=60000"`
	Seed            *int64          `hcl:"seed,optional"`
	Server          *ServerSettings `hcl:"server,block"`
	Log             *LogSettings    `hcl:"log,block"`
}

// ServerSettings configures the browser server
type ServerSettings struct {
	Address   string `hcl:"address,optional" validate:"required"`
	AssetsDir string `hcl:"assets_dir,optional"`
}

// LogSettings configures logging
type LogSettings struct {
	Level string `hcl:"level,optional" validate:"oneof=debug info warn error"`
	File  string `hcl:"file,optional"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Cards:           "data/cards.json",
		MismatchDelayMs: 1000,
		Server: &ServerSettings{
			Address:   ":8080",
			AssetsDir: "data/assets",
		},
		Log: &LogSettings{
			Level: "info",
			File:  "memorymatch.log",
		},
	}
}

// Load reads filename. A missing file yields the defaults.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Cards == "" {
		c.Cards = defaults.Cards
	}
	if c.MismatchDelayMs == 0 {
		c.MismatchDelayMs = defaults.MismatchDelayMs
	}
	if c.Server == nil {
		c.Server = defaults.Server
	} else {
		if c.Server.Address == "" {
			c.Server.Address = defaults.Server.Address
		}
		if c.Server.AssetsDir == "" {
			c.Server.AssetsDir = defaults.Server.AssetsDir
		}
	}
	if c.Log == nil {
		c.Log = defaults.Log
	} else {
		if c.Log.Level == "" {
			c.Log.Level = defaults.Log.Level
		}
		if c.Log.File == "" {
			c.Log.File = defaults.Log.File
		}
	}
}

var validate = validator.New()

// Validate checks value ranges
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		problems := make([]string, len(fieldErrs))
		for i, fe := range fieldErrs {
			problems[i] = fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %s", strings.Join(problems, ", "))
	}
	return nil
}

// MismatchDelay returns the mismatch delay as a duration
func (c *Config) MismatchDelay() time.Duration {
	return time.Duration(c.MismatchDelayMs) * time.Millisecond
}
