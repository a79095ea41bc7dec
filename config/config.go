// Package config loads the vhandled configuration file.
//
// The file is TOML. Every setting has a default, so an empty file (or no
// file at all) gives a working development setup: an in-memory QL database,
// a public port of 14000, and no access tokens.
package config

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/ndlib/vhandle/handle"
	"github.com/ndlib/vhandle/internal/log"
)

// DefaultPrefix is the placeholder naming authority used when none is
// configured. Handles minted under it are not resolvable globally.
const DefaultPrefix = "123456789"

// Config holds every setting of the daemon and the CLI.
type Config struct {
	Handle     Handle     `toml:"handle"`
	Versioning Versioning `toml:"versioning"`
	Database   Database   `toml:"database"`
	Server     Server     `toml:"server"`
	Log        Log        `toml:"log"`
	Sentry     Sentry     `toml:"sentry"`
}

type Handle struct {
	Prefix             string   `toml:"prefix"`
	CanonicalPrefix    string   `toml:"canonical_prefix"`
	AdditionalPrefixes []string `toml:"additional_prefixes"`
}

type Versioning struct {
	Enabled bool `toml:"enabled"`
}

// Database selects MySQL when a dial string is given, and the QL database
// otherwise.
type Database struct {
	MySQL string `toml:"mysql"`
	QL    string `toml:"ql"`
}

type Server struct {
	Port      string `toml:"port"`
	PProfPort string `toml:"pprof_port"`
	// Tokens names a file listing the access tokens. Empty means every
	// caller is an admin.
	Tokens string `toml:"tokens"`
}

type Log struct {
	Level      string `toml:"level"`
	Structured bool   `toml:"structured"`
	File       string `toml:"file"`
}

type Sentry struct {
	DSN string `toml:"dsn"`
}

// Default returns the configuration used for anything a file leaves out.
func Default() Config {
	return Config{
		Handle: Handle{
			CanonicalPrefix: handle.DefaultCanonicalPrefix,
		},
		Versioning: Versioning{Enabled: true},
		Database:   Database{QL: "memory"},
		Server:     Server{Port: "14000"},
		Log:        Log{Level: "info"},
	}
}

// Load reads the file at path over the defaults. An empty path gives the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return cfg, errors.Wrapf(err, "config %s", path)
		}
		for _, key := range md.Undecoded() {
			log.Warnf("config %s: unknown setting %s", path, key)
		}
	}
	cfg.fill()
	return cfg, nil
}

// Decode parses configuration text over the defaults.
func Decode(text string) (Config, error) {
	cfg := Default()
	if _, err := toml.Decode(text, &cfg); err != nil {
		return cfg, errors.Wrap(err, "config")
	}
	cfg.fill()
	return cfg, nil
}

func (cfg *Config) fill() {
	if cfg.Handle.Prefix == "" {
		log.Errorf("handle.prefix is not set, using %s. Handles minted now will not resolve globally.", DefaultPrefix)
		cfg.Handle.Prefix = DefaultPrefix
	}
}

// Parser returns the handle parser for the configured prefixes.
func (cfg Config) Parser() handle.Parser {
	return handle.Parser{
		Prefix:          cfg.Handle.Prefix,
		CanonicalPrefix: cfg.Handle.CanonicalPrefix,
		Additional:      cfg.Handle.AdditionalPrefixes,
	}
}

// LogConfig converts the log section for log.Setup.
func (cfg Config) LogConfig() log.Config {
	return log.Config{
		Level:      cfg.Log.Level,
		Structured: cfg.Log.Structured,
		File:       cfg.Log.File,
	}
}
