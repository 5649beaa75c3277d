package glyph

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultPort is the Glyph Server's default listen port.
const DefaultPort = 2807

// Options configures a Client.
type Options struct {
	// Host of a running Glyph Server.
	Host string
	// Port of a running Glyph Server. Zero means launch a private server
	// subprocess on a free port instead of connecting to an existing one.
	Port int
	// Auth is the shared-secret token sent during the handshake.
	Auth string
	// Version, when set, pins the Glyph language version for the session.
	Version string

	// ConnectTimeout bounds the dial plus handshake.
	ConnectTimeout time.Duration
	// CallTimeout bounds each command round trip. Zero blocks forever,
	// which is the Glyph default: meshing commands can legitimately run
	// for hours.
	CallTimeout time.Duration

	// LaunchProgram overrides the server executable used when Port is
	// zero. Empty picks the platform default.
	LaunchProgram string
	// LaunchArgs replaces the default arguments of the launched server.
	LaunchArgs []string
	// LaunchGrace bounds how long Close waits for a launched server to
	// exit before killing it.
	LaunchGrace time.Duration

	// OutputCallback, when set, receives each line the launched server
	// writes to stdout or stderr. Unset lines go to the package logger
	// at debug level.
	OutputCallback func(string)

	// Trace, when set, receives a binary record of every wire exchange.
	Trace io.Writer

	// Registry overrides the handle category registry. Nil uses the
	// process-wide default.
	Registry *Registry
}

// DefaultOptions returns options for connecting to a server on localhost,
// honoring the GLYPH_SERVER_PORT and GLYPH_SERVER_AUTH environment
// variables the server tooling sets.
func DefaultOptions() Options {
	opts := Options{
		Host:           "localhost",
		Port:           DefaultPort,
		ConnectTimeout: 5 * time.Second,
		LaunchGrace:    5 * time.Second,
	}
	if v := os.Getenv("GLYPH_SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			opts.Port = p
		}
	}
	if v := os.Getenv("GLYPH_SERVER_AUTH"); v != "" {
		opts.Auth = v
	}
	return opts
}

// withDefaults fills zero-valued fields that have package defaults.
func (o Options) withDefaults() Options {
	if o.Host == "" {
		o.Host = "localhost"
	}
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = 5 * time.Second
	}
	if o.LaunchGrace == 0 {
		o.LaunchGrace = 5 * time.Second
	}
	return o
}

// ConfigDir returns the directory searched for the client config file:
// $GLYPH_CONFIG_DIR if set, else $XDG_CONFIG_HOME/glyph, else
// ~/.config/glyph.
func ConfigDir() (string, error) {
	if dir := os.Getenv("GLYPH_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "glyph"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "glyph"), nil
}

// LoadOptions reads client.toml from ConfigDir on top of DefaultOptions.
// A missing file is not an error; a malformed file is.
func LoadOptions() (Options, error) {
	opts := DefaultOptions()
	dir, err := ConfigDir()
	if err != nil {
		return opts, err
	}
	return loadOptionsFile(opts, filepath.Join(dir, "client.toml"))
}

// duration accepts Go duration strings ("90s", "2h") in TOML.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// fileConfig is the on-disk shape of client.toml.
type fileConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	Auth           string   `toml:"auth"`
	Version        string   `toml:"version"`
	ConnectTimeout duration `toml:"connect_timeout"`
	CallTimeout    duration `toml:"call_timeout"`
	LaunchProgram  string   `toml:"launch_program"`
	LaunchArgs     []string `toml:"launch_args"`
	LaunchGrace    duration `toml:"launch_grace"`
}

func loadOptionsFile(opts Options, path string) (Options, error) {
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return opts, nil
		}
		return opts, err
	}

	// Only keys present in the file override the baseline.
	if md.IsDefined("host") {
		opts.Host = fc.Host
	}
	if md.IsDefined("port") {
		opts.Port = fc.Port
	}
	if md.IsDefined("auth") {
		opts.Auth = fc.Auth
	}
	if md.IsDefined("version") {
		opts.Version = fc.Version
	}
	if md.IsDefined("connect_timeout") {
		opts.ConnectTimeout = fc.ConnectTimeout.Duration
	}
	if md.IsDefined("call_timeout") {
		opts.CallTimeout = fc.CallTimeout.Duration
	}
	if md.IsDefined("launch_program") {
		opts.LaunchProgram = fc.LaunchProgram
	}
	if md.IsDefined("launch_args") {
		opts.LaunchArgs = fc.LaunchArgs
	}
	if md.IsDefined("launch_grace") {
		opts.LaunchGrace = fc.LaunchGrace.Duration
	}
	return opts, nil
}
