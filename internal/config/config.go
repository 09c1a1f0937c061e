// internal/config/config.go
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"github.com/pkg/errors"
)

const defaultConnectTimeout = 10 * time.Second

// KeySource supplies the key used to encrypt stored passwords
type KeySource func() ([]byte, error)

// Config represents the application configuration
type Config struct {
	DefaultProfile string `toml:"default_profile"`
	// ConnectTimeout is a Go duration string, e.g. "10s"
	ConnectTimeout string    `toml:"connect_timeout"`
	RecordAttempts bool      `toml:"record_attempts"`
	RetentionDays  int       `toml:"retention_days"`
	Profiles       []Profile `toml:"profiles"`
	Theme          Theme     `toml:"theme_colors"`

	path string
	keys KeySource
}

// Theme defines the color palette
type Theme struct {
	TextPrimary string `toml:"text_primary"`
	TextFaint   string `toml:"text_faint"`
	Accent      string `toml:"accent"`
	Success     string `toml:"success"`
	Error       string `toml:"error"`
	Warning     string `toml:"warning"`
}

// Profile represents a database connection profile
type Profile struct {
	Name     string `toml:"name"`
	Type     string `toml:"type"` // postgres, mysql, sqlite
	Host     string `toml:"host"`
	Port     int    `toml:"port,omitempty"`
	User     string `toml:"user"`
	Database string `toml:"database"`
	// Password is kept in memory for usage
	Password string `toml:"-"`
	// EncryptedPassword is the one persisted in the config file
	EncryptedPassword string `toml:"password,omitempty"`

	// SSH Tunnel Configuration
	SSHHost        string `toml:"ssh_host,omitempty"`
	SSHPort        int    `toml:"ssh_port,omitempty"`
	SSHUser        string `toml:"ssh_user,omitempty"`
	SSHPassword    string `toml:"-"`
	SSHKeyPath     string `toml:"ssh_key_path,omitempty"`
	SSHKnownHosts  string `toml:"ssh_known_hosts,omitempty"`
	EncryptedSSHPw string `toml:"ssh_password,omitempty"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		DefaultProfile: "",
		ConnectTimeout: defaultConnectTimeout.String(),
		RecordAttempts: true,
		RetentionDays:  90,
		Profiles:       []Profile{},
		Theme: Theme{
			// Nord
			TextPrimary: "#D8DEE9",
			TextFaint:   "#4C566A",
			Accent:      "#88C0D0",
			Success:     "#A3BE8C",
			Error:       "#BF616A",
			Warning:     "#D08770",
		},
	}
}

// ConfigPath returns the XDG-compliant config file path
func ConfigPath() (string, error) {
	return xdg.ConfigFile("ezconn/config.toml")
}

// Load loads the config from the XDG location, using the keyring master key
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, errors.Wrap(err, "resolve config path")
	}
	return LoadFile(path, GetMasterKey)
}

// LoadFile loads the config at path, creating it with defaults on first run.
// keys may be nil, in which case stored passwords stay encrypted and saving
// a new password fails.
func LoadFile(path string, keys KeySource) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.path, cfg.keys = path, keys
		if err := cfg.Save(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	cfg := Config{path: path, keys: keys}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	cfg.fillDefaults()

	if key, err := cfg.masterKey(); err == nil {
		for i := range cfg.Profiles {
			p := &cfg.Profiles[i]
			if p.EncryptedPassword != "" {
				if plain, err := Decrypt(p.EncryptedPassword, key); err == nil {
					p.Password = plain
				}
			}
			if p.EncryptedSSHPw != "" {
				if plain, err := Decrypt(p.EncryptedSSHPw, key); err == nil {
					p.SSHPassword = plain
				}
			}
		}
	}

	return &cfg, nil
}

// fillDefaults populates fields missing from older config files
func (c *Config) fillDefaults() {
	defaults := DefaultConfig()
	if c.Theme.TextPrimary == "" {
		c.Theme = defaults.Theme
	}
	if c.ConnectTimeout == "" {
		c.ConnectTimeout = defaults.ConnectTimeout
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = defaults.RetentionDays
	}
}

// Timeout returns the parsed connect timeout, falling back to the default
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.ConnectTimeout)
	if err != nil || d <= 0 {
		return defaultConnectTimeout
	}
	return d
}

// Path returns the file the config is saved to
func (c *Config) Path() string {
	return c.path
}

func (c *Config) masterKey() ([]byte, error) {
	if c.keys == nil {
		return nil, errors.New("no key source")
	}
	return c.keys()
}

// Save writes the config to disk. Plaintext passwords are encrypted first;
// if the master key is unavailable nothing is written.
func (c *Config) Save() error {
	if c.path == "" {
		path, err := ConfigPath()
		if err != nil {
			return errors.Wrap(err, "resolve config path")
		}
		c.path = path
	}

	if err := c.encryptPasswords(); err != nil {
		return err
	}

	// Ensure directory exists with secure permissions
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return errors.Wrap(err, "create config dir")
	}

	// Owner read/write only
	f, err := os.OpenFile(c.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return errors.Wrap(err, "open config")
	}
	defer f.Close()

	return errors.Wrap(toml.NewEncoder(f).Encode(c), "encode config")
}

func (c *Config) hasPlaintextPasswords() bool {
	for _, p := range c.Profiles {
		if p.Password != "" || p.SSHPassword != "" {
			return true
		}
	}
	return false
}

func (c *Config) encryptPasswords() error {
	if !c.hasPlaintextPasswords() {
		return nil
	}
	key, err := c.masterKey()
	if err != nil {
		return errors.Wrap(err, "master key unavailable, passwords not saved")
	}

	for i := range c.Profiles {
		p := &c.Profiles[i]
		if p.Password != "" {
			enc, err := Encrypt(p.Password, key)
			if err != nil {
				return errors.Wrapf(err, "encrypt password for %s", p.Name)
			}
			p.EncryptedPassword = enc
		}
		if p.SSHPassword != "" {
			enc, err := Encrypt(p.SSHPassword, key)
			if err != nil {
				return errors.Wrapf(err, "encrypt ssh password for %s", p.Name)
			}
			p.EncryptedSSHPw = enc
		}
	}
	return nil
}
