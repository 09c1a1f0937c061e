// internal/config/profiles.go
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/nhath/ezconn/internal/db"
)

var (
	// ErrProfileNotFound is returned when no profile has the requested name
	ErrProfileNotFound = errors.New("profile not found")
	// ErrProfileExists is returned when adding a profile whose name is taken
	ErrProfileExists = errors.New("profile already exists")
)

// GetProfile retrieves a profile by name
func (c *Config) GetProfile(name string) (*Profile, error) {
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			return &c.Profiles[i], nil
		}
	}
	return nil, errors.Wrap(ErrProfileNotFound, name)
}

// ConnectParams maps the profile onto the opener's parameters
func (p Profile) ConnectParams(timeout time.Duration) db.ConnectParams {
	return db.ConnectParams{
		Host:     p.Host,
		Port:     p.Port,
		User:     p.User,
		Password: p.Password,
		Database: p.Database,
		Timeout:  timeout,
	}
}

// SSHConfig returns the tunnel settings, or nil when the profile has no SSH host
func (p Profile) SSHConfig(timeout time.Duration) *db.SSHConfig {
	if p.SSHHost == "" {
		return nil
	}
	return &db.SSHConfig{
		Host:           p.SSHHost,
		Port:           p.SSHPort,
		User:           p.SSHUser,
		Password:       p.SSHPassword,
		KeyPath:        p.SSHKeyPath,
		KnownHostsPath: p.SSHKnownHosts,
		Timeout:        timeout,
	}
}

// AddProfile adds a new profile to the config
func (c *Config) AddProfile(p Profile) error {
	for _, existing := range c.Profiles {
		if existing.Name == p.Name {
			return errors.Wrap(ErrProfileExists, p.Name)
		}
	}
	c.Profiles = append(c.Profiles, p)
	if err := c.Save(); err != nil {
		c.Profiles = c.Profiles[:len(c.Profiles)-1]
		return err
	}
	return nil
}

// UpdateProfile updates an existing profile
func (c *Config) UpdateProfile(name string, p Profile) error {
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			c.Profiles[i] = p
			return c.Save()
		}
	}
	return errors.Wrap(ErrProfileNotFound, name)
}

// DeleteProfile removes a profile from the config
func (c *Config) DeleteProfile(name string) error {
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			c.Profiles = append(c.Profiles[:i], c.Profiles[i+1:]...)
			if c.DefaultProfile == name {
				c.DefaultProfile = ""
			}
			return c.Save()
		}
	}
	return errors.Wrap(ErrProfileNotFound, name)
}

// SetDefault marks an existing profile as the default
func (c *Config) SetDefault(name string) error {
	if _, err := c.GetProfile(name); err != nil {
		return err
	}
	c.DefaultProfile = name
	return c.Save()
}

// ListProfiles returns all profile names
func (c *Config) ListProfiles() []string {
	names := make([]string, len(c.Profiles))
	for i, p := range c.Profiles {
		names[i] = p.Name
	}
	return names
}

// BuildDSN returns a display URI for the profile. The password is never
// included.
func (p *Profile) BuildDSN() string {
	switch p.Type {
	case "postgres", "mysql":
		host := p.Host
		if p.Port != 0 {
			host = fmt.Sprintf("%s:%d", p.Host, p.Port)
		}
		user := p.User
		if user != "" {
			user += "@"
		}
		return fmt.Sprintf("%s://%s%s/%s", p.Type, user, host, p.Database)
	case "sqlite":
		return fmt.Sprintf("sqlite://%s", p.Database)
	default:
		return ""
	}
}

// ParseDSN parses a connection string into a Profile
func ParseDSN(name, dsn string) (Profile, error) {
	p := Profile{Name: name}

	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		if err := p.parseURL(dsn, "postgres", 5432); err != nil {
			return p, err
		}
	case strings.HasPrefix(dsn, "mysql://"):
		if err := p.parseURL(dsn, "mysql", 3306); err != nil {
			return p, err
		}
	case strings.HasPrefix(dsn, "sqlite://"), strings.HasPrefix(dsn, "file:"):
		p.Type = "sqlite"
		path := strings.TrimPrefix(dsn, "sqlite://")
		p.Database = strings.TrimPrefix(path, "file:")
	default:
		// Bare paths are SQLite files
		p.Type = "sqlite"
		p.Database = dsn
	}

	return p, nil
}

func (p *Profile) parseURL(dsn, typ string, defaultPort int) error {
	u, err := url.Parse(dsn)
	if err != nil {
		return errors.Wrap(err, "parse dsn")
	}
	p.Type = typ
	p.Host = u.Hostname()
	p.Port = defaultPort
	if port := u.Port(); port != "" {
		p.Port, err = strconv.Atoi(port)
		if err != nil {
			return errors.Wrapf(err, "invalid port %q", port)
		}
	}
	p.User = u.User.Username()
	p.Password, _ = u.User.Password()
	p.Database = strings.TrimPrefix(u.Path, "/")
	return nil
}
