package config

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v6"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Defaults applied before any source is read.
const (
	DefaultName      = "ircserv"
	DefaultHost      = "0.0.0.0"
	DefaultPort      = 6667
	DefaultAdminAddr = "127.0.0.1:8080"
	DefaultSendQueue = 256
)

// Operator is a server operator credential accepted by OPER.
type Operator struct {
	Username string `yaml:"username" toml:"username" json:"username" validate:"required"`
	// Password is either a bcrypt hash or a plain secret.
	Password string `yaml:"password" toml:"password" json:"password" validate:"required"`
}

// Config represents the server configuration
type Config struct {
	// Server settings
	Server struct {
		Name      string   `yaml:"name" toml:"name" json:"name" env:"IRCSERV_NAME" validate:"required,hostname"`
		Host      string   `yaml:"host" toml:"host" json:"host" env:"IRCSERV_HOST" validate:"omitempty,ip4_addr"`
		Port      int      `yaml:"port" toml:"port" json:"port" env:"IRCSERV_PORT" validate:"min=1024,max=65535"`
		Password  string   `yaml:"password" toml:"password" json:"password" env:"IRCSERV_PASSWORD" validate:"required,printascii"`
		MOTD      []string `yaml:"motd" toml:"motd" json:"motd" env:"IRCSERV_MOTD" envSeparator:"|"`
		SendQueue int      `yaml:"send_queue" toml:"send_queue" json:"send_queue" env:"IRCSERV_SEND_QUEUE" validate:"min=1"`
		Debug     bool     `yaml:"debug" toml:"debug" json:"debug" env:"IRCSERV_DEBUG"`
	} `yaml:"server" toml:"server" json:"server"`

	// Admin HTTP API settings
	Admin struct {
		Enabled      bool     `yaml:"enabled" toml:"enabled" json:"enabled" env:"IRCSERV_ADMIN_ENABLED"`
		Addr         string   `yaml:"addr" toml:"addr" json:"addr" env:"IRCSERV_ADMIN_ADDR" validate:"omitempty,hostname_port"`
		BearerTokens []string `yaml:"bearer_tokens" toml:"bearer_tokens" json:"bearer_tokens" env:"IRCSERV_ADMIN_TOKENS"`
	} `yaml:"admin" toml:"admin" json:"admin"`

	// Operator definitions
	Operators []Operator `yaml:"operators" toml:"operators" json:"operators" validate:"dive"`

	// Configuration source, empty when built from defaults
	Source string `yaml:"-" toml:"-" json:"-"`
}

var validate = validator.New()

// Default returns a configuration holding only the built-in defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Name = DefaultName
	cfg.Server.Host = DefaultHost
	cfg.Server.Port = DefaultPort
	cfg.Server.SendQueue = DefaultSendQueue
	cfg.Admin.Addr = DefaultAdminAddr
	return cfg
}

// Load loads configuration from a file or URL, then applies environment
// overrides. An empty source yields the defaults plus the environment.
func Load(source string) (*Config, error) {
	cfg := Default()

	if source != "" {
		if err := cfg.loadFromSource(source); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return cfg, nil
}

// loadFromSource loads configuration from a file or URL
func (c *Config) loadFromSource(source string) error {
	var data []byte
	var err error

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		resp, err := http.Get(source)
		if err != nil {
			return fmt.Errorf("failed to load config from URL: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("failed to load config from URL, status: %s", resp.Status)
		}

		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read config from URL: %w", err)
		}
	} else {
		data, err = os.ReadFile(source)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Determine the format based on the extension, ignoring any URL query
	path := strings.SplitN(source, "?", 2)[0]
	switch {
	case strings.HasSuffix(path, ".toml"):
		err = toml.Unmarshal(data, c)
	case strings.HasSuffix(path, ".json"):
		err = json.Unmarshal(data, c)
	default:
		err = yaml.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	c.Source = source
	return nil
}

// Validate checks the configuration against its field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// CheckOperator reports whether user and pass match a configured operator.
func (c *Config) CheckOperator(user, pass string) bool {
	for _, op := range c.Operators {
		if op.Username != user {
			continue
		}
		if isBcrypt(op.Password) {
			return bcrypt.CompareHashAndPassword([]byte(op.Password), []byte(pass)) == nil
		}
		return subtle.ConstantTimeCompare([]byte(op.Password), []byte(pass)) == 1
	}
	return false
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// ListenAddress returns the host:port the IRC listener binds to
func (c *Config) ListenAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
