package auth

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

const (
	defaultAPIBase     = "https://api.komoot.de/v007"
	defaultAccountBase = "https://api.komoot.de/v006"
)

// Config holds the Komoot account credentials and endpoints, read from the environment
type Config struct {
	Email       string `required:"true" envconfig:"KOMOOT_EMAIL"`
	Password    string `required:"true" envconfig:"KOMOOT_PASSWORD"`
	APIBase     string `envconfig:"KOMOOT_API_BASE" default:"https://api.komoot.de/v007"`
	AccountBase string `envconfig:"KOMOOT_ACCOUNT_BASE" default:"https://api.komoot.de/v006"`
}

// LoadConfig reads the Komoot configuration from environment variables
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("reading komoot environment: %w", err)
	}
	return &cfg, nil
}

// NewConfig builds a Config from explicit values, falling back to the public Komoot endpoints
func NewConfig(email, password string) *Config {
	return &Config{
		Email:       email,
		Password:    password,
		APIBase:     defaultAPIBase,
		AccountBase: defaultAccountBase,
	}
}

// Session is the credential pair returned by a successful login.
// Komoot hands back a session token in the password field of the account response.
type Session struct {
	Username string
	Token    string
}

// Valid reports whether the session can be used for basic auth
func (s *Session) Valid() bool {
	return s != nil && s.Username != "" && s.Token != ""
}
