package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"gopkg.in/yaml.v3"
)

// Default endpoints and OAuth parameters for the public photo API.
const (
	DefaultBaseURL      = "https://api.unsplash.com"
	DefaultAuthorizeURL = "https://unsplash.com/oauth/authorize"
	DefaultTokenURL     = "https://unsplash.com/oauth/token"
	DefaultRedirectURI  = "urn:ietf:wg:oauth:2.0:oob"
	DefaultAccessScope  = "public+read_user+write_likes"
)

// Config holds all configuration for the application
type Config struct {
	API  APIConfig  `yaml:"api"`
	Auth AuthConfig `yaml:"auth"`
	Feed FeedConfig `yaml:"feed"`
	Log  LogConfig  `yaml:"log"`
}

// APIConfig holds API endpoint configuration
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
}

// AuthConfig holds OAuth authorization configuration
type AuthConfig struct {
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	RedirectURI  string `yaml:"redirect_uri"`
	AccessScope  string `yaml:"access_scope"`
	AuthorizeURL string `yaml:"authorize_url"`
	TokenURL     string `yaml:"token_url"`
}

// FeedConfig holds photo feed configuration
type FeedConfig struct {
	PerPage int `yaml:"per_page"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file. Missing endpoint values
// fall back to the public API defaults, and the OAuth client secrets
// may be overridden through PHOTOFEED_ACCESS_KEY / PHOTOFEED_SECRET_KEY.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with all defaults applied, for use
// when no config file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.Auth.AuthorizeURL == "" {
		c.Auth.AuthorizeURL = DefaultAuthorizeURL
	}
	if c.Auth.TokenURL == "" {
		c.Auth.TokenURL = DefaultTokenURL
	}
	if c.Auth.RedirectURI == "" {
		c.Auth.RedirectURI = DefaultRedirectURI
	}
	if c.Auth.AccessScope == "" {
		c.Auth.AccessScope = DefaultAccessScope
	}
	if c.Feed.PerPage <= 0 {
		c.Feed.PerPage = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if key := os.Getenv("PHOTOFEED_ACCESS_KEY"); key != "" {
		c.Auth.AccessKey = key
	}
	if key := os.Getenv("PHOTOFEED_SECRET_KEY"); key != "" {
		c.Auth.SecretKey = key
	}
}

// OAuth2Config builds the oauth2 client configuration used to
// construct the browser authorization URL. The access scope is a
// "+"-separated list; it is split here so the scope parameter encodes
// as space-separated scopes rather than one unknown scope.
func (c *AuthConfig) OAuth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.AccessKey,
		ClientSecret: c.SecretKey,
		RedirectURL:  c.RedirectURI,
		Scopes:       strings.Split(c.AccessScope, "+"),
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.AuthorizeURL,
			TokenURL: c.TokenURL,
		},
	}
}

// AuthCodeURL returns the URL the user opens in a browser to grant
// access and obtain an authorization code.
func (c *AuthConfig) AuthCodeURL() string {
	return c.OAuth2Config().AuthCodeURL("")
}
