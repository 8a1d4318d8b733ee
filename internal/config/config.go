// Package config holds rostercal settings loaded from an optional YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"rostercal/internal/ics"
	"rostercal/internal/people"
)

// RuleConfig is an extra suffix rule applied after the built-in ones.
type RuleConfig struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	Replace string `yaml:"replace"`
}

// SheetsConfig points at a Google Sheets range holding the roster.
type SheetsConfig struct {
	SpreadsheetID string `yaml:"spreadsheet_id"`
	Range         string `yaml:"range"`
	// Account selects token-<account>.json written by the auth command.
	Account string `yaml:"account"`
}

// GoogleConfig holds OAuth client credentials. Empty values fall back to
// credentials.json.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// CalDAVConfig describes the calendar the publish command writes to.
type CalDAVConfig struct {
	Endpoint string `yaml:"endpoint"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Calendar string `yaml:"calendar"`
}

// ServerConfig configures the HTTP feed.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// Config is the top-level configuration.
type Config struct {
	// Input is the default CSV roster path.
	Input string `yaml:"input"`

	// Timezone is the IANA zone roster times are written in.
	Timezone string `yaml:"timezone"`

	ProductID    string `yaml:"product_id"`
	CalendarName string `yaml:"calendar_name"`
	// UTC writes event times in UTC instead of floating local time.
	UTC bool `yaml:"utc"`

	// Aliases maps short or alternative names to a canonical full name.
	Aliases map[string]string `yaml:"aliases"`
	// StripRules extend the built-in annotation stripping.
	StripRules []RuleConfig `yaml:"strip_rules"`
	// DisableNameLearning stops first names in titles from being expanded
	// to full names seen elsewhere in the roster.
	DisableNameLearning bool `yaml:"disable_name_learning"`

	Sheets SheetsConfig `yaml:"sheets"`
	Google GoogleConfig `yaml:"google"`
	CalDAV CalDAVConfig `yaml:"caldav"`
	Server ServerConfig `yaml:"server"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Timezone:  "Europe/London",
		ProductID: ics.DefaultProductID,
		Aliases:   map[string]string{},
		Sheets: SheetsConfig{
			Range:   "A:F",
			Account: "default",
		},
		Server: ServerConfig{Listen: ":8080"},
	}
}

// Normalize fills zero values with defaults.
func (c *Config) Normalize() {
	d := Default()
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.ProductID == "" {
		c.ProductID = d.ProductID
	}
	if c.Aliases == nil {
		c.Aliases = map[string]string{}
	}
	if c.Sheets.Range == "" {
		c.Sheets.Range = d.Sheets.Range
	}
	if c.Sheets.Account == "" {
		c.Sheets.Account = d.Sheets.Account
	}
	if c.Server.Listen == "" {
		c.Server.Listen = d.Server.Listen
	}
}

// Load reads the YAML file at path, applies environment overrides and
// normalizes the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.Normalize()
	return cfg, nil
}

func (c *Config) applyEnv() {
	lookupEnv("ROSTER_INPUT", &c.Input)
	lookupEnv("ROSTER_TIMEZONE", &c.Timezone)
	lookupEnv("ROSTER_CALENDAR_NAME", &c.CalendarName)
	lookupEnv("ROSTER_SHEET_ID", &c.Sheets.SpreadsheetID)
	lookupEnv("ROSTER_SHEET_RANGE", &c.Sheets.Range)
	lookupEnv("GOOGLE_ACCOUNT", &c.Sheets.Account)
	lookupEnv("GOOGLE_CLIENT_ID", &c.Google.ClientID)
	lookupEnv("GOOGLE_CLIENT_SECRET", &c.Google.ClientSecret)
	lookupEnv("CALDAV_ENDPOINT", &c.CalDAV.Endpoint)
	lookupEnv("CALDAV_USERNAME", &c.CalDAV.Username)
	lookupEnv("CALDAV_PASSWORD", &c.CalDAV.Password)
	lookupEnv("CALDAV_CALENDAR_NAME", &c.CalDAV.Calendar)
	lookupEnv("LISTEN_ADDR", &c.Server.Listen)
}

func lookupEnv(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
	}
	return loc, nil
}

// Canonicalizer builds the person canonicalizer from aliases and rules.
func (c *Config) Canonicalizer() (*people.Canonicalizer, error) {
	rules := make([]people.Rule, 0, len(c.StripRules))
	for i, rc := range c.StripRules {
		name := rc.Name
		if name == "" {
			name = fmt.Sprintf("strip_rules[%d]", i)
		}
		r, err := people.NewRule(name, rc.Pattern, rc.Replace)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return people.New(
		people.WithRules(rules...),
		people.WithDirectory(people.NewDirectory(c.Aliases)),
	), nil
}

// Serializer returns the calendar serializer for this configuration.
func (c *Config) Serializer() ics.Serializer {
	return ics.Serializer{
		ProductID:    c.ProductID,
		CalendarName: c.CalendarName,
		UTC:          c.UTC,
	}
}

// ErrNoSource is returned when neither a CSV input nor a sheet is set.
var ErrNoSource = errors.New("no roster source: set an input file or a spreadsheet id")

// CheckSource verifies a roster source is configured.
func (c *Config) CheckSource() error {
	if c.Input == "" && c.Sheets.SpreadsheetID == "" {
		return ErrNoSource
	}
	return nil
}
