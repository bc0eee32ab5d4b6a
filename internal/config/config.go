package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultFileName is looked up in the template directory by the CLI
	DefaultFileName = "livelayout.yaml"

	DefaultPrefix             = "layout"
	DefaultDecoratorAttribute = "decorator"
	DefaultFragmentAttribute  = "fragment"
	DefaultSuffix             = ".html"
	DefaultMaxDepth           = 8
)

// Config represents the livelayout configuration
type Config struct {
	// Prefix is the attribute namespace, "layout" in layout:decorator
	Prefix string `yaml:"prefix" validate:"required,excludes=:"`

	// DecoratorAttribute is the local name of the attribute naming a decorator
	DecoratorAttribute string `yaml:"decorator_attribute" validate:"required,excludes=:,nefield=FragmentAttribute"`

	// FragmentAttribute is the local name of the attribute declaring a fragment
	FragmentAttribute string `yaml:"fragment_attribute" validate:"required,excludes=:"`

	// TemplateDir is the directory decorators and pages are loaded from
	TemplateDir string `yaml:"template_dir" validate:"required"`

	// Suffix is appended to template names to form file names
	Suffix string `yaml:"suffix"`

	// Cache keeps parsed templates in memory between renders
	Cache bool `yaml:"cache"`

	// CacheLimit caps the cached templates' combined size in tree nodes;
	// 0 means unlimited
	CacheLimit int64 `yaml:"cache_limit" validate:"min=0"`

	// Encoding is the WHATWG label of the template files' character encoding
	Encoding string `yaml:"encoding"`

	// Watch invalidates cached templates when their files change
	Watch bool `yaml:"watch"`

	// MaxDepth bounds how many decorators may wrap one page
	MaxDepth int `yaml:"max_depth" validate:"min=1,max=64"`

	// Minify strips insignificant whitespace from rendered output
	Minify bool `yaml:"minify"`

	Log LogConfig `yaml:"log"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

// Default returns a new Config with default values
func Default() *Config {
	return &Config{
		Prefix:             DefaultPrefix,
		DecoratorAttribute: DefaultDecoratorAttribute,
		FragmentAttribute:  DefaultFragmentAttribute,
		TemplateDir:        ".",
		Suffix:             DefaultSuffix,
		Cache:              true,
		Encoding:           "utf-8",
		MaxDepth:           DefaultMaxDepth,
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration file at path over the defaults and validates
// the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := Parse(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML data into cfg, keeping the values of keys the data does
// not mention, then validates cfg.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg.Validate()
}

// DecoratorAttributeName returns the qualified decorator attribute name
func (c *Config) DecoratorAttributeName() string {
	return c.Prefix + ":" + c.DecoratorAttribute
}

// FragmentAttributeName returns the qualified fragment attribute name
func (c *Config) FragmentAttributeName() string {
	return c.Prefix + ":" + c.FragmentAttribute
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field and reports all failures in one error
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("invalid config: %w", err)
	}

	msgs := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		msgs = append(msgs, validationMessage(e))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func validationMessage(e validator.FieldError) string {
	field := strings.TrimPrefix(e.Namespace(), "Config.")
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, e.Param())
	case "excludes":
		return fmt.Sprintf("%s must not contain %q", field, e.Param())
	case "nefield":
		return fmt.Sprintf("%s must differ from %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
