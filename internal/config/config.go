package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/kolah/ontogen/internal/builder"
	"github.com/kolah/ontogen/internal/convert"
	"github.com/kolah/ontogen/internal/resolver"
	"github.com/spf13/cobra"
)

// DefaultFile is read from the working directory when --config is not set.
const DefaultFile = "ontogen.yaml"

const (
	DefaultAddr           = ":8080"
	DefaultMaxUploadBytes = 10 << 20
)

var validate = validator.New()

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		return name
	})
}

type Config struct {
	Specs     []string       `koanf:"specs" validate:"dive,required"`
	BaseURI   string         `koanf:"base-uri" validate:"required,url"`
	MaxDepth  int            `koanf:"max-depth" validate:"gte=1"`
	Formats   []string       `koanf:"formats" validate:"dive,oneof=turtle rdfxml all"`
	OutputDir string         `koanf:"output-dir"`
	Templates TemplateConfig `koanf:"templates"`
	Dedup     string         `koanf:"dedup" validate:"oneof=ref-depth ref"`
	Strict    bool           `koanf:"strict"`
	Fetch     FetchConfig    `koanf:"fetch"`
	Server    ServerConfig   `koanf:"server"`
}

type TemplateConfig struct {
	Dir string `koanf:"dir"`
}

type FetchConfig struct {
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

type ServerConfig struct {
	Addr           string `koanf:"addr" validate:"required"`
	UploadURL      string `koanf:"upload-url" validate:"omitempty,url"`
	MaxUploadBytes int64  `koanf:"max-upload-bytes" validate:"gt=0"`
}

// Defaults returns the configuration used before any file or flag is read.
func Defaults() map[string]any {
	return map[string]any{
		"base-uri":                convert.DefaultBaseURI,
		"max-depth":               builder.DefaultMaxDepth,
		"formats":                 []string{"turtle"},
		"output-dir":              ".",
		"dedup":                   string(builder.DedupRefDepth),
		"fetch.timeout":           resolver.DefaultTimeout,
		"server.addr":             DefaultAddr,
		"server.max-upload-bytes": int64(DefaultMaxUploadBytes),
	}
}

// BindCommonFlags binds the conversion flags shared by every command.
func BindCommonFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringP("config", "c", "", "Config file path (default: ontogen.yaml)")
	flags.String("base-uri", "", "Base URI of the generated ontology")
	flags.Int("max-depth", 0, "Maximum schema nesting depth")
	flags.String("dedup", "", "Reference class sharing: ref-depth or ref")
	flags.String("templates", "", "Custom templates directory")
	flags.Bool("strict", false, "Fail on OpenAPI validation errors")
	flags.Duration("fetch-timeout", 0, "Timeout for fetching external references")
}

// BindServerFlags binds the flags of the serve command.
func BindServerFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.String("addr", "", "Listen address")
	flags.String("upload-url", "", "CMS upload endpoint")
	flags.Int64("max-upload-bytes", 0, "Maximum accepted request body size")
}

// Load layers defaults, the config file and flags. Positional spec paths
// replace the configured ones.
func Load(cmd *cobra.Command, specs []string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		configFile, _ = cmd.PersistentFlags().GetString("config")
	}
	if configFile == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			configFile = DefaultFile
		}
	}

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	flagsMap := buildFlagsMap(cmd)
	if len(flagsMap) > 0 {
		if err := k.Load(confmap.Provider(flagsMap, "."), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if len(specs) > 0 {
		cfg.Specs = specs
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func buildFlagsMap(cmd *cobra.Command) map[string]any {
	m := make(map[string]any)

	flagChanged := func(name string) bool {
		return cmd.Flags().Changed(name) || cmd.PersistentFlags().Changed(name)
	}

	getString := func(name string) string {
		if v, err := cmd.Flags().GetString(name); err == nil && v != "" {
			return v
		}
		if v, err := cmd.PersistentFlags().GetString(name); err == nil && v != "" {
			return v
		}
		return ""
	}

	getStringSlice := func(name string) []string {
		if v, err := cmd.Flags().GetStringSlice(name); err == nil && len(v) > 0 {
			return v
		}
		if v, err := cmd.PersistentFlags().GetStringSlice(name); err == nil && len(v) > 0 {
			return v
		}
		return nil
	}

	getInt := func(name string) int {
		if v, err := cmd.Flags().GetInt(name); err == nil {
			return v
		}
		v, _ := cmd.PersistentFlags().GetInt(name)
		return v
	}

	getInt64 := func(name string) int64 {
		if v, err := cmd.Flags().GetInt64(name); err == nil {
			return v
		}
		v, _ := cmd.PersistentFlags().GetInt64(name)
		return v
	}

	getBool := func(name string) bool {
		if v, err := cmd.Flags().GetBool(name); err == nil {
			return v
		}
		v, _ := cmd.PersistentFlags().GetBool(name)
		return v
	}

	getDuration := func(name string) time.Duration {
		if v, err := cmd.Flags().GetDuration(name); err == nil {
			return v
		}
		v, _ := cmd.PersistentFlags().GetDuration(name)
		return v
	}

	if v := getString("base-uri"); v != "" {
		m["base-uri"] = v
	}
	if v := getString("dedup"); v != "" {
		m["dedup"] = v
	}
	if v := getString("templates"); v != "" {
		m["templates.dir"] = v
	}
	if v := getString("output-dir"); v != "" {
		m["output-dir"] = v
	}
	if v := getStringSlice("format"); len(v) > 0 {
		m["formats"] = v
	}
	if flagChanged("max-depth") {
		m["max-depth"] = getInt("max-depth")
	}
	if flagChanged("strict") {
		m["strict"] = getBool("strict")
	}
	if flagChanged("fetch-timeout") {
		m["fetch.timeout"] = getDuration("fetch-timeout")
	}

	if v := getString("addr"); v != "" {
		m["server.addr"] = v
	}
	if v := getString("upload-url"); v != "" {
		m["server.upload-url"] = v
	}
	if flagChanged("max-upload-bytes") {
		m["server.max-upload-bytes"] = getInt64("max-upload-bytes")
	}

	return m
}

func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fieldPath(fe), describe(fe)))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// fieldPath returns the dotted koanf key of a failing field.
func fieldPath(fe validator.FieldError) string {
	_, path, _ := strings.Cut(fe.Namespace(), ".")
	return path
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be an absolute URL"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// RequireSpecs reports a missing input for commands that convert files.
func (c *Config) RequireSpecs() error {
	if len(c.Specs) == 0 {
		return errors.New("at least one spec file is required")
	}
	return nil
}

// DedupMode returns the builder dedup mode selected by the dedup key.
func (c *Config) DedupMode() builder.DedupMode {
	return builder.DedupMode(c.Dedup)
}
