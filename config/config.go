// Package config collects the runtime's environment and YAML settings into
// one value, read once at startup.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/aura-studio/lambda-runtime/dynamic"
	"github.com/aura-studio/lambda-runtime/execution"
	"github.com/aura-studio/lambda-runtime/httpengine"
	"github.com/aura-studio/lambda-runtime/runtimeapi"
	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-multierror"
	"github.com/mohae/deepcopy"
)

const (
	EnvRuntimeAPI      = "AWS_LAMBDA_RUNTIME_API"
	EnvHandler         = "_HANDLER"
	EnvTaskRoot        = "LAMBDA_TASK_ROOT"
	EnvFunctionName    = "AWS_LAMBDA_FUNCTION_NAME"
	EnvFunctionVersion = "AWS_LAMBDA_FUNCTION_VERSION"
	EnvMemorySize      = "AWS_LAMBDA_FUNCTION_MEMORY_SIZE"
	EnvLogGroupName    = "AWS_LAMBDA_LOG_GROUP_NAME"
	EnvLogStreamName   = "AWS_LAMBDA_LOG_STREAM_NAME"
)

var (
	ErrMissingRuntimeAPI = errors.New("config: " + EnvRuntimeAPI + " is not set")
	ErrMissingHandler    = errors.New("config: handler is not set")
)

type Config struct {
	RuntimeAPI string
	Handler    string
	TaskRoot   string

	FunctionName    string
	FunctionVersion string
	MemoryLimitMB   int
	LogGroupName    string
	LogStreamName   string

	DebugMode    bool
	LogLevel     string
	LogFormat    string
	TraceEnabled bool
	MetaEnabled  bool

	// TraceExporter is "stdout", "otlp" or empty for no export.
	TraceExporter string
	TraceEndpoint string

	NotifyQueueURL string
	NotifyEncoding string

	CorsMode         bool
	PageNotFoundPath string
	StaticLinks      map[string]string
	PrefixLinks      map[string]string
	HeaderLinks      map[string]string

	// Dynamic holds the raw `dynamic:` YAML section.
	Dynamic []byte

	// File is the YAML file that was loaded, if any.
	File string
}

var defaultConfig = &Config{
	LogLevel:       "info",
	LogFormat:      "text",
	NotifyEncoding: "json",
}

// Load builds a Config. YAML documents apply in option order, then the
// environment; the environment wins for the handler name.
func Load(opts ...Option) (*Config, error) {
	o := NewOptions(opts...)
	if o.errs != nil {
		return nil, o.errs.ErrorOrNil()
	}

	c := deepcopy.Copy(defaultConfig).(*Config)

	docs := o.documents
	if o.useDefaultFile {
		taskRoot, _ := o.Lookup(EnvTaskRoot)
		if p, err := FindDefaultConfigFile(taskRoot); err == nil {
			b, err := os.ReadFile(p)
			if err != nil {
				return nil, fmt.Errorf("config: read %s: %w", p, err)
			}
			docs = append([]document{{path: p, data: b}}, docs...)
		}
	}
	for _, d := range docs {
		if err := c.applyYAML(d.data); err != nil {
			if d.path != "" {
				return nil, fmt.Errorf("config: %s: %w", d.path, err)
			}
			return nil, fmt.Errorf("config: %w", err)
		}
		if d.path != "" {
			c.File = d.path
		}
	}

	if err := c.applyEnviron(o.Lookup); err != nil {
		return nil, err
	}

	var result *multierror.Error
	if c.RuntimeAPI == "" {
		result = multierror.Append(result, ErrMissingRuntimeAPI)
	}
	if c.Handler == "" {
		result = multierror.Append(result, ErrMissingHandler)
	}
	return c, result.ErrorOrNil()
}

func (c *Config) applyEnviron(lookup func(string) (string, bool)) error {
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}

	c.RuntimeAPI = get(EnvRuntimeAPI)
	if v := get(EnvHandler); v != "" {
		c.Handler = v
	}
	c.TaskRoot = get(EnvTaskRoot)
	c.FunctionName = get(EnvFunctionName)
	c.FunctionVersion = get(EnvFunctionVersion)
	c.LogGroupName = get(EnvLogGroupName)
	c.LogStreamName = get(EnvLogStreamName)

	if v := get(EnvMemorySize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvMemorySize, err)
		}
		c.MemoryLimitMB = n
	}
	return nil
}

// Environment returns the function identity exposed on every execution
// context.
func (c *Config) Environment() execution.Environment {
	return execution.Environment{
		FunctionName:    c.FunctionName,
		FunctionVersion: c.FunctionVersion,
		MemoryLimitMB:   c.MemoryLimitMB,
		LogGroupName:    c.LogGroupName,
		LogStreamName:   c.LogStreamName,
	}
}

func (c *Config) ClientOptions() []runtimeapi.Option {
	return []runtimeapi.Option{runtimeapi.WithRuntimeAPI(c.RuntimeAPI)}
}

func (c *Config) DynamicOptions() ([]dynamic.Option, error) {
	opts := []dynamic.Option{dynamic.WithEnvironment(c.Environment())}
	if len(c.Dynamic) == 0 {
		return opts, nil
	}
	opt, err := dynamic.ParseConfig(c.Dynamic)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return append(opts, opt), nil
}

// EngineOptions configures the HTTP engine behind the "http" handler.
func (c *Config) EngineOptions() []httpengine.Option {
	var opts []httpengine.Option
	if c.DebugMode {
		opts = append(opts, httpengine.WithDebugMode())
	}
	if c.CorsMode {
		opts = append(opts, httpengine.WithCors())
	}
	if c.PageNotFoundPath != "" {
		opts = append(opts, httpengine.WithPageNotFoundPath(c.PageNotFoundPath))
	}
	return opts
}

func (c *Config) NotifyEnabled() bool {
	return c.NotifyQueueURL != ""
}

// NewLogger returns the runtime logger writing to w.
func (c *Config) NewLogger(w io.Writer) *log.Logger {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	if c.DebugMode {
		level = log.DebugLevel
	}

	formatter := log.TextFormatter
	switch c.LogFormat {
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	}

	return log.NewWithOptions(w, log.Options{
		Prefix:          "bootstrap",
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
	})
}
