package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"farmacias-turno/internal/acquire"
	"farmacias-turno/internal/components/configutil"
	"farmacias-turno/internal/components/telemetry"
	"farmacias-turno/internal/farmacias"

	"dario.cat/mergo"
)

const (
	StrategyDirect   = "direct"
	StrategyRendered = "rendered"
	StrategyEscalate = "escalate"
)

type ServerConfig struct {
	Port int `json:"port"`
}

type UpstreamConfig struct {
	Url            string `json:"url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	DefaultComuna  string `json:"default_comuna"`
	UserAgent      string `json:"user_agent"`
}

type BrowserConfig struct {
	ExecPath string `json:"exec_path"`
	// RemoteUrl is a devtools endpoint (ex. ws://127.0.0.1:9222) to attach to
	// instead of launching a local browser.
	RemoteUrl string `json:"remote_url"`
	// Hosted forces the serverless bundle lookup, it is also detected from the environment.
	Hosted    bool `json:"hosted"`
	NoSandbox bool `json:"no_sandbox"`
}

type Config struct {
	Server   ServerConfig   `json:"server"`
	Upstream UpstreamConfig `json:"upstream"`
	// Strategy is one of "direct", "rendered" or "escalate".
	Strategy  string           `json:"strategy"`
	Browser   BrowserConfig    `json:"browser"`
	Telemetry telemetry.Config `json:"telemetry"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{Port: 3000},
		Upstream: UpstreamConfig{
			Url:            farmacias.DefaultUpstreamURL,
			TimeoutSeconds: int(acquire.DefaultTimeout / time.Second),
			DefaultComuna:  farmacias.DefaultComuna,
		},
		Strategy: StrategyDirect,
	}
}

// LookupEnv is os.LookupEnv, tests replace it.
type LookupEnv func(key string) (string, bool)

// Load reads path (and its .local override) on top of Default, then applies the
// environment. A missing file is not an error.
func Load(path string, lookup LookupEnv) (Config, error) {
	return load(configutil.ReadConfig[Config], path, lookup)
}

// LoadNearest is Load for a bare file name, which is looked up in the working
// directory and then in each of its parents. Names with a directory are read
// as they are.
func LoadNearest(name string, lookup LookupEnv) (Config, error) {
	if filepath.Base(name) != name {
		return Load(name, lookup)
	}
	return load(configutil.ReadRecursively[Config], name, lookup)
}

func load(read func(string) (Config, error), path string, lookup LookupEnv) (Config, error) {
	cfg := Default()

	fromFile, err := read(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		err = mergo.Merge(&cfg, fromFile, mergo.WithOverride)
		if err != nil {
			return Config{}, fmt.Errorf("merge config: %w", err)
		}
	}

	if lookup == nil {
		lookup = os.LookupEnv
	}
	err = applyEnv(&cfg, lookup)
	if err != nil {
		return Config{}, err
	}

	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup LookupEnv) error {
	if port, ok := lookup("PORT"); ok && port != "" {
		parsed, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.Server.Port = parsed
	}
	if upstream, ok := lookup("MINSAL_URL"); ok && upstream != "" {
		cfg.Upstream.Url = upstream
	}
	if strategy, ok := lookup("FARMACIAS_STRATEGY"); ok && strategy != "" {
		cfg.Strategy = strategy
	}
	if execPath, ok := lookup("CHROME_PATH"); ok && execPath != "" {
		cfg.Browser.ExecPath = execPath
	}
	if remote, ok := lookup("CHROME_REMOTE_URL"); ok && remote != "" {
		cfg.Browser.RemoteUrl = remote
	}
	if isHosted(lookup) {
		cfg.Browser.Hosted = true
	}
	return nil
}

// isHosted detects serverless platforms, they ship a bundled chromium and no sandbox support.
func isHosted(lookup LookupEnv) bool {
	for _, key := range []string{"AWS_LAMBDA_FUNCTION_NAME", "NETLIFY"} {
		value, ok := lookup(key)
		if ok && value != "" {
			return true
		}
	}
	return false
}

func (c Config) Validate() error {
	switch c.Strategy {
	case StrategyDirect, StrategyRendered, StrategyEscalate:
	default:
		return fmt.Errorf("unknown strategy %q, expected one of %s, %s or %s", c.Strategy, StrategyDirect, StrategyRendered, StrategyEscalate)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Upstream.TimeoutSeconds <= 0 {
		return fmt.Errorf("upstream timeout must be positive, got %d", c.Upstream.TimeoutSeconds)
	}
	parsed, err := url.Parse(c.Upstream.Url)
	if err != nil {
		return fmt.Errorf("upstream url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("upstream url %q must be http or https", c.Upstream.Url)
	}
	return nil
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.Upstream.TimeoutSeconds) * time.Second
}

func (c Config) PipelineConfig() farmacias.Config {
	return farmacias.Config{
		UpstreamURL:   c.Upstream.Url,
		DefaultComuna: c.Upstream.DefaultComuna,
	}
}

func (c Config) ChromeOptions() acquire.ChromeOptions {
	return acquire.ChromeOptions{
		Locate: acquire.LocateOptions{
			ExecPath: c.Browser.ExecPath,
			Hosted:   c.Browser.Hosted,
		},
		RemoteURL: c.Browser.RemoteUrl,
		NoSandbox: c.Browser.Hosted || c.Browser.NoSandbox,
		UserAgent: c.Upstream.UserAgent,
	}
}

// NewAcquirer builds the acquisition strategy named by the configuration.
func NewAcquirer(c Config, tel telemetry.API) (farmacias.Acquirer, error) {
	direct := func() acquire.Direct {
		return acquire.NewDirect(acquire.DirectOptions{
			Timeout:   c.Timeout(),
			UserAgent: c.Upstream.UserAgent,
		}, tel)
	}
	rendered := func() acquire.Rendered {
		browser := acquire.NewChromeBrowser(c.ChromeOptions(), tel)
		return acquire.NewRendered(browser, c.Timeout(), tel)
	}

	switch c.Strategy {
	case StrategyDirect:
		return direct(), nil
	case StrategyRendered:
		return rendered(), nil
	case StrategyEscalate:
		return acquire.NewEscalating(direct(), rendered(), tel), nil
	}
	return nil, fmt.Errorf("unknown strategy %q", c.Strategy)
}
