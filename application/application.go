package application

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/lk2023060901/relay-garden-go/internal/chat"
	"github.com/lk2023060901/relay-garden-go/internal/history"
	"github.com/lk2023060901/relay-garden-go/internal/network/acceptor"
	"github.com/lk2023060901/relay-garden-go/internal/network/session"
	zlog "github.com/lk2023060901/relay-garden-go/pkg/log"
	"github.com/lk2023060901/relay-garden-go/pkg/metrics"
	"github.com/lk2023060901/relay-garden-go/pkg/util/retry"
	zviper "github.com/lk2023060901/relay-garden-go/pkg/util/viper"
)

// ServerConfig holds the WebSocket listener settings.
type ServerConfig struct {
	Addr          string        `mapstructure:"addr"`
	Path          string        `mapstructure:"path"`
	SendQueueSize int           `mapstructure:"send-queue-size"`
	ReadTimeout   time.Duration `mapstructure:"read-timeout"`
	WriteTimeout  time.Duration `mapstructure:"write-timeout"`
}

// MetricsConfig holds the Prometheus exposition settings.
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Addr   string `mapstructure:"addr"`
}

// HistoryConfig holds the chat history storage settings.
type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	History HistoryConfig `mapstructure:"history"`
}

func defaultAppConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:          ":8080",
			Path:          "/ws",
			SendQueueSize: 256,
		},
		Metrics: MetricsConfig{
			Enable: false,
			Addr:   ":9091",
		},
		History: HistoryConfig{
			Path: "chat_history.sqlite",
		},
	}
}

// Application is the main runtime container for the relay server.
// It owns configuration and wires the history store, chat router and acceptor.
type Application struct {
	cfg     Config
	raw     *zviper.Config
	loggers map[string]*zlog.MLogger

	historyPathOverride string

	store history.Store
	acc   acceptor.Acceptor
}

// New creates a new Application instance.
func New() *Application {
	return &Application{}
}

// SetHistoryPath overrides the history storage path from the command line.
// It takes precedence over both defaults and the config file.
func (a *Application) SetHistoryPath(path string) {
	a.historyPathOverride = path
}

// Config returns the resolved configuration.
func (a *Application) Config() Config {
	return a.cfg
}

// Logger returns a named logger created from the "logging" config section.
// If the name is unknown, it falls back to the global logger.
func (a *Application) Logger(name string) *zlog.MLogger {
	if a.loggers == nil {
		return &zlog.MLogger{Logger: zlog.L()}
	}
	if lg, ok := a.loggers[name]; ok && lg != nil {
		return lg
	}
	return &zlog.MLogger{Logger: zlog.L()}
}

// Run starts the relay server and blocks until ctx is cancelled
// or a fatal error occurs.
//
// Startup order:
//  1. Resolve and load configuration.
//  2. Initialize logging from RELAY_LOG_* env vars.
//  3. Open the history store (retried, then fatal).
//  4. Serve WebSocket sessions and, optionally, metrics.
func (a *Application) Run(ctx context.Context) error {
	if err := a.loadConfig(); err != nil {
		return err
	}

	if err := a.initLogging(); err != nil {
		return err
	}
	if err := a.initModuleLoggers(); err != nil {
		return err
	}

	metrics.Register(prometheus.DefaultRegisterer)

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	a.store = store
	defer func() {
		_ = store.Close()
	}()

	router := chat.NewRouter(store)

	acc, err := acceptor.NewWSAcceptor(acceptor.Config{
		SendQueueSize: a.cfg.Server.SendQueueSize,
		ReadLimit:     chat.MaxMessageLen,
		ReadTimeout:   a.cfg.Server.ReadTimeout,
		WriteTimeout:  a.cfg.Server.WriteTimeout,
		Path:          a.cfg.Server.Path,
	}, session.NewMapManager())
	if err != nil {
		return err
	}
	a.acc = acc
	defer func() {
		_ = acc.Close()
	}()

	ln, err := net.Listen("tcp", a.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %q: %w", a.cfg.Server.Addr, err)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return acc.Serve(groupCtx, ln, router)
	})

	if a.cfg.Metrics.Enable {
		group.Go(func() error {
			return a.serveMetrics(groupCtx)
		})
	}

	return group.Wait()
}

// openStore opens the SQLite history store, retrying transient failures.
// A store that cannot be opened is fatal for the process.
func (a *Application) openStore(ctx context.Context) (history.Store, error) {
	path := a.cfg.History.Path
	if a.historyPathOverride != "" {
		path = a.historyPathOverride
	}

	var store history.Store
	err := retry.Do(ctx, func() error {
		s, err := history.OpenSQLite(path)
		if err != nil {
			return err
		}
		store = s
		return nil
	}, retry.Attempts(3), retry.Sleep(200*time.Millisecond))
	if err != nil {
		return nil, fmt.Errorf("open history store %q: %w", path, err)
	}
	return store, nil
}

// serveMetrics exposes the Prometheus registry over HTTP until ctx is cancelled.
func (a *Application) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    a.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// loadConfig resolves the config file path and loads it via the viper wrapper.
//
// Priority:
//  1. Default: ./config.yaml
//  2. Env: RELAY_CONFIG_FILE_PATH
//  3. CLI: --config <path> or --config=<path>
//
// A missing config file is not fatal: defaults are used instead.
func (a *Application) loadConfig() error {
	a.cfg = defaultAppConfig()

	configPath := "./config.yaml"
	explicit := false

	if envPath := os.Getenv("RELAY_CONFIG_FILE_PATH"); envPath != "" {
		configPath = envPath
		explicit = true
	}

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" {
			if i+1 >= len(args) {
				return fmt.Errorf("missing value after --config")
			}
			configPath = args[i+1]
			explicit = true
			i++
			continue
		}
		if strings.HasPrefix(arg, "--config=") {
			val := strings.TrimPrefix(arg, "--config=")
			if val != "" {
				configPath = val
				explicit = true
			}
			continue
		}
	}

	cfg := zviper.New()
	if err := cfg.LoadFile(configPath); err != nil {
		if !explicit && os.IsNotExist(err) {
			// No config file present, run with defaults.
			return nil
		}
		return fmt.Errorf("failed to load config file %q: %w", configPath, err)
	}
	a.raw = cfg

	if err := cfg.Unmarshal(&a.cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config file %q: %w", configPath, err)
	}
	return nil
}

// initLogging configures the process-wide logger based on RELAY_LOG_* env vars.
//
// Variables:
//   - RELAY_LOG_ENABLE: "1"/"true" to enable outputs; others treated as disabled.
//   - RELAY_LOG_LEVEL: log level (default "info").
//   - RELAY_LOG_STDOUT: whether to log to stdout (default true).
//   - RELAY_LOG_FILE_DIR: log directory.
//   - RELAY_LOG_FILE: log file name (empty means no file).
//   - RELAY_LOG_FORMAT: log format ("text" or "json", default "text").
func (a *Application) initLogging() error {
	enabled := getenvBool("RELAY_LOG_ENABLE", true)

	cfg := &zlog.Config{
		Level:             getenvDefault("RELAY_LOG_LEVEL", "info"),
		Format:            getenvDefault("RELAY_LOG_FORMAT", "text"),
		DisableTimestamp:  false,
		Stdout:            getenvBool("RELAY_LOG_STDOUT", true),
		DisableCaller:     false,
		DisableStacktrace: false,
		File: zlog.FileLogConfig{
			RootPath: getenvDefault("RELAY_LOG_FILE_DIR", ""),
			Filename: getenvDefault("RELAY_LOG_FILE", ""),
		},
	}

	// When not enabled, direct all outputs to a discarded sink.
	if !enabled {
		cfg.Stdout = false
		cfg.File.Filename = ""
	}

	logger, props, err := zlog.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("init global logger from env: %w", err)
	}
	zlog.ReplaceGlobals(logger, props)
	return nil
}

// initModuleLoggers creates named loggers from the YAML config under "logging".
//
// Example:
//
//	logging:
//	  chat:
//	    level: debug
//	    stdout: true
//	    file:
//	      rootpath: ./logs
//	      filename: chat.log
func (a *Application) initModuleLoggers() error {
	if a.raw == nil {
		return nil
	}

	raw := make(map[string]zlog.Config)
	if err := a.raw.UnmarshalKey("logging", &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}

	a.loggers = make(map[string]*zlog.MLogger, len(raw))
	for name, lc := range raw {
		cfgCopy := lc
		logger, _, err := zlog.InitLogger(&cfgCopy)
		if err != nil {
			return fmt.Errorf("init module logger %q: %w", name, err)
		}
		a.loggers[name] = &zlog.MLogger{Logger: logger}
	}
	return nil
}

func getenvDefault(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

func getenvBool(key string, def bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
