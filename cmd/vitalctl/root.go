package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/keneth-urbizagastegui/vitalband"
	"github.com/keneth-urbizagastegui/vitalband/adapters/bunstore"
	"github.com/keneth-urbizagastegui/vitalband/adapters/filestore"
)

var (
	cfgFile string
	verbose bool

	log = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "vitalctl",
	Short: "Command line portal for the VitalBand monitoring API",
	Long: `vitalctl talks to a VitalBand health monitoring deployment.

It keeps a local session (token plus user snapshot) between invocations,
attaches it to every request, and drops it the moment the server reports
the session expired.

Configuration is read from vitalctl.yaml, a .env file, and VITALBAND_*
environment variables, in that order of increasing precedence.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default vitalctl.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func initConfig() error {
	// A .env next to the binary is a convenience for development setups.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("vitalctl")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".vitalband"))
		}
	}

	viper.SetEnvPrefix("VITALBAND")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("api.base_url", "http://localhost:5000/api/v1")
	viper.SetDefault("api.timeout", "15s")
	viper.SetDefault("storage.backend", "file")
	viper.SetDefault("storage.dir", defaultStorageDir())
	viper.SetDefault("portal.login_path", vitalband.DefaultLoginPath)
	viper.SetDefault("portal.landing_path", vitalband.DefaultLandingPath)
	viper.SetDefault("provisioning.phone_region", "US")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file", "")
	viper.SetDefault("log.max_size_mb", 20)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age_days", 28)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("could not read config: %w", err)
		}
	}

	return setupLogging()
}

func defaultStorageDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vitalband"
	}
	return filepath.Join(home, ".vitalband")
}

func setupLogging() error {
	level, err := logrus.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		level = logrus.InfoLevel
	}
	if verbose {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if file := viper.GetString("log.file"); file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return fmt.Errorf("could not create log directory: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    viper.GetInt("log.max_size_mb"),
			MaxBackups: viper.GetInt("log.max_backups"),
			MaxAge:     viper.GetInt("log.max_age_days"),
			Compress:   true,
		}
		log.SetOutput(io.MultiWriter(os.Stderr, rotator))
	}
	return nil
}

// logrusAdapter bridges the portal's logging interface onto logrus.
type logrusAdapter struct {
	log *logrus.Logger
}

func (l logrusAdapter) Debug(format string, args ...any) { l.log.Debugf(format, args...) }
func (l logrusAdapter) Info(format string, args ...any)  { l.log.Infof(format, args...) }
func (l logrusAdapter) Warn(format string, args ...any)  { l.log.Warnf(format, args...) }
func (l logrusAdapter) Error(format string, args ...any) { l.log.Errorf(format, args...) }

// cliNavigator stands in for browser navigation. The CLI has no location to
// move, so redirects are surfaced as hints on stderr.
type cliNavigator struct{}

func (cliNavigator) CurrentLocation() string { return "/" }

func (cliNavigator) Navigate(to string) {
	fmt.Fprintf(os.Stderr, "Session ended. Run 'vitalctl login' to continue (%s).\n", to)
}

type portal struct {
	client *vitalband.Client
	store  *vitalband.SessionStore
	ctrl   *vitalband.SessionController

	closers []func() error
}

func (p *portal) Close() {
	for _, fn := range p.closers {
		_ = fn()
	}
}

func newPortal(deferHydration bool) (*portal, error) {
	cfg := vitalband.ClientConfig{
		BaseURL:        viper.GetString("api.base_url"),
		RequestTimeout: viper.GetDuration("api.timeout"),
		LoginPath:      viper.GetString("portal.login_path"),
		LandingPath:    viper.GetString("portal.landing_path"),
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 15 * time.Second
	}

	storage, closer, err := openStorage()
	if err != nil {
		return nil, err
	}

	logger := logrusAdapter{log: log}
	store := vitalband.NewSessionStore(storage, vitalband.WithStoreLogger(logger))

	client, err := vitalband.NewClient(cfg, store,
		vitalband.WithClientLogger(logger),
		vitalband.WithDebug(verbose),
	)
	if err != nil {
		if closer != nil {
			_ = closer()
		}
		return nil, err
	}

	opts := []vitalband.SessionControllerOption{
		vitalband.WithNavigator(cliNavigator{}),
		vitalband.WithControllerLogger(logger),
		vitalband.WithLoginPath(cfg.GetLoginPath()),
		vitalband.WithLandingPath(cfg.GetLandingPath()),
	}
	if deferHydration {
		opts = append(opts, vitalband.WithDeferredHydration())
	}

	ctrl := vitalband.NewSessionController(client, store, opts...)

	p := &portal{client: client, store: store, ctrl: ctrl}
	if closer != nil {
		p.closers = append(p.closers, closer)
	}
	return p, nil
}

func openStorage() (vitalband.Storage, func() error, error) {
	switch backend := viper.GetString("storage.backend"); backend {
	case "file", "":
		opts := []filestore.Option{}
		if pass := viper.GetString("storage.passphrase"); pass != "" {
			opts = append(opts, filestore.WithSealingKey(pass))
		}
		fs, err := filestore.New(viper.GetString("storage.dir"), opts...)
		if err != nil {
			return nil, nil, err
		}
		return fs, nil, nil
	case "sqlite":
		dsn := viper.GetString("storage.dsn")
		if dsn == "" {
			dsn = "file:" + filepath.Join(viper.GetString("storage.dir"), "portal.db")
		}
		bs, err := bunstore.New(rootCmd.Context(), dsn)
		if err != nil {
			return nil, nil, err
		}
		return bs, bs.Close, nil
	case "memory":
		return vitalband.NewMemoryStorage(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
