package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/atomicstack/lasttab/internal/logging"
)

// Config captures runtime configuration shared by the daemon and the popup.
type Config struct {
	Logging    Logging    `mapstructure:"logging"`
	Tmux       Tmux       `mapstructure:"tmux"`
	Control    Control    `mapstructure:"control"`
	Store      Store      `mapstructure:"store"`
	Popup      Popup      `mapstructure:"popup"`
	Controller Controller `mapstructure:"controller"`
	Watcher    Watcher    `mapstructure:"watcher"`

	// File is the config file that was read, empty when none was found.
	File  string            `mapstructure:"-"`
	Flags map[string]string `mapstructure:"-"`
	Args  []string          `mapstructure:"-"`
}

type Logging struct {
	FilePath string `mapstructure:"file"`
	Level    string `mapstructure:"level"`
	Trace    bool   `mapstructure:"trace"`
}

type Tmux struct {
	Socket string `mapstructure:"socket"`
}

type Control struct {
	Socket string `mapstructure:"socket"`
}

type Store struct {
	Path      string `mapstructure:"path"`
	Ephemeral bool   `mapstructure:"ephemeral"`
}

// Popup sizes use tmux display-popup syntax, so "60%" and "80" are both valid.
type Popup struct {
	Width       string        `mapstructure:"width"`
	Height      string        `mapstructure:"height"`
	Title       string        `mapstructure:"title"`
	Footer      bool          `mapstructure:"footer"`
	Fuzzy       bool          `mapstructure:"fuzzy"`
	CloseOnBlur bool          `mapstructure:"close_on_blur"`
	HoldRelease time.Duration `mapstructure:"hold_release"`
	Limit       int           `mapstructure:"limit"`
	SelfMarker  string        `mapstructure:"self_marker"`
}

type Controller struct {
	PersistDelay    time.Duration `mapstructure:"persist_delay"`
	AutoSwitchDelay time.Duration `mapstructure:"auto_switch_delay"`
	AttachTimeout   time.Duration `mapstructure:"attach_timeout"`
	HostTimeout     time.Duration `mapstructure:"host_timeout"`
}

type Watcher struct {
	Interval time.Duration `mapstructure:"interval"`
}

const (
	envPrefix     = "LASTTAB"
	envConfigFile = "LASTTAB_CONFIG"
)

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"config":         "",
	"log-file":       "logging.file",
	"log-level":      "logging.level",
	"trace":          "logging.trace",
	"socket":         "tmux.socket",
	"control-socket": "control.socket",
	"db":             "store.path",
	"ephemeral":      "store.ephemeral",
	"width":          "popup.width",
	"height":         "popup.height",
	"footer":         "popup.footer",
	"fuzzy":          "popup.fuzzy",
}

// RegisterFlags adds the configuration overrides to fs. Values left unset on
// the command line fall through to the environment, the config file and the
// defaults, in that order.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to the config file")
	fs.String("log-file", "", "path to the log file")
	fs.String("log-level", "", "minimum log level (debug, info, warn, error)")
	fs.Bool("trace", false, "enable verbose JSON trace logging")
	fs.String("socket", "", "path to the tmux socket (overrides environment detection)")
	fs.String("control-socket", "", "path to the daemon control socket")
	fs.String("db", "", "path to the sqlite database")
	fs.Bool("ephemeral", false, "keep state in memory only")
	fs.String("width", "", "popup width in cells or percent")
	fs.String("height", "", "popup height in rows or percent")
	fs.Bool("footer", false, "enable footer hint row")
	fs.Bool("fuzzy", false, "fall back to fuzzy matching when no title matches")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.file", filepath.Join(stateDir(), "lasttab", "lasttab.log"))
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.trace", false)
	v.SetDefault("tmux.socket", "")
	v.SetDefault("control.socket", "")
	v.SetDefault("store.path", filepath.Join(dataDir(), "lasttab", "lasttab.db"))
	v.SetDefault("store.ephemeral", false)
	v.SetDefault("popup.width", "60%")
	v.SetDefault("popup.height", "50%")
	v.SetDefault("popup.title", " lasttab ")
	v.SetDefault("popup.footer", false)
	v.SetDefault("popup.fuzzy", false)
	v.SetDefault("popup.close_on_blur", true)
	v.SetDefault("popup.hold_release", 600*time.Millisecond)
	v.SetDefault("popup.limit", 20)
	v.SetDefault("popup.self_marker", "")
	v.SetDefault("controller.persist_delay", 500*time.Millisecond)
	v.SetDefault("controller.auto_switch_delay", 50*time.Millisecond)
	v.SetDefault("controller.attach_timeout", 3*time.Second)
	v.SetDefault("controller.host_timeout", 2*time.Second)
	v.SetDefault("watcher.interval", 250*time.Millisecond)
}

// Manager owns the viper instance behind a loaded Config so the daemon can
// watch the file for changes.
type Manager struct {
	mu        sync.Mutex
	v         *viper.Viper
	cfg       Config
	callbacks []func(Config)
	watching  bool
}

// Load merges defaults, the YAML config file, LASTTAB_* environment variables
// and any flags set on fs. fs may be nil.
func Load(fs *pflag.FlagSet, args []string) (*Manager, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	if fs != nil {
		for flag, key := range flagKeys {
			f := fs.Lookup(flag)
			if f == nil || key == "" {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	path := configFlag(fs)
	if path == "" {
		path = os.Getenv(envConfigFile)
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(filepath.Join(configDir(), "lasttab"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	m := &Manager{v: v}
	cfg, err := m.decode()
	if err != nil {
		return nil, err
	}
	cfg.Flags = changedFlags(fs)
	cfg.Args = append([]string(nil), args...)
	m.cfg = cfg
	return m, nil
}

func (m *Manager) decode() (Config, error) {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.File = m.v.ConfigFileUsed()
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Config returns the most recently loaded configuration.
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// OnChange registers fn to receive the configuration after each successful
// reload triggered by Watch.
func (m *Manager) OnChange(fn func(Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// Watch reloads the config file whenever it changes on disk. It is a no-op
// when no file was read.
func (m *Manager) Watch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watching || m.v.ConfigFileUsed() == "" {
		return
	}
	m.v.OnConfigChange(func(e fsnotify.Event) {
		if err := m.reload(); err != nil {
			logging.Error(fmt.Errorf("reload %s: %w", e.Name, err))
		}
	})
	m.v.WatchConfig()
	m.watching = true
}

// reload re-decodes the file and notifies callbacks. An invalid file keeps
// the previous configuration.
func (m *Manager) reload() error {
	m.mu.Lock()
	cfg, err := m.decode()
	if err != nil {
		m.mu.Unlock()
		return err
	}
	cfg.Flags = m.cfg.Flags
	cfg.Args = m.cfg.Args
	m.cfg = cfg
	callbacks := make([]func(Config), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
	return nil
}

// Validate ensures the loaded values are usable.
func Validate(cfg Config) error {
	if err := validSize("popup.width", cfg.Popup.Width); err != nil {
		return err
	}
	if err := validSize("popup.height", cfg.Popup.Height); err != nil {
		return err
	}
	if cfg.Popup.Limit < 0 {
		return fmt.Errorf("popup.limit must be >= 0 (got %d)", cfg.Popup.Limit)
	}
	if cfg.Popup.HoldRelease < 0 {
		return fmt.Errorf("popup.hold_release must be >= 0 (got %s)", cfg.Popup.HoldRelease)
	}
	if cfg.Watcher.Interval <= 0 {
		return fmt.Errorf("watcher.interval must be > 0 (got %s)", cfg.Watcher.Interval)
	}
	if !cfg.Store.Ephemeral && strings.TrimSpace(cfg.Store.Path) == "" {
		return errors.New("store.path is required unless store.ephemeral is set")
	}
	return nil
}

func validSize(key, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSuffix(value, "%"))
	if err != nil || n <= 0 {
		return fmt.Errorf("%s must be a positive size or percentage (got %q)", key, value)
	}
	if strings.HasSuffix(value, "%") && n > 100 {
		return fmt.Errorf("%s percentage must be <= 100 (got %q)", key, value)
	}
	return nil
}

func configFlag(fs *pflag.FlagSet) string {
	if fs == nil {
		return ""
	}
	value, err := fs.GetString("config")
	if err != nil {
		return ""
	}
	return value
}

func changedFlags(fs *pflag.FlagSet) map[string]string {
	flags := map[string]string{}
	if fs == nil {
		return flags
	}
	fs.Visit(func(f *pflag.Flag) {
		flags[f.Name] = f.Value.String()
	})
	return flags
}

func configDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	return "."
}

func dataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share")
	}
	return "."
}

func stateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state")
	}
	return "."
}
