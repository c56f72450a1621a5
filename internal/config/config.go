package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Backend kinds.
const (
	BackendLocal    = "local"
	BackendSupabase = "supabase"
	BackendMySQL    = "mysql"
	BackendSQLite   = "sqlite"
)

// Defaults.
const (
	DefaultDataDir   = "~/.donezo"
	DefaultBackend   = BackendLocal
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultSQLUser   = "local"
	DefaultTimeout   = 15 * time.Second
	ConfigFileName   = "donezo.toml"
)

type Config struct {
	DataDir     string         `toml:"data_dir"`
	Backend     string         `toml:"backend"`
	Theme       string         `toml:"theme"`
	SeedSamples bool           `toml:"seed_samples"`
	Timeout     Duration       `toml:"timeout"`
	Supabase    SupabaseConfig `toml:"supabase"`
	SQL         SQLConfig      `toml:"sql"`
	Log         LogConfig      `toml:"log"`
	Features    Features       `toml:"features"`

	// Files lists the config files that were read, in order.
	Files []string `toml:"-"`
}

type SupabaseConfig struct {
	URL     string `toml:"url"`
	AnonKey string `toml:"anon_key"`
}

type SQLConfig struct {
	DSN string `toml:"dsn"`
	// User is the identity rows are stored under; SQL backends have no auth.
	User string `toml:"user"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

type Features struct {
	SmartPrioritize bool `toml:"smart_prioritize"`
}

// Duration reads "15s"-style strings from TOML.
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func setDefaults(cfg *Config) {
	cfg.DataDir = DefaultDataDir
	cfg.Backend = DefaultBackend
	cfg.SeedSamples = true
	cfg.Timeout = Duration{DefaultTimeout}
	cfg.SQL.User = DefaultSQLUser
	cfg.Log.Level = DefaultLogLevel
	cfg.Log.Format = DefaultLogFormat
}

// Default returns the built-in configuration, finalized.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	_ = finalize(cfg)
	return cfg
}

// flagValues holds root flags until the file and env layers are in.
type flagValues struct {
	config, backend, logLevel, dataDir string
}

func bindFlags(fs *flag.FlagSet) *flagValues {
	v := &flagValues{}
	fs.StringVar(&v.config, "config", "", "Path to a config file (replaces ./donezo.toml)")
	fs.StringVar(&v.backend, "backend", "", "Task backend: local|supabase|mysql|sqlite")
	fs.StringVar(&v.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	fs.StringVar(&v.dataDir, "data-dir", "", "Directory for the local slot, session and logs")
	return v
}

// Load parses root flags from args and layers every source. The remaining
// arguments are available from fs.Args().
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	if fs == nil {
		fs = flag.NewFlagSet("donezo", flag.ContinueOnError)
	}
	fv := bindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg := &Config{}
	setDefaults(cfg)

	// The user file lives in the data dir, which flags and env may move.
	dataDir := cfg.DataDir
	if v := os.Getenv("DONEZO_DATA_DIR"); v != "" {
		dataDir = v
	}
	if set["data-dir"] {
		dataDir = fv.dataDir
	}
	if p := filepath.Join(expandPath(dataDir), ConfigFileName); fileExists(p) {
		if err := loadConfigFile(cfg, p); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", p, err)
		}
	}

	project := ConfigFileName
	if set["config"] {
		project = expandPath(fv.config)
		if !fileExists(project) {
			return nil, fmt.Errorf("config file %s: %w", project, os.ErrNotExist)
		}
	}
	if fileExists(project) {
		if err := loadConfigFile(cfg, project); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", project, err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}

	if set["backend"] {
		cfg.Backend = fv.backend
	}
	if set["log-level"] {
		cfg.Log.Level = fv.logLevel
	}
	if set["data-dir"] {
		cfg.DataDir = fv.dataDir
	}

	if err := finalize(cfg); err != nil {
		return nil, fmt.Errorf("finalizing config: %w", err)
	}
	return cfg, nil
}

func loadConfigFile(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	cfg.Files = append(cfg.Files, path)
	return nil
}

// finalize normalizes values and validates the backend choice.
func finalize(cfg *Config) error {
	cfg.DataDir = expandPath(cfg.DataDir)
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	cfg.Theme = strings.ToLower(strings.TrimSpace(cfg.Theme))
	if cfg.Log.File != "" {
		cfg.Log.File = expandPath(cfg.Log.File)
	}
	if cfg.Timeout.Duration <= 0 {
		cfg.Timeout = Duration{DefaultTimeout}
	}
	if strings.TrimSpace(cfg.SQL.User) == "" {
		cfg.SQL.User = DefaultSQLUser
	}

	var errs []error
	switch cfg.Backend {
	case BackendLocal:
	case BackendSupabase:
		if cfg.Supabase.URL == "" || cfg.Supabase.AnonKey == "" {
			errs = append(errs, errors.New("backend supabase needs supabase.url and supabase.anon_key"))
		}
	case BackendMySQL:
		if cfg.SQL.DSN == "" {
			errs = append(errs, errors.New("backend mysql needs sql.dsn"))
		}
	case BackendSQLite:
		if cfg.SQL.DSN == "" {
			cfg.SQL.DSN = filepath.Join(cfg.DataDir, "donezo.db")
		} else {
			cfg.SQL.DSN = expandPath(cfg.SQL.DSN)
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q (want local|supabase|mysql|sqlite)", cfg.Backend))
	}
	switch cfg.Theme {
	case "", "light", "dark":
	default:
		errs = append(errs, fmt.Errorf("unknown theme %q (want light|dark)", cfg.Theme))
	}
	return errors.Join(errs...)
}

// LogFile is where the interactive UI writes its log.
func (c *Config) LogFile() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.DataDir, "donezo.log")
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
