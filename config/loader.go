package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/modelkit/logger"
)

// EnvPrefix namespaces environment overrides: MODELKIT_SERVER_PORT sets
// server.port and MODELKIT_MODELS_GROQ_QWEN_API_KEY sets
// models.groq-qwen.api_key.
const EnvPrefix = "MODELKIT_"

// EnvConfigFile names the config file when no explicit path is given.
const EnvConfigFile = EnvPrefix + "CONFIG"

// FileSystem is what the loader needs from the OS.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

type osFS struct{}

func (osFS) Exists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

func (osFS) LoadEnv(path string) error { return godotenv.Load(path) }

// LoaderConfig holds file overrides and the filesystem.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
}

// LoaderOption configures LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem replaces the OS filesystem.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets the config file. It must exist.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets the .env file. It must exist.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// ResolvedFiles are the files LoadConfig reads; empty means none.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles picks the config and .env files. An explicit path wins, then
// $MODELKIT_CONFIG, then the first of <service>.yml, config.yml,
// config/config.yml and <user config dir>/<service>/config.yml that exists.
func ResolveFiles(serviceName string, lc LoaderConfig) (ResolvedFiles, error) {
	fs := lc.FileSystem
	if fs == nil {
		fs = osFS{}
	}

	var files ResolvedFiles
	switch {
	case lc.ConfigFile != "":
		if !fs.Exists(lc.ConfigFile) {
			return files, fmt.Errorf("config file %s not found", lc.ConfigFile)
		}
		files.ConfigFile = lc.ConfigFile
	case os.Getenv(EnvConfigFile) != "":
		path := os.Getenv(EnvConfigFile)
		if !fs.Exists(path) {
			return files, fmt.Errorf("%s: config file %s not found", EnvConfigFile, path)
		}
		files.ConfigFile = path
	default:
		files.ConfigFile = firstExisting(fs, configCandidates(serviceName))
	}

	switch {
	case lc.EnvFile != "":
		if !fs.Exists(lc.EnvFile) {
			return files, fmt.Errorf("env file %s not found", lc.EnvFile)
		}
		files.EnvFile = lc.EnvFile
	default:
		files.EnvFile = firstExisting(fs, []string{".env." + serviceName, ".env"})
	}
	return files, nil
}

func configCandidates(serviceName string) []string {
	paths := []string{
		serviceName + ".yml",
		serviceName + ".yaml",
		"config.yml",
		"config.yaml",
		filepath.Join("config", "config.yml"),
	}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, serviceName, "config.yml"))
	}
	return paths
}

func firstExisting(fs FileSystem, paths []string) string {
	for _, p := range paths {
		if fs.Exists(p) {
			return p
		}
	}
	return ""
}

// LoadConfig reads the resolved files into cfg, a pointer to a struct with
// mapstructure tags. MODELKIT_* environment variables override file values.
func LoadConfig(serviceName string, cfg any, opts ...LoaderOption) error {
	lc := LoaderConfig{FileSystem: osFS{}}
	for _, opt := range opts {
		opt(&lc)
	}
	files, err := ResolveFiles(serviceName, lc)
	if err != nil {
		return err
	}

	v := viper.New()
	if files.ConfigFile != "" {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", files.ConfigFile, err)
		}
	}
	if files.EnvFile != "" {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			logger.Get("config").Warn("env file not loaded", logger.Fields("path", files.EnvFile, logger.FieldError, err.Error()))
		}
	}
	bindEnv(v, keyPatterns(reflect.TypeOf(cfg)), os.Environ())

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("decode %s config: %w", serviceName, err)
	}
	return nil
}

// bindEnv sets every MODELKIT_* variable that names a config key.
func bindEnv(v *viper.Viper, patterns [][]string, environ []string) {
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) || name == EnvConfigFile {
			continue
		}
		tokens := strings.Split(strings.ToLower(strings.TrimPrefix(name, EnvPrefix)), "_")
		for _, pattern := range patterns {
			if key, ok := matchKey(v, tokens, pattern, nil); ok {
				v.Set(strings.Join(key, "."), value)
				break
			}
		}
	}
}

// matchKey consumes tokens against pattern. A literal segment must equal
// one or more tokens joined by "_". A "*" segment is a map key; it takes the
// name of an existing key whose "-" spelled as "_" matches.
func matchKey(v *viper.Viper, tokens, pattern, done []string) ([]string, bool) {
	if len(pattern) == 0 {
		return done, len(tokens) == 0
	}
	seg := pattern[0]
	for n := 1; n <= len(tokens); n++ {
		word := strings.Join(tokens[:n], "_")
		key := word
		if seg == "*" {
			key = existingMapKey(v, strings.Join(done, "."), word)
		} else if word != seg {
			continue
		}
		next := append(done[:len(done):len(done)], key)
		if out, ok := matchKey(v, tokens[n:], pattern[1:], next); ok {
			return out, true
		}
	}
	return nil, false
}

func existingMapKey(v *viper.Viper, parent, word string) string {
	for k := range v.GetStringMap(parent) {
		if strings.ReplaceAll(k, "-", "_") == word {
			return k
		}
	}
	return word
}

// keyPatterns lists the leaf keys of t by mapstructure tag. Map keys are "*".
func keyPatterns(t reflect.Type) [][]string {
	var out [][]string
	var walk func(t reflect.Type, prefix []string)
	walk = func(t reflect.Type, prefix []string) {
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		switch {
		case t.Kind() == reflect.Struct:
			for i := range t.NumField() {
				f := t.Field(i)
				if !f.IsExported() {
					continue
				}
				tag, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
				if tag == "-" {
					continue
				}
				if opts == "squash" {
					walk(f.Type, prefix)
					continue
				}
				if tag == "" {
					tag = strings.ToLower(f.Name)
				}
				walk(f.Type, append(prefix[:len(prefix):len(prefix)], tag))
			}
		case t.Kind() == reflect.Map && t.Key().Kind() == reflect.String && isStruct(t.Elem()):
			walk(t.Elem(), append(prefix[:len(prefix):len(prefix)], "*"))
		default:
			if len(prefix) > 0 {
				out = append(out, prefix)
			}
		}
	}
	walk(t, nil)
	return out
}

func isStruct(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}
