package stablefs

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/stealthrocket/stablefs/internal/print/human"
	"github.com/stealthrocket/stablefs/internal/stable"
	"github.com/stealthrocket/stablefs/internal/storage"
	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath = "~/.stablefs/config.yaml"
	defaultStorePath  = "~/.stablefs/store.mem"
	defaultLogLevel   = "warn"

	// ConfigPathEnv is the environment variable overriding the location of
	// the configuration file.
	ConfigPathEnv = "STABLEFSCONFIG"
)

// ConfigPath is the path to the stablefs configuration.
var ConfigPath human.Path = defaultConfigPath

func init() {
	if path, ok := os.LookupEnv(ConfigPathEnv); ok && path != "" {
		ConfigPath = human.Path(path)
	}
}

// LoadConfig opens and reads the configuration file.
func LoadConfig() (*Config, error) {
	r, _, err := OpenConfig()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ReadConfig(r)
}

// OpenConfig opens the configuration file. When the file does not exist, the
// returned reader produces the default configuration.
func OpenConfig() (io.ReadCloser, string, error) {
	path, err := ConfigPath.Resolve()
	if err != nil {
		return nil, path, err
	}
	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, path, err
		}
		c := DefaultConfig()
		b, _ := yaml.Marshal(c)
		return io.NopCloser(bytes.NewReader(b)), path, nil
	}
	return f, path, nil
}

// ReadConfig reads and parses configuration. Unknown keys are rejected.
func ReadConfig(r io.Reader) (*Config, error) {
	c := DefaultConfig()
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	if err := d.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return c, nil
}

// DefaultConfig is the default configuration.
func DefaultConfig() *Config {
	c := new(Config)
	c.Store.Location = NullableValue[human.Path](defaultStorePath)
	c.Store.MemoryIDs = NullableValue(DefaultMemoryIDs)
	c.Log.Level = NullableValue(defaultLogLevel)
	return c
}

// Config is stablefs configuration.
type Config struct {
	Store struct {
		Location         Nullable[human.Path]           `json:"location"          yaml:"location"`
		MemoryIDs        Nullable[stable.MemoryIDRange] `json:"memory_ids"        yaml:"memory_ids"`
		BucketSize       Nullable[uint16]               `json:"bucket_size"       yaml:"bucket_size"`
		Compression      Nullable[storage.Codec]        `json:"compression"       yaml:"compression"`
		CacheSize        Nullable[int]                  `json:"cache_size"        yaml:"cache_size"`
		CompactThreshold Nullable[human.Bytes]          `json:"compact_threshold" yaml:"compact_threshold"`
	} `json:"store" yaml:"store"`
	Cache struct {
		Location Nullable[human.Path] `json:"location" yaml:"location"`
	} `json:"cache" yaml:"cache"`
	Log struct {
		Level Nullable[string]     `json:"level" yaml:"level"`
		File  Nullable[human.Path] `json:"file"  yaml:"file"`
	} `json:"log" yaml:"log"`
	Runtime struct {
		Strict Nullable[bool]   `json:"strict" yaml:"strict"`
		Seed   Nullable[string] `json:"seed"   yaml:"seed"`
		Env    []string         `json:"env"    yaml:"env"`
	} `json:"runtime" yaml:"runtime"`
}

// NewLogger constructs the logger configured by the log section. Output goes
// to stderr, or to a rotated file when log.file is set.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level.Or(defaultLogLevel))
	if err != nil {
		return nil, err
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var core zapcore.Core
	if file, ok := c.Log.File.Value(); ok {
		path, err := file.Resolve()
		if err != nil {
			return nil, err
		}
		sink := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    100,
			MaxBackups: 3,
			Compress:   true,
		}
		core = zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(sink), level)
	} else {
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), level)
	}
	return zap.New(core), nil
}

// Seed decodes the hexadecimal seed of the random number generator.
func (c *Config) Seed() ([]byte, error) {
	seed, ok := c.Runtime.Seed.Value()
	if !ok {
		return nil, nil
	}
	b, err := hex.DecodeString(seed)
	if err != nil {
		return nil, fmt.Errorf("invalid runtime seed: %w", err)
	}
	return b, nil
}

// MemoryIDs returns the ids of the memories holding the file system.
func (c *Config) MemoryIDs() []stable.MemoryID {
	r := c.Store.MemoryIDs.Or(DefaultMemoryIDs)
	ids := make([]stable.MemoryID, 0, r.Len())
	for id := int(r.First); id <= int(r.Last); id++ {
		ids = append(ids, stable.MemoryID(id))
	}
	return ids
}

// StorageOptions returns the storage options configured by the store section.
func (c *Config) StorageOptions() []storage.Option {
	var opts []storage.Option
	if codec, ok := c.Store.Compression.Value(); ok {
		opts = append(opts, storage.WithCompression(codec))
	}
	if size, ok := c.Store.CacheSize.Value(); ok {
		opts = append(opts, storage.WithCacheSize(size))
	}
	if threshold, ok := c.Store.CompactThreshold.Value(); ok {
		opts = append(opts, storage.WithCompactThreshold(uint64(threshold)))
	}
	return opts
}

// OpenMemory opens the physical memory of the store. Without a location, the
// memory lives in RAM and is lost when the program exits.
func (c *Config) OpenMemory() (stable.Memory, io.Closer, error) {
	location, ok := c.Store.Location.Value()
	if !ok {
		return stable.NewVectorMemory(0), nopCloser{}, nil
	}
	path, err := location.Resolve()
	if err != nil {
		return nil, nil, err
	}
	if err := createParentDirectory(path); err != nil {
		return nil, nil, err
	}
	mem, err := stable.OpenFileMemory(path)
	if err != nil {
		return nil, nil, err
	}
	return mem, mem, nil
}

// OpenMemoryManager opens the memory manager of the store.
func (c *Config) OpenMemoryManager() (*stable.MemoryManager, io.Closer, error) {
	mem, closer, err := c.OpenMemory()
	if err != nil {
		return nil, nil, err
	}
	manager, err := stable.NewMemoryManager(mem, c.Store.BucketSize.Or(0))
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return manager, closer, nil
}

// OpenFileSystem opens the file system of the store, formatting it when the
// memories are blank.
func (c *Config) OpenFileSystem(logger *zap.Logger) (*storage.FileSystem, io.Closer, error) {
	manager, closer, err := c.OpenMemoryManager()
	if err != nil {
		return nil, nil, err
	}
	ids := c.MemoryIDs()
	if len(ids) < 2 {
		closer.Close()
		return nil, nil, ErrTooFewMemories
	}
	opts := append(c.StorageOptions(), storage.WithLogger(logger), rootRights)
	fsys, err := storage.New(manager.Get(ids[0]), manager.Get(ids[1]), opts...)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return fsys, closer, nil
}

// NewRuntime constructs a wazero.Runtime that's configured according
// to Config.
func (c *Config) NewRuntime(ctx context.Context) (wazero.Runtime, error) {
	config := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)

	var cache wazero.CompilationCache
	if cachePath, ok := c.Cache.Location.Value(); ok {
		path, err := cachePath.Resolve()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve stablefs cache location: %w", err)
		}
		cache, err = createCacheDirectory(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create stablefs cache directory: %w", err)
		}
		config = config.WithCompilationCache(cache)
	}

	runtime := wazero.NewRuntimeWithConfig(ctx, config)
	if cache != nil {
		runtime = &runtimeWithCompilationCache{
			Runtime: runtime,
			cache:   cache,
		}
	}
	return runtime, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type runtimeWithCompilationCache struct {
	wazero.Runtime
	cache wazero.CompilationCache
}

func (r *runtimeWithCompilationCache) Close(ctx context.Context) error {
	if r.cache != nil {
		defer r.cache.Close(ctx)
	}
	return r.Runtime.Close(ctx)
}

func createDirectory(path string) error {
	if err := os.MkdirAll(path, 0777); err != nil {
		if !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	return nil
}

func createParentDirectory(path string) error {
	return createDirectory(filepath.Dir(path))
}

func createCacheDirectory(path string) (wazero.CompilationCache, error) {
	if err := createDirectory(path); err != nil {
		return nil, err
	}
	return wazero.NewCompilationCacheWithDir(path)
}
