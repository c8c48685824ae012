package justone

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-ini/ini"
)

// Config represents the justone configuration file
type Config struct {
	configPath string
	ini        *ini.File
}

// HashConfig represents hash algorithm configuration
type HashConfig struct {
	Default string // Default hash algorithm
}

// ScanConfig represents enumeration and hashing sizes
type ScanConfig struct {
	PartialSize  int  // Bytes covered by the partial hash
	ChunkSize    int  // Read size for the full hash
	IgnoreErrors bool // Skip unreadable paths instead of failing
}

// StrictConfig represents the default verification level
type StrictConfig struct {
	Level StrictLevel
}

// OutputConfig represents output format configuration
type OutputConfig struct {
	Format string // human, fdupes, json, yaml
	Sorted bool   // Order groups by first registration
}

// VerboseConfig represents verbosity configuration
type VerboseConfig struct {
	Level int    // Default verbose level (0=quiet, 1=basic, 2=detailed, 3=trace)
	Debug string // Default debug flags (comma-separated)
}

// PerformanceConfig represents performance-related configuration
type PerformanceConfig struct {
	HashWorkers int // Number of concurrent hash workers (default: 4)
}

// AllConfig represents all configuration options
type AllConfig struct {
	Hash        *HashConfig
	Scan        *ScanConfig
	Strict      *StrictConfig
	Output      *OutputConfig
	Verbose     *VerboseConfig
	Performance *PerformanceConfig
}

// defaultSettings lists every section/key with its default value, in the
// order they are written to a fresh file
var defaultSettings = []struct {
	section, key, value string
}{
	{"filehash", "default", DefaultHashAlgorithm},
	{"scan", "partial_size", "1K"},
	{"scan", "chunk_size", "512K"},
	{"scan", "ignore_errors", "false"},
	{"strict", "level", "common"},
	{"output", "format", "human"},
	{"output", "sorted", "false"},
	{"verbose", "level", "0"},
	{"verbose", "debug", ""},
	{"performance", "hash_workers", strconv.Itoa(DefaultHashWorkers)},
}

// DefaultConfigDir returns $XDG_CONFIG_HOME/justone, falling back to
// ~/.config/justone
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "justone")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "justone")
	}
	return filepath.Join(home, ".config", "justone")
}

// DefaultConfigPath returns the config file inside DefaultConfigDir
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config")
}

// LoadConfig loads configuration from configPath. A missing file yields the
// defaults; nothing is written until Save is called.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{
		configPath: configPath,
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg.ini = ini.Empty()
		if err := cfg.setDefaults(); err != nil {
			return nil, fmt.Errorf("failed to set default config: %w", err)
		}
		return cfg, nil
	}

	iniFile, err := ini.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	cfg.ini = iniFile
	return cfg, nil
}

// NewDefaultConfig returns a config holding only defaults, saved to configPath
// if Save is called
func NewDefaultConfig(configPath string) *Config {
	cfg := &Config{configPath: configPath, ini: ini.Empty()}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default configuration values
func (c *Config) setDefaults() error {
	for _, s := range defaultSettings {
		section, err := c.ini.NewSection(s.section)
		if err != nil {
			return fmt.Errorf("failed to create %s section: %w", s.section, err)
		}
		if _, err := section.NewKey(s.key, s.value); err != nil {
			return fmt.Errorf("failed to set default %s.%s: %w", s.section, s.key, err)
		}
	}
	return nil
}

// Path returns the file the config was loaded from and saves to
func (c *Config) Path() string {
	return c.configPath
}

// IgnoreFilePath returns the ignore file kept next to the config file
func (c *Config) IgnoreFilePath() string {
	return filepath.Join(filepath.Dir(c.configPath), "ignore")
}

// GetHashConfig returns the hash configuration
func (c *Config) GetHashConfig() *HashConfig {
	hashConfig := &HashConfig{
		Default: DefaultHashAlgorithm, // fallback default
	}

	if c.ini.HasSection("filehash") {
		section := c.ini.Section("filehash")
		if section.HasKey("default") {
			hashConfig.Default = section.Key("default").String()
		}
	}

	return hashConfig
}

// GetScanConfig returns the scan configuration. Unparseable sizes fall back
// to the defaults; Validate reports them.
func (c *Config) GetScanConfig() *ScanConfig {
	scanConfig := &ScanConfig{
		PartialSize: DefaultPartialSize,
		ChunkSize:   DefaultChunkSize,
	}

	if c.ini.HasSection("scan") {
		section := c.ini.Section("scan")
		if section.HasKey("partial_size") {
			if size, err := ParseHumanSize(section.Key("partial_size").String()); err == nil {
				scanConfig.PartialSize = size
			}
		}
		if section.HasKey("chunk_size") {
			if size, err := ParseHumanSize(section.Key("chunk_size").String()); err == nil {
				scanConfig.ChunkSize = size
			}
		}
		if section.HasKey("ignore_errors") {
			if ignore, err := section.Key("ignore_errors").Bool(); err == nil {
				scanConfig.IgnoreErrors = ignore
			}
		}
	}

	return scanConfig
}

// GetStrictConfig returns the strict configuration
func (c *Config) GetStrictConfig() *StrictConfig {
	strictConfig := &StrictConfig{Level: StrictCommon}

	if c.ini.HasSection("strict") {
		section := c.ini.Section("strict")
		if section.HasKey("level") {
			if level, err := ParseStrictLevel(section.Key("level").String()); err == nil {
				strictConfig.Level = level
			}
		}
	}

	return strictConfig
}

// GetOutputConfig returns the output configuration
func (c *Config) GetOutputConfig() *OutputConfig {
	outputConfig := &OutputConfig{
		Format: "human", // fallback default
	}

	if c.ini.HasSection("output") {
		section := c.ini.Section("output")
		if section.HasKey("format") {
			outputConfig.Format = section.Key("format").String()
		}
		if section.HasKey("sorted") {
			if sorted, err := section.Key("sorted").Bool(); err == nil {
				outputConfig.Sorted = sorted
			}
		}
	}

	return outputConfig
}

// GetVerboseConfig returns the verbose configuration
func (c *Config) GetVerboseConfig() *VerboseConfig {
	verboseConfig := &VerboseConfig{}

	if c.ini.HasSection("verbose") {
		section := c.ini.Section("verbose")
		if section.HasKey("level") {
			if level, err := section.Key("level").Int(); err == nil {
				verboseConfig.Level = level
			}
		}
		if section.HasKey("debug") {
			verboseConfig.Debug = section.Key("debug").String()
		}
	}

	return verboseConfig
}

// GetPerformanceConfig returns the performance configuration
func (c *Config) GetPerformanceConfig() *PerformanceConfig {
	performanceConfig := &PerformanceConfig{
		HashWorkers: DefaultHashWorkers, // fallback default
	}

	if c.ini.HasSection("performance") {
		section := c.ini.Section("performance")
		if section.HasKey("hash_workers") {
			if workers, err := section.Key("hash_workers").Int(); err == nil {
				performanceConfig.HashWorkers = workers
			}
		}
	}

	return performanceConfig
}

// GetAllConfig returns all configuration options
func (c *Config) GetAllConfig() *AllConfig {
	return &AllConfig{
		Hash:        c.GetHashConfig(),
		Scan:        c.GetScanConfig(),
		Strict:      c.GetStrictConfig(),
		Output:      c.GetOutputConfig(),
		Verbose:     c.GetVerboseConfig(),
		Performance: c.GetPerformanceConfig(),
	}
}

// SetHashDefault sets the default hash algorithm
func (c *Config) SetHashDefault(algorithm string) error {
	if err := ValidateHashAlgorithm(algorithm); err != nil {
		return err
	}
	c.ini.Section("filehash").Key("default").SetValue(algorithm)
	return nil
}

// SetOutputFormat sets the default output format
func (c *Config) SetOutputFormat(format string) error {
	if err := ValidateOutputFormat(format); err != nil {
		return err
	}
	c.ini.Section("output").Key("format").SetValue(format)
	return nil
}

// SetStrictLevel sets the default strict level
func (c *Config) SetStrictLevel(level StrictLevel) error {
	if !level.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidStrictLevel, int(level))
	}
	c.ini.Section("strict").Key("level").SetValue(level.String())
	return nil
}

// SetHashWorkers sets the number of hash workers
func (c *Config) SetHashWorkers(workers int) error {
	if err := ValidateHashWorkers(workers); err != nil {
		return err
	}
	c.ini.Section("performance").Key("hash_workers").SetValue(strconv.Itoa(workers))
	return nil
}

// Save writes the configuration to disk, creating its directory
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return c.ini.SaveTo(c.configPath)
}

// overrideKeys maps short override keys to their section and ini key
var overrideKeys = map[string][2]string{
	"default":       {"filehash", "default"},
	"partial_size":  {"scan", "partial_size"},
	"chunk_size":    {"scan", "chunk_size"},
	"ignore_errors": {"scan", "ignore_errors"},
	"strict":        {"strict", "level"},
	"format":        {"output", "format"},
	"sorted":        {"output", "sorted"},
	"level":         {"verbose", "level"},
	"debug":         {"verbose", "debug"},
	"hash_workers":  {"performance", "hash_workers"},
}

// ApplyOverrides applies command-line overrides to the configuration
// Accepts strings like "default:sha256", "format:json", "level:2", "debug:scan"
func (c *Config) ApplyOverrides(overrides []string) error {
	for _, override := range overrides {
		parts := strings.SplitN(override, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid override format '%s', expected 'key:value'", override)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		target, ok := overrideKeys[key]
		if !ok {
			return fmt.Errorf("unsupported override key '%s' (supported: default, partial_size, chunk_size, ignore_errors, strict, format, sorted, level, debug, hash_workers)", key)
		}
		c.ini.Section(target[0]).Key(target[1]).SetValue(value)
	}

	return nil
}

// Validate checks every value that the getters would otherwise silently
// replace with a default
func (c *Config) Validate() error {
	if err := ValidateHashAlgorithm(c.ini.Section("filehash").Key("default").MustString(DefaultHashAlgorithm)); err != nil {
		return err
	}
	for _, key := range []string{"partial_size", "chunk_size"} {
		if v := c.ini.Section("scan").Key(key).String(); v != "" {
			if _, err := ParseHumanSize(v); err != nil {
				return fmt.Errorf("scan.%s: %w", key, err)
			}
		}
	}
	if v := c.ini.Section("strict").Key("level").String(); v != "" {
		if _, err := ParseStrictLevel(v); err != nil {
			return err
		}
	}
	if err := ValidateOutputFormat(c.ini.Section("output").Key("format").MustString("human")); err != nil {
		return err
	}
	if err := ValidateVerboseLevel(c.GetVerboseConfig().Level); err != nil {
		return err
	}
	return ValidateHashWorkers(c.GetPerformanceConfig().HashWorkers)
}

// String renders the configuration in ini form
func (c *Config) String() string {
	var sb strings.Builder
	c.ini.WriteTo(&sb)
	return sb.String()
}

// ValidateHashAlgorithm validates that a hash algorithm is supported
func ValidateHashAlgorithm(algorithm string) error {
	if _, err := GetHashAlgorithm(algorithm); err != nil {
		return fmt.Errorf("%w: %s (supported: blake3, xxhash, sha1, sha256, sha512)", ErrUnsupportedHash, algorithm)
	}
	return nil
}

// ValidateOutputFormat validates that an output format is supported
func ValidateOutputFormat(format string) error {
	switch strings.ToLower(format) {
	case "human", "fdupes", "json", "yaml":
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s (supported: human, fdupes, json, yaml)", format)
	}
}

// ValidateVerboseLevel validates that a verbose level is valid
func ValidateVerboseLevel(level int) error {
	if level < 0 || level > 3 {
		return fmt.Errorf("invalid verbose level: %d (supported: 0-3)", level)
	}
	return nil
}

// ValidateHashWorkers validates that the hash worker count is reasonable
func ValidateHashWorkers(workers int) error {
	if workers < 1 {
		return fmt.Errorf("hash workers must be at least 1, got: %d", workers)
	}
	if workers > MaxHashWorkers {
		return fmt.Errorf("hash workers should not exceed %d, got: %d", MaxHashWorkers, workers)
	}
	return nil
}

// ParseHumanSize parses human-readable sizes like "1K", "512K", "2M" into bytes
func ParseHumanSize(sizeStr string) (int, error) {
	if sizeStr == "" {
		return 0, fmt.Errorf("empty size string")
	}

	sizeStr = strings.ToUpper(strings.TrimSpace(sizeStr))

	// Extract numeric part and suffix
	var numPart string
	var suffix string
	for i, char := range sizeStr {
		if char >= '0' && char <= '9' || char == '.' {
			numPart += string(char)
		} else {
			suffix = strings.TrimSpace(sizeStr[i:])
			break
		}
	}

	if numPart == "" {
		return 0, fmt.Errorf("no numeric part in size string: %s", sizeStr)
	}

	num, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric part in size string %s: %w", sizeStr, err)
	}

	var multiplier int64 = 1
	switch suffix {
	case "", "B":
		multiplier = 1
	case "K", "KB", "KIB":
		multiplier = 1024
	case "M", "MB", "MIB":
		multiplier = 1024 * 1024
	case "G", "GB", "GIB":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unknown size suffix: %s", suffix)
	}

	result := int64(num * float64(multiplier))
	if result <= 0 {
		return 0, fmt.Errorf("size must be positive: %s", sizeStr)
	}
	if result > int64(^uint(0)>>1) { // Check for int overflow
		return 0, fmt.Errorf("size too large: %s", sizeStr)
	}

	return int(result), nil
}
