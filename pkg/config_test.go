package justone

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigDefaults(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config")

	// Load config from a missing file
	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	all := config.GetAllConfig()
	if all.Hash.Default != DefaultHashAlgorithm {
		t.Errorf("Expected default hash algorithm '%s', got '%s'", DefaultHashAlgorithm, all.Hash.Default)
	}
	if all.Scan.PartialSize != DefaultPartialSize {
		t.Errorf("Expected partial size %d, got %d", DefaultPartialSize, all.Scan.PartialSize)
	}
	if all.Scan.ChunkSize != DefaultChunkSize {
		t.Errorf("Expected chunk size %d, got %d", DefaultChunkSize, all.Scan.ChunkSize)
	}
	if all.Scan.IgnoreErrors {
		t.Error("Expected ignore_errors to default to false")
	}
	if all.Strict.Level != StrictCommon {
		t.Errorf("Expected strict level common, got %s", all.Strict.Level)
	}
	if all.Output.Format != "human" {
		t.Errorf("Expected output format 'human', got '%s'", all.Output.Format)
	}
	if all.Performance.HashWorkers != DefaultHashWorkers {
		t.Errorf("Expected %d hash workers, got %d", DefaultHashWorkers, all.Performance.HashWorkers)
	}

	// Loading must not write anything
	if _, err := os.Stat(configPath); !os.IsNotExist(err) {
		t.Error("Config file should not be created by LoadConfig")
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestConfigOverrides(t *testing.T) {
	config := NewDefaultConfig(filepath.Join(t.TempDir(), "config"))

	err := config.ApplyOverrides([]string{
		"default:sha1",
		"format:json",
		"level:2",
		"debug:scan,hash",
		"strict:byte-by-byte",
		"partial_size:4K",
		"chunk_size:1M",
		"ignore_errors:true",
		"sorted:true",
		"hash_workers:8",
	})
	if err != nil {
		t.Fatalf("Failed to apply overrides: %v", err)
	}

	allConfig := config.GetAllConfig()

	if allConfig.Hash.Default != "sha1" {
		t.Errorf("Expected hash algorithm 'sha1' after override, got '%s'", allConfig.Hash.Default)
	}
	if allConfig.Output.Format != "json" {
		t.Errorf("Expected output format 'json' after override, got '%s'", allConfig.Output.Format)
	}
	if !allConfig.Output.Sorted {
		t.Error("Expected sorted output after override")
	}
	if allConfig.Verbose.Level != 2 {
		t.Errorf("Expected verbose level 2 after override, got %d", allConfig.Verbose.Level)
	}
	if allConfig.Verbose.Debug != "scan,hash" {
		t.Errorf("Expected debug flags 'scan,hash' after override, got '%s'", allConfig.Verbose.Debug)
	}
	if allConfig.Strict.Level != StrictByteByByte {
		t.Errorf("Expected strict level byte-by-byte after override, got %s", allConfig.Strict.Level)
	}
	if allConfig.Scan.PartialSize != 4096 {
		t.Errorf("Expected partial size 4096 after override, got %d", allConfig.Scan.PartialSize)
	}
	if allConfig.Scan.ChunkSize != 1024*1024 {
		t.Errorf("Expected chunk size 1M after override, got %d", allConfig.Scan.ChunkSize)
	}
	if !allConfig.Scan.IgnoreErrors {
		t.Error("Expected ignore_errors after override")
	}
	if allConfig.Performance.HashWorkers != 8 {
		t.Errorf("Expected 8 hash workers after override, got %d", allConfig.Performance.HashWorkers)
	}
}

func TestConfigOverrideErrors(t *testing.T) {
	config := NewDefaultConfig(filepath.Join(t.TempDir(), "config"))

	if err := config.ApplyOverrides([]string{"format"}); err == nil {
		t.Error("Override without a value should fail")
	}
	if err := config.ApplyOverrides([]string{"colour:red"}); err == nil {
		t.Error("Unknown override key should fail")
	}
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		override string
		valid    bool
	}{
		{"default:xxhash", true},
		{"default:md5", false},
		{"partial_size:2K", true},
		{"partial_size:lots", false},
		{"chunk_size:0", false},
		{"strict:2", true},
		{"strict:paranoid", false},
		{"format:yaml", true},
		{"format:xml", false},
		{"level:4", false},
		{"hash_workers:0", false},
		{"hash_workers:65", false},
	}

	for _, tc := range testCases {
		config := NewDefaultConfig(filepath.Join(t.TempDir(), "config"))
		if err := config.ApplyOverrides([]string{tc.override}); err != nil {
			t.Fatalf("Failed to apply override %s: %v", tc.override, err)
		}
		err := config.Validate()
		if tc.valid && err != nil {
			t.Errorf("Override '%s' should validate but got error: %v", tc.override, err)
		}
		if !tc.valid && err == nil {
			t.Errorf("Override '%s' should fail validation", tc.override)
		}
	}
}

func TestConfigSaveAndReload(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config")

	config := NewDefaultConfig(configPath)
	if err := config.SetHashDefault("sha512"); err != nil {
		t.Fatalf("SetHashDefault failed: %v", err)
	}
	if err := config.SetOutputFormat("fdupes"); err != nil {
		t.Fatalf("SetOutputFormat failed: %v", err)
	}
	if err := config.SetStrictLevel(StrictShallow); err != nil {
		t.Fatalf("SetStrictLevel failed: %v", err)
	}
	if err := config.SetHashWorkers(2); err != nil {
		t.Fatalf("SetHashWorkers failed: %v", err)
	}
	if err := config.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}
	all := reloaded.GetAllConfig()
	if all.Hash.Default != "sha512" {
		t.Errorf("Expected 'sha512' after reload, got '%s'", all.Hash.Default)
	}
	if all.Output.Format != "fdupes" {
		t.Errorf("Expected 'fdupes' after reload, got '%s'", all.Output.Format)
	}
	if all.Strict.Level != StrictShallow {
		t.Errorf("Expected shallow after reload, got %s", all.Strict.Level)
	}
	if all.Performance.HashWorkers != 2 {
		t.Errorf("Expected 2 workers after reload, got %d", all.Performance.HashWorkers)
	}

	if !strings.Contains(reloaded.String(), "[filehash]") {
		t.Errorf("String() should render ini sections, got:\n%s", reloaded.String())
	}
	if reloaded.IgnoreFilePath() != filepath.Join(filepath.Dir(configPath), "ignore") {
		t.Errorf("Unexpected ignore file path %s", reloaded.IgnoreFilePath())
	}
}

func TestConfigSettersValidate(t *testing.T) {
	config := NewDefaultConfig(filepath.Join(t.TempDir(), "config"))

	if err := config.SetHashDefault("md5"); err == nil {
		t.Error("SetHashDefault should reject md5")
	}
	if err := config.SetOutputFormat("csv"); err == nil {
		t.Error("SetOutputFormat should reject csv")
	}
	if err := config.SetStrictLevel(StrictLevel(3)); err == nil {
		t.Error("SetStrictLevel should reject 3")
	}
	if err := config.SetHashWorkers(MaxHashWorkers + 1); err == nil {
		t.Error("SetHashWorkers should reject too many workers")
	}
}

func TestLoadConfigInvalidFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(configPath, []byte("[filehash\ndefault = sha1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(configPath); err == nil {
		t.Error("LoadConfig should fail on malformed ini")
	}
}

func TestHashAlgorithmValidation(t *testing.T) {
	testCases := []struct {
		algorithm string
		valid     bool
	}{
		{"sha1", true},
		{"sha256", true},
		{"sha512", true},
		{"blake3", true},
		{"xxhash", true},
		{"SHA256", true}, // case insensitive
		{"md5", false},
		{"invalid", false},
		{"", false},
	}

	for _, tc := range testCases {
		err := ValidateHashAlgorithm(tc.algorithm)
		if tc.valid && err != nil {
			t.Errorf("Algorithm '%s' should be valid but got error: %v", tc.algorithm, err)
		}
		if !tc.valid && err == nil {
			t.Errorf("Algorithm '%s' should be invalid but no error returned", tc.algorithm)
		}
	}
}

func TestParseHumanSize(t *testing.T) {
	testCases := []struct {
		input    string
		expected int
		valid    bool
	}{
		{"1024", 1024, true},
		{"1K", 1024, true},
		{"1k", 1024, true},
		{"512KB", 512 * 1024, true},
		{"4KiB", 4096, true},
		{"2M", 2 * 1024 * 1024, true},
		{"1.5M", 1536 * 1024, true},
		{"1G", 1024 * 1024 * 1024, true},
		{" 8 K ", 8192, true},
		{"", 0, false},
		{"K", 0, false},
		{"0", 0, false},
		{"12Q", 0, false},
	}

	for _, tc := range testCases {
		got, err := ParseHumanSize(tc.input)
		if tc.valid {
			if err != nil {
				t.Errorf("ParseHumanSize(%q) failed: %v", tc.input, err)
				continue
			}
			if got != tc.expected {
				t.Errorf("ParseHumanSize(%q) = %d, expected %d", tc.input, got, tc.expected)
			}
		} else if err == nil {
			t.Errorf("ParseHumanSize(%q) should fail, got %d", tc.input, got)
		}
	}
}

func TestOptionsFromConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config")
	if err := os.WriteFile(filepath.Join(dir, "ignore"), []byte("# comment\n\\.tmp$\n"), 0644); err != nil {
		t.Fatal(err)
	}

	config := NewDefaultConfig(configPath)
	if err := config.ApplyOverrides([]string{"default:xxhash", "hash_workers:3", "ignore_errors:yes", "sorted:true"}); err != nil {
		t.Fatal(err)
	}

	opts, err := OptionsFromConfig(config)
	if err != nil {
		t.Fatalf("OptionsFromConfig failed: %v", err)
	}
	if opts.Algorithm != "xxhash" || opts.HashWorkers != 3 || !opts.IgnoreErrors || !opts.Sorted {
		t.Errorf("Options not taken from config: %+v", opts)
	}
	if !opts.Ignore.ShouldIgnore("a/b.tmp") {
		t.Error("Ignore patterns should be loaded from the ignore file next to the config")
	}

	if err := config.ApplyOverrides([]string{"format:xml"}); err != nil {
		t.Fatal(err)
	}
	if _, err := OptionsFromConfig(config); err == nil {
		t.Error("OptionsFromConfig should reject an invalid configuration")
	}
}
