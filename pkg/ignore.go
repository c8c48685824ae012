package justone

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// IgnoreManager holds regular expressions for paths the Enumerator skips.
// Patterns match the slash-separated path relative to the walk root.
type IgnoreManager struct {
	ignorePath string
	patterns   []*regexp.Regexp
	loaded     bool
}

// NewIgnoreManager creates an ignore manager reading patterns from
// ignorePath. An empty ignorePath means patterns only come from AddPattern.
func NewIgnoreManager(ignorePath string) *IgnoreManager {
	return &IgnoreManager{
		ignorePath: ignorePath,
		patterns:   make([]*regexp.Regexp, 0),
		loaded:     ignorePath == "",
	}
}

// LoadIgnorePatterns loads patterns from the ignore file. A missing file
// is the same as an empty one.
func (im *IgnoreManager) LoadIgnorePatterns() error {
	if im.loaded {
		return nil
	}

	file, err := os.Open(im.ignorePath)
	if os.IsNotExist(err) {
		im.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open ignore file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		pattern, err := regexp.Compile(line)
		if err != nil {
			return fmt.Errorf("invalid regex pattern at line %d: %s - %w", lineNum, line, err)
		}

		im.patterns = append(im.patterns, pattern)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading ignore file: %w", err)
	}

	im.loaded = true
	if len(im.patterns) > 0 {
		VerboseLog(2, "loaded %d ignore patterns from %s", len(im.patterns), im.ignorePath)
	}
	return nil
}

// ShouldIgnore checks if a path should be ignored based on patterns
func (im *IgnoreManager) ShouldIgnore(relativePath string) bool {
	if im == nil {
		return false
	}
	if !im.loaded {
		if err := im.LoadIgnorePatterns(); err != nil {
			return false // Don't ignore on error
		}
	}

	normalisedPath := filepath.ToSlash(relativePath)

	for _, pattern := range im.patterns {
		if pattern.MatchString(normalisedPath) {
			return true
		}
	}

	return false
}

// AddPattern adds a new ignore pattern
func (im *IgnoreManager) AddPattern(patternStr string) error {
	pattern, err := regexp.Compile(patternStr)
	if err != nil {
		return fmt.Errorf("invalid regex pattern: %s - %w", patternStr, err)
	}

	im.patterns = append(im.patterns, pattern)
	return nil
}

// HasPatterns returns true if there are any ignore patterns loaded
func (im *IgnoreManager) HasPatterns() bool {
	if im == nil {
		return false
	}
	if !im.loaded {
		im.LoadIgnorePatterns()
	}
	return len(im.patterns) > 0
}

// GetIgnoreFilePath returns the path to the ignore file
func (im *IgnoreManager) GetIgnoreFilePath() string {
	return im.ignorePath
}

// CreateDefaultIgnoreFile writes an ignore file with explanatory comments
// unless one already exists
func (im *IgnoreManager) CreateDefaultIgnoreFile() error {
	if im.ignorePath == "" {
		return fmt.Errorf("no ignore file path configured")
	}
	if _, err := os.Stat(im.ignorePath); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(im.ignorePath), 0755); err != nil {
		return err
	}

	return os.WriteFile(im.ignorePath, []byte(`# justone ignore patterns
#
# Each line is a Go regular expression matched against the path of a file
# or directory relative to the directory being scanned, using forward
# slashes. A matching directory is not descended into.
# Lines starting with # and empty lines are ignored.
#
# Examples:
# ^\.git$               # Skip the top-level .git directory
# (^|/)node_modules$    # Skip node_modules anywhere
# \.DS_Store$           # Skip .DS_Store files
# \.tmp$                # Skip all .tmp files
`), 0644)
}
