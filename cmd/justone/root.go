package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	justone "github.com/mattkeenan/justone/pkg"
)

// rootOptions holds the flag values of the root command
type rootOptions struct {
	strict      int
	ignoreError bool
	timeIt      bool
	format      string
	sorted      bool
	hash        string
	workers     int
	partialSize string
	chunkSize   string
	excludes    []string
	configPath  string
	overrides   []string
	verbose     int
	debug       string
	quiet       bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	return buildRootCmd(&rootOptions{}, stdout, stderr)
}

// buildRootCmd binds the flags to o
func buildRootCmd(o *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "justone [flags] PATH...",
		Short: "Fast duplicate files finder",
		Long: `justone reports groups of files with identical contents.

Files are compared by size first, then by a hash of their first bytes, and
only then by a hash of their whole contents, so most files are never read
in full.

All PATHs must be of the same kind as the first one: either directories
(walked recursively, symbolic links not followed) or regular files.

Strictness:
  (default)  files with the same full hash are duplicates
  -s         additionally compare file stats, falling back to bytes
  -ss        additionally compare every byte`,
		Version:       version,
		Args:          cobra.MinimumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(cmd, o, args, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.CountVarP(&o.strict, "strict", "s", "strict level: -s shallow (stat, then bytes), -ss byte-by-byte")
	flags.BoolVarP(&o.ignoreError, "ignore-error", "i", false, "skip files that cannot be read instead of failing")
	flags.BoolVarP(&o.timeIt, "time", "t", false, "report the total time taken")
	flags.StringVarP(&o.format, "format", "f", "", "output format: human, fdupes, json, yaml")
	flags.BoolVar(&o.sorted, "sorted", false, "order groups by the first file registered")
	flags.StringVar(&o.hash, "hash", "", "hash algorithm: blake3, xxhash (64-bit, pair with -s), sha1, sha256, sha512")
	flags.IntVar(&o.workers, "workers", 0, "concurrent hash workers")
	flags.StringVar(&o.partialSize, "partial-size", "", "bytes covered by the partial hash, e.g. 4K")
	flags.StringVar(&o.chunkSize, "chunk-size", "", "read size for full hashes, e.g. 1M")
	flags.StringArrayVarP(&o.excludes, "exclude", "e", nil, "regex of relative paths to skip (repeatable)")
	flags.CountVarP(&o.verbose, "verbose", "v", "verbose output (repeat for more)")
	flags.StringVar(&o.debug, "debug", "", "debug flags: scan, hash, bucket, verify")
	flags.BoolVarP(&o.quiet, "quiet", "q", false, "no progress bars")

	persistent := cmd.PersistentFlags()
	persistent.StringVarP(&o.configPath, "config", "c", "", "config file (default "+justone.DefaultConfigPath()+")")
	persistent.StringArrayVar(&o.overrides, "set", nil, "override a config value, e.g. --set format:json (repeatable)")

	cmd.AddCommand(newConfigCmd(o, stdout))
	return cmd
}

// loadConfig reads the config file and applies --set and flag overrides,
// flags taking precedence
func loadConfig(cmd *cobra.Command, o *rootOptions) (*justone.Config, error) {
	path := o.configPath
	if path == "" {
		path = justone.DefaultConfigPath()
	}
	cfg, err := justone.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyOverrides(o.overrides); err != nil {
		return nil, err
	}
	if err := cfg.ApplyOverrides(flagOverrides(cmd, o)); err != nil {
		return nil, err
	}
	return cfg, nil
}

// flagOverrides turns explicitly set flags into config overrides
func flagOverrides(cmd *cobra.Command, o *rootOptions) []string {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	var overrides []string
	if changed("strict") {
		overrides = append(overrides, "strict:"+strconv.Itoa(o.strict))
	}
	if changed("ignore-error") {
		overrides = append(overrides, "ignore_errors:"+strconv.FormatBool(o.ignoreError))
	}
	if changed("format") {
		overrides = append(overrides, "format:"+o.format)
	}
	if changed("sorted") {
		overrides = append(overrides, "sorted:"+strconv.FormatBool(o.sorted))
	}
	if changed("hash") {
		overrides = append(overrides, "default:"+o.hash)
	}
	if changed("workers") {
		overrides = append(overrides, "hash_workers:"+strconv.Itoa(o.workers))
	}
	if changed("partial-size") {
		overrides = append(overrides, "partial_size:"+o.partialSize)
	}
	if changed("chunk-size") {
		overrides = append(overrides, "chunk_size:"+o.chunkSize)
	}
	if changed("verbose") {
		overrides = append(overrides, "level:"+strconv.Itoa(o.verbose))
	}
	if changed("debug") {
		overrides = append(overrides, "debug:"+o.debug)
	}
	return overrides
}

func runFind(cmd *cobra.Command, o *rootOptions, paths []string, stdout, stderr io.Writer) error {
	if o.strict > int(justone.StrictByteByByte) {
		return fmt.Errorf("%w: %d (use -s or -ss)", justone.ErrInvalidStrictLevel, o.strict)
	}

	cfg, err := loadConfig(cmd, o)
	if err != nil {
		return err
	}
	opts, err := justone.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	all := cfg.GetAllConfig()

	justone.SetLogOutput(stderr)
	justone.SetVerboseLevel(all.Verbose.Level)
	justone.SetDebugFlags(all.Verbose.Debug)

	if alg, err := justone.GetHashAlgorithm(opts.Algorithm); err == nil && alg.NeedsVerification() && all.Strict.Level == justone.StrictCommon {
		justone.Logger().Warn().
			Str("hash", alg.Name).
			Int("bits", alg.Size*8).
			Msg("narrow digest, groups are not verified; pair with -s")
	}

	for _, pattern := range o.excludes {
		if err := opts.Ignore.AddPattern(pattern); err != nil {
			return err
		}
	}
	if !o.quiet {
		opts.Progress = newBarProgress(stderr)
	}

	ctx, cancel := setupSignalHandler(cmd.Context(), stderr)
	defer cancel()

	start := time.Now()
	finder, err := justone.New(opts)
	if err != nil {
		return err
	}
	groups, err := findDuplicates(ctx, finder, paths, all.Strict.Level, all.Output.Format, stdout)
	if err != nil {
		return err
	}

	stats := finder.Stats()
	justone.Logger().Info().
		Int("files", stats.FilesRegistered).
		Int("partial_hashes", stats.PartialHashes).
		Int("full_hashes", stats.FullHashes).
		Int("fully_hashed_files", stats.Reached[justone.FullContext]).
		Int64("bytes_hashed", stats.BytesHashed).
		Int("skipped", stats.Skipped).
		Int("groups", groups).
		Msg("done")

	if o.timeIt {
		fmt.Fprintf(stdout, "Time Waste: %.2fs\n", time.Since(start).Seconds())
	}
	return nil
}

func findDuplicates(ctx context.Context, finder *justone.Finder, paths []string, level justone.StrictLevel, format string, stdout io.Writer) (int, error) {
	if _, err := finder.Update(ctx, paths...); err != nil {
		return 0, err
	}
	it, err := finder.Duplicates(ctx, level)
	if err != nil {
		return 0, err
	}
	return justone.WriteReport(stdout, format, it)
}
