// Package justone finds duplicate files without hashing every byte of every
// file.
//
// # Core API
//
// The main entry point is Finder, a session that accumulates files across
// repeated Update calls and reports duplicate groups on demand:
//
//	f, err := justone.New(justone.DefaultOptions())
//	if err != nil {
//		return err
//	}
//	if _, err := f.Update(ctx, "/data/photos", "/backup/photos"); err != nil {
//		return err
//	}
//
// # Finding Duplicates
//
//	it, err := f.Duplicates(ctx, justone.StrictCommon)
//	if err != nil {
//		return err
//	}
//	defer it.Close()
//	for it.Next() {
//		group := it.Group()
//		fmt.Printf("%s: %v\n", group.Hash, group.Files)
//	}
//	if err := it.Err(); err != nil {
//		return err
//	}
//
// # Pipeline
//
// Files are bucketed by size first. Only files sharing a size are hashed over
// their first PartialSize bytes, and only files sharing (size, partial hash)
// are hashed in full. Files sharing a full hash are duplicates. StrictShallow
// and StrictByteByByte re-check full-hash groups against the files themselves.
//
// # Configuration
//
// Enable debug output:
//
//	justone.SetDebugFlags("scan,bucket")
//	justone.SetVerboseLevel(2)
//
// Load defaults from an ini file:
//
//	cfg, err := justone.LoadConfig(justone.DefaultConfigPath())
//	opts, err := justone.OptionsFromConfig(cfg)
//
// # Note on Internal API
//
// External consumers should primarily use:
//   - Finder and its methods
//   - Result types: DuplicateGroup, DuplicateIterator, Stats
//   - Error types: ScanError, HashError, LookupError, UpdateError
//   - Configuration: Config, Options, SetDebugFlags, SetVerboseLevel
//
// FileRegistry, BucketIndex, Enumerator and HashEngine are exported so that
// they can be tested and reused, but their shape may change.
package justone
