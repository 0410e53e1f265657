package journal

import "path/filepath"

// Config carries the environment inputs the journal consumes (spec §6).
type Config struct {
	// Filename is the environment's database file path.
	Filename string
	// LogDir, if non-empty, puts the journal files inside LogDir
	// instead of next to Filename.
	LogDir string
	// SwitchThreshold overrides kSwitchTxnThreshold; 0 means "use the default".
	SwitchThreshold int64
	// Compressor selects the payload compression algorithm; 0 disables it.
	Compressor int
	// PageSize is the page store's fixed page size in bytes.
	PageSize int
	// EnableFsync mirrors UPS_ENABLE_FSYNC.
	EnableFsync bool
	// EnableTransactions mirrors UPS_ENABLE_TRANSACTIONS.
	EnableTransactions bool
}

// Paths derives the two journal file paths from cfg, following
// Journal::get_path: <base>.jrn0 and <base>.jrn1, where base is the
// database filename when no log directory is configured, else
// <log_dir>/<basename-of-database-file>.
func Paths(cfg Config) (path0, path1 string) {
	base := cfg.Filename
	if cfg.LogDir != "" {
		base = filepath.Join(cfg.LogDir, filepath.Base(cfg.Filename))
	}
	return base + ".jrn0", base + ".jrn1"
}
