package regional

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Loader reads {Dir}/regional_holidays_{year}.csv.
type Loader struct {
	dir  string
	log  *zap.Logger
	memo *cache.Cache
}

// NewLoader keeps parsed files for a minute so edits to the data directory
// are picked up without a restart.
func NewLoader(dir string, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{dir: dir, log: log, memo: cache.New(time.Minute, 5*time.Minute)}
}

// Path is the rules file for year.
func (l *Loader) Path(year int) string {
	return filepath.Join(l.dir, fmt.Sprintf("regional_holidays_%d.csv", year))
}

// Load returns the valid rules for year. A missing file, or one whose header
// lacks a required column, yields an empty list and no error.
func (l *Loader) Load(year int) ([]Rule, error) {
	key := strconv.Itoa(year)
	if v, ok := l.memo.Get(key); ok {
		return v.([]Rule), nil
	}

	path := l.Path(year)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		l.log.Debug("no regional rules file", zap.String("path", path))
		l.memo.SetDefault(key, []Rule{})
		return []Rule{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening regional rules: %w", err)
	}
	defer f.Close()

	rules, diags, err := Parse(f)
	if errors.Is(err, ErrMissingColumn) {
		l.log.Warn("regional rules file ignored", zap.String("path", path), zap.Error(err))
		rules = []Rule{}
	} else if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for _, d := range diags {
		if d.Skipped {
			l.log.Warn("regional rule skipped", zap.String("path", path), zap.Int("line", d.Line),
				zap.String("field", d.Field), zap.String("reason", d.Reason))
		} else {
			l.log.Warn("regional rule warning", zap.String("path", path), zap.Int("line", d.Line),
				zap.String("field", d.Field), zap.String("reason", d.Reason))
		}
	}
	if rules == nil {
		rules = []Rule{}
	}

	l.log.Info("loaded regional rules", zap.Int("year", year), zap.Int("rules", len(rules)))
	l.memo.SetDefault(key, rules)
	return rules, nil
}
