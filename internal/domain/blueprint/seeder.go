package blueprint

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

// Pattern matches every blueprint file below the seed directory.
const Pattern = "**/*.{yaml,yml,json,toml}"

// SeedResult summarizes a seeding pass.
type SeedResult struct {
	Loaded []string
	Failed map[string]error
}

// Seeder loads blueprint files from a directory.
type Seeder struct {
	builder *Builder
	dir     string
	log     *zap.Logger
}

// NewSeeder creates a seeder for dir.
func NewSeeder(builder *Builder, dir string, log *zap.Logger) *Seeder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Seeder{builder: builder, dir: dir, log: log.Named("seeder")}
}

// Seed applies every blueprint under the directory in lexical order. A
// broken file is logged and skipped; a missing directory seeds nothing.
func (s *Seeder) Seed(ctx context.Context) (*SeedResult, error) {
	result := &SeedResult{Failed: make(map[string]error)}
	if _, err := os.Stat(s.dir); errors.Is(err, fs.ErrNotExist) {
		s.log.Warn("blueprint directory not found", zap.String("dir", s.dir))
		return result, nil
	}

	matches, err := doublestar.Glob(os.DirFS(s.dir), Pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	s.log.Info("seeding blueprints", zap.String("dir", s.dir), zap.Int("files", len(matches)))

	for _, rel := range matches {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		path := filepath.Join(s.dir, filepath.FromSlash(rel))
		if err := s.load(ctx, path); err != nil {
			s.log.Error("failed to load blueprint", zap.String("file", rel), zap.Error(err))
			result.Failed[rel] = err
			continue
		}
		s.log.Debug("loaded blueprint", zap.String("file", rel))
		result.Loaded = append(result.Loaded, rel)
	}

	s.log.Info("seeding complete",
		zap.Int("loaded", len(result.Loaded)),
		zap.Int("failed", len(result.Failed)))
	return result, nil
}

func (s *Seeder) load(ctx context.Context, path string) error {
	bp, err := ParseFile(path)
	if err != nil {
		return err
	}
	return s.builder.Apply(ctx, bp)
}
