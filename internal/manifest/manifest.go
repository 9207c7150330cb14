package manifest

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/cardlift/cardlift/internal/upload"
)

// Manifest loading and scanning errors.
var (
	ErrNoCards   = errors.New("manifest lists no cards")
	ErrNoInputs  = errors.New("no files or directories given")
	ErrNoImages  = errors.New("no image files found")
	ErrNotImage  = errors.New("not an image file")
	ErrEmptyFile = errors.New("file is empty")
)

// Defaults are manifest-wide values applied to entries that omit them.
type Defaults struct {
	Series   string `yaml:"series"`
	Rarity   string `yaml:"rarity"`
	Explicit bool   `yaml:"explicit"`
}

// Entry describes one card. Explicit is a pointer so an absent key falls
// back to the manifest default while an explicit "false" sticks.
type Entry struct {
	File     string `yaml:"file"`
	Name     string `yaml:"name,omitempty"`
	Series   string `yaml:"series,omitempty"`
	Rarity   string `yaml:"rarity,omitempty"`
	Explicit *bool  `yaml:"explicit,omitempty"`
}

// Manifest is the YAML document listing cards to upload.
type Manifest struct {
	Defaults Defaults `yaml:"defaults"`
	Cards    []Entry  `yaml:"cards"`
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &m, nil
}

// itemSpec is one resolved card waiting for its image to be read.
type itemSpec struct {
	path     string
	name     string
	series   string
	rarity   upload.Rarity
	explicit bool
}

// Items resolves the manifest into upload items, reading each card's image.
// Relative card paths are resolved against baseDir, typically the manifest's
// own directory.
func (m *Manifest) Items(ctx context.Context, baseDir string) ([]upload.Item, error) {
	if len(m.Cards) == 0 {
		return nil, ErrNoCards
	}

	specs := make([]itemSpec, 0, len(m.Cards))
	for i, card := range m.Cards {
		if card.File == "" {
			return nil, fmt.Errorf("cards[%d]: file is required", i)
		}

		path := card.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}

		series := card.Series
		if series == "" {
			series = m.Defaults.Series
		}

		rarityName := card.Rarity
		if rarityName == "" {
			rarityName = m.Defaults.Rarity
		}
		rarity, err := resolveRarity(rarityName)
		if err != nil {
			return nil, fmt.Errorf("cards[%d] (%s): %w", i, card.File, err)
		}

		explicit := m.Defaults.Explicit
		if card.Explicit != nil {
			explicit = *card.Explicit
		}

		name := card.Name
		if name == "" {
			name = DeriveName(filepath.Base(path))
		}

		specs = append(specs, itemSpec{
			path:     path,
			name:     name,
			series:   series,
			rarity:   rarity,
			explicit: explicit,
		})
	}

	return buildItems(ctx, specs)
}

// FromPaths builds items from files and directories. Directories contribute
// their image files (non-recursive, sorted by name); explicitly named files
// are taken as given and validated by content sniffing.
func FromPaths(ctx context.Context, paths []string, defaults Defaults) ([]upload.Item, error) {
	if len(paths) == 0 {
		return nil, ErrNoInputs
	}

	rarity, err := resolveRarity(defaults.Rarity)
	if err != nil {
		return nil, err
	}

	var specs []itemSpec
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}

		if info.IsDir() {
			dirSpecs, err := scanDir(p, defaults, rarity)
			if err != nil {
				return nil, err
			}
			specs = append(specs, dirSpecs...)
			continue
		}

		specs = append(specs, itemSpec{
			path:     p,
			name:     DeriveName(filepath.Base(p)),
			series:   defaults.Series,
			rarity:   rarity,
			explicit: defaults.Explicit,
		})
	}

	if len(specs) == 0 {
		return nil, ErrNoImages
	}
	return buildItems(ctx, specs)
}

// scanDir collects the image files directly inside dir. os.ReadDir returns
// entries sorted by name, which keeps item order deterministic.
func scanDir(dir string, defaults Defaults, rarity upload.Rarity) ([]itemSpec, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	var specs []itemSpec
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !hasImageExt(e.Name()) {
			continue
		}
		specs = append(specs, itemSpec{
			path:     filepath.Join(dir, e.Name()),
			name:     DeriveName(e.Name()),
			series:   defaults.Series,
			rarity:   rarity,
			explicit: defaults.Explicit,
		})
	}
	return specs, nil
}

// buildItems reads every spec's image concurrently and assembles the items
// in spec order. Any unreadable or non-image file fails the whole build.
func buildItems(ctx context.Context, specs []itemSpec) ([]upload.Item, error) {
	items := make([]upload.Item, len(specs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}

			data, err := os.ReadFile(spec.path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", spec.path, err)
			}
			if len(data) == 0 {
				return fmt.Errorf("%w: %s", ErrEmptyFile, spec.path)
			}

			mimeType, err := detectMIME(spec.path, data)
			if err != nil {
				return err
			}

			items[i] = upload.Item{
				ID: uuid.NewString(),
				Blob: upload.Blob{
					Filename: filepath.Base(spec.path),
					MIMEType: mimeType,
					Data:     data,
				},
				Name:     spec.name,
				Series:   spec.series,
				Rarity:   spec.rarity,
				Explicit: spec.explicit,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func resolveRarity(name string) (upload.Rarity, error) {
	if name == "" {
		return upload.RarityCommon, nil
	}
	return upload.ParseRarity(name)
}

// detectMIME trusts a recognized image extension first, then falls back to
// sniffing the content.
func detectMIME(path string, data []byte) (string, error) {
	if mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); strings.HasPrefix(mt, "image/") {
		return mt, nil
	}
	if mt := http.DetectContentType(data); strings.HasPrefix(mt, "image/") {
		return mt, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotImage, path)
}

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

func hasImageExt(name string) bool {
	return imageExts[strings.ToLower(filepath.Ext(name))]
}

var nameSeparators = strings.NewReplacer("_", " ", "-", " ")

// DeriveName turns a filename into a display name: extension stripped,
// separators spaced, words title-cased.
func DeriveName(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	words := strings.Fields(nameSeparators.Replace(base))
	return cases.Title(language.English).String(strings.Join(words, " "))
}
