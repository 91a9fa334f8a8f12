package album

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-profiles/internal/hydrate"
)

//go:embed albums.json
var bundledCatalog []byte

// BundledCatalogName names the embedded catalog in logs and errors.
const BundledCatalogName = "albums.json"

// Populator seeds an empty repository from a JSON catalog once at startup.
type Populator struct {
	repo    Repository
	name    string
	catalog []byte
	logger  zerolog.Logger
	decoder *hydrate.Decoder[Album]
}

// PopulatorOption configures a Populator.
type PopulatorOption func(*Populator) error

// WithCatalog replaces the bundled catalog with raw JSON.
func WithCatalog(name string, raw []byte) PopulatorOption {
	return func(p *Populator) error {
		p.name = name
		p.catalog = raw
		return nil
	}
}

// WithCatalogFile reads the catalog from path.
func WithCatalogFile(path string) PopulatorOption {
	return func(p *Populator) error {
		//nolint:gosec // path is supplied by the operator
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("album: read catalog %s: %w", path, err)
		}
		p.name = filepath.Base(path)
		p.catalog = raw
		return nil
	}
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) PopulatorOption {
	return func(p *Populator) error {
		p.logger = logger
		return nil
	}
}

// NewPopulator builds a populator for repo using the bundled catalog unless
// overridden.
func NewPopulator(repo Repository, opts ...PopulatorOption) (*Populator, error) {
	if repo == nil {
		return nil, fmt.Errorf("album: repository must be provided")
	}
	p := &Populator{
		repo:    repo,
		name:    BundledCatalogName,
		catalog: bundledCatalog,
		logger:  zerolog.Nop(),
		decoder: hydrate.NewDecoder[Album](),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Populate saves every non-null catalog record, in catalog order, when the
// repository is empty. It returns the number of albums saved.
func (p *Populator) Populate(ctx context.Context) (int, error) {
	count, err := p.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("album: count: %w", err)
	}
	if count > 0 {
		p.logger.Debug().Int64("count", count).Msg("album repository already populated")
		return 0, nil
	}

	albums, err := p.decoder.DecodeDocument(p.name, p.catalog)
	if err != nil {
		return 0, fmt.Errorf("album: load catalog: %w", err)
	}
	for i := range albums {
		if err := p.repo.Save(ctx, &albums[i]); err != nil {
			return i, fmt.Errorf("album: save %q: %w", albums[i].Title, err)
		}
	}
	p.logger.Info().Int("saved", len(albums)).Str("catalog", p.name).Msg("populated album repository")
	return len(albums), nil
}
