package seed

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jonathan/training-planner/internal/policy"
	"github.com/jonathan/training-planner/internal/types"
)

// Registry creates validated artifacts
type Registry interface {
	Create(ctx context.Context, kind types.ArtifactKind, payload []byte) (types.Artifact, error)
}

// Store answers whether an artifact of the same name already exists and stores races
type Store interface {
	GetArtifactByName(ctx context.Context, kind types.ArtifactKind, name string) (types.Artifact, error)
	UpsertRace(ctx context.Context, race *types.Race) error
}

// Options controls how a bundle is applied
type Options struct {
	// StrictRaces rejects races whose miles disagree with their race type
	StrictRaces bool
}

// Report counts what Apply did
type Report struct {
	Created map[types.ArtifactKind]int
	Skipped int
	Races   int
}

// Seeder applies bundles through the registry so seeded artifacts are validated like
// any other create request
type Seeder struct {
	registry Registry
	store    Store
	validate *validator.Validate
	logger   *zap.Logger
}

// New creates a Seeder
func New(registry Registry, store Store, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{registry: registry, store: store, validate: validator.New(), logger: logger}
}

// Apply creates every artifact not already present by name and upserts every race.
// Races are checked before anything is written.
func (s *Seeder) Apply(ctx context.Context, b *Bundle, opts Options) (*Report, error) {
	items, err := b.Items()
	if err != nil {
		return nil, err
	}
	if err := s.checkRaces(b.Races, opts); err != nil {
		return nil, err
	}

	report := &Report{Created: make(map[types.ArtifactKind]int)}
	for _, item := range items {
		existing, err := s.store.GetArtifactByName(ctx, item.Kind, item.Name)
		if err != nil {
			return report, fmt.Errorf("failed to look up %s %q: %w", item.Kind, item.Name, err)
		}
		if existing != nil {
			report.Skipped++
			s.logger.Debug("artifact already seeded", zap.String("kind", string(item.Kind)), zap.String("name", item.Name))
			continue
		}
		artifact, err := s.registry.Create(ctx, item.Kind, item.Payload)
		if err != nil {
			return report, &BundleError{Entry: item.Name, Message: fmt.Sprintf("rejected %s", item.Kind), Cause: err}
		}
		report.Created[item.Kind]++
		s.logger.Info("seeded artifact",
			zap.String("kind", string(item.Kind)),
			zap.String("name", item.Name),
			zap.Stringer("id", artifact.ArtifactID()),
		)
	}

	for i := range b.Races {
		race := b.Races[i]
		if err := s.store.UpsertRace(ctx, &race); err != nil {
			return report, err
		}
		report.Races++
	}
	return report, nil
}

func (s *Seeder) checkRaces(races []types.Race, opts Options) error {
	for _, race := range races {
		if err := s.validate.Struct(race); err != nil {
			return &BundleError{Entry: race.Name, Message: "invalid race", Cause: err}
		}
		if err := policy.CheckRaceDistance(race); err != nil {
			if opts.StrictRaces {
				return &BundleError{Entry: race.Name, Message: "race distance check failed", Cause: err}
			}
			s.logger.Warn("race distance disagrees with race type",
				zap.String("race", race.Name),
				zap.Error(err),
			)
		}
	}
	return nil
}
