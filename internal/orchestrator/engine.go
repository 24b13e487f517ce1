// Package orchestrator runs the diagnosis pipeline: load, feature extraction,
// classification and the rule stages, then optional persistence.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitriimaksimovdevelop/cocoscan/internal/archive"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/classifier"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/features"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/imaging"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/model"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/output"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/store"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/trend"
)

var tracer trace.Tracer = otel.Tracer("cocoscan/orchestrator")

// ErrNoImageEvidence is the reason a degraded diagnosis is not saved as a scan.
var ErrNoImageEvidence = errors.New("diagnosis has no image evidence")

// Archiver stores a serialized diagnosis and returns its location.
type Archiver interface {
	Write(r *model.DiagnosisResult) (string, error)
}

// ScanMeta is the optional field context saved with a scan.
type ScanMeta struct {
	Notes    string
	Location string
	Weather  string
}

// Engine is built once and is safe for concurrent use.
type Engine struct {
	cfg        Config
	profile    ProfileConfig
	cat        *model.Catalog
	classifier classifier.Classifier
	fallback   classifier.Classifier
	repo       store.Repository
	archive    Archiver
	trend      *trend.Comparator
	logger     *slog.Logger
	progress   *output.Progress
	now        func() time.Time
	ownsRepo   bool
}

// Option customizes an Engine.
type Option func(*Engine)

func WithCatalog(cat *model.Catalog) Option         { return func(e *Engine) { e.cat = cat } }
func WithClassifier(c classifier.Classifier) Option { return func(e *Engine) { e.classifier = c } }
func WithRepository(r store.Repository) Option      { return func(e *Engine) { e.repo = r } }
func WithArchive(a Archiver) Option                 { return func(e *Engine) { e.archive = a } }
func WithLogger(l *slog.Logger) Option              { return func(e *Engine) { e.logger = l } }
func WithProgress(p *output.Progress) Option        { return func(e *Engine) { e.progress = p } }
func WithClock(now func() time.Time) Option         { return func(e *Engine) { e.now = now } }

// New builds an Engine. The catalog and classifier come from cfg unless
// supplied as options. Repository and archive are optional; without them
// DiagnoseAndPersist reports a PersistenceError.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:     cfg,
		profile: cfg.effectiveProfile(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	if e.cat == nil {
		if cfg.CatalogPath != "" {
			cat, err := model.LoadCatalog(cfg.CatalogPath)
			if err != nil {
				return nil, err
			}
			e.cat = cat
		} else {
			e.cat = model.DefaultCatalog()
		}
	}

	if e.classifier == nil {
		c, err := classifier.New(cfg.Classifier, e.cat)
		if err != nil {
			return nil, fmt.Errorf("classifier: %w", err)
		}
		e.classifier = c
	}
	e.fallback = e.classifier
	if e.classifier.Kind() != model.ModelSimulated {
		sim, err := classifier.New(classifier.Config{Backend: model.ModelSimulated, Seed: cfg.Classifier.Seed}, e.cat)
		if err != nil {
			return nil, fmt.Errorf("fallback classifier: %w", err)
		}
		e.fallback = sim
	}

	if e.repo != nil {
		e.trend = trend.NewComparator(e.repo, e.cat, e.profile.TrendWindow, e.logger)
	}
	return e, nil
}

// Open builds an Engine backed by the sqlite repository and archive
// directory named in cfg. Close releases the repository.
func Open(cfg Config, opts ...Option) (*Engine, error) {
	repo, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	all := []Option{WithRepository(repo)}
	if cfg.ArchiveDir != "" {
		w, err := archive.NewWriter(cfg.ArchiveDir, cfg.ArchiveFormat)
		if err != nil {
			repo.Close()
			return nil, err
		}
		all = append(all, WithArchive(w))
	}
	e, err := New(cfg, append(all, opts...)...)
	if err != nil {
		repo.Close()
		return nil, err
	}
	e.ownsRepo = true
	return e, nil
}

// Close releases resources opened by Open.
func (e *Engine) Close() error {
	if e.ownsRepo && e.repo != nil {
		return e.repo.Close()
	}
	return nil
}

func (e *Engine) Catalog() *model.Catalog { return e.cat }

// Repository returns the scan repository, nil when none is configured.
func (e *Engine) Repository() store.Repository { return e.repo }

func (e *Engine) Profile() ProfileConfig { return e.profile }

// Diagnose analyzes the image at path. It has no side effects and always
// returns a result; recovered failures are listed in Errors.
func (e *Engine) Diagnose(ctx context.Context, path string) *model.DiagnosisResult {
	ctx, span := tracer.Start(ctx, "diagnose")
	defer span.End()
	span.SetAttributes(attribute.String("image.path", path))

	var buf *imaging.Buffer
	err := e.stage(ctx, "load", func(context.Context) error {
		var err error
		buf, err = imaging.Load(path, e.profile.ImageSize)
		return err
	})
	return e.run(ctx, path, buf, err)
}

// DiagnoseImage analyzes an already decoded image.
func (e *Engine) DiagnoseImage(ctx context.Context, img image.Image, name string) *model.DiagnosisResult {
	ctx, span := tracer.Start(ctx, "diagnose")
	defer span.End()

	var buf *imaging.Buffer
	err := e.stage(ctx, "load", func(context.Context) error {
		var err error
		buf, err = imaging.FromImage(img, e.profile.ImageSize)
		if err != nil {
			return &model.DecodeError{Path: name, Err: err}
		}
		return nil
	})
	return e.run(ctx, name, buf, err)
}

// DiagnoseReader decodes and analyzes an image stream.
func (e *Engine) DiagnoseReader(ctx context.Context, r io.Reader, name string) *model.DiagnosisResult {
	ctx, span := tracer.Start(ctx, "diagnose")
	defer span.End()

	var buf *imaging.Buffer
	err := e.stage(ctx, "load", func(context.Context) error {
		var err error
		buf, err = imaging.Decode(r, e.profile.ImageSize)
		var de *model.DecodeError
		if errors.As(err, &de) && de.Path == "" {
			de.Path = name
		}
		return err
	})
	return e.run(ctx, name, buf, err)
}

// DiagnoseAndPersist runs Diagnose, adds the user's trend, saves the scan and
// archives the result. Persistence failures come back as *model.PersistenceError
// together with the computed result.
func (e *Engine) DiagnoseAndPersist(ctx context.Context, path string, userID int64, meta ScanMeta) (*model.DiagnosisResult, int64, error) {
	r := e.Diagnose(ctx, path)
	id, err := e.Persist(ctx, r, userID, meta)
	return r, id, err
}

// Persist stores an already computed diagnosis for userID.
func (e *Engine) Persist(ctx context.Context, r *model.DiagnosisResult, userID int64, meta ScanMeta) (int64, error) {
	ctx, span := tracer.Start(ctx, "diagnose.persist")
	defer span.End()

	if r.Trend == nil && e.trend != nil {
		_ = e.stage(ctx, "trend", func(ctx context.Context) error {
			r.Trend = e.trend.Compare(ctx, r, userID)
			return nil
		})
	}

	var errs []error
	var scanID int64
	switch {
	case e.repo == nil:
		errs = append(errs, &model.PersistenceError{Op: "save scan", Err: model.ErrRepositoryUnavailable})
	case r.NoImageEvidence:
		errs = append(errs, &model.PersistenceError{Op: "save scan", Err: ErrNoImageEvidence})
	default:
		id, err := e.repo.SaveScan(ctx, store.ScanInput{
			UserID:       userID,
			LeafType:     r.Classification.LeafType,
			HealthStatus: r.Severity.Label(),
			Confidence:   r.Classification.OverallConfidence,
			ImagePath:    r.ImagePath,
			Notes:        meta.Notes,
			Location:     meta.Location,
			Weather:      meta.Weather,
			DiagnosisID:  r.ID,
			ScannedAt:    r.Timestamp,
		})
		if err != nil {
			errs = append(errs, &model.PersistenceError{Op: "save scan", Err: err})
		} else {
			scanID = id
			e.progress.Log("Saved scan %d for user %d", id, userID)
		}
	}

	if e.archive != nil {
		path, err := e.archive.Write(r)
		if err != nil {
			errs = append(errs, &model.PersistenceError{Op: "archive", Err: err})
		} else {
			e.progress.Log("Archived diagnosis to %s", path)
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Warn("diagnosis not fully persisted", "diagnosis_id", r.ID, "err", err)
	}
	return scanID, err
}

func (e *Engine) run(ctx context.Context, name string, buf *imaging.Buffer, loadErr error) *model.DiagnosisResult {
	r := &model.DiagnosisResult{
		ID:              uuid.NewString(),
		SchemaVersion:   model.SchemaVersion,
		ImagePath:       name,
		Timestamp:       e.now().UTC(),
		Symptoms:        []string{},
		Recommendations: []string{},
		Quality:         features.QualitySentinel,
		Color:           features.ColorSentinel,
		Texture:         features.TextureSentinel,
		Patterns:        features.PatternSentinel,
	}

	if loadErr != nil {
		e.logger.Warn("image could not be decoded, using degraded analysis", "image", name, "err", loadErr)
		e.progress.Log("Could not read %s: %v", name, loadErr)
		r.NoImageEvidence = true
		r.AddError(loadErr)
	} else {
		e.extract(ctx, r, buf)
	}

	e.classify(ctx, r, buf)

	_ = e.stage(ctx, "rules", func(context.Context) error {
		r.Severity = model.ResolveStage(e.cat, r.Classification.DiseaseName)
		r.Symptoms = e.cat.Symptoms(r.Classification.DiseaseID)
		r.Recommendations = model.GenerateRecommendations(e.cat, r.Classification, r.Quality, r.Patterns)
		if r.NoImageEvidence {
			r.Recommendations = append(r.Recommendations, model.AdvisoryRetakePhoto)
		}
		r.Treatment = model.PlanTreatment(e.cat, r.Classification.DiseaseName, r.Nutrients, r.Quality)
		r.Progression = model.PredictProgression(r.Severity)
		return nil
	})

	e.progress.Log("Diagnosed %s: %s (%s), quality=%s, errors=%d",
		name, r.Classification.DiseaseName, r.Severity, r.Quality.QualityLevel, len(r.Errors))
	return r
}

// extract runs the enabled feature stages. Each stage falls back to its
// sentinel on failure.
func (e *Engine) extract(ctx context.Context, r *model.DiagnosisResult, buf *imaging.Buffer) {
	type featureStage struct {
		name string
		run  func() error
	}
	stages := []featureStage{
		{FeatureQuality, func() (err error) { r.Quality, err = features.AssessQuality(buf); return }},
		{FeatureColor, func() (err error) { r.Color, err = features.ProfileColor(buf); return }},
		{FeatureTexture, func() (err error) { r.Texture, err = features.ProfileTexture(buf); return }},
		{FeaturePatterns, func() (err error) { r.Patterns, err = features.DetectPatterns(buf); return }},
		{FeatureNutrients, func() (err error) { r.Nutrients, err = features.AnalyzeNutrients(buf); return }},
	}
	for _, s := range stages {
		if !e.profile.Enabled(s.name) {
			e.progress.Debug("  [%s] skipped by profile", s.name)
			continue
		}
		start := time.Now()
		if err := e.stage(ctx, s.name, func(context.Context) error { return s.run() }); err != nil {
			e.logger.Warn("feature extraction failed", "stage", s.name, "err", err)
			r.AddError(err)
		}
		e.progress.Debug("  [%s] done (%s)", s.name, time.Since(start).Round(time.Microsecond))
	}
}

// classify labels the buffer. Without image evidence, or when the primary
// backend fails, the simulated fallback answers.
func (e *Engine) classify(ctx context.Context, r *model.DiagnosisResult, buf *imaging.Buffer) {
	err := e.stage(ctx, "classify", func(ctx context.Context) error {
		if r.NoImageEvidence {
			return errNoBuffer
		}
		cls, err := e.classifier.Classify(ctx, buf)
		if err != nil {
			return err
		}
		r.Classification = cls
		r.ModelUsed = e.classifier.Kind()
		return nil
	})
	if err == nil {
		return
	}
	if !errors.Is(err, errNoBuffer) {
		e.logger.Warn("classifier failed, using simulated fallback", "err", err)
		r.AddError(fmt.Errorf("classify: %w", err))
	}

	cls, ferr := e.fallback.Classify(ctx, nil)
	if ferr != nil {
		// The simulated backend does not read the buffer and only fails on a
		// catalog mismatch; keep the healthy entry so the result stays valid.
		r.AddError(fmt.Errorf("fallback classify: %w", ferr))
		h := e.cat.Healthy()
		cls = model.Classification{
			DiseaseID:      h.ID,
			DiseaseName:    h.Name,
			LeafType:       classifier.LeafType,
			LeafName:       classifier.LeafName,
			LeafConfidence: classifier.LeafConfidence,
		}
	}
	r.Classification = cls
	r.ModelUsed = model.ModelSimulated
}

var errNoBuffer = errors.New("no image buffer")

// stage wraps fn in a span named diagnose.<name>.
func (e *Engine) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "diagnose."+name, trace.WithAttributes(attribute.String("stage", name)))
	defer span.End()
	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
