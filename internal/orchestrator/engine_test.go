package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dmitriimaksimovdevelop/cocoscan/internal/classifier"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/features"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/imaging"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/model"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/store"
)

var fixedNow = time.Date(2024, 8, 15, 9, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))

func uniform(c color.RGBA, size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func writePNG(t *testing.T, c color.RGBA) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leaf.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, uniform(c, 32)); err != nil {
		t.Fatal(err)
	}
	return path
}

var green = color.RGBA{40, 180, 60, 255}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ImageSize = 32
	cfg.Classifier.Seed = 42
	return cfg
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(testConfig(), append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

// --- fakes ---

type fakeRepo struct {
	saved   []store.ScanInput
	scans   []store.Scan
	saveErr error
}

func (f *fakeRepo) SaveScan(_ context.Context, in store.ScanInput) (int64, error) {
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	f.saved = append(f.saved, in)
	return int64(len(f.saved)), nil
}

func (f *fakeRepo) UserScans(context.Context, int64, int) ([]store.Scan, error) {
	return f.scans, nil
}

func (f *fakeRepo) Statistics(context.Context, *int64) (store.Statistics, error) {
	return store.Statistics{}, nil
}

func (f *fakeRepo) DeleteScan(context.Context, int64, *int64) (bool, error) { return false, nil }
func (f *fakeRepo) Close() error                                          { return nil }

type fakeArchive struct {
	written []*model.DiagnosisResult
	err     error
}

func (f *fakeArchive) Write(r *model.DiagnosisResult) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.written = append(f.written, r)
	return "archive/" + r.ID + ".json", nil
}

type failingClassifier struct{}

func (failingClassifier) Classify(context.Context, *imaging.Buffer) (model.Classification, error) {
	return model.Classification{}, errors.New("model offline")
}
func (failingClassifier) Kind() model.ModelKind { return model.ModelTrained }

// rootWiltModel always favours the third catalog class.
type rootWiltModel struct{}

func (rootWiltModel) Predict(context.Context, []float32) ([]float64, error) {
	return []float64{0.05, 0.05, 0.6, 0.05, 0.05, 0.1, 0.05, 0.05}, nil
}

// --- Diagnose ---

func TestDiagnoseGreenLeaf(t *testing.T) {
	e := newEngine(t)
	r := e.Diagnose(context.Background(), writePNG(t, green))

	if r.NoImageEvidence {
		t.Fatal("decoded image flagged as missing")
	}
	if len(r.Errors) != 0 {
		t.Errorf("errors = %v", r.Errors)
	}
	if _, err := uuid.Parse(r.ID); err != nil {
		t.Errorf("ID %q is not a uuid", r.ID)
	}
	if !r.Timestamp.Equal(fixedNow) || r.Timestamp.Location() != time.UTC {
		t.Errorf("Timestamp = %v, want %v in UTC", r.Timestamp, fixedNow)
	}
	if r.SchemaVersion != model.SchemaVersion || r.ModelUsed != model.ModelSimulated {
		t.Errorf("schema=%s model=%s", r.SchemaVersion, r.ModelUsed)
	}
	if r.Color.ColorHealth != features.ColorHealthy || r.Color.Severity != model.ColorSeverityNone {
		t.Errorf("color = %+v", r.Color)
	}
	if r.Patterns.Yellowing.Detected {
		t.Error("yellowing detected on a green leaf")
	}
	if r.Texture.Pattern == features.TextureUnknown {
		t.Error("texture stage did not run")
	}

	cls := r.Classification
	if cls.DiseaseConfidence < 0 || cls.DiseaseConfidence > 1 || cls.OverallConfidence < 0 || cls.OverallConfidence > 1 {
		t.Errorf("confidence out of range: %+v", cls)
	}
	if r.Severity != model.ResolveStage(e.Catalog(), cls.DiseaseName) {
		t.Errorf("Severity = %s for %s", r.Severity, cls.DiseaseName)
	}
	if r.Progression.CurrentStage != r.Severity {
		t.Errorf("progression stage = %s, severity %s", r.Progression.CurrentStage, r.Severity)
	}
	if len(r.Symptoms) == 0 || len(r.Recommendations) == 0 {
		t.Error("symptoms and recommendations should be filled")
	}
	if len(r.Treatment.LongTermPrevention) != len(model.LongTermPrevention) {
		t.Errorf("treatment = %+v", r.Treatment)
	}
	if r.Trend != nil {
		t.Error("Diagnose must not compute a trend")
	}
}

func TestDiagnoseDeterministic(t *testing.T) {
	path := writePNG(t, color.RGBA{230, 210, 20, 255})
	a := newEngine(t).Diagnose(context.Background(), path)
	b := newEngine(t).Diagnose(context.Background(), path)

	if a.Quality != b.Quality || a.Color != b.Color || a.Texture != b.Texture || a.Patterns != b.Patterns {
		t.Error("feature stages differ between runs")
	}
	if a.Classification != b.Classification {
		t.Errorf("seeded classification differs: %+v vs %+v", a.Classification, b.Classification)
	}
	if !a.Patterns.Yellowing.Detected || a.Patterns.Yellowing.Severity != model.PatternHigh {
		t.Errorf("yellowing = %+v", a.Patterns.Yellowing)
	}
	if a.ID == b.ID {
		t.Error("ids should be unique")
	}
}

func TestDiagnoseCorruptFile(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.jpg")
	os.WriteFile(empty, nil, 0644)
	garbage := filepath.Join(dir, "garbage.png")
	os.WriteFile(garbage, []byte("not an image at all"), 0644)

	tests := []struct {
		name string
		path string
		opts []Option
	}{
		{"zero byte", empty, nil},
		{"garbage", garbage, nil},
		{"missing", filepath.Join(dir, "missing.png"), nil},
		{"trained backend configured", empty, []Option{WithClassifier(failingClassifier{})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newEngine(t, tt.opts...).Diagnose(context.Background(), tt.path)
			if !r.NoImageEvidence {
				t.Error("NoImageEvidence = false")
			}
			if r.ModelUsed != model.ModelSimulated {
				t.Errorf("ModelUsed = %s, want simulated", r.ModelUsed)
			}
			if len(r.Errors) != 1 || !strings.Contains(r.Errors[0], "decode image") {
				t.Errorf("Errors = %v", r.Errors)
			}
			if r.Quality.QualityLevel != model.QualityUnknown || r.Color.Severity != model.ColorSeverityUnknown {
				t.Errorf("sentinels not applied: %+v %+v", r.Quality, r.Color)
			}
			if r.Patterns.Yellowing.Detected || r.Nutrients.Any() {
				t.Error("degraded result should detect nothing")
			}
			if r.Classification.DiseaseID == "" {
				t.Error("degraded result still needs a classification")
			}
			if r.Recommendations[len(r.Recommendations)-1] != model.AdvisoryRetakePhoto {
				t.Errorf("last recommendation = %q", r.Recommendations[len(r.Recommendations)-1])
			}
		})
	}
}

func TestClassifierFailureFallsBack(t *testing.T) {
	e := newEngine(t, WithClassifier(failingClassifier{}))
	r := e.Diagnose(context.Background(), writePNG(t, green))
	if r.NoImageEvidence {
		t.Error("image was decoded")
	}
	if r.ModelUsed != model.ModelSimulated {
		t.Errorf("ModelUsed = %s", r.ModelUsed)
	}
	if len(r.Errors) != 1 || !strings.Contains(r.Errors[0], "model offline") {
		t.Errorf("Errors = %v", r.Errors)
	}
}

func TestTrainedBackendReportsTrained(t *testing.T) {
	e := newEngine(t, WithClassifier(classifier.NewTrained(rootWiltModel{}, model.DefaultCatalog())))
	r := e.Diagnose(context.Background(), writePNG(t, green))
	if r.ModelUsed != model.ModelTrained {
		t.Errorf("ModelUsed = %s, want trained", r.ModelUsed)
	}
	if r.Classification.DiseaseID != "root_wilt" || r.Severity != model.StageSevere {
		t.Errorf("classification = %+v, severity %s", r.Classification, r.Severity)
	}
	if len(r.Errors) != 0 {
		t.Errorf("Errors = %v", r.Errors)
	}
}

func TestDiagnoseReaderAndImage(t *testing.T) {
	e := newEngine(t)

	var buf bytes.Buffer
	png.Encode(&buf, uniform(green, 20))
	r := e.DiagnoseReader(context.Background(), &buf, "upload.png")
	if r.NoImageEvidence || r.ImagePath != "upload.png" {
		t.Errorf("reader result = %+v", r)
	}

	bad := e.DiagnoseReader(context.Background(), strings.NewReader("junk"), "upload.bin")
	if !bad.NoImageEvidence || !strings.Contains(bad.Errors[0], "upload.bin") {
		t.Errorf("bad reader errors = %v", bad.Errors)
	}

	img := e.DiagnoseImage(context.Background(), uniform(green, 8), "memory")
	if img.NoImageEvidence || img.Color.ColorHealth != features.ColorHealthy {
		t.Errorf("image result = %+v", img.Color)
	}
	empty := e.DiagnoseImage(context.Background(), image.NewRGBA(image.Rect(0, 0, 0, 0)), "blank")
	if !empty.NoImageEvidence {
		t.Error("empty image should degrade")
	}
}

func TestQuickProfileSkipsTexture(t *testing.T) {
	cfg := testConfig()
	cfg.Profile = "quick"
	e, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	r := e.Diagnose(context.Background(), writePNG(t, green))
	if r.Texture != features.TextureSentinel {
		t.Errorf("texture = %+v, want sentinel", r.Texture)
	}
	if len(r.Errors) != 0 {
		t.Errorf("skipped stages are not errors: %v", r.Errors)
	}
	if e.Profile().TrendWindow != 5 {
		t.Errorf("TrendWindow = %d", e.Profile().TrendWindow)
	}
}

// --- Persist ---

func TestDiagnoseAndPersist(t *testing.T) {
	repo := &fakeRepo{}
	arch := &fakeArchive{}
	e := newEngine(t, WithRepository(repo), WithArchive(arch))

	r, id, err := e.DiagnoseAndPersist(context.Background(), writePNG(t, green), 7, ScanMeta{Notes: "north row", Weather: "humid"})
	if err != nil {
		t.Fatalf("DiagnoseAndPersist: %v", err)
	}
	if id != 1 || len(repo.saved) != 1 {
		t.Fatalf("id = %d, saved = %d", id, len(repo.saved))
	}
	in := repo.saved[0]
	if in.UserID != 7 || in.HealthStatus != r.Severity.Label() || in.Confidence != r.Classification.OverallConfidence {
		t.Errorf("saved %+v", in)
	}
	if in.DiagnosisID != r.ID || in.Notes != "north row" || in.Weather != "humid" || !in.ScannedAt.Equal(fixedNow) {
		t.Errorf("saved %+v", in)
	}
	if len(arch.written) != 1 || arch.written[0] != r {
		t.Error("result not archived")
	}
	if r.Trend == nil || r.Trend.Direction != model.TrendUnknown {
		t.Errorf("Trend = %+v, want Unknown for a user without history", r.Trend)
	}
}

func TestPersistFailures(t *testing.T) {
	boom := errors.New("disk full")
	path := writePNG(t, green)

	tests := []struct {
		name    string
		opts    []Option
		wantOps []string
		wantErr error
	}{
		{"no repository", nil, []string{"save scan"}, model.ErrRepositoryUnavailable},
		{"save fails", []Option{WithRepository(&fakeRepo{saveErr: boom})}, []string{"save scan"}, boom},
		{"archive fails", []Option{WithRepository(&fakeRepo{}), WithArchive(&fakeArchive{err: boom})}, []string{"archive"}, boom},
		{"both fail", []Option{WithRepository(&fakeRepo{saveErr: boom}), WithArchive(&fakeArchive{err: boom})}, []string{"save scan", "archive"}, boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, err := newEngine(t, tt.opts...).DiagnoseAndPersist(context.Background(), path, 1, ScanMeta{})
			if r == nil || r.Classification.DiseaseID == "" {
				t.Fatal("result must be returned alongside persistence errors")
			}
			var pe *model.PersistenceError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v, want PersistenceError", err)
			}
			for _, op := range tt.wantOps {
				if !strings.Contains(err.Error(), "persist ("+op+")") {
					t.Errorf("err %q missing op %s", err, op)
				}
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want wrapped %v", err, tt.wantErr)
			}
		})
	}
}

func TestPersistSkipsScanWithoutImageEvidence(t *testing.T) {
	repo := &fakeRepo{scans: []store.Scan{{HealthStatus: "Critical Disease", Confidence: 0.8, ScannedAt: fixedNow.Add(-time.Hour)}}}
	arch := &fakeArchive{}
	empty := filepath.Join(t.TempDir(), "empty.png")
	os.WriteFile(empty, nil, 0644)

	r, id, err := newEngine(t, WithRepository(repo), WithArchive(arch)).
		DiagnoseAndPersist(context.Background(), empty, 1, ScanMeta{})
	if !errors.Is(err, ErrNoImageEvidence) {
		t.Errorf("err = %v, want ErrNoImageEvidence", err)
	}
	if id != 0 || len(repo.saved) != 0 {
		t.Error("degraded diagnosis must not enter scan history")
	}
	if len(arch.written) != 1 || !arch.written[0].NoImageEvidence || r != arch.written[0] {
		t.Error("degraded diagnosis should still be archived")
	}
	if r.Trend == nil || r.Trend.Direction != model.TrendUnknown {
		t.Errorf("Trend = %+v, want Unknown without image evidence", r.Trend)
	}
}

func TestOpenWithSQLiteAndArchive(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.DatabasePath = filepath.Join(dir, "scans.db")
	cfg.ArchiveDir = filepath.Join(dir, "results")
	cfg.ArchiveFormat = "yaml"

	e, err := Open(cfg, WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()

	ctx := context.Background()
	path := writePNG(t, green)
	for i := 0; i < 2; i++ {
		if _, _, err := e.DiagnoseAndPersist(ctx, path, 9, ScanMeta{}); err != nil {
			t.Fatalf("persist %d: %v", i, err)
		}
	}

	scans, err := e.Repository().UserScans(ctx, 9, 10)
	if err != nil || len(scans) != 2 {
		t.Fatalf("scans = %d, %v", len(scans), err)
	}
	files, _ := filepath.Glob(filepath.Join(cfg.ArchiveDir, "leaf_analysis_*.yaml"))
	if len(files) != 2 {
		t.Errorf("archived files = %v", files)
	}
}

func TestNewValidation(t *testing.T) {
	cfg := testConfig()
	cfg.Profile = "turbo"
	if _, err := New(cfg); err == nil {
		t.Error("expected error for unknown profile")
	}

	cfg = testConfig()
	cfg.Classifier = classifier.Config{Backend: model.ModelTrained}
	if _, err := New(cfg); err == nil {
		t.Error("expected error for trained backend without weights")
	}

	cfg = testConfig()
	cfg.CatalogPath = filepath.Join(t.TempDir(), "none.yaml")
	if _, err := New(cfg); err == nil {
		t.Error("expected error for missing catalog")
	}
}
