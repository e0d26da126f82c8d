package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"bankcompare/internal/config"
	"bankcompare/internal/loan"
	"bankcompare/internal/rollout"
	"bankcompare/internal/storage"
)

func newTestApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{
		Cache:   config.CacheConfig{TTL: time.Hour},
		SLO:     config.SLOConfig{ConfigPath: filepath.Join(t.TempDir(), "missing.json")},
		Metrics: config.MetricsConfig{Source: config.MetricsSourceFile, Path: filepath.Join(t.TempDir(), "missing.json")},
		Rollout: config.RolloutConfig{DefaultStages: []int{5, 25, 50, 100}},
		Catalog: config.CatalogConfig{ItemsPerPage: 10},
		Export:  config.ExportConfig{MaxDataPoints: 100},
	}
	out := &bytes.Buffer{}
	a := NewApp(cfg, zerolog.Nop())
	a.Out = out
	return a, out
}

func TestCalculatePrintsRoundedAmounts(t *testing.T) {
	a, out := newTestApp(t)
	err := a.Calculate(context.Background(), CalcOptions{Principal: 100000, Rate: 2.49, Term: 12})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	for _, want := range []string{"Monthly payment", "8446.16 TL", "12 months", "%2.49"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("%q missing from output:\n%s", want, out.String())
		}
	}
}

func TestCalculateRejectsInvalidTerms(t *testing.T) {
	a, _ := newTestApp(t)
	err := a.Calculate(context.Background(), CalcOptions{Principal: 100000, Rate: 2.49, Term: 0})
	if !errors.Is(err, loan.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestAmortizeJSON(t *testing.T) {
	a, out := newTestApp(t)
	if err := a.Amortize(context.Background(), CalcOptions{Principal: 12000, Rate: 0, Term: 12, JSON: true}); err != nil {
		t.Fatalf("amortize: %v", err)
	}
	var rows []loan.Installment
	if err := json.Unmarshal(out.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 12 || rows[0].Payment != 1000 || rows[11].Balance != 0 {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestListCreditsFirstPage(t *testing.T) {
	a, out := newTestApp(t)
	if err := a.List(context.Background(), ListOptions{Page: "credits", PageNumber: 1}); err != nil {
		t.Fatalf("list: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "Garanti BBVA") || !strings.Contains(got, "1-10 of 24 | page 1/3 | sort: interestRate asc") {
		t.Fatalf("unexpected listing:\n%s", got)
	}
}

func TestListValidatesInput(t *testing.T) {
	a, _ := newTestApp(t)
	if err := a.List(context.Background(), ListOptions{Page: "credits", SortDir: "sideways"}); err == nil {
		t.Fatal("expected invalid direction error")
	}
	if err := a.List(context.Background(), ListOptions{Page: "credits", Bucket: "free"}); err == nil {
		t.Fatal("credits have no free bucket")
	}
	if err := a.List(context.Background(), ListOptions{Page: "loans"}); err == nil {
		t.Fatal("expected unknown page error")
	}
}

func TestListEmptyResult(t *testing.T) {
	a, out := newTestApp(t)
	if err := a.List(context.Background(), ListOptions{Page: "cards", Search: "no such bank"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "no records match") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestSLOFromSummaryFile(t *testing.T) {
	a, out := newTestApp(t)
	path := filepath.Join(t.TempDir(), "summary.hjson")
	doc := `{
  // exported by the analytics job
  today: { date: "2025-03-14", heroCTR: 3.4, searchConversionRate: 9, adViewability: 55 }
  vitals: { lcp: { p75: 2100 }, inp: { p75: 0 }, cls: { p75: 0.04 } }
}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := a.SLO(context.Background(), SLOOptions{SummaryPath: path}); err != nil {
		t.Fatalf("slo: %v", err)
	}
	got := out.String()
	for _, want := range []string{"SLO: 80%", "fail", "Search Conversion", "2100ms"} {
		if !strings.Contains(got, want) {
			t.Fatalf("%q missing from output:\n%s", want, got)
		}
	}
}

func TestSimulateAlertRequiresAlerting(t *testing.T) {
	a, _ := newTestApp(t)
	if err := a.SimulateAlert(context.Background(), SimulateOptions{}); err == nil {
		t.Fatal("expected error while alerting is disabled")
	}
}

func TestSimulateAlertUsesLogNotifier(t *testing.T) {
	a, out := newTestApp(t)
	a.Config.Alerting.Enabled = true
	opts := SimulateOptions{LCPMs: 4000, INPMs: -1, CLS: -1, HeroCTRPct: -1, SearchConvPct: -1, ViewabilityPct: -1}
	if err := a.SimulateAlert(context.Background(), opts); err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if !strings.Contains(out.String(), "SLO: 0%") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

type memoryRollouts struct {
	mu      sync.Mutex
	records map[string]storage.RolloutRecord
}

func (m *memoryRollouts) GetRollout(ctx context.Context, id string) (storage.RolloutRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return storage.RolloutRecord{}, storage.ErrNotFound
	}
	return rec, nil
}

func (m *memoryRollouts) ListRollouts(ctx context.Context) ([]storage.RolloutRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]storage.RolloutRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	return out, nil
}

func (m *memoryRollouts) SaveRollout(ctx context.Context, rec storage.RolloutRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.save(rec)
	return nil
}

func (m *memoryRollouts) UpdateRollout(ctx context.Context, id string, apply storage.RolloutUpdate) (storage.RolloutRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, found := m.records[id]
	next, err := apply(rec, found)
	if err != nil {
		return storage.RolloutRecord{}, err
	}
	m.save(next)
	return next, nil
}

func (m *memoryRollouts) save(rec storage.RolloutRecord) {
	if m.records == nil {
		m.records = make(map[string]storage.RolloutRecord)
	}
	m.records[rec.ExperimentID] = rec
}

// conflictingRollouts behaves like a store that lost a create race.
type conflictingRollouts struct {
	memoryRollouts
}

func (c *conflictingRollouts) UpdateRollout(ctx context.Context, id string, apply storage.RolloutUpdate) (storage.RolloutRecord, error) {
	if _, err := apply(storage.RolloutRecord{}, false); err != nil {
		return storage.RolloutRecord{}, err
	}
	return storage.RolloutRecord{}, storage.ErrConflict
}

func TestApplyRolloutLifecycle(t *testing.T) {
	a, _ := newTestApp(t)
	store := &memoryRollouts{}
	ctx := context.Background()
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	view, err := a.applyRollout(ctx, store, RolloutAdvance, RolloutOptions{ExperimentID: "hero-v2"}, now)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if view.Status != rollout.StatusActive || view.Percentage != 25 || view.StageCount != 4 {
		t.Fatalf("advance should create with default stages and move to stage 2: %+v", view)
	}

	if _, err := a.applyRollout(ctx, store, RolloutCreate, RolloutOptions{ExperimentID: "hero-v2"}, now); err == nil {
		t.Fatal("create must refuse an existing rollout")
	}

	view, err = a.applyRollout(ctx, store, RolloutPause, RolloutOptions{ExperimentID: "hero-v2"}, now)
	if err != nil || view.Status != rollout.StatusPaused || view.Percentage != 25 {
		t.Fatalf("pause: %+v %v", view, err)
	}

	_, err = a.applyRollout(ctx, store, RolloutAdvance, RolloutOptions{ExperimentID: "hero-v2"}, now)
	if !errors.Is(err, rollout.ErrInvalidTransition) {
		t.Fatalf("advancing a paused rollout must be rejected, got %v", err)
	}
	if rec := store.records["hero-v2"]; rec.Status != string(rollout.StatusPaused) {
		t.Fatalf("rejected action must not be persisted: %+v", rec)
	}

	view, err = a.applyRollout(ctx, store, RolloutAbort, RolloutOptions{ExperimentID: "hero-v2"}, now)
	if err != nil || view.Percentage != 0 {
		t.Fatalf("abort: %+v %v", view, err)
	}
}

func TestApplyRolloutCustomStagesAndComplete(t *testing.T) {
	a, _ := newTestApp(t)
	store := &memoryRollouts{}
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := a.applyRollout(ctx, store, RolloutPause, RolloutOptions{ExperimentID: "cards-v3"}, now); err == nil {
		t.Fatal("pause must not create a rollout")
	}

	opts := RolloutOptions{ExperimentID: "cards-v3", Stages: []int{50, 100}}
	if _, err := a.applyRollout(ctx, store, RolloutStart, opts, now); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := a.applyRollout(ctx, store, RolloutAdvance, opts, now); err != nil {
		t.Fatalf("advance: %v", err)
	}
	view, err := a.applyRollout(ctx, store, RolloutComplete, RolloutOptions{ExperimentID: "cards-v3", Winner: "B"}, now)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if view.Status != rollout.StatusCompleted || view.Percentage != 100 || view.Winner != "B" {
		t.Fatalf("unexpected completed view %+v", view)
	}

	_, err = a.applyRollout(ctx, store, RolloutCreate, RolloutOptions{ExperimentID: "bad", Stages: []int{50, 10}}, now)
	if !errors.Is(err, rollout.ErrInvalidSchedule) {
		t.Fatalf("decreasing stages must be rejected, got %v", err)
	}
}

func TestApplyRolloutConcurrentAdvancesAreSerialized(t *testing.T) {
	a, _ := newTestApp(t)
	store := &memoryRollouts{}
	ctx := context.Background()
	now := time.Now().UTC()

	stages := make([]int, 0, 20)
	for p := 5; p <= 100; p += 5 {
		stages = append(stages, p)
	}
	if _, err := a.applyRollout(ctx, store, RolloutCreate, RolloutOptions{ExperimentID: "fees-v2", Stages: stages}, now); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := a.applyRollout(ctx, store, RolloutAdvance, RolloutOptions{ExperimentID: "fees-v2"}, now); err != nil {
				t.Errorf("advance: %v", err)
			}
		}()
	}
	wg.Wait()

	if rec := store.records["fees-v2"]; rec.CurrentStage != 10 {
		t.Fatalf("every advance must build on the previous one, got stage index %d", rec.CurrentStage)
	}
}

func TestApplyRolloutReportsConflict(t *testing.T) {
	a, _ := newTestApp(t)
	store := &conflictingRollouts{}

	_, err := a.applyRollout(context.Background(), store, RolloutCreate, RolloutOptions{ExperimentID: "hero-v3"}, time.Now())
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if len(store.records) != 0 {
		t.Fatalf("a conflicting create must not be stored: %+v", store.records)
	}
}

func TestWriteInclusion(t *testing.T) {
	a, out := newTestApp(t)
	full, _ := rollout.NewSchedule("hero-v2", []int{100})
	if err := a.writeInclusion(full, "user-42"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "included=true") {
		t.Fatalf("100%% exposure must include everyone: %q", out.String())
	}
	if err := a.writeInclusion(full, ""); err == nil {
		t.Fatal("expected missing identifier error")
	}
}

func TestStoreCommandsRequireDatabase(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()
	for name, run := range map[string]func() error{
		"show":    func() error { return a.Show(ctx, ShowOptions{Limit: 5}) },
		"export":  func() error { return a.Export(ctx, ExportOptions{CSVPath: "out.csv"}) },
		"status":  func() error { return a.RolloutStatus(ctx, RolloutOptions{}) },
		"migrate": func() error { return a.Migrate(ctx) },
	} {
		if err := run(); err == nil || !strings.Contains(err.Error(), "database not configured") {
			t.Fatalf("%s: expected database error, got %v", name, err)
		}
	}
}

func makeSnapshots(n int) []storage.Snapshot {
	base := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	out := make([]storage.Snapshot, n)
	for i := range out {
		out[i] = storage.Snapshot{
			ID:            uuid.New(),
			TakenAt:       base.Add(time.Duration(i) * 30 * time.Second),
			SummaryDate:   base,
			OverallStatus: "warn",
			CompliancePct: decimal.NewFromInt(int64(i % 100)),
			PassCount:     4,
			WarnCount:     1,
			Status:        "complete",
		}
	}
	return out
}

func TestDownsampleSnapshotsKeepsEndpoints(t *testing.T) {
	snaps := makeSnapshots(1000)
	got := downsampleSnapshots(snaps, 10)
	if len(got) != 10 {
		t.Fatalf("expected 10 points, got %d", len(got))
	}
	if got[0].ID != snaps[0].ID || got[9].ID != snaps[999].ID {
		t.Fatal("downsampling must keep first and last snapshot")
	}
	if len(downsampleSnapshots(snaps[:5], 10)) != 5 {
		t.Fatal("short series must be returned unchanged")
	}
}

func TestWriteSnapshotsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "snapshots.csv")
	snaps := makeSnapshots(3)
	msg := "fetch daily summary: timeout"
	snaps[2].Status = "errored"
	snaps[2].Error = &msg

	if err := writeSnapshotsCSV(path, snaps); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 || records[0][0] != "snapshot_id" {
		t.Fatalf("unexpected csv %v", records)
	}
	if records[3][9] != msg || records[1][2] != "2025-03-14" {
		t.Fatalf("unexpected rows %v", records[1:])
	}
}

func TestWriteSnapshotsPNGNeedsCompleteSnapshots(t *testing.T) {
	snaps := makeSnapshots(2)
	snaps[1].Status = "errored"
	if err := writeSnapshotsPNG(filepath.Join(t.TempDir(), "chart.png"), snaps); err == nil {
		t.Fatal("expected error for a single complete snapshot")
	}
}
