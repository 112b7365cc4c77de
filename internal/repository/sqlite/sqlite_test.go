package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crnsim/internal/domain"
	"crnsim/internal/repository"
)

var _ repository.Repository = (*Repository)(nil)

// newTestRepo creates an in-memory SQLite repository for testing
func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

func testModel() *domain.ModelRecord {
	return &domain.ModelRecord{
		Name:       "decay",
		SourceHash: "abc123",
		Variables:  []string{"A", "B"},
		ODEs:       []string{"-k0*A", "k0*A"},
		Rates:      map[string]float64{"k0": 0.5},
		Jacobian:   true,
	}
}

func testRun(modelID string) *domain.Run {
	return &domain.Run{
		ModelID:   modelID,
		Variables: []string{"A", "B"},
		Initial:   []float64{1, 0},
		Options:   map[string]any{"atol": 1e-8, "method": "dopri5"},
		Times:     []float64{0, 0.5, 1},
		Values:    [][]float64{{1, 0}, {0.7788007830714049, 0.2211992169285951}, {0.6065306597126334, 0.3934693402873666}},
	}
}

func TestNullJSONHelpers(t *testing.T) {
	ns, err := marshalToNull(map[string]float64(nil))
	require.NoError(t, err)
	assert.False(t, ns.Valid)

	ns, err = marshalToNull([]string{})
	require.NoError(t, err)
	assert.False(t, ns.Valid)

	ns, err = marshalToNull(map[string]float64{"k0": 2})
	require.NoError(t, err)
	assert.Equal(t, sql.NullString{String: `{"k0":2}`, Valid: true}, ns)

	var rates map[string]float64
	require.NoError(t, unmarshalJSONField(sql.NullString{}, &rates))
	assert.Nil(t, rates)
	require.NoError(t, unmarshalJSONField(ns, &rates))
	assert.Equal(t, map[string]float64{"k0": 2}, rates)
}

func TestTimeHelpers(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 123456789, time.FixedZone("CET", 3600))
	s := formatTime(ts)
	assert.Equal(t, "2024-03-01T11:30:00.123456789Z", s)

	back, err := parseTime(s)
	require.NoError(t, err)
	assert.True(t, ts.Equal(back))

	_, err = parseTime("yesterday")
	assert.Error(t, err)
}

func TestModelRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	m := testModel()
	require.NoError(t, repo.SaveModel(ctx, m))
	assert.NotEmpty(t, m.ID)
	assert.False(t, m.CreatedAt.IsZero())

	got, err := repo.GetModel(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, m.Name, got.Name)
	assert.Equal(t, m.Variables, got.Variables)
	assert.Equal(t, m.ODEs, got.ODEs)
	assert.Equal(t, m.Rates, got.Rates)
	assert.True(t, got.Jacobian)
	assert.True(t, m.CreatedAt.Equal(got.CreatedAt))
}

func TestModelWithoutRates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	m := testModel()
	m.Rates = nil
	m.Jacobian = false
	require.NoError(t, repo.SaveModel(ctx, m))

	got, err := repo.GetModel(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Rates)
	assert.False(t, got.Jacobian)
}

func TestGetModelMissing(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.GetModel(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindModelByHash(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	older := testModel()
	older.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.SaveModel(ctx, older))

	newer := testModel()
	require.NoError(t, repo.SaveModel(ctx, newer))

	other := testModel()
	other.SourceHash = "other"
	require.NoError(t, repo.SaveModel(ctx, other))

	got, err := repo.FindModelByHash(ctx, "abc123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newer.ID, got.ID)

	got, err = repo.FindModelByHash(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	all, err := repo.ListModels(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRunRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	m := testModel()
	require.NoError(t, repo.SaveModel(ctx, m))

	run := testRun(m.ID)
	require.NoError(t, repo.SaveRun(ctx, run))
	assert.NotEmpty(t, run.ID)

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, run.ModelID, got.ModelID)
	assert.Equal(t, run.Variables, got.Variables)
	assert.Equal(t, run.Initial, got.Initial)
	assert.Equal(t, run.Options, got.Options)
	assert.Equal(t, run.Times, got.Times)
	assert.Equal(t, run.Values, got.Values)
	assert.Equal(t, 3, got.NumSamples())
	assert.Equal(t, run.Values[2], got.Final())
}

func TestSaveRunRejectsRaggedSamples(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	m := testModel()
	require.NoError(t, repo.SaveModel(ctx, m))

	run := testRun(m.ID)
	run.Values = run.Values[:2]
	assert.Error(t, repo.SaveRun(ctx, run))
}

func TestSaveRunUnknownModel(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.SaveRun(context.Background(), testRun("no-such-model"))
	assert.Error(t, err)
}

func TestListRuns(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := testModel()
	require.NoError(t, repo.SaveModel(ctx, a))
	b := testModel()
	b.Name = "other"
	require.NoError(t, repo.SaveModel(ctx, b))

	first := testRun(a.ID)
	first.CreatedAt = time.Now().Add(-time.Minute)
	require.NoError(t, repo.SaveRun(ctx, first))
	second := testRun(a.ID)
	second.Times, second.Values = second.Times[:1], second.Values[:1]
	require.NoError(t, repo.SaveRun(ctx, second))
	require.NoError(t, repo.SaveRun(ctx, testRun(b.ID)))

	all, err := repo.ListRuns(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	runs, err := repo.ListRuns(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, 1, runs[0].Samples)
	assert.Equal(t, first.ID, runs[1].ID)
	assert.Equal(t, 3, runs[1].Samples)
	assert.Equal(t, "decay", runs[1].ModelName)
}

func TestDeleteRun(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	m := testModel()
	require.NoError(t, repo.SaveModel(ctx, m))
	run := testRun(m.ID)
	require.NoError(t, repo.SaveRun(ctx, run))

	require.NoError(t, repo.DeleteRun(ctx, run.ID))

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	var samples int
	require.NoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM samples`).Scan(&samples))
	assert.Zero(t, samples)

	assert.Error(t, repo.DeleteRun(ctx, run.ID))
}
