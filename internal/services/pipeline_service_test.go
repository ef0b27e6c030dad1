package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "employcli/internal/errors"
	"employcli/internal/store"
	"employcli/pkg/contracts/domain"
)

const fixtureCSV = "Quarterly,NACE Rev 2 Economic Sector,Full and Part Time Status,VALUE\n" +
	"2020Q1,Retail (G),All employment status,100\n" +
	"2020Q1,Retail (G),Full-time,60\n" +
	"2020Q1,Retail (G),Part-time,40\n" +
	"2020Q1,Construction (F),All employment status,50\n" +
	"2020Q1,Construction (F),Full-time,30\n" +
	"2020Q1,Construction (F),Part-time,20\n" +
	"2020Q1,All NACE economic sectors,All employment status,150\n" +
	"2021Q1,Retail (G),All employment status,..\n" +
	"2022Q1,Retail (G),All employment status,200\n" +
	"2022Q1,Retail (G),Full-time,120\n" +
	"2022Q1,Retail (G),Part-time,80\n" +
	"2022Q1,Construction (F),All employment status,40\n" +
	"2022Q1,Construction (F),Full-time,25\n" +
	"2022Q1,Construction (F),Part-time,15\n" +
	"2022Q1,All NACE economic sectors,All employment status,240\n"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFixture(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "employment.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func newService(st store.RecordStore, source string) *PipelineService {
	return NewPipelineService(st, PipelineOptions{
		RawCollection:   "employment_raw",
		CleanCollection: "employment_clean",
		SourceFile:      source,
	}, nil, discardLogger())
}

func TestPipelineService_Run(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := newService(st, writeFixture(t, fixtureCSV))

	result, err := svc.Run(ctx)
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, domain.YearWindow{MinYear: 2020, MaxYear: 2022}, result.Window)

	require.Len(t, result.Growth, 2)
	assert.Equal(t, domain.GrowthRow{
		Sector: "Retail", StartCount: 100, EndCount: 200, AbsoluteChange: 100, PercentChange: 100,
	}, result.Growth[0])
	assert.Equal(t, "Construction", result.Growth[1].Sector)
	assert.InDelta(t, -20.0, result.Growth[1].PercentChange, 1e-9)

	require.Len(t, result.Composition, 2)
	assert.Equal(t, 2020, result.Composition[0].Year)
	assert.InDelta(t, 90.0, result.Composition[0].FullTimeTotal, 1e-9)
	assert.InDelta(t, 60.0, result.Composition[0].PartTimeTotal, 1e-9)
	assert.InDelta(t, 60.0, result.Composition[0].PctFullTime, 1e-9)

	assert.Len(t, result.Trend, 4)

	assert.True(t, result.Clean.Seeded)
	assert.Equal(t, 15, result.Clean.RawRows)
	assert.Equal(t, 12, result.Clean.CleanRows)
	assert.Equal(t, 12, result.Clean.StoredRows)
	assert.Equal(t, 1, result.Clean.ParseErrors)
	assert.Equal(t, map[string]int{"excluded_sector": 2, "invalid_value": 1}, result.Clean.Dropped)

	rawCount, err := st.Count(ctx, "employment_raw")
	require.NoError(t, err)
	assert.Equal(t, 15, rawCount)
}

func TestPipelineService_SecondRunSkipsSeed(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	path := writeFixture(t, fixtureCSV)

	_, err := newService(st, path).Run(ctx)
	require.NoError(t, err)

	// the source file is no longer needed once the raw collection is populated
	require.NoError(t, os.Remove(path))

	result, err := newService(st, path).Run(ctx)
	require.NoError(t, err)
	assert.False(t, result.Clean.Seeded)

	rawCount, err := st.Count(ctx, "employment_raw")
	require.NoError(t, err)
	assert.Equal(t, 15, rawCount, "seeding must not duplicate rows")

	cleanCount, err := st.Count(ctx, "employment_clean")
	require.NoError(t, err)
	assert.Equal(t, 12, cleanCount, "clean collection is replaced, not appended")
}

func TestPipelineService_NumericRawValues(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	docs := []store.Document{
		{domain.ColumnQuarterly: "2020Q1", domain.ColumnSector: "Retail (G)", domain.ColumnEmploymentType: "All employment status", domain.ColumnValue: float64(100)},
		{domain.ColumnQuarterly: "2022Q1", domain.ColumnSector: "Retail (G)", domain.ColumnEmploymentType: "All employment status", domain.ColumnValue: float64(150)},
		{domain.ColumnQuarterly: "2020Q1", domain.ColumnSector: "Retail (G)", domain.ColumnEmploymentType: "Full-time", domain.ColumnValue: 70},
		{domain.ColumnQuarterly: "2020Q1", domain.ColumnSector: "Retail (G)", domain.ColumnEmploymentType: "Part-time", domain.ColumnValue: 30},
		{domain.ColumnQuarterly: "2022Q1", domain.ColumnSector: "Retail (G)", domain.ColumnEmploymentType: "Full-time", domain.ColumnValue: "100"},
		{domain.ColumnQuarterly: "2022Q1", domain.ColumnSector: "Retail (G)", domain.ColumnEmploymentType: "Part-time", domain.ColumnValue: "50"},
	}
	_, err := st.BulkInsert(ctx, "employment_raw", docs)
	require.NoError(t, err)

	result, err := newService(st, "does-not-exist.csv").Run(ctx)
	require.NoError(t, err)
	require.Len(t, result.Growth, 1)
	assert.InDelta(t, 50.0, result.Growth[0].PercentChange, 1e-9)
}

func TestPipelineService_Failures(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		wantErr error
	}{
		{
			name:    "single year window",
			csv:     "Quarterly,NACE Rev 2 Economic Sector,Full and Part Time Status,VALUE\n2020Q1,Retail (G),All employment status,1\n",
			wantErr: apperrors.ErrInsufficientData,
		},
		{
			name: "zero start count",
			csv: "Quarterly,NACE Rev 2 Economic Sector,Full and Part Time Status,VALUE\n" +
				"2020Q1,Retail (G),All employment status,0\n2022Q1,Retail (G),All employment status,5\n",
			wantErr: apperrors.ErrDivisionByZero,
		},
		{
			name: "year missing part-time",
			csv: "Quarterly,NACE Rev 2 Economic Sector,Full and Part Time Status,VALUE\n" +
				"2020Q1,Retail (G),All employment status,1\n2022Q1,Retail (G),All employment status,2\n" +
				"2020Q1,Retail (G),Full-time,1\n2020Q1,Retail (G),Part-time,1\n2022Q1,Retail (G),Full-time,2\n",
			wantErr: apperrors.ErrIncompleteYear,
		},
		{
			name:    "header only",
			csv:     "Quarterly,NACE Rev 2 Economic Sector,Full and Part Time Status,VALUE\n",
			wantErr: apperrors.ErrStoreUnavailable,
		},
		{
			name:    "everything dropped",
			csv:     "Quarterly,NACE Rev 2 Economic Sector,Full and Part Time Status,VALUE\n2020Q1,Not stated,Full-time,1\n",
			wantErr: apperrors.ErrInsufficientData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(store.NewMemoryStore(), writeFixture(t, tt.csv))
			result, err := svc.Run(context.Background())
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, apperrors.IsFatal(err))
		})
	}
}

func TestPipelineService_MissingSourceFile(t *testing.T) {
	svc := newService(store.NewMemoryStore(), filepath.Join(t.TempDir(), "missing.csv"))
	_, err := svc.Run(context.Background())
	assert.ErrorContains(t, err, "load source file")
}

// MockRecordStore is a testify mock of store.RecordStore
type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockRecordStore) ExistsAndNonEmpty(ctx context.Context, collection string) (bool, error) {
	args := m.Called(ctx, collection)
	return args.Bool(0), args.Error(1)
}

func (m *MockRecordStore) Count(ctx context.Context, collection string) (int, error) {
	args := m.Called(ctx, collection)
	return args.Int(0), args.Error(1)
}

func (m *MockRecordStore) BulkInsert(ctx context.Context, collection string, docs []store.Document) (int, error) {
	args := m.Called(ctx, collection, docs)
	return args.Int(0), args.Error(1)
}

func (m *MockRecordStore) ReadAll(ctx context.Context, collection string) ([]store.Document, error) {
	args := m.Called(ctx, collection)
	docs, _ := args.Get(0).([]store.Document)
	return docs, args.Error(1)
}

func (m *MockRecordStore) ReplaceAll(ctx context.Context, collection string, docs []store.Document) (int, error) {
	args := m.Called(ctx, collection, docs)
	return args.Int(0), args.Error(1)
}

func (m *MockRecordStore) Close() error {
	return m.Called().Error(0)
}

func TestPipelineService_StoreFailures(t *testing.T) {
	anyArg := mock.Anything
	rawDocs := []store.Document{
		{domain.ColumnQuarterly: "2020Q1", domain.ColumnSector: "Retail (G)", domain.ColumnEmploymentType: "All employment status", domain.ColumnValue: "1"},
	}

	tests := []struct {
		name  string
		setup func(m *MockRecordStore)
	}{
		{
			name: "unreachable",
			setup: func(m *MockRecordStore) {
				m.On("Ping", anyArg).Return(errors.New("dial tcp: connection refused"))
			},
		},
		{
			name: "existence check fails",
			setup: func(m *MockRecordStore) {
				m.On("Ping", anyArg).Return(nil)
				m.On("ExistsAndNonEmpty", anyArg, "employment_raw").Return(false, errors.New("timeout"))
			},
		},
		{
			name: "seed stores nothing",
			setup: func(m *MockRecordStore) {
				m.On("Ping", anyArg).Return(nil)
				m.On("ExistsAndNonEmpty", anyArg, "employment_raw").Return(false, nil)
				m.On("BulkInsert", anyArg, "employment_raw", anyArg).Return(0, nil)
			},
		},
		{
			name: "replace stores nothing",
			setup: func(m *MockRecordStore) {
				m.On("Ping", anyArg).Return(nil)
				m.On("ExistsAndNonEmpty", anyArg, "employment_raw").Return(true, nil)
				m.On("ReadAll", anyArg, "employment_raw").Return(rawDocs, nil)
				m.On("ReplaceAll", anyArg, "employment_clean", anyArg).Return(0, nil)
			},
		},
		{
			name: "clean read back fails",
			setup: func(m *MockRecordStore) {
				m.On("Ping", anyArg).Return(nil)
				m.On("ExistsAndNonEmpty", anyArg, "employment_raw").Return(true, nil)
				m.On("ReadAll", anyArg, "employment_raw").Return(rawDocs, nil)
				m.On("ReplaceAll", anyArg, "employment_clean", anyArg).Return(1, nil)
				m.On("ReadAll", anyArg, "employment_clean").Return(nil, errors.New("broken pipe"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockRecordStore)
			tt.setup(m)

			svc := newService(m, writeFixture(t, fixtureCSV))
			_, err := svc.Run(context.Background())
			assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
			m.AssertExpectations(t)
		})
	}
}

func TestDocumentConversions(t *testing.T) {
	rec := domain.CleanRecord{
		Year: 2021, Sector: "Retail (G)", SectorShort: "Retail",
		EmploymentType: domain.EmploymentFullTime, EmploymentCount: 12.5,
	}
	got, err := documentToClean(cleanToDocument(rec))
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	// documents read back from a JSON store carry float64 numbers
	got, err = documentToClean(store.Document{"year": float64(2021), "employment_count": "3.5"})
	require.NoError(t, err)
	assert.Equal(t, 2021, got.Year)
	assert.Equal(t, 3.5, got.EmploymentCount)

	_, err = documentToClean(store.Document{"employment_count": 1.0})
	assert.ErrorContains(t, err, "year")

	assert.Equal(t, "90.1", documentToRaw(store.Document{domain.ColumnValue: 90.1}).Value)
	assert.Equal(t, "", documentToRaw(store.Document{}).Value)
}
