package seed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"food-ordering/internal/appwrite"
	"food-ordering/internal/appwrite/appwritetest"
	"food-ordering/internal/imagesource"
	"food-ordering/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testDB             = "db"
	testBucket         = "bucket"
	testCategories     = "categories"
	testCustomizations = "customizations"
	testMenu           = "menu"
	testLinks          = "menu_customizations"
)

func testConfig() Config {
	return Config{
		DatabaseID:                     testDB,
		BucketID:                       testBucket,
		CategoriesCollectionID:         testCategories,
		CustomizationsCollectionID:     testCustomizations,
		MenuCollectionID:               testMenu,
		MenuCustomizationsCollectionID: testLinks,
		MaxAttempts:                    3,
		BaseDelay:                      time.Millisecond,
		MaxDelay:                       5 * time.Millisecond,
		DeleteConcurrency:              4,
		PageSize:                       100,
	}
}

func testDataset(imageBase string) *Dataset {
	return &Dataset{
		Categories: []CategoryEntry{
			{Name: "Burgers", Description: "Juicy grilled burgers"},
			{Name: "Pizzas", Description: "Oven-baked cheesy pizzas"},
		},
		Customizations: []CustomizationEntry{
			{Name: "Extra Cheese", Price: 25, Type: "topping"},
			{Name: "Fries", Price: 35, Type: "side"},
			{Name: "Coke", Price: 30, Type: "side"},
		},
		Menu: []MenuEntry{
			{
				Name: "Classic Cheeseburger", Description: "Beef patty, cheese", ImageURL: imageBase + "/burger.png",
				Price: 25.99, Rating: 4.5, Calories: 550, Protein: 25,
				CategoryName: "Burgers", Customizations: []string{"Extra Cheese", "Fries"},
			},
			{
				Name: "Pepperoni Pizza", Description: "Cheese and pepperoni", ImageURL: imageBase + "/pizza.png",
				Price: 30.99, Rating: 4.7, Calories: 700, Protein: 30,
				CategoryName: "Pizzas", Customizations: []string{"Extra Cheese", "Coke"},
			},
		},
	}
}

type testEnv struct {
	fake   *appwritetest.Server
	docs   *appwrite.Databases
	files  *appwrite.Storage
	images *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fake := appwritetest.NewServer(t, "project")
	client, err := appwrite.NewClient(appwrite.Config{
		Endpoint:  fake.Endpoint(),
		ProjectID: "project",
		APIKey:    "server-key",
		Timeout:   5 * time.Second,
	}, zerolog.Nop())
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/burger.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("burger"))
	})
	mux.HandleFunc("/pizza.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("pizza"))
	})
	mux.HandleFunc("/placeholder", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("placeholder"))
	})
	images := httptest.NewServer(mux)
	t.Cleanup(images.Close)

	return &testEnv{
		fake:   fake,
		docs:   appwrite.NewDatabases(client),
		files:  appwrite.NewStorage(client),
		images: images,
	}
}

func (e *testEnv) imageSource() imagesource.Source {
	httpSrc := imagesource.NewHTTPSource(e.images.Client(), time.Second, zerolog.Nop())
	return imagesource.NewFallbackSource(httpSrc, e.images.URL+"/placeholder", zerolog.Nop())
}

func (e *testEnv) seeder(data *Dataset, cfg Config) *Seeder {
	return New(e.docs, e.files, e.imageSource(), data, cfg, zerolog.Nop())
}

func TestSeeder_Seed(t *testing.T) {
	env := newTestEnv(t)
	data := testDataset(env.images.URL)

	res, err := env.seeder(data, testConfig()).Seed(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Categories)
	assert.Equal(t, 3, res.Customizations)
	assert.Equal(t, 2, res.MenuItems)
	assert.Equal(t, 4, res.Links)
	assert.Equal(t, 2, res.Files)
	assert.Len(t, res.Documents, 2+3+2+4+2)

	categories := env.fake.Documents(testDB, testCategories)
	require.Len(t, categories, 2)
	categoryIDs := map[string]string{}
	for _, c := range categories {
		categoryIDs[c["name"].(string)] = c["$id"].(string)
	}

	customizations := env.fake.Documents(testDB, testCustomizations)
	require.Len(t, customizations, 3)
	customizationIDs := map[string]string{}
	for _, c := range customizations {
		customizationIDs[c["name"].(string)] = c["$id"].(string)
	}

	menu := env.fake.Documents(testDB, testMenu)
	require.Len(t, menu, 2)
	files := env.fake.Files(testBucket)
	require.Len(t, files, 2)

	burger := menu[0]
	assert.Equal(t, "Classic Cheeseburger", burger["name"])
	assert.Equal(t, categoryIDs["Burgers"], burger["categories"])
	assert.Equal(t, env.files.FileViewURL(testBucket, files[0]["$id"].(string)), burger["image_url"])
	assert.Equal(t, "burger.png", files[0]["name"])
	assert.Equal(t, []byte("burger"), env.fake.FileData(testBucket, files[0]["$id"].(string)))

	links := env.fake.Documents(testDB, testLinks)
	require.Len(t, links, 4)
	assert.Equal(t, burger["$id"], links[0]["menu"])
	assert.Equal(t, customizationIDs["Extra Cheese"], links[0]["customizations"])
	assert.Equal(t, customizationIDs["Fries"], links[1]["customizations"])
	assert.Equal(t, menu[1]["$id"], links[2]["menu"])
}

func TestSeeder_Seed_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	data := testDataset(env.images.URL)
	seeder := env.seeder(data, testConfig())

	_, err := seeder.Seed(context.Background())
	require.NoError(t, err)

	res, err := seeder.Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2+3+2+4, res.DeletedDocuments)
	assert.Equal(t, 2, res.DeletedFiles)

	assert.Len(t, env.fake.Documents(testDB, testCategories), 2)
	assert.Len(t, env.fake.Documents(testDB, testCustomizations), 3)
	assert.Len(t, env.fake.Documents(testDB, testMenu), 2)
	assert.Len(t, env.fake.Documents(testDB, testLinks), 4)
	assert.Len(t, env.fake.Files(testBucket), 2)
}

func TestSeeder_Seed_ClearsAcrossPages(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 7; i++ {
		env.fake.PutDocument(testDB, testMenu, "old"+string(rune('a'+i)), map[string]any{"name": "old"})
		env.fake.PutFile(testBucket, "file"+string(rune('a'+i)), "old.png", []byte("old"))
	}

	cfg := testConfig()
	cfg.PageSize = 3

	res, err := env.seeder(testDataset(env.images.URL), cfg).Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, res.DeletedDocuments)
	assert.Equal(t, 7, res.DeletedFiles)
	assert.Len(t, env.fake.Documents(testDB, testMenu), 2)
	assert.Len(t, env.fake.Files(testBucket), 2)
}

func TestSeeder_Seed_DeleteFailuresAreSkipped(t *testing.T) {
	env := newTestEnv(t)
	env.fake.PutDocument(testDB, testCategories, "stuck", map[string]any{"name": "Stuck"})
	env.fake.PutDocument(testDB, testCategories, "loose", map[string]any{"name": "Loose"})
	env.fake.PutDocument(testDB, testCategories, "loose2", map[string]any{"name": "Loose2"})
	env.fake.PutFile(testBucket, "stuckfile", "stuck.png", []byte("x"))

	env.fake.Intercept(func(r *http.Request) (int, bool) {
		if r.Method == http.MethodDelete && (strings.HasSuffix(r.URL.Path, "/stuck") || strings.HasSuffix(r.URL.Path, "/stuckfile")) {
			return http.StatusInternalServerError, true
		}
		return 0, false
	})

	cfg := testConfig()
	cfg.PageSize = 2

	res, err := env.seeder(testDataset(env.images.URL), cfg).Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.DeletedDocuments)
	assert.Equal(t, 0, res.DeletedFiles)

	categories := env.fake.Documents(testDB, testCategories)
	require.Len(t, categories, 3)
	assert.Equal(t, "stuck", categories[0]["$id"])
	assert.Len(t, env.fake.Files(testBucket), 3)
}

func TestSeeder_Seed_ListFailureSkipsCollection(t *testing.T) {
	env := newTestEnv(t)
	env.fake.PutDocument(testDB, testLinks, "l1", map[string]any{"menu": "m", "customizations": "c"})

	env.fake.Intercept(func(r *http.Request) (int, bool) {
		if r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/collections/"+testLinks+"/") {
			return http.StatusInternalServerError, true
		}
		return 0, false
	})

	res, err := env.seeder(testDataset(env.images.URL), testConfig()).Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.DeletedDocuments)
	assert.Len(t, env.fake.Documents(testDB, testLinks), 1+4)
}

func TestSeeder_Seed_ConnectionFailure(t *testing.T) {
	env := newTestEnv(t)
	env.fake.Intercept(func(r *http.Request) (int, bool) {
		return http.StatusUnauthorized, true
	})

	_, err := env.seeder(testDataset(env.images.URL), testConfig()).Seed(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection test failed")
	assert.True(t, appwrite.IsUnauthorized(err))
}

func TestSeeder_Seed_InvalidDataset(t *testing.T) {
	env := newTestEnv(t)
	data := testDataset(env.images.URL)
	data.Menu[0].CategoryName = "Tacos"

	_, err := env.seeder(data, testConfig()).Seed(context.Background())
	require.ErrorContains(t, err, `unknown category "Tacos"`)
	assert.Empty(t, env.fake.Requests())
}

func TestSeeder_Seed_PaddedNames(t *testing.T) {
	tests := []struct {
		name   string
		modify func(d *Dataset)
		errMsg string
	}{
		{
			name:   "Padded category name",
			modify: func(d *Dataset) { d.Categories[0].Name = "Burgers " },
			errMsg: `name "Burgers " has leading or trailing whitespace`,
		},
		{
			name:   "Padded category reference",
			modify: func(d *Dataset) { d.Menu[0].CategoryName = "Burgers " },
			errMsg: `unknown category "Burgers "`,
		},
		{
			name:   "Padded customization name",
			modify: func(d *Dataset) { d.Customizations[1].Name = " Fries" },
			errMsg: `name " Fries" has leading or trailing whitespace`,
		},
		{
			name:   "Padded customization reference",
			modify: func(d *Dataset) { d.Menu[1].Customizations[1] = "Coke " },
			errMsg: `unknown customization "Coke "`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			data := testDataset(env.images.URL)
			tt.modify(data)

			_, err := env.seeder(data, testConfig()).Seed(context.Background())
			require.ErrorContains(t, err, tt.errMsg)
			assert.Empty(t, env.fake.Requests())
			assert.Empty(t, env.fake.Documents(testDB, testMenu))
		})
	}
}

func TestSeeder_Seed_ReferencesResolved(t *testing.T) {
	env := newTestEnv(t)
	data := testDataset(env.images.URL)

	_, err := env.seeder(data, testConfig()).Seed(context.Background())
	require.NoError(t, err)

	for _, doc := range env.fake.Documents(testDB, testMenu) {
		assert.NotEmpty(t, doc["categories"], doc["name"])
	}
	for _, link := range env.fake.Documents(testDB, testLinks) {
		assert.NotEmpty(t, link["menu"])
		assert.NotEmpty(t, link["customizations"])
	}
}

func TestSeeder_Seed_ImageFallback(t *testing.T) {
	env := newTestEnv(t)
	data := testDataset(env.images.URL)
	data.Menu[1].ImageURL = env.images.URL + "/missing.png"

	_, err := env.seeder(data, testConfig()).Seed(context.Background())
	require.NoError(t, err)

	files := env.fake.Files(testBucket)
	require.Len(t, files, 2)
	assert.Equal(t, "burger.png", files[0]["name"])
	assert.True(t, strings.HasPrefix(files[1]["name"].(string), "placeholder-"))
	assert.Equal(t, "image/jpeg", files[1]["mimeType"])
	assert.Equal(t, []byte("placeholder"), env.fake.FileData(testBucket, files[1]["$id"].(string)))
}

func TestSeeder_Seed_CreateFailureFailsAttempt(t *testing.T) {
	env := newTestEnv(t)
	env.fake.Intercept(func(r *http.Request) (int, bool) {
		if r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/collections/"+testMenu+"/") {
			return http.StatusBadRequest, true
		}
		return 0, false
	})

	_, err := env.seeder(testDataset(env.images.URL), testConfig()).Seed(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `failed to create menu item "Classic Cheeseburger"`)
	assert.Equal(t, http.StatusBadRequest, appwrite.StatusCode(err))
}

// flakyStore fails the connection test a number of times.
type flakyStore struct {
	DocumentStore
	failures atomic.Int32
	calls    atomic.Int32
}

func (f *flakyStore) ListDocuments(ctx context.Context, db, col string, queries ...string) (*appwrite.DocumentList, error) {
	if len(queries) == 0 {
		if f.calls.Add(1) <= f.failures.Load() {
			return nil, errors.New("platform unavailable")
		}
	}
	return f.DocumentStore.ListDocuments(ctx, db, col, queries...)
}

func TestSeeder_SeedWithRetry(t *testing.T) {
	tests := []struct {
		name         string
		failures     int32
		wantAttempts int
		wantErr      bool
	}{
		{name: "First attempt succeeds", failures: 0, wantAttempts: 1},
		{name: "Succeeds on third attempt", failures: 2, wantAttempts: 3},
		{name: "Gives up after three attempts", failures: 5, wantAttempts: 3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			store := &flakyStore{DocumentStore: env.docs}
			store.failures.Store(tt.failures)

			seeder := New(store, env.files, env.imageSource(), testDataset(env.images.URL), testConfig(), zerolog.Nop())

			res, err := seeder.SeedWithRetry(context.Background())
			assert.Equal(t, int32(tt.wantAttempts), store.calls.Load())
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "seeding failed after 3 attempts")
				assert.Contains(t, err.Error(), "platform unavailable")
				assert.Nil(t, res)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAttempts, res.Attempts)
			assert.Len(t, env.fake.Documents(testDB, testMenu), 2)
		})
	}
}

func TestSeeder_SeedWithRetry_InvalidDataset(t *testing.T) {
	env := newTestEnv(t)
	store := &flakyStore{DocumentStore: env.docs}
	ledger := new(MockLedger)

	data := testDataset(env.images.URL)
	data.Menu[0].CategoryName = "Tacos"

	seeder := New(store, env.files, env.imageSource(), data, testConfig(), zerolog.Nop()).WithLedger(ledger)

	res, err := seeder.SeedWithRetry(context.Background())
	require.ErrorContains(t, err, `unknown category "Tacos"`)
	assert.NotContains(t, err.Error(), "attempts")
	assert.Nil(t, res)
	assert.Equal(t, int32(0), store.calls.Load())
	assert.Empty(t, env.fake.Requests())
	ledger.AssertNotCalled(t, "StartRun", mock.Anything, mock.Anything)
}

func TestSeeder_SeedWithRetry_CancelledContext(t *testing.T) {
	env := newTestEnv(t)
	store := &flakyStore{DocumentStore: env.docs}
	store.failures.Store(10)

	cfg := testConfig()
	cfg.BaseDelay = time.Hour
	cfg.MaxDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	seeder := New(store, env.files, env.imageSource(), testDataset(env.images.URL), cfg, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := seeder.SeedWithRetry(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool { return store.calls.Load() >= 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("retry did not stop after cancellation")
	}
	assert.Equal(t, int32(1), store.calls.Load())
}

func TestSeeder_RetryPolicy(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		expected []time.Duration
	}{
		{
			name:     "Defaults",
			cfg:      Config{},
			expected: []time.Duration{time.Second, 2 * time.Second},
		},
		{
			name:     "Capped growth",
			cfg:      Config{MaxAttempts: 6, BaseDelay: time.Second, MaxDelay: 3 * time.Second},
			expected: []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second, 3 * time.Second},
		},
		{
			name:     "Default cap is ten seconds",
			cfg:      Config{MaxAttempts: 6},
			expected: []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second},
		},
		{
			name:     "Single attempt",
			cfg:      Config{MaxAttempts: 1},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(nil, nil, nil, nil, tt.cfg, zerolog.Nop())
			policy := s.retryPolicy(context.Background())

			var got []time.Duration
			for {
				d := policy.NextBackOff()
				if d < 0 {
					break
				}
				got = append(got, d)
				require.LessOrEqual(t, len(got), 10)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

// MockLedger is a mock implementation of SeedRunRepository.
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) EnsureSchema(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockLedger) StartRun(ctx context.Context, run *model.SeedRun) error {
	return m.Called(ctx, run).Error(0)
}

func (m *MockLedger) FinishRun(ctx context.Context, run *model.SeedRun) error {
	return m.Called(ctx, run).Error(0)
}

func (m *MockLedger) RecordDocuments(ctx context.Context, runID uuid.UUID, docs []model.SeededDocument) error {
	return m.Called(ctx, runID, docs).Error(0)
}

func (m *MockLedger) ListRuns(ctx context.Context, limit int) ([]model.SeedRun, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SeedRun), args.Error(1)
}

func (m *MockLedger) GetDocuments(ctx context.Context, runID uuid.UUID) ([]model.SeededDocument, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SeededDocument), args.Error(1)
}

func TestSeeder_SeedWithRetry_RecordsLedger(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		env := newTestEnv(t)
		ledger := new(MockLedger)

		var runID uuid.UUID
		ledger.On("StartRun", mock.Anything, mock.MatchedBy(func(r *model.SeedRun) bool {
			runID = r.ID
			return r.Status == model.SeedRunRunning
		})).Return(nil)
		ledger.On("RecordDocuments", mock.Anything, mock.AnythingOfType("uuid.UUID"), mock.MatchedBy(func(docs []model.SeededDocument) bool {
			return len(docs) == 2+3+2+4+2
		})).Return(nil)
		ledger.On("FinishRun", mock.Anything, mock.MatchedBy(func(r *model.SeedRun) bool {
			return r.ID == runID &&
				r.Status == model.SeedRunSucceeded &&
				r.Attempts == 1 &&
				r.MenuItems == 2 &&
				r.Links == 4 &&
				r.FinishedAt != nil
		})).Return(nil)

		_, err := env.seeder(testDataset(env.images.URL), testConfig()).WithLedger(ledger).SeedWithRetry(context.Background())
		require.NoError(t, err)
		ledger.AssertExpectations(t)
	})

	t.Run("Failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.fake.Intercept(func(r *http.Request) (int, bool) {
			return http.StatusServiceUnavailable, true
		})
		ledger := new(MockLedger)
		ledger.On("StartRun", mock.Anything, mock.Anything).Return(nil)
		ledger.On("FinishRun", mock.Anything, mock.MatchedBy(func(r *model.SeedRun) bool {
			return r.Status == model.SeedRunFailed &&
				r.Attempts == 3 &&
				r.Error != nil &&
				strings.Contains(*r.Error, "connection test failed")
		})).Return(nil)

		_, err := env.seeder(testDataset(env.images.URL), testConfig()).WithLedger(ledger).SeedWithRetry(context.Background())
		require.Error(t, err)
		ledger.AssertExpectations(t)
		ledger.AssertNotCalled(t, "RecordDocuments", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Ledger errors do not fail seeding", func(t *testing.T) {
		env := newTestEnv(t)
		ledger := new(MockLedger)
		ledger.On("StartRun", mock.Anything, mock.Anything).Return(errors.New("ledger down"))

		res, err := env.seeder(testDataset(env.images.URL), testConfig()).WithLedger(ledger).SeedWithRetry(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, res.MenuItems)
		ledger.AssertNotCalled(t, "FinishRun", mock.Anything, mock.Anything)
	})
}
