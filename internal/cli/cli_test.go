package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"food-ordering/internal/appwrite/appwritetest"
	"food-ordering/internal/database"
	"food-ordering/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupCLI points foodctl at a fake platform and a temporary session file.
func setupCLI(t *testing.T) (*appwritetest.Server, string) {
	t.Helper()

	fake := appwritetest.NewServer(t, "project")
	sessionFile := filepath.Join(t.TempDir(), "session.toml")

	t.Setenv("APPWRITE_ENDPOINT", fake.Endpoint())
	t.Setenv("APPWRITE_PROJECT_ID", "project")
	t.Setenv("APPWRITE_API_KEY", "")
	t.Setenv("APPWRITE_DATABASE_ID", "db")
	t.Setenv("APPWRITE_BUCKET_ID", "assets")
	t.Setenv("APPWRITE_USER_COLLECTION_ID", "users")
	t.Setenv("APPWRITE_CATEGORIES_COLLECTION_ID", "categories")
	t.Setenv("APPWRITE_MENU_COLLECTION_ID", "menu")
	t.Setenv("APPWRITE_CUSTOMIZATIONS_COLLECTION_ID", "customizations")
	t.Setenv("APPWRITE_MENU_CUSTOMIZATIONS_COLLECTION_ID", "menu_customizations")
	t.Setenv("LEDGER_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SEED_DATA_FILE", "")
	t.Setenv(SessionFileEnv, sessionFile)

	return fake, sessionFile
}

// runCLI executes foodctl with args on a fresh command tree.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	root := NewRootCommand()
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	err := root.Execute()
	return buf.String(), err
}

func TestRootCmd_Commands(t *testing.T) {
	root := NewRootCommand()

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}

	for _, want := range []string{"signup", "signin", "signout", "me", "menu", "categories", "seed"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("session-file"))
}

func TestAccountCommands(t *testing.T) {
	_, sessionFile := setupCLI(t)

	out, err := runCLI(t, "signup", "--email", "ada@example.com", "--password", "password123", "--name", "Ada")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed up as Ada <ada@example.com>.")

	store, err := NewSessionStore("")
	require.NoError(t, err)
	assert.Equal(t, sessionFile, store.Path())

	stored, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEmpty(t, stored.Secret)
	assert.Equal(t, "ada@example.com", stored.Email)
	assert.Equal(t, "project", stored.ProjectID)

	out, err = runCLI(t, "me")
	require.NoError(t, err)
	assert.Contains(t, out, "ada@example.com")
	assert.Contains(t, out, "ui-avatars.com")

	out, err = runCLI(t, "me", "--json")
	require.NoError(t, err)
	var user model.User
	require.NoError(t, json.Unmarshal([]byte(out), &user))
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, stored.AccountID, user.AccountID)

	out, err = runCLI(t, "signout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out ada@example.com.")
	_, statErr := os.Stat(sessionFile)
	assert.True(t, os.IsNotExist(statErr))

	_, err = runCLI(t, "me")
	assert.ErrorIs(t, err, ErrNotSignedIn)

	out, err = runCLI(t, "signin", "--email", "ada@example.com", "--password", "password123")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as ada@example.com.")

	again, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.NotEqual(t, stored.Secret, again.Secret)
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	fake, sessionFile := setupCLI(t)
	fake.AddAccount("acc1", "ada@example.com", "password123", "Ada")

	_, err := runCLI(t, "signin", "--email", "ada@example.com", "--password", "wrong-password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sign in failed")

	_, statErr := os.Stat(sessionFile)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSignUp_RequiresFlags(t *testing.T) {
	setupCLI(t)

	_, err := runCLI(t, "signup", "--email", "ada@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s)")
}

func TestSignOut_ExpiredSession(t *testing.T) {
	fake, sessionFile := setupCLI(t)

	store, err := NewSessionStore(sessionFile)
	require.NoError(t, err)
	require.NoError(t, store.Save(&StoredSession{
		Endpoint:  fake.Endpoint(),
		ProjectID: "project",
		Email:     "ada@example.com",
		Secret:    "expired-secret",
		SavedAt:   time.Now().UTC(),
	}))

	out, err := runCLI(t, "signout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out ada@example.com.")

	stored, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestSignedIn_OtherProject(t *testing.T) {
	_, sessionFile := setupCLI(t)

	store, err := NewSessionStore(sessionFile)
	require.NoError(t, err)
	require.NoError(t, store.Save(&StoredSession{
		Endpoint:  "https://elsewhere.example.com/v1",
		ProjectID: "other",
		Secret:    "secret",
	}))

	_, err = runCLI(t, "me")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sign in again")
}

func TestCatalogueCommands(t *testing.T) {
	fake, _ := setupCLI(t)
	fake.PutDocument("db", "categories", "burgers", map[string]any{"name": "Burgers", "description": "Juicy grilled burgers"})
	fake.PutDocument("db", "menu", "m1", map[string]any{"name": "Classic Cheeseburger", "price": 25.99, "rating": 4.5, "calories": 550, "categories": "burgers"})
	fake.PutDocument("db", "menu", "m2", map[string]any{"name": "Pepperoni Pizza", "price": 30.99, "rating": 4.7, "calories": 700, "categories": "pizzas"})

	out, err := runCLI(t, "categories")
	require.NoError(t, err)
	assert.Contains(t, out, "Burgers")
	assert.Contains(t, out, "Juicy grilled burgers")

	out, err = runCLI(t, "menu", "--category", "burgers")
	require.NoError(t, err)
	assert.Contains(t, out, "Classic Cheeseburger")
	assert.Contains(t, out, "25.99")
	assert.NotContains(t, out, "Pepperoni Pizza")

	out, err = runCLI(t, "menu", "-q", "pizza", "--json")
	require.NoError(t, err)
	var items []model.MenuItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "m2", items[0].ID)

	out, err = runCLI(t, "menu", "-q", "sushi")
	require.NoError(t, err)
	assert.Contains(t, out, "No menu items found.")
}

func TestSeedCmd(t *testing.T) {
	fake, _ := setupCLI(t)
	t.Setenv("APPWRITE_API_KEY", "server-key")
	t.Setenv("SEED_BASE_DELAY", "1ms")
	t.Setenv("SEED_MAX_DELAY", "2ms")

	fake.PutDocument("db", "categories", "stale", map[string]any{"name": "Stale"})

	dir := t.TempDir()
	image := []byte("\x89PNG\r\n\x1a\nburger")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "burger.png"), image, 0o600))
	dataset := `{
		"categories": [{"name": "Burgers", "description": "Juicy grilled burgers"}],
		"customizations": [{"name": "Extra Cheese", "price": 25, "type": "topping"}],
		"menu": [{
			"name": "Classic Cheeseburger",
			"description": "A beef patty with cheese",
			"image_url": "burger.png",
			"price": 25.99,
			"rating": 4.5,
			"calories": 550,
			"protein": 25,
			"category_name": "Burgers",
			"customizations": ["Extra Cheese"]
		}]
	}`
	dataFile := filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(dataFile, []byte(dataset), 0o600))

	out, err := runCLI(t, "seed", "--data", dataFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Seeding 1 categories, 1 customizations and 1 menu items...")
	assert.Contains(t, out, "after 1 attempt(s)")

	categories := fake.Documents("db", "categories")
	require.Len(t, categories, 1)
	assert.Equal(t, "Burgers", categories[0]["name"])
	assert.Len(t, fake.Documents("db", "menu"), 1)
	assert.Len(t, fake.Documents("db", "menu_customizations"), 1)

	files := fake.Files("assets")
	require.Len(t, files, 1)
	fileID, _ := files[0]["$id"].(string)
	assert.Equal(t, image, fake.FileData("assets", fileID))
}

func TestSeedCmd_RequiresAPIKey(t *testing.T) {
	setupCLI(t)

	_, err := runCLI(t, "seed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APPWRITE_API_KEY")
}

func TestSeedCmd_InvalidDataset(t *testing.T) {
	fake, _ := setupCLI(t)
	t.Setenv("APPWRITE_API_KEY", "server-key")

	dataFile := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(dataFile, []byte(`{"categories": [{"name": ""}]}`), 0o600))

	_, err := runCLI(t, "seed", "--data", dataFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid dataset")
	assert.Empty(t, fake.Requests())
}

func TestSeedHistoryCmd_LedgerDisabled(t *testing.T) {
	setupCLI(t)

	_, err := runCLI(t, "seed", "history")
	require.Error(t, err)
	assert.ErrorIs(t, err, database.ErrLedgerDisabled)
}

func TestSeedHistoryCmd_InvalidRunID(t *testing.T) {
	setupCLI(t)

	_, err := runCLI(t, "seed", "history", "--run", "not-a-uuid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid run ID")
}
