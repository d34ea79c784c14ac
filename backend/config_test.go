package backend

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearLotionEnv(t *testing.T) {
	for _, key := range []string{
		"LOTION_GOOGLE_CLIENT_ID",
		"LOTION_GOOGLE_CLIENT_SECRET",
		"LOTION_GET_URL",
		"LOTION_POST_URL",
		"LOTION_DELETE_URL",
		"LOTION_AUTH_PORT",
		"LOTION_USERINFO_ENDPOINT",
		"LOTION_LOAD_POLICY",
		"LOTION_DATA_DIR",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_FromEnvFile(t *testing.T) {
	clearLotionEnv(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	content := "LOTION_GOOGLE_CLIENT_ID=client-id\n" +
		"LOTION_GET_URL=https://example.com/get\n" +
		"LOTION_POST_URL=https://example.com/post\n" +
		"LOTION_DELETE_URL=https://example.com/delete\n" +
		"LOTION_AUTH_PORT=40000\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0644))

	// t.Setenvで空にしたキーはgodotenvに上書きされないため、一度消しておく
	for _, key := range []string{"LOTION_GOOGLE_CLIENT_ID", "LOTION_GET_URL", "LOTION_POST_URL", "LOTION_DELETE_URL", "LOTION_AUTH_PORT"} {
		os.Unsetenv(key)
	}

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)

	assert.Equal(t, "client-id", cfg.GoogleClientID)
	assert.Equal(t, "https://example.com/get", cfg.ListNotesURL)
	assert.Equal(t, "https://example.com/post", cfg.SaveNoteURL)
	assert.Equal(t, "https://example.com/delete", cfg.DeleteNoteURL)
	assert.Equal(t, 40000, cfg.AuthPort)
	assert.Equal(t, LoadPolicyReplace, cfg.LoadPolicy)
}

func TestLoadConfig_MissingFileUsesEnvironment(t *testing.T) {
	clearLotionEnv(t)
	t.Setenv("LOTION_GOOGLE_CLIENT_ID", "id")
	t.Setenv("LOTION_GET_URL", "http://get")
	t.Setenv("LOTION_POST_URL", "http://post")
	t.Setenv("LOTION_DELETE_URL", "http://delete")
	t.Setenv("LOTION_LOAD_POLICY", LoadPolicyKeepLocal)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, defaultAuthPort, cfg.AuthPort)
	assert.Equal(t, LoadPolicyKeepLocal, cfg.LoadPolicy)
}

func TestLoadConfig_ReportsAllMissingKeys(t *testing.T) {
	clearLotionEnv(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOTION_GOOGLE_CLIENT_ID")
	assert.Contains(t, err.Error(), "LOTION_GET_URL")
	assert.Contains(t, err.Error(), "LOTION_POST_URL")
	assert.Contains(t, err.Error(), "LOTION_DELETE_URL")
}

func TestLoadConfig_InvalidPort(t *testing.T) {
	clearLotionEnv(t)
	t.Setenv("LOTION_AUTH_PORT", "not-a-port")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "LOTION_AUTH_PORT")
}

func TestConfig_ValidateRejectsUnknownPolicy(t *testing.T) {
	cfg := &Config{
		GoogleClientID: "id",
		ListNotesURL:   "a",
		SaveNoteURL:    "b",
		DeleteNoteURL:  "c",
		LoadPolicy:     "merge-everything",
	}
	assert.ErrorContains(t, cfg.Validate(), "LOTION_LOAD_POLICY")
}

func TestConfig_ResolveAppDataDir(t *testing.T) {
	cfg := &Config{DataDir: "/tmp/lotion-test"}
	assert.Equal(t, "/tmp/lotion-test", cfg.ResolveAppDataDir())

	cfg = &Config{}
	assert.Equal(t, appDirName, filepath.Base(cfg.ResolveAppDataDir()))
}
