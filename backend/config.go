package backend

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultAuthPort = 34115
	appDirName      = "lotion"
)

// ノート読み込み時の統合ポリシー
const (
	LoadPolicyReplace   = "replace"    // リモートの結果で丸ごと置き換える
	LoadPolicyKeepLocal = "keep-local" // 未保存のローカルノートを残す
)

// Config は起動時に環境変数から読み込む設定
type Config struct {
	GoogleClientID     string
	GoogleClientSecret string
	ListNotesURL       string // GET ?email=
	SaveNoteURL        string // POST ?email=&id=
	DeleteNoteURL      string // DELETE ?email=&id=
	AuthPort           int
	UserInfoEndpoint   string // 空の場合はGoogle APIの既定値
	LoadPolicy         string
	DataDir            string
}

// LoadConfig は.envファイル（存在する場合）と環境変数から設定を読み込みます
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		// godotenvは既存の環境変数を上書きしない
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", file, err)
		}
	}

	cfg := &Config{
		GoogleClientID:     env("LOTION_GOOGLE_CLIENT_ID"),
		GoogleClientSecret: env("LOTION_GOOGLE_CLIENT_SECRET"),
		ListNotesURL:       env("LOTION_GET_URL"),
		SaveNoteURL:        env("LOTION_POST_URL"),
		DeleteNoteURL:      env("LOTION_DELETE_URL"),
		AuthPort:           defaultAuthPort,
		UserInfoEndpoint:   env("LOTION_USERINFO_ENDPOINT"),
		LoadPolicy:         LoadPolicyReplace,
		DataDir:            env("LOTION_DATA_DIR"),
	}

	if port := env("LOTION_AUTH_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil || p <= 0 || p > 65535 {
			return nil, fmt.Errorf("invalid LOTION_AUTH_PORT: %q", port)
		}
		cfg.AuthPort = p
	}

	if policy := env("LOTION_LOAD_POLICY"); policy != "" {
		cfg.LoadPolicy = policy
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は必須項目が揃っているかを確認します
func (c *Config) Validate() error {
	var errs []error
	required := []struct {
		key   string
		value string
	}{
		{"LOTION_GOOGLE_CLIENT_ID", c.GoogleClientID},
		{"LOTION_GET_URL", c.ListNotesURL},
		{"LOTION_POST_URL", c.SaveNoteURL},
		{"LOTION_DELETE_URL", c.DeleteNoteURL},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%s is not set", r.key))
		}
	}
	switch c.LoadPolicy {
	case LoadPolicyReplace, LoadPolicyKeepLocal:
	default:
		errs = append(errs, fmt.Errorf("invalid LOTION_LOAD_POLICY: %q", c.LoadPolicy))
	}
	return errors.Join(errs...)
}

// ResolveAppDataDir はアプリケーションデータディレクトリのパスを返します
func (c *Config) ResolveAppDataDir() string {
	if c != nil && c.DataDir != "" {
		return c.DataDir
	}
	appData, err := os.UserConfigDir()
	if err != nil {
		appData, err = os.UserHomeDir()
		if err != nil {
			appData = "."
		}
	}
	return filepath.Join(appData, appDirName)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
