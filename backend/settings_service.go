package backend

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

const settingsFileName = "settings.json"

// SettingsService は設定関連の操作を提供するインターフェースです
type SettingsService interface {
	LoadSettings() (*Settings, error)
	SaveSettings(settings *Settings) error
	SaveWindowState(ctx *Context) error
	ToggleSidebar() (bool, error)
}

// settingsService はSettingsServiceの実装です
type settingsService struct {
	mu         sync.Mutex
	appDataDir string
}

// NewSettingsService は新しいsettingsServiceインスタンスを作成します
func NewSettingsService(appDataDir string) *settingsService {
	return &settingsService{
		appDataDir: appDataDir,
	}
}

func defaultSettings() *Settings {
	return &Settings{
		SidebarOpen:  true,
		UILanguage:   LocaleSystem,
		WindowWidth:  1024,
		WindowHeight: 720,
	}
}

// LoadSettings はsettings.jsonから設定を読み込みます
// ファイルが存在しない場合はデフォルト設定を返します
func (s *settingsService) LoadSettings() (*Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *settingsService) loadLocked() (*Settings, error) {
	data, err := os.ReadFile(filepath.Join(s.appDataDir, settingsFileName))
	if errors.Is(err, os.ErrNotExist) {
		return defaultSettings(), nil
	}
	if err != nil {
		return nil, err
	}

	// 未定義の項目は既定値のまま残す
	settings := defaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}
	if settings.UILanguage == "" {
		settings.UILanguage = LocaleSystem
	}
	return settings, nil
}

// SaveSettings は設定をsettings.jsonに保存します
func (s *settingsService) SaveSettings(settings *Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(settings)
}

func (s *settingsService) saveLocked(settings *Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.appDataDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.appDataDir, settingsFileName), data, 0644)
}

// ToggleSidebar はサイドバーの表示状態を反転して保存し、新しい状態を返します
func (s *settingsService) ToggleSidebar() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.loadLocked()
	if err != nil {
		return false, err
	}
	settings.SidebarOpen = !settings.SidebarOpen
	if err := s.saveLocked(settings); err != nil {
		return false, err
	}
	return settings.SidebarOpen, nil
}

// SaveWindowState はウィンドウの状態を保存します
func (s *settingsService) SaveWindowState(ctx *Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.loadLocked()
	if err != nil {
		return err
	}

	width, height := wailsRuntime.WindowGetSize(ctx.ctx)
	settings.WindowWidth = width
	settings.WindowHeight = height

	x, y := wailsRuntime.WindowGetPosition(ctx.ctx)
	settings.WindowX = x
	settings.WindowY = y

	settings.IsMaximized = wailsRuntime.WindowIsMaximised(ctx.ctx)

	return s.saveLocked(settings)
}

var _ SettingsService = (*settingsService)(nil)
