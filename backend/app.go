package backend

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

const shutdownSyncTimeout = 5 * time.Second

// NewContext は新しいContextインスタンスを作成します
func NewContext(ctx context.Context) *Context {
	return &Context{
		ctx:             ctx,
		skipBeforeClose: false,
	}
}

// SkipBeforeClose はBeforeClose処理のスキップフラグを設定します
func (c *Context) SkipBeforeClose(skip bool) {
	c.skipBeforeClose = skip
}

// ShouldSkipBeforeClose はBeforeClose処理をスキップすべきかどうかを返します
func (c *Context) ShouldSkipBeforeClose() bool {
	return c.skipBeforeClose
}

// AppOptions はWailsを使わずにAppを組み立てるときの依存関係
type AppOptions struct {
	Config     *Config
	AppDataDir string         // 空の場合はConfigから決定する
	Dialogs    DialogService  // 確認ダイアログとブラウザ起動
	Emitter    EventEmitter   // nilの場合はイベントを送信しない
	Profiles   ProfileService // nilの場合はGoogleのuserinfoを使う
	HTTPClient *http.Client   // リモートストア用。nilの場合は既定のクライアント
	TestMode   bool
}

// NewApp は新しいAppインスタンスを作成します
// サービスの初期化はStartupで行う
func NewApp() *App {
	return &App{
		ctx: NewContext(context.Background()),
	}
}

// NewAppWithOptions はサービスを初期化済みのAppを作成します（CLI・テスト用）
func NewAppWithOptions(ctx context.Context, opts AppOptions) (*App, error) {
	app := &App{ctx: NewContext(ctx)}
	if err := app.initialize(opts); err != nil {
		return nil, err
	}
	return app, nil
}

// ------------------------------------------------------------
// アプリケーション関連の操作
// ------------------------------------------------------------

// アプリケーション起動時に呼び出される初期化関数
func (a *App) Startup(ctx context.Context) {
	a.ctx.ctx = ctx

	cfg, err := LoadConfig()
	if err != nil {
		a.initErr = err
		fmt.Printf("Error loading configuration: %v\n", err)
		return
	}

	if err := a.initialize(AppOptions{
		Config:  cfg,
		Dialogs: NewDialogService(a.ctx),
		Emitter: NewWailsEmitter(),
	}); err != nil {
		a.initErr = err
		fmt.Printf("Error initializing app: %v\n", err)
		return
	}

	a.nativeMenu = true
	if settings, err := a.settingsService.LoadSettings(); err == nil {
		a.applyNativeMenuLocalization(settings.UILanguage)
	}
}

// initialize は各サービスを組み立てて結線する
func (a *App) initialize(opts AppOptions) error {
	if opts.Config == nil {
		return fmt.Errorf("config is required")
	}
	if err := opts.Config.Validate(); err != nil {
		return err
	}
	if opts.Dialogs == nil {
		return fmt.Errorf("dialog service is required")
	}

	a.config = opts.Config
	a.appDataDir = opts.AppDataDir
	if a.appDataDir == "" {
		a.appDataDir = opts.Config.ResolveAppDataDir()
	}
	if err := os.MkdirAll(a.appDataDir, 0755); err != nil {
		return fmt.Errorf("failed to create app data directory: %w", err)
	}

	a.logger = NewAppLogger(a.ctx.ctx, opts.TestMode, a.appDataDir, opts.Emitter)
	a.logger.Console("appDataDir: %s", a.appDataDir)

	a.session = newSessionContext()
	a.dialogService = opts.Dialogs
	a.settingsService = NewSettingsService(a.appDataDir)

	remote := NewHTTPRemoteStore(a.config, opts.HTTPClient)
	a.noteService = NewNoteService(a.ctx.ctx, a.session, remote, a.dialogService, a.logger, a.config.LoadPolicy)

	profiles := opts.Profiles
	if profiles == nil {
		profiles = NewProfileService(a.config.UserInfoEndpoint)
	}
	auth := NewAuthService(a.ctx.ctx, a.appDataDir, a.config, a.session, profiles, a.dialogService, a.logger)
	// プロフィールが確定したらノートを読み込み、ログアウトしたら破棄する
	auth.OnSignedIn(a.noteService.LoadAll)
	auth.OnSignedOut(a.noteService.Reset)
	a.authService = auth

	locale := LocaleSystem
	if settings, err := a.settingsService.LoadSettings(); err == nil {
		locale = settings.UILanguage
	} else {
		a.logger.Error(err, "Failed to load settings")
	}
	a.setFormatterLocale(locale)
	return nil
}

// DomReady はフロントエンドの準備完了後に保存済みのセッションを復元します
func (a *App) DomReady(ctx context.Context) {
	if a.initErr != nil {
		wailsRuntime.EventsEmit(ctx, "logMessage", fmt.Sprintf("Configuration error: %v", a.initErr))
		return
	}
	go a.RestoreSession()
}

// アプリケーション終了前に呼び出される処理
func (a *App) BeforeClose(ctx context.Context) (prevent bool) {
	if a.ctx.ShouldSkipBeforeClose() || a.initErr != nil || a.settingsService == nil {
		return false
	}

	// ウィンドウの状態を保存
	if err := a.settingsService.SaveWindowState(a.ctx); err != nil {
		a.logger.Error(err, "Failed to save window state")
	}

	// 送信中の保存が完了するのを待つ
	if !a.noteService.WaitForSync(shutdownSyncTimeout) {
		a.logger.Console("Closing with unfinished sync requests")
	}
	if a.noteService.HasUnsyncedChanges() {
		a.logger.Console("Closing with notes that were not saved to the note store")
	}
	return false
}

// Shutdown はロガーを閉じます
func (a *App) Shutdown(ctx context.Context) {
	if a.logger != nil {
		a.logger.Close()
	}
}

// アプリケーションを強制終了する
func (a *App) DestroyApp() {
	a.ctx.SkipBeforeClose(true)
	wailsRuntime.Quit(a.ctx.ctx)
}

// BringToFront brings the application window to front
func (a *App) BringToFront() {
	wailsRuntime.WindowUnminimise(a.ctx.ctx)
	wailsRuntime.Show(a.ctx.ctx)
}

// ------------------------------------------------------------
// 認証関連の操作
// ------------------------------------------------------------

// Login はブラウザでのログインを行い、結果のセッション状態を返します
// 失敗はログに記録し、セッションは未設定のまま残る
func (a *App) Login() SessionInfo {
	if a.initErr != nil {
		return SessionInfo{Status: SessionSignedOut}
	}
	if err := a.authService.Login(a.ctx.ctx); err != nil {
		a.logger.Console("Login finished without session: %v", err)
	}
	return a.authService.Session()
}

// CancelLogin は進行中のログインを中止します
func (a *App) CancelLogin() error {
	if a.initErr != nil {
		return a.initErr
	}
	return a.authService.CancelLogin()
}

// Logout はセッションとノートを破棄します
func (a *App) Logout() error {
	if a.initErr != nil {
		return a.initErr
	}
	return a.authService.Logout()
}

// RestoreSession は保存済みの認証情報からセッションを復元します
func (a *App) RestoreSession() SessionInfo {
	if a.initErr != nil {
		return SessionInfo{Status: SessionSignedOut}
	}
	if _, err := a.authService.RestoreSession(a.ctx.ctx); err != nil {
		a.logger.Console("Session restored without profile: %v", err)
	}
	return a.authService.Session()
}

// GetSession は現在のセッション状態を返します
func (a *App) GetSession() SessionInfo {
	if a.initErr != nil {
		return SessionInfo{Status: SessionSignedOut}
	}
	return a.authService.Session()
}

// RefreshProfile はdegraded状態からの回復のためにプロフィールを再取得します
func (a *App) RefreshProfile() SessionInfo {
	if a.initErr != nil {
		return SessionInfo{Status: SessionSignedOut}
	}
	if err := a.authService.RefreshProfile(a.ctx.ctx); err != nil {
		a.logger.Console("Profile refresh failed: %v", err)
	}
	return a.authService.Session()
}

// ------------------------------------------------------------
// ノート関連の操作
// ------------------------------------------------------------

// ListNotes はノート一覧を新しい順で返します
func (a *App) ListNotes() []NoteView {
	if a.initErr != nil {
		return []NoteView{}
	}
	return a.noteService.ListNotes()
}

// ReloadNotes はリモートからノートを読み込み直します
func (a *App) ReloadNotes() error {
	if a.initErr != nil {
		return a.initErr
	}
	return a.noteService.LoadAll(a.ctx.ctx)
}

// AddNote はローカルに新規ノートを作成して選択します
func (a *App) AddNote() (Note, error) {
	if a.initErr != nil {
		return Note{}, a.initErr
	}
	return a.noteService.AddLocal(), nil
}

// UpdateNote は選択中のノートを保存します
func (a *App) UpdateNote(note Note) (Note, error) {
	if a.initErr != nil {
		return Note{}, a.initErr
	}
	return a.noteService.Update(a.ctx.ctx, note)
}

// DeleteNote は確認の上でノートを削除します
func (a *App) DeleteNote(id string) (bool, error) {
	if a.initErr != nil {
		return false, a.initErr
	}
	return a.noteService.Delete(a.ctx.ctx, id)
}

// SelectNote はノートを選択します
func (a *App) SelectNote(id string) {
	if a.initErr != nil {
		return
	}
	a.noteService.Select(id)
}

// GetActiveNote は選択中のノートを返します
func (a *App) GetActiveNote() *NoteView {
	if a.initErr != nil {
		return nil
	}
	return a.noteService.ActiveNote()
}

// RetrySync は保存に失敗したノートを再送します
func (a *App) RetrySync(id string) error {
	if a.initErr != nil {
		return a.initErr
	}
	return a.noteService.Retry(a.ctx.ctx, id)
}

// RollbackNote は保存に失敗したノートを最後に同期された内容に戻します
func (a *App) RollbackNote(id string) error {
	if a.initErr != nil {
		return a.initErr
	}
	return a.noteService.Rollback(id)
}

// RetryFailedSyncs は保存に失敗した全てのノートを再送し、件数を返します
func (a *App) RetryFailedSyncs() int {
	if a.initErr != nil {
		return 0
	}
	return a.noteService.RetryFailed(a.ctx.ctx)
}

// WaitForSync は送信中の保存が完了するまで最大timeoutMsミリ秒待機します
func (a *App) WaitForSync(timeoutMs int) bool {
	if a.initErr != nil {
		return true
	}
	return a.noteService.WaitForSync(time.Duration(timeoutMs) * time.Millisecond)
}

// FormatDate は最終更新日時を表示言語に合わせて整形します
func (a *App) FormatDate(value interface{}) string {
	a.formatterMu.RLock()
	formatter := a.formatter
	a.formatterMu.RUnlock()

	if formatter == nil {
		return FormatTimestamp(value)
	}
	return formatter.Format(value)
}

func (a *App) setFormatterLocale(uiLanguage string) {
	formatter := NewTimestampFormatter(ResolveLocale(uiLanguage), time.Local)
	a.formatterMu.Lock()
	a.formatter = formatter
	a.formatterMu.Unlock()
}

// ------------------------------------------------------------
// 設定関連の操作
// ------------------------------------------------------------

// 設定を読み込む
func (a *App) LoadSettings() (*Settings, error) {
	if a.initErr != nil {
		return nil, a.initErr
	}
	return a.settingsService.LoadSettings()
}

// 設定を保存する
func (a *App) SaveSettings(settings *Settings) error {
	if a.initErr != nil {
		return a.initErr
	}
	if err := a.settingsService.SaveSettings(settings); err != nil {
		return a.logger.Error(err, "Failed to save settings")
	}
	a.setFormatterLocale(settings.UILanguage)
	a.applyNativeMenuLocalization(settings.UILanguage)
	return nil
}

// ToggleSidebar はサイドバーの表示状態を切り替えて保存します
func (a *App) ToggleSidebar() (bool, error) {
	if a.initErr != nil {
		return false, a.initErr
	}
	return a.settingsService.ToggleSidebar()
}

// ウィンドウの状態を保存する
func (a *App) SaveWindowState(ctx *Context) error {
	return a.settingsService.SaveWindowState(ctx)
}
