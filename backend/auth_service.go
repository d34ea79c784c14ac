package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	credentialFileName  = "user.json"
	defaultLoginTimeout = 3 * time.Minute
	oauthCallbackPath   = "/oauth2callback"
)

var loginScopes = []string{"openid", "email", "profile"}

// 認証サービスのインターフェース
type AuthService interface {
	Login(ctx context.Context) error                  // ブラウザでの認証フローを開始し、完了まで待機
	CancelLogin() error                               // 進行中のログインを中止する
	Logout() error                                    // 認証情報とノートを破棄する（リモート呼び出しなし）
	RestoreSession(ctx context.Context) (bool, error) // 保存済みの認証情報があれば復元する
	RefreshProfile(ctx context.Context) error         // プロフィールの再取得
	Session() SessionInfo                             // 現在のセッション状態
}

// authService の実装
type authService struct {
	ctx         context.Context
	appDataDir  string
	oauthConfig *oauth2.Config
	port        int
	session     *sessionContext
	profiles    ProfileService
	dialogs     DialogService
	logger      AppLogger

	// プロフィール取得に成功したときに呼ばれる（ノートの読み込み）
	onSignedIn func(ctx context.Context) error
	// ログアウト時に呼ばれる（ノートの破棄）
	onSignedOut func()

	loginTimeout time.Duration

	mu          sync.Mutex
	server      *http.Server
	listener    net.Listener
	cancelLogin context.CancelFunc
}

// NewAuthService は認証を担当するサービスを生成します
func NewAuthService(
	ctx context.Context,
	appDataDir string,
	cfg *Config,
	session *sessionContext,
	profiles ProfileService,
	dialogs DialogService,
	logger AppLogger,
) *authService {
	return &authService{
		ctx:        ctx,
		appDataDir: appDataDir,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       loginScopes,
		},
		port:         cfg.AuthPort,
		session:      session,
		profiles:     profiles,
		dialogs:      dialogs,
		logger:       logger,
		loginTimeout: defaultLoginTimeout,
	}
}

// OnSignedIn はプロフィール確定後の処理を登録します
func (a *authService) OnSignedIn(fn func(ctx context.Context) error) {
	a.onSignedIn = fn
}

// OnSignedOut はログアウト後の処理を登録します
func (a *authService) OnSignedOut(fn func()) {
	a.onSignedOut = fn
}

// Session は現在のセッション状態を返します
func (a *authService) Session() SessionInfo {
	return a.session.Info()
}

// Login はループバックサーバーで認可コードを受け取り、トークンに交換します
func (a *authService) Login(ctx context.Context) error {
	loginCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	state := uuid.NewString()
	codeChan, errChan, redirectURL, err := a.startAuthServer(state, cancel)
	if err != nil {
		return err
	}
	defer a.stopAuthServer()

	config := *a.oauthConfig
	config.RedirectURL = redirectURL

	// 認証URLを開く
	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOffline)
	a.logger.Console("Opening login page: %s", authURL)
	a.dialogs.OpenURL(authURL)

	timer := time.NewTimer(a.loginTimeout)
	defer timer.Stop()

	// 認証コードの待機
	var code string
	select {
	case code = <-codeChan:
	case err := <-errChan:
		return a.logger.Error(err, "Login failed")
	case <-timer.C:
		return a.logger.Error(ErrLoginTimeout, "Login failed")
	case <-loginCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.logger.Info("Login canceled")
		return ErrLoginCanceled
	}

	token, err := config.Exchange(ctx, code)
	if err != nil {
		return a.logger.Error(err, "Failed to exchange authorization code")
	}

	cred := credentialFromToken(token)
	if err := a.saveCredential(cred); err != nil {
		a.logger.Error(err, "Failed to save credential")
	}

	a.logger.Info("Signed in")
	// プロフィール取得の失敗はセッション状態に残し、ログイン自体は成功とする
	a.applyCredential(ctx, cred)
	return nil
}

// CancelLogin は進行中のログインを中止します
func (a *authService) CancelLogin() error {
	a.mu.Lock()
	cancel := a.cancelLogin
	a.mu.Unlock()

	if cancel == nil {
		return nil
	}
	a.logger.Console("Canceling login process...")
	cancel()
	return nil
}

// Logout は認証情報を削除し、セッションとノートを破棄します
func (a *authService) Logout() error {
	a.CancelLogin()

	path := filepath.Join(a.appDataDir, credentialFileName)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		a.logger.Error(err, "Failed to remove credential file")
	}

	a.session.Clear()
	if a.onSignedOut != nil {
		a.onSignedOut()
	}

	a.logger.NotifySessionStatus(a.ctx, SessionSignedOut)
	a.logger.Info("Signed out")
	return nil
}

// RestoreSession は保存済みの認証情報を読み込みます
// 戻り値のboolは認証情報が見つかったかどうか。壊れたファイルは存在しないものとして扱う
func (a *authService) RestoreSession(ctx context.Context) (bool, error) {
	cred, err := a.loadCredential()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			a.logger.Error(err, "Ignoring unreadable credential file")
		}
		return false, nil
	}

	cred = a.refreshIfExpired(ctx, cred)
	return true, a.applyCredential(ctx, cred)
}

// RefreshProfile はプロフィールを再取得します
func (a *authService) RefreshProfile(ctx context.Context) error {
	if a.session.Credential() == nil {
		return ErrNotAuthenticated
	}
	return a.resolveProfile(ctx, a.session.Generation())
}

// applyCredential は認証情報をセッションに設定し、プロフィールを取得する
func (a *authService) applyCredential(ctx context.Context, cred Credential) error {
	generation := a.session.SetCredential(&cred)
	a.logger.NotifySessionStatus(a.ctx, SessionDegraded)
	return a.resolveProfile(ctx, generation)
}

func (a *authService) resolveProfile(ctx context.Context, generation uint64) error {
	cred := a.session.Credential()
	if cred == nil {
		return ErrNotAuthenticated
	}

	profile, err := a.profiles.FetchProfile(ctx, *cred)
	if err != nil {
		if a.session.SetProfile(generation, nil, err) {
			a.logger.NotifySessionStatus(a.ctx, SessionDegraded)
		}
		return a.logger.Error(err, "Failed to fetch profile")
	}

	// 取得中にログアウト・再ログインされた場合は捨てる
	if !a.session.SetProfile(generation, profile, nil) {
		a.logger.Console("Discarding profile for a previous session")
		return nil
	}
	a.logger.NotifySessionStatus(a.ctx, SessionSignedIn)
	a.logger.Info("Profile loaded for %s", profile.Email)

	if a.onSignedIn != nil {
		if err := a.onSignedIn(ctx); err != nil {
			a.logger.Error(err, "Failed to load notes after sign-in")
		}
	}
	return nil
}

// refreshIfExpired は期限切れのアクセストークンをリフレッシュトークンで更新する
func (a *authService) refreshIfExpired(ctx context.Context, cred Credential) Credential {
	token := cred.token()
	if token.Valid() || cred.RefreshToken == "" {
		return cred
	}

	refreshed, err := a.oauthConfig.TokenSource(ctx, token).Token()
	if err != nil {
		a.logger.Error(err, "Failed to refresh access token")
		return cred
	}

	next := credentialFromToken(refreshed)
	if next.RefreshToken == "" {
		next.RefreshToken = cred.RefreshToken
	}
	if next.IDToken == "" {
		next.IDToken = cred.IDToken
	}
	if next.Scope == "" {
		next.Scope = cred.Scope
	}
	if err := a.saveCredential(next); err != nil {
		a.logger.Error(err, "Failed to save refreshed credential")
	}
	a.logger.Console("Saved refreshed token")
	return next
}

// saveCredential は認証情報をファイルに保存
func (a *authService) saveCredential(cred Credential) error {
	if err := os.MkdirAll(a.appDataDir, 0755); err != nil {
		return err
	}
	path := filepath.Join(a.appDataDir, credentialFileName)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(cred)
}

// loadCredential は保存済みの認証情報を読み込む
func (a *authService) loadCredential() (Credential, error) {
	path := filepath.Join(a.appDataDir, credentialFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return Credential{}, err
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return Credential{}, fmt.Errorf("failed to decode %s: %w", credentialFileName, err)
	}
	if cred.AccessToken == "" {
		return Credential{}, fmt.Errorf("%s has no access token", credentialFileName)
	}
	return cred, nil
}

// credentialFromToken はトークンレスポンスから認証情報を作る
func credentialFromToken(token *oauth2.Token) Credential {
	cred := Credential{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}
	if scope, ok := token.Extra("scope").(string); ok {
		cred.Scope = scope
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		cred.IDToken = idToken
	}
	return cred
}

func (c Credential) token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    c.TokenType,
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry,
	}
}

// 認証結果ページ
const authResultTemplate = `<html>
	<head>
		<title>Lotion</title>
		<style>
			body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; margin: 0; background-color: #f5f5f5; }
			.container { display: flex; justify-content: center; align-items: center; height: 100vh; }
			.message-box { text-align: center; width: 400px; padding: 2rem; background-color: #2f3437; border-radius: 8px; }
			.message-box.error { background-color: grey; }
			.text-error { color: #ffcdd2; }
			.text-success { color: #ffffff; }
			p { color: #ffffff; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="message-box %s">
				<h3 class="%s">%s</h3>
				<p>%s</p>
			</div>
		</div>
	</body>
</html>`

func writeAuthResult(w http.ResponseWriter, ok bool, heading string, message string) {
	w.Header().Set("Content-Type", "text/html")
	if ok {
		fmt.Fprintf(w, authResultTemplate, "", "text-success", heading, message)
		return
	}
	fmt.Fprintf(w, authResultTemplate, "error", "text-error", heading, message)
}

// startAuthServer は認証サーバーを起動し、認証コードを待機するチャネルを返す
func (a *authService) startAuthServer(state string, cancel context.CancelFunc) (<-chan string, <-chan error, string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancelLogin != nil {
		return nil, nil, "", ErrLoginInProgress
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", a.port))
	if err != nil {
		return nil, nil, "", fmt.Errorf("port %d is already in use: %w", a.port, err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	redirectURL := fmt.Sprintf("http://localhost:%d%s", port, oauthCallbackPath)

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(oauthCallbackPath, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("state") != state {
			writeAuthResult(w, false, "Login Error", "Login failed. Please try again.")
			select {
			case errChan <- errors.New("oauth state mismatch"):
			default:
			}
			return
		}
		if reason := query.Get("error"); reason != "" {
			writeAuthResult(w, false, "Login Error", "Login failed. Please try again.")
			select {
			case errChan <- fmt.Errorf("authorization denied: %s", reason):
			default:
			}
			return
		}

		code := query.Get("code")
		if code == "" {
			writeAuthResult(w, false, "Login Error", "Login failed. Please try again.")
			return
		}
		select {
		case codeChan <- code:
			writeAuthResult(w, true, "Signed in to Lotion!", "You can close this window and return to the app.")
		default:
			writeAuthResult(w, false, "Authentication Error", "Authentication already completed.")
		}
	})

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.server = server
	a.listener = listener
	a.cancelLogin = cancel

	// サーバーを別のゴルーチンで起動
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Console("Server error: %v", err)
		}
	}()

	return codeChan, errChan, redirectURL, nil
}

// stopAuthServer は認証サーバーを安全に停止する
func (a *authService) stopAuthServer() {
	a.mu.Lock()
	server := a.server
	a.server = nil
	a.listener = nil
	a.cancelLogin = nil
	a.mu.Unlock()

	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		// 既に閉じられているコネクションのエラーは無視
		if !strings.Contains(err.Error(), "use of closed network connection") {
			a.logger.Console("Error shutting down auth server: %v", err)
		}
	}
}

var _ AuthService = (*authService)(nil)
