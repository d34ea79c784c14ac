package backend

import (
	"context"
	"sync"
	"time"
)

// アプリケーションのメインの構造体
type App struct {
	ctx             *Context            // アプリケーションのコンテキスト
	appDataDir      string              // アプリケーションデータディレクトリのパス
	config          *Config             // 環境変数から読み込んだ設定
	session         *sessionContext     // 認証情報とプロフィール
	authService     AuthService         // Google認証サービス
	noteService     *noteService        // ノート操作サービス
	settingsService *settingsService    // 設定操作サービス
	dialogService   DialogService       // 確認ダイアログ・ブラウザ起動
	formatterMu     sync.RWMutex        // formatterの保護
	formatter       *TimestampFormatter // 表示言語に合わせた日時フォーマッタ
	logger          AppLogger           // アプリケーションのロガー
	initErr         error               // 起動時の設定エラー
	nativeMenu      bool                // Wailsのアプリケーションメニューを使用中
}

// アプリケーションのコンテキストを管理
type Context struct {
	ctx             context.Context
	skipBeforeClose bool // アプリケーション終了前の保存処理をスキップするかどうか
}

// ノートの基本情報
type Note struct {
	ID           string `json:"id"`           // ノートの一意識別子（作成時に採番、以後不変）
	Title        string `json:"title"`        // ノートのタイトル
	Body         string `json:"body"`         // ノートの本文
	LastModified int64  `json:"lastModified"` // 最終更新日時（エポックミリ秒）
}

// SyncStatus はノート1件ごとのリモートとの同期状態
type SyncStatus string

const (
	SyncStatusLocal   SyncStatus = "local"   // 作成済みだが一度も保存されていない
	SyncStatusPending SyncStatus = "pending" // 保存リクエスト送信中
	SyncStatusSynced  SyncStatus = "synced"  // リモートと一致
	SyncStatusFailed  SyncStatus = "failed"  // 直近のリモート呼び出しが失敗
)

// フロントエンドに返すノートの表示用データ
type NoteView struct {
	Note
	SyncStatus SyncStatus `json:"syncStatus"`
	SyncError  string     `json:"syncError,omitempty"`
}

// 認証プロバイダから取得したユーザー情報
type Profile struct {
	Email         string `json:"email"`
	Name          string `json:"name,omitempty"`
	Picture       string `json:"picture,omitempty"`
	VerifiedEmail bool   `json:"verifiedEmail"`
}

// Credential はプロバイダのトークンレスポンスをそのまま保持する
type Credential struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	Scope        string    `json:"scope,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
}

// Principal はリモートストアへの呼び出しに使う所有者情報
type Principal struct {
	Email       string
	AccessToken string
}

// セッション状態
const (
	SessionSignedOut = "signedOut"
	SessionSignedIn  = "signedIn"
	SessionDegraded  = "degraded" // 認証済みだがプロフィール未取得
)

// フロントエンドに返すセッションのスナップショット
type SessionInfo struct {
	Status       string   `json:"status"`
	Profile      *Profile `json:"profile,omitempty"`
	ProfileError string   `json:"profileError,omitempty"`
}

// アプリケーションの設定を管理
type Settings struct {
	SidebarOpen  bool   `json:"sidebarOpen"`
	UILanguage   string `json:"uiLanguage"`
	WindowWidth  int    `json:"windowWidth"`
	WindowHeight int    `json:"windowHeight"`
	WindowX      int    `json:"windowX"`
	WindowY      int    `json:"windowY"`
	IsMaximized  bool   `json:"isMaximized"`
}

// sessionContext は認証情報とプロフィールを保持するセッション
// ノートサービスにはこれを注入し、グローバルな状態を持たない
type sessionContext struct {
	mu           sync.RWMutex
	credential   *Credential
	profile      *Profile
	profileError error
	generation   uint64 // ログイン・ログアウトごとに増加
}

func newSessionContext() *sessionContext {
	return &sessionContext{}
}

// SetCredential は認証情報を差し替え、プロフィールをクリアする
func (s *sessionContext) SetCredential(cred *Credential) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = cred
	s.profile = nil
	s.profileError = nil
	s.generation++
	return s.generation
}

func (s *sessionContext) Credential() *Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.credential == nil {
		return nil
	}
	c := *s.credential
	return &c
}

// SetProfile はgenerationが一致する場合のみプロフィールを設定する
func (s *sessionContext) SetProfile(generation uint64, profile *Profile, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation || s.credential == nil {
		return false
	}
	s.profile = profile
	s.profileError = err
	return true
}

func (s *sessionContext) Profile() *Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil
	}
	p := *s.profile
	return &p
}

func (s *sessionContext) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Clear はログアウト時に全ての状態を破棄する
func (s *sessionContext) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = nil
	s.profile = nil
	s.profileError = nil
	s.generation++
}

// Principal はリモート呼び出しに必要な所有者情報を返す
func (s *sessionContext) Principal() (Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.credential == nil {
		return Principal{}, ErrNotAuthenticated
	}
	if s.profile == nil || s.profile.Email == "" {
		return Principal{}, ErrProfileUnavailable
	}
	return Principal{Email: s.profile.Email, AccessToken: s.credential.AccessToken}, nil
}

func (s *sessionContext) Info() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info := SessionInfo{Status: SessionSignedOut}
	if s.credential == nil {
		return info
	}
	if s.profile == nil {
		info.Status = SessionDegraded
		if s.profileError != nil {
			info.ProfileError = s.profileError.Error()
		}
		return info
	}
	p := *s.profile
	info.Status = SessionSignedIn
	info.Profile = &p
	return info
}
