package backend

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AppLogger はログ出力とフロントエンド通知を担当するインターフェース
type AppLogger interface {
	NotifySessionStatus(ctx context.Context, status string)                 // セッション状態の通知
	NotifyNotesChanged(ctx context.Context)                                 // ノート一覧の変更通知
	NotifySyncStatus(ctx context.Context, noteID string, status SyncStatus) // ノート単位の同期状態通知
	Console(format string, args ...interface{})                             // コンソール出力
	Info(format string, args ...interface{})                                // 情報メッセージ出力
	Error(err error, format string, args ...interface{}) error              // エラーメッセージ出力
	ErrorWithNotify(err error, format string, args ...interface{}) error    // エラーメッセージ出力とフロントエンド通知
	IsTestMode() bool
	Close() error
}

// EventEmitter はフロントエンドへのイベント送信を抽象化する
type EventEmitter interface {
	Emit(ctx context.Context, name string, data ...interface{})
}

// wailsEmitter はWailsランタイム経由でイベントを送信する
type wailsEmitter struct{}

func (wailsEmitter) Emit(ctx context.Context, name string, data ...interface{}) {
	wailsRuntime.EventsEmit(ctx, name, data...)
}

// NewWailsEmitter はWailsのイベントを使うEventEmitterを返します
func NewWailsEmitter() EventEmitter {
	return wailsEmitter{}
}

// consoleWriter はコンソール出力先（CLIの標準出力と混ざらないよう標準エラー）
var consoleWriter io.Writer = os.Stderr

// appLoggerImpl はAppLoggerの実装
type appLoggerImpl struct {
	ctx        context.Context
	isTestMode bool
	log        *zap.SugaredLogger
	logFile    *os.File
	emitter    EventEmitter
}

// NewAppLogger は新しいAppLoggerインスタンスを作成
// emitterがnilの場合はフロントエンドへの通知を行わない
func NewAppLogger(ctx context.Context, isTestMode bool, appDataDir string, emitter EventEmitter) AppLogger {
	if isTestMode {
		return &appLoggerImpl{
			ctx:        ctx,
			isTestMode: true,
			log:        zap.NewNop().Sugar(),
		}
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(consoleWriter), zapcore.InfoLevel),
	}

	logDir := filepath.Join(appDataDir, "logs")
	var logFile *os.File
	if err := os.MkdirAll(logDir, 0755); err == nil {
		logPath := filepath.Join(logDir, fmt.Sprintf("app_%s.log", time.Now().Format("2006-01-02_15-04-05")))
		logFile, err = os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Printf("Error opening log file: %v\n", err)
		} else {
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(logFile), zapcore.DebugLevel))
		}
	}

	return &appLoggerImpl{
		ctx:     ctx,
		log:     zap.New(zapcore.NewTee(cores...)).Sugar(),
		logFile: logFile,
		emitter: emitter,
	}
}

// ----------------------------------------------------------------
// フロントエンドへの通知
// ----------------------------------------------------------------

func (l *appLoggerImpl) emit(name string, data ...interface{}) {
	if l.isTestMode || l.emitter == nil {
		return
	}
	l.emitter.Emit(l.ctx, name, data...)
}

// セッション状態をフロントエンドに通知
func (l *appLoggerImpl) NotifySessionStatus(ctx context.Context, status string) {
	l.emit("session:status", status)
}

// ノート一覧の変更をフロントエンドに通知
func (l *appLoggerImpl) NotifyNotesChanged(ctx context.Context) {
	l.emit("notes:updated")
}

// ノート単位の同期状態をフロントエンドに通知
func (l *appLoggerImpl) NotifySyncStatus(ctx context.Context, noteID string, status SyncStatus) {
	l.emit("sync:status", map[string]string{
		"noteId": noteID,
		"status": string(status),
	})
}

// ----------------------------------------------------------------
// ログメッセージの通知
// ----------------------------------------------------------------

// ログメッセージをコンソール（とログファイル）のみに出力し、フロントエンドには送らない
func (l *appLoggerImpl) Console(format string, args ...interface{}) {
	l.log.Infof(format, args...)
}

// 情報メッセージをコンソールとフロントエンドに出力
func (l *appLoggerImpl) Info(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.log.Info(message)
	l.emit("logMessage", message)
}

// エラーメッセージをコンソールとフロントエンドに出力し、エラーを返す
func (l *appLoggerImpl) Error(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	message := fmt.Sprintf(format, args...)
	l.log.Errorw(message, "error", err)
	l.emit("logMessage", fmt.Sprintf("%s: %s", message, err.Error()))
	return err
}

// ErrorWithNotify はエラーをログに出力し、さらにフロントエンドに同期エラーとして通知
func (l *appLoggerImpl) ErrorWithNotify(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	message := fmt.Sprintf(format, args...)
	l.log.Errorw(message, "error", err)
	l.emit("logMessage", fmt.Sprintf("%s: %s", message, err.Error()))
	l.emit("sync:error", err.Error())
	return err
}

func (l *appLoggerImpl) IsTestMode() bool {
	return l.isTestMode
}

// Close はバッファをフラッシュしてログファイルを閉じる
func (l *appLoggerImpl) Close() error {
	_ = l.log.Sync()
	if l.logFile != nil {
		return l.logFile.Close()
	}
	return nil
}
