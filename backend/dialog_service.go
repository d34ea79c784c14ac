package backend

import (
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// DialogService はユーザーへの確認とブラウザ起動を提供するインターフェースです
type DialogService interface {
	Confirm(title string, message string) (bool, error) // はい/いいえの確認
	OpenURL(url string)                                 // 既定のブラウザでURLを開く
}

// wailsDialogService はWailsランタイムを使うDialogServiceの実装です
type wailsDialogService struct {
	ctx *Context
}

// NewDialogService は新しいwailsDialogServiceインスタンスを作成します
func NewDialogService(ctx *Context) *wailsDialogService {
	return &wailsDialogService{
		ctx: ctx,
	}
}

const (
	dialogButtonYes = "Yes"
	dialogButtonNo  = "No"
)

// Confirm は確認ダイアログを表示し、「はい」が選ばれたかどうかを返します
func (s *wailsDialogService) Confirm(title string, message string) (bool, error) {
	result, err := wailsRuntime.MessageDialog(s.ctx.ctx, wailsRuntime.MessageDialogOptions{
		Type:          wailsRuntime.QuestionDialog,
		Title:         title,
		Message:       message,
		Buttons:       []string{dialogButtonYes, dialogButtonNo},
		DefaultButton: dialogButtonNo,
		CancelButton:  dialogButtonNo,
	})
	if err != nil {
		return false, err
	}
	return isAffirmative(result), nil
}

// OpenURL は既定のブラウザでURLを開きます
func (s *wailsDialogService) OpenURL(url string) {
	wailsRuntime.BrowserOpenURL(s.ctx.ctx, url)
}

// isAffirmative はOSごとに異なるダイアログの戻り値を「はい」かどうかに揃える
func isAffirmative(result string) bool {
	switch result {
	case dialogButtonYes, "yes", "Ok", "OK", "ok":
		return true
	default:
		return false
	}
}
