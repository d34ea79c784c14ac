package backend

import (
	"runtime"

	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// menuLabels はアプリケーションメニューの表示文字列
type menuLabels struct {
	Notes         string
	NewNote       string
	Reload        string
	RetryFailed   string
	ToggleSidebar string
	SignIn        string
	SignOut       string
}

var nativeMenuLabels = map[string]menuLabels{
	LocaleEnglish: {
		Notes:         "Notes",
		NewNote:       "New Note",
		Reload:        "Reload Notes",
		RetryFailed:   "Retry Failed Saves",
		ToggleSidebar: "Toggle Sidebar",
		SignIn:        "Sign In with Google",
		SignOut:       "Sign Out",
	},
	LocaleJapanese: {
		Notes:         "ノート",
		NewNote:       "新規ノート",
		Reload:        "ノートを再読み込み",
		RetryFailed:   "失敗した保存を再送",
		ToggleSidebar: "サイドバーの表示切替",
		SignIn:        "Googleでログイン",
		SignOut:       "ログアウト",
	},
}

func labelsFor(locale string) menuLabels {
	if labels, ok := nativeMenuLabels[locale]; ok {
		return labels
	}
	return nativeMenuLabels[LocaleEnglish]
}

// ApplicationMenu は起動時に使うアプリケーションメニューを返します
func (a *App) ApplicationMenu() *menu.Menu {
	return a.buildApplicationMenu(ResolveLocale(LocaleSystem))
}

// buildApplicationMenu は指定した言語でメニューを組み立てる
func (a *App) buildApplicationMenu(locale string) *menu.Menu {
	labels := labelsFor(locale)
	appMenu := menu.NewMenu()

	if runtime.GOOS == "darwin" {
		appMenu.Append(menu.AppMenu())
	}

	notesMenu := appMenu.AddSubmenu(labels.Notes)
	notesMenu.AddText(labels.NewNote, keys.CmdOrCtrl("n"), func(_ *menu.CallbackData) {
		a.AddNote()
	})
	notesMenu.AddText(labels.Reload, keys.CmdOrCtrl("r"), func(_ *menu.CallbackData) {
		a.ReloadNotes()
	})
	notesMenu.AddText(labels.RetryFailed, nil, func(_ *menu.CallbackData) {
		a.RetryFailedSyncs()
	})
	notesMenu.AddSeparator()
	notesMenu.AddText(labels.ToggleSidebar, keys.CmdOrCtrl("b"), func(_ *menu.CallbackData) {
		open, err := a.ToggleSidebar()
		if err != nil {
			a.logger.Error(err, "Failed to toggle sidebar")
			return
		}
		wailsRuntime.EventsEmit(a.ctx.ctx, "sidebar:toggled", open)
	})
	notesMenu.AddSeparator()
	notesMenu.AddText(labels.SignIn, nil, func(_ *menu.CallbackData) {
		go a.Login()
	})
	notesMenu.AddText(labels.SignOut, nil, func(_ *menu.CallbackData) {
		a.Logout()
	})

	if runtime.GOOS == "darwin" {
		appMenu.Append(menu.EditMenu())
	}
	return appMenu
}

// applyNativeMenuLocalization はUI言語設定に基づいてメニューの表示言語を切り替える
func (a *App) applyNativeMenuLocalization(uiLanguage string) {
	if !a.nativeMenu {
		return
	}
	wailsRuntime.MenuSetApplicationMenu(a.ctx.ctx, a.buildApplicationMenu(ResolveLocale(uiLanguage)))
	wailsRuntime.MenuUpdateApplicationMenu(a.ctx.ctx)
}
