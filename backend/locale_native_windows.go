//go:build windows

package backend

import "golang.org/x/sys/windows"

// detectNativeSystemLocales はWindowsのUI言語を優先順に返す（例: ja-JP, en-US）
func detectNativeSystemLocales() []string {
	languages, err := windows.GetUserPreferredUILanguages(windows.MUI_LANGUAGE_NAME)
	if err != nil {
		return nil
	}
	return languages
}
