package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wailsapp/wails/v2/pkg/menu"
)

func findSubmenu(m *menu.Menu, label string) *menu.Menu {
	for _, item := range m.Items {
		if item.Label == label && item.SubMenu != nil {
			return item.SubMenu
		}
	}
	return nil
}

func menuItemLabels(m *menu.Menu) []string {
	var labels []string
	for _, item := range m.Items {
		if item.Label != "" {
			labels = append(labels, item.Label)
		}
	}
	return labels
}

func TestBuildApplicationMenu_Localized(t *testing.T) {
	app := NewApp()

	tests := []struct {
		locale   string
		notes    string
		expected []string
	}{
		{LocaleEnglish, "Notes", []string{"New Note", "Reload Notes", "Retry Failed Saves", "Toggle Sidebar", "Sign In with Google", "Sign Out"}},
		{LocaleJapanese, "ノート", []string{"新規ノート", "ノートを再読み込み", "失敗した保存を再送", "サイドバーの表示切替", "Googleでログイン", "ログアウト"}},
		{"fr", "Notes", []string{"New Note", "Reload Notes", "Retry Failed Saves", "Toggle Sidebar", "Sign In with Google", "Sign Out"}},
	}

	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			notesMenu := findSubmenu(app.buildApplicationMenu(tt.locale), tt.notes)
			require.NotNil(t, notesMenu)
			assert.Equal(t, tt.expected, menuItemLabels(notesMenu))
		})
	}
}

// Wailsの起動前はメニューの差し替えを行わない
func TestApplyNativeMenuLocalization_NoopBeforeStartup(t *testing.T) {
	app := NewApp()
	assert.NotPanics(t, func() {
		app.applyNativeMenuLocalization(LocaleJapanese)
	})
}
