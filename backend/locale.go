package backend

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

// サポートされる言語
const (
	LocaleJapanese = "ja"
	LocaleEnglish  = "en"
	LocaleSystem   = "system"
)

// supportedTags は表示に対応している言語。先頭が既定値
var supportedTags = []language.Tag{language.English, language.Japanese}

var localeMatcher = language.NewMatcher(supportedTags)

// OS依存のロケール取得処理（テストで差し替える）
var getNativeSystemLocales = detectNativeSystemLocales

// DetectSystemLocale はOSのシステムロケールを検出します
// 環境変数 LC_ALL, LC_MESSAGES, LANG を順にチェックし、未設定時はOS APIを使います
func DetectSystemLocale() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return NormalizeLocale(value)
		}
	}

	// GUIアプリでは環境変数が空の場合があるため、OSの優先言語から選ぶ
	return matchLocales(getNativeSystemLocales())
}

// matchLocales は優先順の言語リストから最も適した対応言語を選ぶ
func matchLocales(preferred []string) string {
	var tags []language.Tag
	for _, value := range preferred {
		if tag, err := language.Parse(stripLocaleSuffix(value)); err == nil {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return LocaleEnglish
	}
	return matchedBase(tags...)
}

func matchedBase(tags ...language.Tag) string {
	_, idx, confidence := localeMatcher.Match(tags...)
	if confidence == language.No {
		return LocaleEnglish
	}
	base, _ := supportedTags[idx].Base()
	return base.String()
}

// stripLocaleSuffix はエンコーディングと修飾子を削除してBCP 47区切りにする
// 例: "ja_JP.UTF-8" → "ja-JP", "de_DE@euro" → "de-DE"
func stripLocaleSuffix(locale string) string {
	locale = strings.TrimSpace(locale)
	if idx := strings.IndexAny(locale, ".@"); idx != -1 {
		locale = locale[:idx]
	}
	return strings.ReplaceAll(locale, "_", "-")
}

// NormalizeLocale はPOSIX形式・BCP 47形式のロケールを対応言語に丸めます
// 例: "ja_JP.UTF-8" → "ja", "en-US" → "en", "C" → "en"
func NormalizeLocale(locale string) string {
	tag, err := language.Parse(stripLocaleSuffix(locale))
	if err != nil {
		return LocaleEnglish
	}
	return matchedBase(tag)
}

// IsSupportedLocale は指定されたロケールがサポートされているか確認します
func IsSupportedLocale(locale string) bool {
	for _, tag := range supportedTags {
		if base, _ := tag.Base(); base.String() == locale {
			return true
		}
	}
	return false
}

// GetSupportedLocales はサポートされる言語のリストを返します
func GetSupportedLocales() []string {
	return []string{LocaleEnglish, LocaleJapanese}
}

// ResolveLocale は設定された言語を解決します
// "system" の場合はシステムロケールを返し、それ以外は正規化して返します
func ResolveLocale(uiLanguage string) string {
	if uiLanguage == LocaleSystem || uiLanguage == "" {
		return DetectSystemLocale()
	}
	return NormalizeLocale(uiLanguage)
}
