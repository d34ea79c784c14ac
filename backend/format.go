package backend

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ロケールごとの日時の表示形式
var timestampLayouts = map[string]string{
	LocaleEnglish:  "January 2, 2006, 3:04 PM",
	LocaleJapanese: "2006年1月2日 15:04",
}

// TimestampFormatter は最終更新日時を表示用の文字列に変換する
type TimestampFormatter struct {
	Locale   string
	Location *time.Location
}

// NewTimestampFormatter はロケールとタイムゾーンを指定してフォーマッタを作成します
func NewTimestampFormatter(locale string, loc *time.Location) *TimestampFormatter {
	if loc == nil {
		loc = time.Local
	}
	return &TimestampFormatter{Locale: NormalizeLocale(locale), Location: loc}
}

// Format は任意の値を日時として解釈して整形します
// 解釈できない値や範囲外の値は空文字を返す
func (f *TimestampFormatter) Format(value interface{}) string {
	t, ok := parseTimestamp(value, f.location())
	if !ok {
		return ""
	}
	layout, found := timestampLayouts[f.Locale]
	if !found {
		layout = timestampLayouts[LocaleEnglish]
	}
	return t.In(f.location()).Format(layout)
}

func (f *TimestampFormatter) location() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}

// FormatTimestamp は既定のフォーマッタ（英語、ローカル時刻）で整形します
func FormatTimestamp(value interface{}) string {
	return NewTimestampFormatter(LocaleEnglish, time.Local).Format(value)
}

func parseTimestamp(value interface{}, loc *time.Location) (time.Time, bool) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false
		}
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return parseTimestamp(*v, loc)
	case int:
		return fromMillis(float64(v))
	case int32:
		return fromMillis(float64(v))
	case int64:
		return fromMillis(float64(v))
	case uint64:
		return fromMillis(float64(v))
	case float32:
		return fromMillis(float64(v))
	case float64:
		return fromMillis(v)
	case json.Number:
		return parseTimestamp(string(v), loc)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		if ms, err := strconv.ParseFloat(s, 64); err == nil {
			return fromMillis(ms)
		}
		t, err := dateparse.ParseIn(s, loc)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}

func fromMillis(ms float64) (time.Time, bool) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > jsDateLimit {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)), true
}
