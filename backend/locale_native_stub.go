//go:build !darwin && !windows

package backend

// Linuxなどでは環境変数だけを使う
func detectNativeSystemLocales() []string {
	return nil
}
