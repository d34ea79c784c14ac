package main

import (
	"fmt"
	"io"

	"github.com/erikgeiser/promptkit/confirmation"
	"github.com/pkg/browser"
)

// terminalDialogs は端末上の確認プロンプトと既定ブラウザの起動を行う
type terminalDialogs struct {
	assumeYes *bool
	out       io.Writer
}

func (d *terminalDialogs) Confirm(title string, message string) (bool, error) {
	if d.assumeYes != nil && *d.assumeYes {
		return true, nil
	}
	return confirmation.New(message, confirmation.No).RunPrompt()
}

func (d *terminalDialogs) OpenURL(url string) {
	fmt.Fprintf(d.out, "Opening your browser to sign in. If it does not open, visit:\n\n  %s\n\n", url)
	if err := browser.OpenURL(url); err != nil {
		fmt.Fprintf(d.out, "Could not open a browser: %v\n", err)
	}
}
