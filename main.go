package main

import (
	"embed"
	"runtime"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/logger"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"

	"lotion/backend"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	// Create an instance of the app structure
	app := backend.NewApp()

	// Wailsアプリケーションを作成
	err := wails.Run(&options.App{
		Title:     "Lotion",
		Width:     1024,
		Height:    720,
		MinWidth:  720,
		MinHeight: 480,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		Menu:             app.ApplicationMenu(),
		BackgroundColour: &options.RGBA{R: 255, G: 255, B: 255, A: 1},
		OnStartup:        app.Startup,
		OnDomReady:       app.DomReady,
		OnBeforeClose:    app.BeforeClose,
		OnShutdown:       app.Shutdown,
		LogLevel:         logger.INFO,
		Bind: []interface{}{
			app,
		},
		Mac: &mac.Options{
			TitleBar: &mac.TitleBar{
				TitlebarAppearsTransparent: runtime.GOOS == "darwin",
				HideTitle:                  true,
			},
		},
		Debug: options.Debug{
			OpenInspectorOnStartup: false,
		},
		SingleInstanceLock: &options.SingleInstanceLock{
			UniqueId: "lotion-instance-lock",
			OnSecondInstanceLaunch: func(secondInstanceData options.SecondInstanceData) {
				app.BringToFront()
			},
		},
	})

	if err != nil {
		println("Error:", err.Error())
	}
}
