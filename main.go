package main

import (
	"context"
	"embed"
	"fmt"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"gorm.io/gorm/logger"

	"planforge/internal/database"
	"planforge/internal/events"
	"planforge/internal/services"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	db, err := database.Init(database.Config{
		LogLevel: logger.Warn,
	})
	if err != nil {
		fmt.Println("Error opening database:", err)
		return
	}

	svc := services.NewDbServices(db)
	app := NewApp(svc)
	if sqlDB, err := db.DB(); err == nil {
		app.dbClose = sqlDB.Close
	}

	err = wails.Run(&options.App{
		Title:  "Planforge",
		Width:  1200,
		Height: 800,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		Linux: &linux.Options{
			WindowIsTranslucent: false,
			WebviewGpuPolicy:    linux.WebviewGpuPolicyAlways,
			ProgramName:         "Planforge",
		},
		BackgroundColour: &options.RGBA{R: 24, G: 28, B: 38, A: 1},
		OnStartup: func(ctx context.Context) {
			events.EnableRuntimeEmitter()
			app.startup(ctx)
			if err := svc.StartDbServices(ctx); err != nil {
				fmt.Println("Error starting services:", err)
			}
		},
		OnShutdown: app.shutdown,
		Bind: []interface{}{
			app,
			svc.Sessions,
			svc.Streams,
			svc.Forge,
			svc.Exports,
			svc.Workspaces,
			svc.Templates,
			svc.AppSettings,
			svc.Models,
			svc.Keyring,
		},
	})

	if err != nil {
		println("Error:", err.Error())
	}
}
