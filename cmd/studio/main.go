// Command studio is the desktop garment editor.
package main

import (
	"apparel-studio/config"
	"apparel-studio/editor"
	"apparel-studio/export"
	"apparel-studio/garment"
	"flag"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const appID = "com.apparelstudio.studio"

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found")
	}

	configPath := flag.String("config", os.Getenv("STUDIO_CONFIG"), "Path to a YAML config file.")
	logLevel := flag.String("loglevel", "", "The log level (debug, info, warn, error).")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)

	renderer := garment.NewRenderer(cfg.RendererOptions())
	reg := editor.NewRegistry(cfg.SessionDefaults(), renderer)
	// The desktop editor only writes files; orders go through the server.
	pipeline := export.New(renderer, cfg.ExportOptions(nil))

	fyneApp := app.NewWithID(appID)
	win := newStudio(fyneApp, cfg, reg, pipeline)
	win.Resize(fyne.NewSize(float32(cfg.Canvas.Width)+360, float32(cfg.Canvas.Height)+120))
	win.ShowAndRun()
}
