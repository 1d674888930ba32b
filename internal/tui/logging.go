package tui

import (
	"log"
	"os"
	"path/filepath"
)

// initLogger initializes a file logger under ~/.config/mailgrid/mailgrid.log
// if possible.
func (a *App) initLogger(path string) {
	if a.logger != nil && a.logFile != nil {
		return
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		path = filepath.Join(home, ".config", "mailgrid", "mailgrid.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
		a.logFile = f
		a.logger = log.New(f, "[mailgrid] ", log.LstdFlags|log.Lmicroseconds)
	}
}

// closeLogger closes the log file if opened.
func (a *App) closeLogger() {
	if a.logFile != nil {
		_ = a.logFile.Close()
		a.logFile = nil
	}
}
