package tui

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/derailed/tview"
)

// LogLevel represents the severity of a message
type LogLevel int

const (
	LogLevelInfo LogLevel = iota
	LogLevelWarning
	LogLevelError
	LogLevelSuccess
)

// ErrorHandler provides consistent error handling and user feedback through
// the status bar. It implements services.Notifier.
type ErrorHandler struct {
	mu         sync.Mutex
	app        *tview.Application
	statusView *tview.TextView
	logger     *log.Logger

	baseline    string
	statusTimer *time.Timer
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(app *tview.Application, statusView *tview.TextView, baseline string, logger *log.Logger) *ErrorHandler {
	return &ErrorHandler{app: app, statusView: statusView, baseline: baseline, logger: logger}
}

// HandleError handles an error and shows appropriate user feedback.
func (eh *ErrorHandler) HandleError(ctx context.Context, err error, userMsg string) {
	if err == nil {
		return
	}
	if eh.logger != nil {
		eh.logger.Printf("ERROR: %v", err)
	}
	if userMsg == "" {
		userMsg = "An error occurred"
	}
	eh.ShowMessage(ctx, userMsg, LogLevelError)
}

// ShowSuccess displays a success notice.
func (eh *ErrorHandler) ShowSuccess(ctx context.Context, msg string) {
	eh.ShowMessage(ctx, msg, LogLevelSuccess)
}

// ShowError displays an error notice.
func (eh *ErrorHandler) ShowError(ctx context.Context, msg string) {
	eh.ShowMessage(ctx, msg, LogLevelError)
}

// ShowWarning displays a warning notice.
func (eh *ErrorHandler) ShowWarning(ctx context.Context, msg string) {
	eh.ShowMessage(ctx, msg, LogLevelWarning)
}

// ShowInfo displays an informational notice.
func (eh *ErrorHandler) ShowInfo(ctx context.Context, msg string) {
	eh.ShowMessage(ctx, msg, LogLevelInfo)
}

// ShowMessage displays a transient message that reverts to the baseline
// status line after a few seconds.
func (eh *ErrorHandler) ShowMessage(ctx context.Context, msg string, level LogLevel) {
	if strings.TrimSpace(msg) == "" {
		return
	}
	formatted := eh.formatMessage(msg, level)
	if eh.logger != nil {
		eh.logger.Printf("%s: %s", eh.levelToString(level), msg)
	}
	if eh.app == nil || eh.statusView == nil {
		return
	}
	eh.app.QueueUpdateDraw(func() {
		eh.statusView.SetText(formatted)
	})

	eh.mu.Lock()
	if eh.statusTimer != nil {
		eh.statusTimer.Stop()
	}
	eh.statusTimer = time.AfterFunc(3*time.Second, func() {
		eh.app.QueueUpdateDraw(func() {
			eh.statusView.SetText(eh.baseline)
		})
	})
	eh.mu.Unlock()
}

func (eh *ErrorHandler) formatMessage(msg string, level LogLevel) string {
	switch level {
	case LogLevelSuccess:
		return "[green]✅ " + msg + "[-]"
	case LogLevelError:
		return "[red]❌ " + msg + "[-]"
	case LogLevelWarning:
		return "[orange]⚠️ " + msg + "[-]"
	default:
		return "[blue]ℹ️ " + msg + "[-]"
	}
}

func (eh *ErrorHandler) levelToString(level LogLevel) string {
	switch level {
	case LogLevelSuccess:
		return "SUCCESS"
	case LogLevelError:
		return "ERROR"
	case LogLevelWarning:
		return "WARNING"
	default:
		return "INFO"
	}
}
