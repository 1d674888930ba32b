package tui

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/derailed/tcell/v2"
	"github.com/derailed/tview"

	"github.com/mailgrid/mailgrid/internal/config"
	"github.com/mailgrid/mailgrid/internal/list"
	"github.com/mailgrid/mailgrid/internal/render"
	"github.com/mailgrid/mailgrid/internal/services"
)

const statusBaseline = "mailgrid | Press ? for help | Press q to quit"

// Deps are the services the view consumes.
type Deps struct {
	Repo       services.ThreadRepository
	Reader     services.ReadStateService
	Prefetcher services.PrefetchService
	Identity   services.IdentityService
}

// App is the terminal front end: a virtualized thread list, a reading pane
// and a status bar, all driven by the list controller.
type App struct {
	*tview.Application
	views map[string]tview.Primitive

	cfg   *config.Config
	theme *config.Theme
	deps  Deps

	controller   *list.Controller
	errorHandler *ErrorHandler

	logger  *log.Logger
	logFile *os.File

	ctx    context.Context
	cancel context.CancelFunc

	// view state owned by the UI goroutine
	cursor    int    // absolute index of the row under the cursor
	hoverID   string // row id the cursor rests on
	window    list.Window
	folders   []services.Folder
	folderIdx int
}

// NewApp wires the TUI around the list controller.
func NewApp(cfg *config.Config, theme *config.Theme, deps Deps) *App {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		Application: tview.NewApplication(),
		views:       make(map[string]tview.Primitive),
		cfg:         cfg,
		theme:       theme,
		deps:        deps,
		ctx:         ctx,
		cancel:      cancel,
		folders: []services.Folder{
			services.FolderInbox, services.FolderSent, services.FolderSpam,
			services.FolderArchive, services.FolderDraft, services.FolderTrash,
		},
	}
	a.initLogger(cfg.LogFile)

	table := tview.NewTable()
	table.SetSelectable(true, false)
	table.SetBorder(true)
	a.views["table"] = table

	content := tview.NewTextView()
	content.SetDynamicColors(true)
	content.SetBorder(true)
	content.SetTitle(" Thread ")
	a.views["content"] = content

	status := tview.NewTextView()
	status.SetDynamicColors(true)
	status.SetText(statusBaseline)
	a.views["status"] = status

	query := tview.NewInputField().SetLabel("/")
	a.views["query"] = query

	a.errorHandler = NewErrorHandler(a.Application, status, statusBaseline, a.logger)

	rowHeight := list.RowHeightNormal
	if cfg.List.CompactRows {
		rowHeight = list.RowHeightCompact
	}
	a.controller = list.NewController(list.Options{
		Repo:       deps.Repo,
		Reader:     deps.Reader,
		Prefetcher: deps.Prefetcher,
		Identity:   deps.Identity,
		Notifier:   a.errorHandler,
		Logger:     a.logger,
		Folder:     services.FolderInbox,
		PageSize:   cfg.List.PageSize,
		RowHeight:  rowHeight,
		Overscan:   cfg.List.Overscan,
		HoverDelay: cfg.HoverDelay(),
		OnUpdate: func() {
			a.QueueUpdateDraw(a.renderList)
		},
	})

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(tview.NewFlex().
			AddItem(table, 0, 1, true).
			AddItem(content, 0, 1, false), 0, 1, true).
		AddItem(status, 1, 0, false)
	a.views["layout"] = layout

	a.bindKeys()
	a.bindQueryInput()
	a.SetRoot(layout, true)
	a.SetAfterDrawFunc(func(screen tcell.Screen) {
		_, _, _, h := table.GetInnerRect()
		a.controller.Virtualizer().SetViewport(h)
	})
	return a
}

// Run loads the first page and enters the event loop.
func (a *App) Run() error {
	go func() {
		if err := a.controller.Init(a.ctx); err != nil {
			a.errorHandler.HandleError(a.ctx, err, "Failed to load threads")
		}
	}()
	defer a.shutdown()
	return a.Application.Run()
}

func (a *App) shutdown() {
	a.cancel()
	a.controller.Teardown()
	if a.deps.Prefetcher != nil {
		a.deps.Prefetcher.Shutdown()
	}
	a.closeLogger()
}

// renderList redraws the visible window of the thread list. Runs on the UI
// goroutine.
func (a *App) renderList() {
	table, _ := a.views["table"].(*tview.Table)
	if table == nil {
		return
	}
	rows := a.controller.Cache().Snapshot()
	if a.cursor >= len(rows) {
		a.cursor = len(rows) - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}

	virt := a.controller.Virtualizer()
	a.window = virt.Window()
	if a.window.End > len(rows) {
		a.window.End = len(rows)
	}
	sel := a.controller.Selection()

	table.Clear()
	_, _, width, _ := table.GetInnerRect()
	senderW := width / 4
	dateW := 17
	titleW := width - senderW - dateW - 6
	if titleW < 10 {
		titleW = 10
	}

	for i := a.window.Start; i < a.window.End; i++ {
		t := rows[i]
		text := render.RowText(render.Row{
			Sender:  t.SenderName,
			Title:   t.Title,
			Date:    t.ReceivedOn,
			Unread:  t.Unread,
			Replies: t.TotalReplies,
		}, senderW, titleW, dateW)
		cell := tview.NewTableCell(text).SetExpansion(1)
		if t.HasTag("IMPORTANT") {
			cell.SetAttributes(tcell.AttrBold)
		}
		switch {
		case sel.BulkContains(t.ID):
			cell.SetTextColor(config.Color(a.theme.Colors.BulkSelected))
		case sel.Selected() == t.SelectionKey():
			cell.SetTextColor(config.Color(a.theme.Colors.Selected))
		case t.Unread:
			cell.SetTextColor(config.Color(a.theme.Colors.Unread))
		default:
			cell.SetTextColor(config.Color(a.theme.Colors.Read))
		}
		table.SetCell(i-a.window.Start, 0, cell)
		// Rows render on a single table line; feed that back so the
		// offset math stays exact.
		virt.Measure(i, list.RowHeightCompact)
	}
	if a.cursor >= a.window.Start && a.cursor < a.window.End {
		table.Select(a.cursor-a.window.Start, 0)
	}
	title := fmt.Sprintf(" %s (%d) ", a.folders[a.folderIdx], len(rows))
	table.SetTitle(title)
}

// moveCursor shifts the cursor, keeps it visible and re-arms hover prefetch.
func (a *App) moveCursor(delta int) {
	rows := a.controller.Cache().Snapshot()
	if len(rows) == 0 {
		return
	}
	next := a.cursor + delta
	if next < 0 {
		next = 0
	}
	if next >= len(rows) {
		next = len(rows) - 1
	}
	if next == a.cursor && delta != 0 {
		return
	}
	if a.hoverID != "" {
		a.controller.HoverLeave(a.hoverID)
	}
	a.cursor = next
	a.hoverID = rows[next].ID
	a.ensureCursorVisible()
	a.controller.HoverEnter(a.cursor)
	a.controller.Scrolled(a.ctx)
	a.renderList()
}

func (a *App) ensureCursorVisible() {
	virt := a.controller.Virtualizer()
	top := virt.OffsetOf(a.cursor)
	bottom := top + virt.HeightOf(a.cursor)
	viewTop := virt.ScrollTop()
	viewBottom := viewTop + virt.ViewportHeight()
	if top < viewTop {
		virt.ScrollTo(top)
	} else if bottom > viewBottom {
		virt.ScrollTo(bottom - virt.ViewportHeight())
	}
}

// clickCursor applies the active mode's click semantics to the cursor row.
func (a *App) clickCursor() {
	res := a.controller.ClickRow(a.ctx, a.cursor)
	if res.Opened != "" {
		a.openThread(res.Opened)
	}
	if res.Deselected {
		a.setContent("")
	}
	a.renderList()
}

// openThread shows the conversation in the reading pane, from the prefetch
// cache when warm, otherwise fetched on demand.
func (a *App) openThread(threadKey string) {
	identity := a.controller.Identity()
	if identity != nil && a.deps.Prefetcher != nil {
		if content, ok := a.deps.Prefetcher.CachedThread(a.ctx, identity.UserID, threadKey); ok {
			a.setContent(content)
			return
		}
	}
	go func() {
		userID, connID := "", ""
		if identity != nil {
			userID, connID = identity.UserID, identity.ConnectionID
		}
		detail, err := a.deps.Repo.FetchThreadDetail(a.ctx, userID, threadKey, connID)
		if err != nil {
			a.errorHandler.HandleError(a.ctx, err, "Failed to load thread")
			return
		}
		body := ""
		for i, b := range detail.Bodies {
			if i > 0 {
				body += "\n\n---\n\n"
			}
			body += b
		}
		a.QueueUpdateDraw(func() { a.setContent(detail.Subject + "\n\n" + body) })
	}()
}

func (a *App) setContent(text string) {
	if content, ok := a.views["content"].(*tview.TextView); ok {
		content.SetText(text)
		content.ScrollToBeginning()
	}
}

// cycleFolder switches to the next folder view.
func (a *App) cycleFolder() {
	a.folderIdx = (a.folderIdx + 1) % len(a.folders)
	folder := a.folders[a.folderIdx]
	a.cursor = 0
	a.hoverID = ""
	a.setContent("")
	go func() {
		if err := a.controller.SwitchView(a.ctx, folder, ""); err != nil {
			a.errorHandler.HandleError(a.ctx, err, fmt.Sprintf("Failed to load %s", folder))
		}
	}()
}

// bindQueryInput wires the search input; focusing it blurs selection modes
// like a window losing focus would.
func (a *App) bindQueryInput() {
	query, _ := a.views["query"].(*tview.InputField)
	if query == nil {
		return
	}
	query.SetDoneFunc(func(key tcell.Key) {
		text := query.GetText()
		a.SetRoot(a.views["layout"], true)
		a.SetFocus(a.views["table"])
		if key != tcell.KeyEnter {
			return
		}
		a.cursor = 0
		a.hoverID = ""
		go func() {
			if err := a.controller.SwitchView(a.ctx, a.folders[a.folderIdx], text); err != nil {
				a.errorHandler.HandleError(a.ctx, err, "Search failed")
			}
		}()
	})
}

func (a *App) focusQuery() {
	a.controller.Modes().Blur()
	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.views["layout"], 0, 1, false).
		AddItem(a.views["query"], 1, 0, true)
	a.SetRoot(layout, true)
	a.SetFocus(a.views["query"])
}
