package tui

import (
	"github.com/derailed/tcell/v2"
)

// bindKeys installs the window-level key handler. Every event first feeds the
// modifier snapshot into the mode reducer, so the selection mode always
// reflects the keys held at the moment of the interaction.
func (a *App) bindKeys() {
	a.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		// Mode derivation from held modifiers: ctrl and meta are platform
		// equivalents for mass select, shift selects ranges, both together
		// select everything below the click.
		mods := event.Modifiers()
		a.controller.Modes().SetHeld(
			mods&tcell.ModCtrl != 0,
			mods&tcell.ModMeta != 0,
			mods&tcell.ModShift != 0,
		)

		// The query input owns its keys while focused.
		if a.GetFocus() == a.views["query"] {
			return event
		}

		switch event.Key() {
		case tcell.KeyUp:
			a.moveCursor(-1)
			return nil
		case tcell.KeyDown:
			a.moveCursor(1)
			return nil
		case tcell.KeyPgUp:
			a.moveCursor(-10)
			return nil
		case tcell.KeyPgDn:
			a.moveCursor(10)
			return nil
		case tcell.KeyHome:
			a.moveCursor(-1 << 30)
			return nil
		case tcell.KeyEnd:
			a.moveCursor(1 << 30)
			return nil
		case tcell.KeyEnter:
			a.clickCursor()
			return nil
		case tcell.KeyTab:
			a.cycleFolder()
			return nil
		case tcell.KeyEscape:
			a.controller.Selection().Clear()
			a.controller.Modes().Blur()
			a.renderList()
			return nil
		}

		switch string(event.Rune()) {
		case a.cfg.Keys.Quit:
			a.Stop()
			return nil
		case a.cfg.Keys.SelectAll:
			a.controller.ToggleSelectAll(a.ctx)
			a.renderList()
			return nil
		case a.cfg.Keys.MarkRead:
			a.controller.MarkSelectedRead(a.ctx)
			return nil
		case a.cfg.Keys.MarkUnread:
			a.controller.MarkSelectedUnread(a.ctx)
			return nil
		case "/":
			a.focusQuery()
			return nil
		case "?":
			a.errorHandler.ShowInfo(a.ctx,
				"↑/↓ move · Enter open/select · Tab folder · / search · a select-all · r/u read/unread")
			return nil
		}
		return event
	})
}
