// Package tui renders one chat room in the terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog"

	"chat-client/internal/chat"
	"chat-client/internal/models"
	"chat-client/internal/realtime"
)

var (
	colorBg        = tcell.NewRGBColor(0, 0, 128)
	colorFg        = tcell.ColorWhite
	colorBorder    = tcell.ColorAqua
	colorTitle     = tcell.ColorYellow
	colorHighlight = tcell.ColorLightCyan
)

const (
	helpText = " Enter:Send | F10:Leave room | Esc:Quit "
	pageMain = "main"
	pageDlg  = "dialog"
)

// App is the chat room screen.
type App struct {
	app    *tview.Application
	pages  *tview.Pages
	ctrl   *chat.Controller
	self   func() int64
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	chatView *tview.TextView
	input    *tview.InputField
	status   *tview.TextView
}

// NewApp builds the screen. self reports the signed-in member id for message alignment.
func NewApp(ctrl *chat.Controller, self func() int64, logger zerolog.Logger) *App {
	return &App{ctrl: ctrl, self: self, log: logger}
}

// Run activates room and blocks until the user quits or leaves.
func (a *App) Run(ctx context.Context, room models.RoomRef) error {
	a.ctx, a.cancel = context.WithCancel(ctx)
	defer a.cancel()

	a.app = tview.NewApplication()
	a.pages = tview.NewPages()
	a.pages.AddPage(pageMain, a.layout(room), true, true)

	a.ctrl.SetListener(func(msgs []models.ChatMessage) {
		a.app.QueueUpdateDraw(func() { a.render(msgs) })
	})

	go func() {
		if err := a.ctrl.Activate(a.ctx, room); err != nil {
			a.log.Error().Err(err).Str("room", room.String()).Msg("activate room failed")
			a.setStatus(fmt.Sprintf(" Failed to open room: %v ", err))
			return
		}
		if a.ctrl.ReadOnly() {
			a.setStatus(" Read-only: sign in to send messages | Esc:Quit ")
		}
	}()

	go func() {
		<-a.ctx.Done()
		a.app.QueueUpdate(a.app.Stop)
	}()

	err := a.app.SetRoot(a.pages, true).EnableMouse(false).Run()
	a.ctrl.SetListener(nil)
	a.ctrl.Deactivate()
	return err
}

func (a *App) layout(room models.RoomRef) tview.Primitive {
	a.chatView = tview.NewTextView()
	a.chatView.SetBorder(true)
	a.chatView.SetBorderColor(colorBorder)
	a.chatView.SetBackgroundColor(colorBg)
	a.chatView.SetTitle(fmt.Sprintf(" Chat Room #%d (%s) ", room.RoomID, room.RoomType))
	a.chatView.SetTitleColor(colorTitle)
	a.chatView.SetTextColor(colorFg)
	a.chatView.SetDynamicColors(true)
	a.chatView.SetScrollable(true)

	a.input = tview.NewInputField()
	a.input.SetLabel("> ")
	a.input.SetFieldWidth(0)
	a.input.SetBackgroundColor(colorBg)
	a.input.SetFieldBackgroundColor(tcell.NewRGBColor(0, 0, 64))
	a.input.SetFieldTextColor(colorFg)
	a.input.SetLabelColor(colorHighlight)
	a.input.SetBorder(true)
	a.input.SetBorderColor(colorBorder)
	a.input.SetTitle(" Message ")
	a.input.SetTitleColor(colorTitle)
	a.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		a.send(a.input.GetText())
	})

	a.status = tview.NewTextView()
	a.status.SetBackgroundColor(tcell.NewRGBColor(0, 128, 128))
	a.status.SetTextColor(colorTitle)
	a.status.SetTextAlign(tview.AlignCenter)
	a.status.SetText(helpText)

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.chatView, 0, 1, false).
		AddItem(a.input, 3, 0, true).
		AddItem(a.status, 1, 0, false)

	flex.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEsc:
			a.cancel()
			return nil
		case tcell.KeyF10:
			go a.leave()
			return nil
		}
		return event
	})
	return flex
}

func (a *App) send(text string) {
	err := a.ctrl.SendMessage(text)
	switch {
	case err == nil:
		a.input.SetText("")
		a.status.SetText(helpText)
	case errors.Is(err, models.ErrValidation):
		// empty input or read-only room
	case errors.Is(err, realtime.ErrChannelNotReady):
		a.status.SetText(" Not connected. Reopen the room to reconnect. ")
	default:
		a.status.SetText(fmt.Sprintf(" Send failed: %v ", err))
	}
}

func (a *App) leave() {
	left, err := a.ctrl.LeaveRoom(a.ctx, a)
	if err != nil {
		a.log.Warn().Err(err).Msg("leave room failed")
		a.setStatus(fmt.Sprintf(" Leave failed: %v ", err))
		return
	}
	if left {
		a.cancel()
	}
}

// Confirm shows a modal and blocks until the user answers. It must not run on the UI goroutine.
func (a *App) Confirm(ctx context.Context, prompt string) bool {
	answer := make(chan bool, 1)
	a.app.QueueUpdateDraw(func() {
		modal := tview.NewModal()
		modal.SetText(prompt)
		modal.SetBackgroundColor(colorBg)
		modal.SetTextColor(colorFg)
		modal.SetButtonBackgroundColor(tcell.NewRGBColor(0, 128, 128))
		modal.SetButtonTextColor(colorTitle)
		modal.AddButtons([]string{"Leave", "Cancel"})
		modal.SetDoneFunc(func(_ int, label string) {
			a.pages.RemovePage(pageDlg)
			a.app.SetFocus(a.input)
			answer <- label == "Leave"
		})
		a.pages.AddPage(pageDlg, modal, true, true)
	})

	select {
	case ok := <-answer:
		return ok
	case <-ctx.Done():
		return false
	}
}

func (a *App) setStatus(text string) {
	a.app.QueueUpdateDraw(func() { a.status.SetText(text) })
}

func (a *App) render(msgs []models.ChatMessage) {
	var b strings.Builder
	self := a.self()
	for _, m := range msgs {
		b.WriteString(FormatMessage(m, self))
		b.WriteByte('\n')
	}
	a.chatView.SetText(b.String())
	a.chatView.ScrollToEnd()
}

// FormatMessage renders one line; own messages are highlighted.
func FormatMessage(m models.ChatMessage, self int64) string {
	ts := ""
	if !m.CreatedAt.IsZero() {
		ts = m.CreatedAt.Local().Format("15:04") + " "
	}
	content := tview.Escape(m.Content)
	if self != 0 && m.SenderID == self {
		return fmt.Sprintf("[gray]%s[green]me:[-] %s", ts, content)
	}
	return fmt.Sprintf("[gray]%s[aqua]#%d:[-] %s", ts, m.SenderID, content)
}
