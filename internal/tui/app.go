// Package tui is the terminal front end. It drives the engine through its
// command methods and redraws from engine snapshots whenever the bus reports
// a change.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatbox/internal/bus"
	"github.com/matheus3301/chatbox/internal/contacts"
	"github.com/matheus3301/chatbox/internal/conversation"
	"github.com/matheus3301/chatbox/internal/engine"
	"github.com/matheus3301/chatbox/internal/identity"
	"github.com/matheus3301/chatbox/internal/status"
	"github.com/matheus3301/chatbox/internal/transport"
	"github.com/matheus3301/chatbox/internal/tui/keys"
	"github.com/matheus3301/chatbox/internal/tui/model"
	"github.com/matheus3301/chatbox/internal/tui/ui"
	"github.com/matheus3301/chatbox/internal/tui/views"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

// Engine is what the UI needs from the chat engine.
type Engine interface {
	model.Source
	Register(ctx context.Context, raw string) error
	Unregister() error
	AddContact(ctx context.Context, raw string) (contacts.Contact, error)
	SelectContact(ctx context.Context, raw string) error
	SendActive(ctx context.Context, content string) (string, error)
	Retry(ctx context.Context, counterpart identity.Identity, messageID string) (string, error)
}

const (
	pageRegister = "register"
	pageMain     = "main"
	pageInfo     = "info"
	pageHelp     = "help"
)

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	pages    *tview.Pages
	root     *tview.Flex
	theme    *ui.Theme
	eng      Engine
	bus      *bus.Bus
	vm       *model.ViewModel
	flash    *ui.FlashModel
	registry *keys.Registry
	logger   *zap.Logger

	sessionInfo *ui.SessionInfo
	menu        *ui.Menu
	prompt      *ui.Prompt
	flashBar    *ui.FlashBar
	statusBar   *views.StatusBar
	register    *views.RegisterView
	contactList *views.ContactList
	addInput    *tview.InputField
	thread      *views.MessageThread
	info        *views.ContactInfo
	help        *views.HelpView

	focusRing   []tview.Primitive
	promptFocus tview.Primitive
	snap        model.Snapshot
	started     time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application. prefill is the identity shown in the
// registration form.
func NewApp(eng Engine, b *bus.Bus, prefill string, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:         tview.NewApplication(),
		pages:       tview.NewPages(),
		theme:       theme,
		eng:         eng,
		bus:         b,
		vm:          model.NewViewModel(eng),
		flash:       ui.NewFlashModel(),
		registry:    keys.NewRegistry(),
		logger:      logger.Named("tui"),
		sessionInfo: ui.NewSessionInfo(theme),
		menu:        ui.NewMenu(theme),
		prompt:      ui.NewPrompt(theme),
		flashBar:    ui.NewFlashBar(theme),
		statusBar:   views.NewStatusBar(theme),
		register:    views.NewRegisterView(theme, prefill),
		contactList: views.NewContactList(theme),
		addInput:    newAddInput(theme),
		thread:      views.NewMessageThread(theme),
		info:        views.NewContactInfo(theme),
		help:        views.NewHelpView(theme),
		started:     time.Now(),
		ctx:         ctx,
		cancel:      cancel,
	}

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func newAddInput(theme *ui.Theme) *tview.InputField {
	input := tview.NewInputField().
		SetLabel(" + ").
		SetFieldWidth(0).
		SetPlaceholder("mobile number, Enter to add")
	input.SetBorder(true)
	input.SetBorderColor(theme.BorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)
	input.SetTitle(" Add contact ")
	input.SetTitleColor(theme.TitleColor)
	return input
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: '?', Description: "Help", Visible: true,
		Handler: a.showHelp,
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: ':', Description: "Command", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptCommand) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'q', Description: "Quit", Visible: true,
		Handler: a.Stop,
	})

	a.registry.AddPage(pageMain, &keys.Action{
		Key: tcell.KeyTab, Display: "Tab", Description: "Focus", Visible: true,
		Handler: a.cycleFocus,
	})
	a.registry.AddPage(pageMain, &keys.Action{
		Key: tcell.KeyRune, Rune: 'r', Description: "Retry failed", Visible: true,
		Handler: a.retryLastFailed,
	})
	a.registry.AddPage(pageMain, &keys.Action{
		Key: tcell.KeyRune, Rune: '/', Description: "Filter", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptFilter) },
	})
	a.registry.AddPage(pageMain, &keys.Action{
		Key: tcell.KeyRune, Rune: 'd', Description: "Details", Visible: true,
		Handler: a.showInfo,
	})
	for n := 1; n <= 9; n++ {
		a.registry.AddPage(pageMain, &keys.Action{
			Key: tcell.KeyRune, Rune: rune('0' + n), Display: "1-9", Description: "Jump",
			Numeric: true, Visible: n == 1,
			Handler: func() {
				if id := a.contactList.ContactByIndex(n); id != "" {
					a.openContact(id)
				}
			},
		})
	}
}

func (a *App) setupCallbacks() {
	a.register.SetOnRegister(func(raw string) {
		a.register.ShowInfo("connecting as " + raw + "…")
		go func() {
			err := a.eng.Register(a.ctx, raw)
			if err == nil {
				return
			}
			a.logger.Warn("registration failed", zap.Error(err))
			a.app.QueueUpdateDraw(func() {
				a.register.ShowError(err.Error())
			})
		}()
	})
	a.register.SetOnQuit(a.Stop)

	a.contactList.SetSelectedFunc(func(row, _ int) {
		if id := a.contactList.ContactByIndex(row); id != "" {
			a.openContact(id)
		}
	})

	a.addInput.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			raw := a.addInput.GetText()
			if raw == "" {
				return
			}
			a.addContact(raw, func() { a.addInput.SetText("") })
		case tcell.KeyEscape:
			a.addInput.SetText("")
			a.app.SetFocus(a.contactList)
		}
	})

	a.thread.SetOnSend(a.sendFunc())

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptFilter:
			a.contactList.SetFilter(text)
		case ui.PromptCommand:
			a.runCommand(ParseCommand(text))
		}
	})
	a.prompt.SetOnCancel(a.hidePrompt)
}

func (a *App) sendFunc() func(text string) {
	return func(text string) {
		go func() {
			_, err := a.eng.SendActive(a.ctx, text)
			a.reportSendErr(err)
		}()
	}
}

// reportSendErr flashes send errors the engine does not announce itself.
// Write failures already arrive as notices.
func (a *App) reportSendErr(err error) {
	switch {
	case err == nil:
	case engine.IsUserError(err),
		errors.Is(err, transport.ErrClosed),
		errors.Is(err, engine.ErrNotFailed),
		errors.Is(err, conversation.ErrMessageNotFound):
		a.flashErr(err)
	default:
		a.logger.Debug("send failed", zap.Error(err))
	}
}

func (a *App) setupLayout() {
	header := tview.NewFlex().
		AddItem(a.sessionInfo, 40, 0, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(ui.NewLogo(a.theme), 26, 0, false)

	left := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.contactList, 0, 1, true).
		AddItem(a.addInput, 3, 0, false)

	mainPage := tview.NewFlex().
		AddItem(left, 0, 2, true).
		AddItem(a.thread, 0, 3, false)

	a.pages.AddPage(pageRegister, a.register, true, true)
	a.pages.AddPage(pageMain, mainPage, true, false)
	a.pages.AddPage(pageInfo, a.info, true, false)
	a.pages.AddPage(pageHelp, a.help, true, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 4, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.flashBar, 1, 0, false).
		AddItem(a.statusBar, 1, 0, false)

	a.focusRing = []tview.Primitive{a.contactList, a.addInput, a.thread.Messages(), a.thread.Composer()}

	a.app.SetRoot(a.root, true)
	a.app.SetFocus(a.register.Form())
	a.app.SetInputCapture(a.handleKey)
	a.updateMenu(pageRegister)
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	page, _ := a.pages.GetFrontPage()
	focused := a.app.GetFocus()

	if focused == a.prompt.InputField {
		return event
	}

	if event.Key() == tcell.KeyEscape {
		switch {
		case page == pageHelp || page == pageInfo:
			if a.snap.State == status.Registered {
				a.switchTo(pageMain)
				a.app.SetFocus(a.contactList)
			} else {
				a.switchTo(pageRegister)
				a.app.SetFocus(a.register.Form())
			}
			return nil
		case focused == a.thread.Composer():
			a.app.SetFocus(a.thread.Messages())
			return nil
		}
	}

	if page == pageMain && event.Key() == tcell.KeyTab {
		a.cycleFocus()
		return nil
	}

	// Text fields get every other key.
	if _, ok := focused.(*tview.InputField); ok {
		return event
	}

	if a.registry.HandleEvent(page, event) {
		return nil
	}
	return event
}

// Run starts the TUI and blocks until it exits.
func (a *App) Run() error {
	a.vm.Watch(a.ctx, a.bus, func(n bus.Notice) {
		a.flash.Notice(n)
		a.app.QueueUpdateDraw(func() { a.flashBar.Update(a.flash.Current()) })
	})
	go a.refreshLoop()
	a.app.QueueUpdateDraw(a.refresh)
	defer a.cancel()
	return a.app.Run()
}

func (a *App) refreshLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-a.vm.RefreshCh():
			a.app.QueueUpdateDraw(a.refresh)
		case <-ticker.C:
			a.app.QueueUpdateDraw(func() {
				a.flashBar.Update(a.flash.Current())
				a.statusBar.Tick()
				a.updateSessionInfo()
			})
		case <-a.ctx.Done():
			return
		}
	}
}

// refresh redraws everything from a fresh snapshot. Runs on the UI goroutine.
func (a *App) refresh() {
	prev := a.snap
	a.snap = a.vm.Snapshot()
	s := a.snap

	a.contactList.Update(s.Contacts)
	a.thread.Update(s.Active, s.Thread)
	a.statusBar.Update(string(s.Local), s.State, s.Pending)
	a.updateSessionInfo()
	a.flashBar.Update(a.flash.Current())

	if row, ok := s.ActiveRow(); ok {
		a.info.Update(row)
	}

	page, _ := a.pages.GetFrontPage()
	switch {
	case s.State == status.Registered && page == pageRegister:
		a.switchTo(pageMain)
		a.app.SetFocus(a.contactList)
	case s.State == status.Unregistered && prev.State == status.Registered:
		a.hidePrompt()
		a.switchTo(pageRegister)
		a.register.ShowError("disconnected from relay")
		a.app.SetFocus(a.register.Form())
	}
}

func (a *App) updateSessionInfo() {
	a.sessionInfo.Update(ui.SessionData{
		Identity:      string(a.snap.Local),
		State:         string(a.snap.State),
		Contacts:      len(a.eng.Contacts()),
		Conversations: len(a.snap.Contacts),
		Pending:       a.snap.Pending,
		Uptime:        time.Since(a.started),
	})
}

func (a *App) switchTo(page string) {
	a.pages.SwitchToPage(page)
	a.updateMenu(page)
}

func (a *App) updateMenu(page string) {
	var hints []ui.MenuHint
	switch page {
	case pageRegister:
		hints = a.register.Hints()
	case pageInfo:
		hints = a.info.Hints()
	case pageHelp:
		hints = a.help.Hints()
	case pageMain:
		hints = a.contactList.Hints()
	}
	a.menu.Update(append(hints, a.registry.Hints(page)...))
}

func (a *App) cycleFocus() {
	focused := a.app.GetFocus()
	next := a.focusRing[0]
	for i, p := range a.focusRing {
		if p == focused {
			next = a.focusRing[(i+1)%len(a.focusRing)]
			break
		}
	}
	a.app.SetFocus(next)
}

func (a *App) showPrompt(mode ui.PromptMode) {
	a.promptFocus = a.app.GetFocus()
	a.prompt.Activate(mode)
	if mode == ui.PromptFilter {
		a.prompt.SetText(a.contactList.Filter())
	}
	a.root.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.root.ResizeItem(a.prompt, 0, 0)
	if a.promptFocus != nil {
		a.app.SetFocus(a.promptFocus)
		a.promptFocus = nil
	}
}

func (a *App) showHelp() {
	a.switchTo(pageHelp)
	a.app.SetFocus(a.help)
}

func (a *App) showInfo() {
	id := a.contactList.SelectedContact()
	if id == "" {
		return
	}
	if row, ok := a.contactList.RowFor(id); ok {
		a.info.Update(row)
	}
	a.switchTo(pageInfo)
	a.app.SetFocus(a.info)
}

// openContact selects id and loads its history in the background.
func (a *App) openContact(id identity.Identity) {
	a.app.SetFocus(a.thread.Composer())
	go func() {
		err := a.eng.SelectContact(a.ctx, string(id))
		switch {
		case err == nil, errors.Is(err, engine.ErrSelectionSuperseded):
		case errors.Is(err, contacts.ErrDirectoryUnavailable):
			// The engine posts its own notice.
		default:
			a.flashErr(err)
		}
	}()
}

func (a *App) addContact(raw string, onSuccess func()) {
	go func() {
		ct, err := a.eng.AddContact(a.ctx, raw)
		if err != nil {
			a.flashErr(err)
			return
		}
		a.flash.Info(fmt.Sprintf("added %s", ct.Identity))
		a.app.QueueUpdateDraw(func() {
			if onSuccess != nil {
				onSuccess()
			}
			a.flashBar.Update(a.flash.Current())
		})
	}()
}

func (a *App) retryLastFailed() {
	failed, ok := a.snap.LastFailed()
	if !ok {
		a.flash.Warn("nothing to retry")
		a.flashBar.Update(a.flash.Current())
		return
	}
	counterpart := a.snap.Active
	go func() {
		_, err := a.eng.Retry(a.ctx, counterpart, failed.ID)
		a.reportSendErr(err)
	}()
}

func (a *App) runCommand(cmd Command) {
	if err := cmd.Validate(); err != nil {
		a.flash.Err(err)
		a.flashBar.Update(a.flash.Current())
		return
	}
	switch cmd.Name {
	case "add":
		a.addContact(cmd.Args, nil)
	case "open":
		a.openContact(identity.Identity(cmd.Args))
	case "retry":
		a.retryLastFailed()
	case "logout":
		if err := a.eng.Unregister(); err != nil {
			a.flash.Err(err)
		}
	case "help":
		a.showHelp()
	case "quit":
		a.Stop()
	}
}

// flashErr shows err from any goroutine.
func (a *App) flashErr(err error) {
	a.logger.Debug("user-facing error", zap.Error(err))
	a.flash.Err(err)
	a.app.QueueUpdateDraw(func() { a.flashBar.Update(a.flash.Current()) })
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
