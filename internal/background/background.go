// Package background is the extension's background context: the keyboard
// command, the per-profile context menu and persistence of recorded forms.
package background

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/autofill/internal/dispatch"
	"github.com/dmitrijs2005/autofill/internal/host"
	"github.com/dmitrijs2005/autofill/internal/lifecycle"
	"github.com/dmitrijs2005/autofill/internal/logging"
	"github.com/dmitrijs2005/autofill/internal/messages"
	"github.com/dmitrijs2005/autofill/internal/profiles"
	"github.com/dmitrijs2005/autofill/internal/record"
)

const (
	CommandAutofill = "autofill"

	MenuRoot      = "autofill"
	MenuRootTitle = "AutoFill Form"
	MenuPrefix    = "autofill_"
)

const (
	TextNoProfiles  = "No profiles available. Please create a profile."
	TextNoActiveTab = "No active tab found."
)

var ErrUnknownCommand = errors.New("unknown command")

// Tabs reports the focused tab.
type Tabs interface {
	ActiveTabID() (int, bool)
}

// Menus is the context menu registry.
type Menus interface {
	RemoveAll()
	Create(item host.MenuItem) error
}

// Dispatcher fills the frames of a tab.
type Dispatcher interface {
	Autofill(ctx context.Context, tabID int, profileKey, encryptionKey string) (dispatch.Outcome, error)
}

// Report describes what a command or menu click did.
type Report struct {
	Profile  string
	Messages []string
}

type Service struct {
	store      profiles.Store
	tabs       Tabs
	menus      Menus
	dispatcher Dispatcher
	runtime    record.Sender
	rt         lifecycle.Checker
	log        logging.Logger

	now func() time.Time
}

func New(store profiles.Store, tabs Tabs, menus Menus, d Dispatcher, sender record.Sender, rt lifecycle.Checker, log logging.Logger) *Service {
	if log == nil {
		log = logging.Nop()
	}
	return &Service{
		store:      store,
		tabs:       tabs,
		menus:      menus,
		dispatcher: d,
		runtime:    sender,
		rt:         rt,
		log:        log,
		now:        time.Now,
	}
}

// Install runs on extension install and builds the context menu.
func (s *Service) Install(ctx context.Context) error {
	return s.RebuildMenu(ctx)
}

// RebuildMenu recreates the parent entry and one child per profile.
func (s *Service) RebuildMenu(ctx context.Context) error {
	if err := lifecycle.Check(s.rt); err != nil {
		s.log.Info(ctx, "skipping context menu update", "error", err)
		return err
	}

	names, err := s.store.Names(ctx)
	if err != nil {
		s.log.Error(ctx, "update context menu", "error", err)
		return err
	}

	s.menus.RemoveAll()
	if err := s.menus.Create(host.MenuItem{ID: MenuRoot, Title: MenuRootTitle}); err != nil {
		return err
	}
	for _, name := range names {
		item := host.MenuItem{ID: MenuPrefix + name, ParentID: MenuRoot, Title: "Fill with " + name}
		if err := s.menus.Create(item); err != nil {
			return err
		}
	}
	return nil
}

// NextProfile picks the profile after last in sorted order, wrapping, or
// the first one when last is empty or gone.
func NextProfile(names []string, last string) string {
	if len(names) == 0 {
		return ""
	}
	for i, n := range names {
		if n == last {
			return names[(i+1)%len(names)]
		}
	}
	return names[0]
}

// OnCommand handles a keyboard command. The cycling position lives in the
// stored last-used pointer, so concurrent invocations share no state.
func (s *Service) OnCommand(ctx context.Context, command string) (Report, error) {
	if command != CommandAutofill {
		return Report{}, ErrUnknownCommand
	}
	if err := lifecycle.Check(s.rt); err != nil {
		s.log.Info(ctx, "ignoring command", "command", command, "error", err)
		return Report{}, err
	}

	var rep Report
	names, err := s.store.Names(ctx)
	if err != nil {
		return rep, err
	}
	if len(names) == 0 {
		s.notify(ctx, &rep, TextNoProfiles)
		return rep, nil
	}

	last, err := s.store.LastProfile(ctx)
	if err != nil {
		return rep, err
	}
	rep.Profile = NextProfile(names, last)
	if err := s.store.SetLastProfile(ctx, rep.Profile); err != nil {
		return rep, err
	}
	s.log.Info(ctx, "keyboard shortcut autofill", "profile", rep.Profile)

	tabID, ok := s.tabs.ActiveTabID()
	if !ok {
		s.notify(ctx, &rep, TextNoActiveTab)
		return rep, nil
	}

	out, err := s.dispatcher.Autofill(ctx, tabID, rep.Profile, "")
	if err != nil {
		s.notify(ctx, &rep, dispatch.ErrorText(err))
		return rep, nil
	}
	if out.Main.Status == messages.StatusSuccess {
		s.notify(ctx, &rep, dispatch.TextFilled)
	} else {
		s.notify(ctx, &rep, failureText(out.Main.Status))
	}
	if out.IframeFilled() {
		s.notify(ctx, &rep, dispatch.TextFilledInIframe)
	}
	return rep, nil
}

// OnMenuClick fills the active tab with the profile of a menu item. The
// encryption key is always empty here.
func (s *Service) OnMenuClick(ctx context.Context, itemID string, tabID int) (Report, error) {
	if err := lifecycle.Check(s.rt); err != nil {
		s.log.Info(ctx, "ignoring context menu click", "error", err)
		return Report{}, err
	}
	name, ok := strings.CutPrefix(itemID, MenuPrefix)
	if !ok {
		return Report{}, nil
	}

	rep := Report{Profile: name}
	if err := s.store.SetLastProfile(ctx, name); err != nil {
		s.notify(ctx, &rep, "Failed to set profile: "+err.Error())
		return rep, err
	}
	s.log.Info(ctx, "context menu autofill", "profile", name)

	out, err := s.dispatcher.Autofill(ctx, tabID, name, "")
	if err != nil {
		s.notify(ctx, &rep, dispatch.ErrorText(err))
		return rep, nil
	}
	if out.Main.Status != messages.StatusSuccess {
		s.notify(ctx, &rep, failureText(out.Main.Status))
	}
	if out.IframeFilled() {
		s.notify(ctx, &rep, dispatch.TextFilledInIframe)
	}
	return rep, nil
}

func failureText(st messages.Status) string {
	switch st {
	case messages.StatusNoProfile:
		return dispatch.TextNoProfile
	case messages.StatusContextInvalidated:
		return dispatch.TextContextInvalid
	default:
		return dispatch.TextFailed
	}
}

// notify shows text on the popup status line. A closed popup is not an
// error.
func (s *Service) notify(ctx context.Context, rep *Report, text string) {
	rep.Messages = append(rep.Messages, text)
	if err := s.runtime.SendRuntime(ctx, messages.ShowError{Message: text}); err != nil {
		s.log.Debug(ctx, "status not shown", "text", text, "error", err)
	}
}

// HandleRuntime receives runtime messages from content agents and the popup.
func (s *Service) HandleRuntime(ctx context.Context, msg messages.Message) {
	switch m := msg.(type) {
	case messages.RecordData:
		s.saveRecorded(ctx, m)
	case messages.RefreshProfiles:
		_ = s.RebuildMenu(ctx)
	case messages.Autofill, messages.CheckForms, messages.ToggleRecordMode, messages.ShowError:
	}
}

func (s *Service) saveRecorded(ctx context.Context, m messages.RecordData) {
	if !s.rt.Valid() {
		return
	}
	name, err := s.store.Record(ctx, m.Details, s.now())
	if err != nil {
		s.log.Error(ctx, "error saving recorded profile", "error", err)
		return
	}
	s.log.Info(ctx, "recorded profile saved", "profile", name)

	_ = s.RebuildMenu(ctx)
	if err := s.runtime.SendRuntime(ctx, messages.RefreshProfiles{}); err != nil {
		s.log.Debug(ctx, "refresh not delivered", "error", err)
	}
}
