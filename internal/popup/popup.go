// Package popup is the controller behind the extension popup: profile
// editing, fill and record controls, import and export, and the status
// lines.
package popup

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/autofill/internal/dispatch"
	"github.com/dmitrijs2005/autofill/internal/lifecycle"
	"github.com/dmitrijs2005/autofill/internal/logging"
	"github.com/dmitrijs2005/autofill/internal/messages"
	"github.com/dmitrijs2005/autofill/internal/models"
	"github.com/dmitrijs2005/autofill/internal/profiles"
	"github.com/dmitrijs2005/autofill/internal/record"
)

const (
	TextSaved           = "Profile saved!"
	TextDeleted         = "Profile deleted!"
	TextEnterName       = "Enter a profile name."
	TextEnterField      = "Enter at least one field."
	TextSelectToDelete  = "Select a profile to delete."
	TextSelectToFill    = "Select a profile to autofill."
	TextExported        = "Profiles exported!"
	TextImported        = "Profiles imported!"
	TextInvalidFile     = "Invalid file format."
	TextNoActiveTab     = "No active tab found."
	TextRecordOn        = "Record mode on."
	TextRecordOff       = "Record mode off."
	prefixSaveFailed    = "Failed to save profile: "
	prefixDeleteFailed  = "Failed to delete profile: "
	prefixLoadFailed    = "Failed to load profiles: "
	prefixProfileFailed = "Failed to load profile: "
	prefixExportFailed  = "Failed to export profiles: "
	prefixImportFailed  = "Failed to import profiles: "
)

// Tabs reports the focused tab.
type Tabs interface {
	ActiveTabID() (int, bool)
}

// Dispatcher is the part of dispatch.Dispatcher the popup drives.
type Dispatcher interface {
	Autofill(ctx context.Context, tabID int, profileKey, encryptionKey string) (dispatch.Outcome, error)
	CheckForms(ctx context.Context, tabID int) (string, error)
	Broadcast(ctx context.Context, tabID int, msg messages.Message) error
}

// Form is the profile editor.
type Form struct {
	Name       string
	Fields     models.FieldSet
	Passphrase string
}

type Controller struct {
	store      profiles.Store
	tabs       Tabs
	dispatcher Dispatcher
	runtime    record.Sender
	rt         lifecycle.Checker
	log        logging.Logger

	statusTTL time.Duration
	errorTTL  time.Duration

	Status     StatusLine
	FormStatus StatusLine

	mu       sync.Mutex
	names    []string
	selected string
	fields   models.FieldSet
	record   bool
}

func New(store profiles.Store, tabs Tabs, d Dispatcher, sender record.Sender, rt lifecycle.Checker, statusTTL, errorTTL time.Duration, log logging.Logger) *Controller {
	if log == nil {
		log = logging.Nop()
	}
	return &Controller{
		store:      store,
		tabs:       tabs,
		dispatcher: d,
		runtime:    sender,
		rt:         rt,
		log:        log,
		statusTTL:  statusTTL,
		errorTTL:   errorTTL,
	}
}

func (c *Controller) show(text string) string {
	c.Status.Show(text, c.statusTTL)
	return text
}

func (c *Controller) showErr(text string) string {
	c.Status.Show(text, c.errorTTL)
	return text
}

// Names returns the listed profiles.
func (c *Controller) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.names...)
}

// Selected returns the chosen profile and the fields shown for it.
func (c *Controller) Selected() (string, models.FieldSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected, c.fields
}

// Load lists the profiles, reselects the last used one when it still exists
// and asks the other contexts to refresh.
func (c *Controller) Load(ctx context.Context) error {
	if err := c.reload(ctx); err != nil {
		return err
	}
	if err := c.runtime.SendRuntime(ctx, messages.RefreshProfiles{}); err != nil {
		c.log.Debug(ctx, "refresh not delivered", "error", err)
	}
	return nil
}

func (c *Controller) reload(ctx context.Context) error {
	if err := lifecycle.Check(c.rt); err != nil {
		c.showErr(dispatch.TextContextInvalid)
		return err
	}

	names, err := c.store.Names(ctx)
	if err != nil {
		c.showErr(prefixLoadFailed + err.Error())
		return err
	}
	last, err := c.store.LastProfile(ctx)
	if err != nil {
		c.showErr(prefixLoadFailed + err.Error())
		return err
	}

	c.mu.Lock()
	c.names = names
	c.mu.Unlock()

	for _, n := range names {
		if n == last {
			_, err := c.Select(ctx, last)
			return err
		}
	}
	return nil
}

// Select makes name the current profile and stores it as last used. An
// empty name clears the editor. Encrypted profiles show no fields.
func (c *Controller) Select(ctx context.Context, name string) (models.FieldSet, error) {
	if err := lifecycle.Check(c.rt); err != nil {
		return models.FieldSet{}, err
	}
	if err := c.store.SetLastProfile(ctx, name); err != nil {
		c.showErr(prefixProfileFailed + err.Error())
		return models.FieldSet{}, err
	}

	var fields models.FieldSet
	if name != "" {
		rec, err := c.store.Get(ctx, name)
		switch {
		case errors.Is(err, profiles.ErrNoProfile):
		case err != nil:
			c.showErr(prefixProfileFailed + err.Error())
			return models.FieldSet{}, err
		case !rec.Encrypted():
			fields = *rec.Plain
		}
	}

	c.mu.Lock()
	c.selected, c.fields = name, fields
	c.mu.Unlock()
	return fields, nil
}

// Save stores the editor content. Values are trimmed, gender excepted.
func (c *Controller) Save(ctx context.Context, f Form) string {
	if !c.rt.Valid() {
		return c.show(dispatch.TextContextInvalid)
	}
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return c.show(TextEnterName)
	}

	var fields models.FieldSet
	for _, fld := range models.Fields {
		v := f.Fields.Get(fld)
		if fld != models.Gender {
			v = strings.TrimSpace(v)
		}
		fields.Set(fld, v)
	}
	if fields.IsEmpty() {
		return c.show(TextEnterField)
	}

	saved, err := c.store.Save(ctx, name, fields, strings.TrimSpace(f.Passphrase))
	if err != nil {
		return c.show(prefixSaveFailed + err.Error())
	}
	c.log.Info(ctx, "profile saved", "profile", saved, "encrypted", f.Passphrase != "")
	_ = c.Load(ctx)
	return c.show(TextSaved)
}

// Delete removes the selected profile.
func (c *Controller) Delete(ctx context.Context) string {
	if !c.rt.Valid() {
		return ""
	}
	name, _ := c.Selected()
	if name == "" {
		return c.show(TextSelectToDelete)
	}

	if err := c.store.Delete(ctx, name); err != nil {
		return c.show(prefixDeleteFailed + err.Error())
	}
	c.mu.Lock()
	c.selected, c.fields = "", models.FieldSet{}
	c.mu.Unlock()
	_ = c.Load(ctx)
	return c.show(TextDeleted)
}

// Fill autofills the active tab with the selected profile.
func (c *Controller) Fill(ctx context.Context, passphrase string) string {
	if !c.rt.Valid() {
		return c.show(dispatch.TextContextInvalid)
	}
	name, _ := c.Selected()
	if name == "" {
		return c.show(TextSelectToFill)
	}
	tabID, ok := c.tabs.ActiveTabID()
	if !ok {
		return c.show(TextNoActiveTab)
	}

	out, err := c.dispatcher.Autofill(ctx, tabID, name, strings.TrimSpace(passphrase))
	if err != nil {
		return c.show(dispatch.ErrorText(err))
	}
	text := c.show(out.Text())
	if out.IframeFilled() {
		text = c.show(dispatch.TextFilledInIframe)
	}
	return text
}

// SetRecordMode turns record mode on or off in every frame of the active tab.
func (c *Controller) SetRecordMode(ctx context.Context, enabled bool) string {
	if !c.rt.Valid() {
		return ""
	}
	tabID, ok := c.tabs.ActiveTabID()
	if !ok {
		return ""
	}
	if err := c.dispatcher.Broadcast(ctx, tabID, messages.ToggleRecordMode{Enabled: enabled}); err != nil {
		c.log.Info(ctx, "record mode error", "error", err)
		return ""
	}

	c.mu.Lock()
	c.record = enabled
	c.mu.Unlock()
	if enabled {
		return c.show(TextRecordOn)
	}
	return c.show(TextRecordOff)
}

func (c *Controller) RecordMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record
}

// Export writes the profile mapping as indented JSON.
func (c *Controller) Export(ctx context.Context, w io.Writer) string {
	if !c.rt.Valid() {
		return ""
	}
	if err := c.store.Export(ctx, w); err != nil {
		return c.show(prefixExportFailed + err.Error())
	}
	return c.show(TextExported)
}

// Import replaces the profile mapping with the JSON read from r.
func (c *Controller) Import(ctx context.Context, r io.Reader) string {
	if !c.rt.Valid() {
		return ""
	}
	n, err := c.store.Import(ctx, r)
	if errors.Is(err, profiles.ErrInvalidFile) {
		c.log.Info(ctx, "import rejected", "error", err)
		return c.show(TextInvalidFile)
	}
	if err != nil {
		return c.show(prefixImportFailed + err.Error())
	}
	c.log.Info(ctx, "profiles imported", "count", n)
	_ = c.Load(ctx)
	return c.show(TextImported)
}

// CheckForms reports on the form status line whether the active tab has a
// form. Detection results stay until the next check.
func (c *Controller) CheckForms(ctx context.Context) string {
	if !c.rt.Valid() {
		c.FormStatus.Show(dispatch.TextContextInvalid, c.statusTTL)
		return dispatch.TextContextInvalid
	}
	tabID, ok := c.tabs.ActiveTabID()
	if !ok {
		c.FormStatus.Show(TextNoActiveTab, c.statusTTL)
		return TextNoActiveTab
	}

	text, err := c.dispatcher.CheckForms(ctx, tabID)
	if err != nil {
		text = dispatch.ErrorText(err)
		c.FormStatus.Show(text, c.statusTTL)
		return text
	}
	c.FormStatus.Show(text, 0)
	return text
}

// HandleRuntime shows showError messages and relists on refreshProfiles.
func (c *Controller) HandleRuntime(ctx context.Context, msg messages.Message) {
	switch m := msg.(type) {
	case messages.ShowError:
		c.showErr(m.Message)
	case messages.RefreshProfiles:
		if err := c.reload(ctx); err != nil {
			c.log.Info(ctx, "relist failed", "error", err)
		}
	case messages.Autofill, messages.CheckForms, messages.ToggleRecordMode, messages.RecordData:
	}
}
