package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/autofill/internal/background"
	"github.com/dmitrijs2005/autofill/internal/popup"
	"github.com/spf13/cobra"
)

const replHelp = `Available commands:
  open <url>               open a page in a new tab
  tabs                     list tabs (* is active)
  use <tab>                activate a tab
  list                     list profiles
  select <name>            select a profile
  show                     show the selected profile
  save <name> [f=v...]     save a profile (no fields opens a form)
  delete                   delete the selected profile
  fill                     fill the active tab with the selected profile
  record on|off            toggle record mode
  type <selector>=<value>  type into the active tab
  submit [form]            submit a form of the active tab
  check                    detect forms on the active tab
  shortcut                 press the autofill keyboard shortcut
  menu                     list context menu items
  click <item-id>          click a context menu item
  export <file>            export profiles
  import <file>            import profiles
  render                   print the active tab
  exit | quit              leave`

var errNoActiveTab = errors.New(popup.TextNoActiveTab)

func newPopupCmd(get func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "popup [url]",
		Short: "Interactive popup session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			if len(args) == 1 {
				if _, err := a.open(ctx, args[0]); err != nil {
					return err
				}
			}
			if err := a.popup.Load(ctx); err != nil {
				return err
			}
			a.println("Welcome to autofill (type 'help' for commands)")
			a.runREPL(ctx, bufio.NewScanner(cmd.InOrStdin()))
			return nil
		},
	}
}

func (a *App) prompt() string {
	var parts []string
	if name, _ := a.popup.Selected(); name != "" {
		parts = append(parts, name)
	}
	if a.popup.RecordMode() {
		parts = append(parts, "rec")
	}
	if s := a.popup.Status.Text(); s != "" {
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return "af> "
	}
	return fmt.Sprintf("af (%s)> ", strings.Join(parts, " | "))
}

// runREPL reads commands line by line until EOF, exit or quit. Command
// errors are printed and never end the loop.
func (a *App) runREPL(ctx context.Context, scanner *bufio.Scanner) {
	for {
		fmt.Fprint(a.out, a.prompt())
		if !scanner.Scan() {
			a.println()
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		if parts[0] == "exit" || parts[0] == "quit" {
			a.println("Bye!")
			return
		}
		if err := a.exec(ctx, parts[0], parts[1:]); err != nil {
			a.println("Error:", err)
		}
	}
}

func (a *App) exec(ctx context.Context, cmd string, args []string) error {
	p := a.popup

	switch cmd {
	case "help":
		a.println(replHelp)

	case "open":
		if len(args) != 1 {
			return fmt.Errorf("usage: open <url>")
		}
		tab, err := a.open(ctx, args[0])
		if err != nil {
			return err
		}
		a.println(fmt.Sprintf("Tab %d: %d frame(s)", tab.ID, len(tab.Frames())))

	case "tabs":
		active, _ := a.browser.ActiveTabID()
		for _, id := range a.browser.Tabs() {
			mark := " "
			if id == active {
				mark = "*"
			}
			tab, err := a.browser.Tab(id)
			if err != nil {
				continue
			}
			a.println(fmt.Sprintf("%s %d %s", mark, id, tab.Main().URL))
		}

	case "use":
		if len(args) != 1 {
			return fmt.Errorf("usage: use <tab>")
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		return a.browser.Activate(id)

	case "l", "list":
		for _, n := range p.Names() {
			a.println(n)
		}

	case "select":
		name := strings.Join(args, " ")
		fs, err := p.Select(ctx, name)
		if err != nil {
			return err
		}
		for _, line := range FormatFields(fs) {
			a.println(line)
		}

	case "show":
		_, fs := p.Selected()
		for _, line := range FormatFields(fs) {
			a.println(line)
		}

	case "save":
		var name string
		if len(args) > 0 {
			name = args[0]
		}
		fs, err := ParseAssignments(args[min(1, len(args)):])
		if err != nil {
			return err
		}
		if len(args) < 2 {
			if err := promptProfile(&name, &fs); err != nil {
				return err
			}
		}
		pass, err := GetPassphrase(a.out, "Encryption key (empty for none): ")
		if err != nil {
			return err
		}
		a.println(p.Save(ctx, popup.Form{Name: name, Fields: fs, Passphrase: pass}))

	case "delete":
		a.println(p.Delete(ctx))

	case "fill":
		name, _ := p.Selected()
		pass, err := a.passphraseFor(ctx, name, "", false)
		if err != nil {
			return err
		}
		a.println(p.Fill(ctx, pass))

	case "record":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			return fmt.Errorf("usage: record on|off")
		}
		if text := p.SetRecordMode(ctx, args[0] == "on"); text != "" {
			a.println(text)
		}

	case "type":
		tab, ok := a.browser.ActiveTab()
		if !ok {
			return errNoActiveTab
		}
		return setValues(tab, args)

	case "submit":
		tabID, ok := a.browser.ActiveTabID()
		if !ok {
			return errNoActiveTab
		}
		n := 0
		if len(args) == 1 {
			var err error
			if n, err = strconv.Atoi(args[0]); err != nil {
				return err
			}
		}
		return a.browser.Submit(tabID, 0, n)

	case "check":
		a.println(p.CheckForms(ctx))

	case "shortcut":
		rep, err := a.background.OnCommand(ctx, background.CommandAutofill)
		if err != nil {
			return err
		}
		printReport(a, rep)
		_, _ = p.Select(ctx, rep.Profile)

	case "menu":
		for _, it := range a.browser.Menus().Items() {
			a.println(fmt.Sprintf("%s\t%s", it.ID, it.Title))
		}

	case "click":
		if len(args) != 1 {
			return fmt.Errorf("usage: click <item-id>")
		}
		tabID, ok := a.browser.ActiveTabID()
		if !ok {
			return errNoActiveTab
		}
		rep, err := a.background.OnMenuClick(ctx, args[0], tabID)
		if err != nil {
			return err
		}
		printReport(a, rep)

	case "export":
		if len(args) != 1 {
			return fmt.Errorf("usage: export <file>")
		}
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		text := p.Export(ctx, f)
		if err := f.Close(); err != nil {
			return err
		}
		a.println(text)

	case "import":
		if len(args) != 1 {
			return fmt.Errorf("usage: import <file>")
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		a.println(p.Import(ctx, f))

	case "render":
		tabID, ok := a.browser.ActiveTabID()
		if !ok {
			return errNoActiveTab
		}
		if err := a.browser.Render(tabID, 0, a.out); err != nil {
			return err
		}
		a.println()

	default:
		a.println("Unknown command:", cmd)
	}
	return nil
}
