package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrijs2005/autofill/internal/background"
	"github.com/dmitrijs2005/autofill/internal/host"
	"github.com/dmitrijs2005/autofill/internal/relay"
	"github.com/spf13/cobra"
)

// passphraseFor returns key, or asks for one when ask is set or the profile
// is encrypted and no key was given.
func (a *App) passphraseFor(ctx context.Context, name, key string, ask bool) (string, error) {
	if key != "" {
		return key, nil
	}
	if !ask {
		rec, err := a.store.Get(ctx, name)
		if err != nil || !rec.Encrypted() {
			return "", nil
		}
	}
	return GetPassphrase(a.out, "Encryption key: ")
}

func newFillCmd(get func() *App) *cobra.Command {
	var profile, key string
	var ask, render bool

	cmd := &cobra.Command{
		Use:   "fill <url>",
		Short: "Open a page and fill it with a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			tab, err := a.open(ctx, args[0])
			if err != nil {
				return err
			}
			if profile != "" {
				if _, err := a.popup.Select(ctx, profile); err != nil {
					return err
				}
			} else if err := a.popup.Load(ctx); err != nil {
				return err
			}

			name, _ := a.popup.Selected()
			pass, err := a.passphraseFor(ctx, name, key, ask)
			if err != nil {
				return err
			}
			a.println(a.popup.Fill(ctx, pass))
			if render {
				return a.browser.Render(tab.ID, 0, a.out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&profile, "profile", "p", "", "profile to fill (defaults to the last used one)")
	cmd.Flags().StringVarP(&key, "key", "k", "", "encryption key of the profile")
	cmd.Flags().BoolVar(&ask, "ask-key", false, "prompt for the encryption key")
	cmd.Flags().BoolVar(&render, "render", false, "print the filled page")
	return cmd
}

func printReport(a *App, rep background.Report) {
	if rep.Profile != "" {
		a.println("Profile:", rep.Profile)
	}
	for _, m := range rep.Messages {
		a.println(m)
	}
}

func newShortcutCmd(get func() *App) *cobra.Command {
	var times int
	cmd := &cobra.Command{
		Use:   "shortcut <url>",
		Short: "Press the autofill keyboard shortcut on a page",
		Long:  "Each press fills the page with the profile after the last used one, wrapping around.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			if _, err := a.open(ctx, args[0]); err != nil {
				return err
			}
			for n := max(times, 1); n > 0; n-- {
				rep, err := a.background.OnCommand(ctx, background.CommandAutofill)
				if err != nil {
					return err
				}
				printReport(a, rep)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&times, "times", "n", 1, "number of presses")
	return cmd
}

func newMenuCmd(get func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Inspect and click the context menu",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List context menu items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			for _, it := range a.browser.Menus().Items() {
				indent := ""
				if it.ParentID != "" {
					indent = "  "
				}
				a.println(fmt.Sprintf("%s%s\t%s", indent, it.ID, it.Title))
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "click <item-id> <url>",
		Short: "Click a profile entry of the context menu on a page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			if _, ok := a.browser.Menus().Lookup(args[0]); !ok {
				return fmt.Errorf("no menu item %q", args[0])
			}
			tab, err := a.open(ctx, args[1])
			if err != nil {
				return err
			}
			rep, err := a.background.OnMenuClick(ctx, args[0], tab.ID)
			if err != nil {
				return err
			}
			printReport(a, rep)
			return nil
		},
	})
	return cmd
}

// setValues types selector=value pairs into the main frame of tab.
func setValues(tab *host.Tab, pairs []string) error {
	doc := tab.Main().Document()
	for _, p := range pairs {
		sel, v, ok := cutSelector(p)
		if !ok {
			return fmt.Errorf("expected selector=value, got %q", p)
		}
		el := doc.Query(sel)
		if el == nil {
			return fmt.Errorf("no element matches %q", sel)
		}
		switch el.InputType() {
		case "checkbox", "radio":
			el.SetChecked(v != "" && v != "false")
		default:
			el.SetValue(v)
		}
		el.Dispatch("input")
		el.Dispatch("change")
	}
	return nil
}

// cutSelector splits selector=value at the first '=' outside an attribute
// selector, so input[name=email]=x works.
func cutSelector(p string) (sel, value string, ok bool) {
	start := strings.LastIndex(p, "]") + 1
	i := strings.Index(p[start:], "=")
	if i < 0 {
		return "", "", false
	}
	return p[:start+i], p[start+i+1:], true
}

func newRecordCmd(get func() *App) *cobra.Command {
	var sets []string
	var form int

	cmd := &cobra.Command{
		Use:   "record <url>",
		Short: "Turn on record mode, type into a page and submit a form",
		Long:  "The submitted values are saved as a new recorded profile.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			tab, err := a.open(ctx, args[0])
			if err != nil {
				return err
			}
			before, err := a.store.Names(ctx)
			if err != nil {
				return err
			}

			if text := a.popup.SetRecordMode(ctx, true); text == "" {
				return errors.New("record mode could not be enabled")
			}
			if err := setValues(tab, sets); err != nil {
				return err
			}
			if err := a.browser.Submit(tab.ID, 0, form); err != nil {
				return err
			}

			after, err := a.store.Names(ctx)
			if err != nil {
				return err
			}
			for _, n := range after {
				if !slices.Contains(before, n) {
					a.println("Recorded:", n)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&sets, "set", "s", nil, "css-selector=value to type before submitting (repeatable)")
	cmd.Flags().IntVar(&form, "form", 0, "index of the form to submit")
	return cmd
}

func newCheckCmd(get func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check <url>",
		Short: "Report whether a page shows a form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if _, err := a.open(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.println(a.popup.CheckForms(cmd.Context()))
			return nil
		},
	}
}

func newExportCmd(get func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write all profiles as JSON (to stdout without a file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if len(args) == 0 || args[0] == "-" {
				return a.store.Export(cmd.Context(), a.out)
			}
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			text := a.popup.Export(cmd.Context(), f)
			if err := f.Close(); err != nil {
				return err
			}
			a.println(text)
			return nil
		},
	}
}

func newImportCmd(get func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all profiles with a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			a.println(a.popup.Import(cmd.Context(), in))
			return nil
		},
	}
}

func newServeCmd(get func() *App) *cobra.Command {
	var timeout = defaultRelayTimeout
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the websocket relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			return a.Serve(cmd.Context(), timeout)
		},
	}
	cmd.Flags().DurationVar(&timeout, "request-timeout", timeout, "how long to wait for a frame to answer")
	return cmd
}

func newAttachCmd(get func() *App) *cobra.Command {
	var relayURL string
	var tabID int
	cmd := &cobra.Command{
		Use:   "attach <url>",
		Short: "Open a page and serve its frames through a relay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			tab, err := a.open(ctx, args[0])
			if err != nil {
				return err
			}
			return a.Attach(ctx, relayURL, tabID, tab)
		},
	}
	cmd.Flags().StringVar(&relayURL, "relay", "http://127.0.0.1:8765", "relay base URL")
	cmd.Flags().IntVar(&tabID, "tab", 1, "tab id to register under")
	return cmd
}

// Attach connects every frame of tab to the relay and serves until ctx ends
// or a connection fails.
func (a *App) Attach(ctx context.Context, base string, tabID int, tab *host.Tab) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, len(tab.Frames()))
	for _, f := range tab.Frames() {
		agent := f.Agent()
		if agent == nil {
			continue
		}
		wg.Add(1)
		go func(frame int) {
			defer wg.Done()
			if err := relay.Attach(ctx, base, tabID, frame, agent, a.logger); err != nil {
				errs <- fmt.Errorf("frame %d: %w", frame, err)
				cancel()
			}
		}(f.ID)
	}
	a.logger.Info(ctx, "frames attached", "tab", tabID, "relay", base)

	wg.Wait()
	close(errs)
	return errors.Join(collect(errs)...)
}

func collect(errs <-chan error) []error {
	var out []error
	for err := range errs {
		out = append(out, err)
	}
	return out
}
