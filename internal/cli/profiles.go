package cli

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/autofill/internal/popup"
	"github.com/spf13/cobra"
)

func newProfilesCmd(get func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profiles",
		Aliases: []string{"profile"},
		Short:   "Manage saved profiles",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List profiles; * marks the last used one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			ctx := cmd.Context()
			m, err := a.store.Mapping(ctx)
			if err != nil {
				return err
			}
			if len(m) == 0 {
				a.println("No profiles saved.")
				return nil
			}
			last, err := a.store.LastProfile(ctx)
			if err != nil {
				return err
			}
			names, err := a.store.Names(ctx)
			if err != nil {
				return err
			}
			for _, n := range names {
				mark, kind := " ", ""
				if n == last {
					mark = "*"
				}
				if m[n].Encrypted() {
					kind = " (encrypted)"
				}
				a.println(fmt.Sprintf("%s %s%s", mark, n, kind))
			}
			return nil
		},
	})

	var showKey string
	var showAsk bool
	show := &cobra.Command{
		Use:   "show <name>",
		Short: "Print the fields of a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			pass, err := a.passphraseFor(ctx, args[0], showKey, showAsk)
			if err != nil {
				return err
			}
			fs, err := a.store.Resolve(ctx, args[0], pass)
			if err != nil {
				return err
			}
			for _, line := range FormatFields(fs) {
				a.println(line)
			}
			return nil
		},
	}
	show.Flags().StringVarP(&showKey, "key", "k", "", "encryption key of the profile")
	show.Flags().BoolVar(&showAsk, "ask-key", false, "prompt for the encryption key")
	cmd.AddCommand(show)

	var interactive, encrypt bool
	var key string
	save := &cobra.Command{
		Use:   "save [name] [field=value...]",
		Short: "Create or replace a profile",
		Long:  "Fields are given as field=value pairs, e.g. firstName=Ada email=ada@example.com, or edited in a form with -i.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()

			var name string
			if len(args) > 0 {
				name = args[0]
			}
			fs, err := ParseAssignments(args[min(1, len(args)):])
			if err != nil {
				return err
			}
			if interactive {
				if err := promptProfile(&name, &fs); err != nil {
					return err
				}
			}

			pass := key
			if encrypt && pass == "" {
				if pass, err = GetPassphrase(a.out, "Encryption key (empty for none): "); err != nil {
					return err
				}
			}

			text := a.popup.Save(ctx, popup.Form{Name: name, Fields: fs, Passphrase: pass})
			a.println(text)
			if text != popup.TextSaved {
				return errors.New(text)
			}
			return nil
		},
	}
	save.Flags().BoolVarP(&interactive, "interactive", "i", false, "edit the profile in a form")
	save.Flags().BoolVarP(&encrypt, "encrypt", "e", false, "prompt for an encryption key")
	save.Flags().StringVarP(&key, "key", "k", "", "encryption key")
	cmd.AddCommand(save)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			if _, err := a.popup.Select(ctx, args[0]); err != nil {
				return err
			}
			a.println(a.popup.Delete(ctx))
			return nil
		},
	})
	return cmd
}
