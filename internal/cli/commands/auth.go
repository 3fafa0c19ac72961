package commands

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/goliatone/go-iacgen/internal/cli/ui"
	"github.com/goliatone/go-iacgen/pkg/session"
)

var errAuthNotConfigured = errors.New("no identity provider configured (set auth.client_id, auth.device_url and auth.token_url)")

func newLoginCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in with the configured identity provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.cfg.Auth.Enabled() {
				return errAuthNotConfigured
			}
			out := cmd.OutOrStdout()
			sess, err := a.sessions().SignIn(cmd.Context(), func(auth *oauth2.DeviceAuthResponse) {
				code := color.New(color.FgYellow, color.Bold)
				if a.noColor {
					code.DisableColor()
				}
				target := auth.VerificationURIComplete
				if target == "" {
					target = auth.VerificationURI
				}
				fmt.Fprintf(out, "Open %s and enter the code %s\n", target, code.Sprint(auth.UserCode))
				fmt.Fprintln(out, "Waiting for approval...")
			})
			if err != nil {
				return err
			}
			ui.WriteSuccess(out, "Signed in as "+sess.User.Display(), a.noColor)
			return nil
		},
	}
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.sessions().SignOut(cmd.Context()); err != nil {
				return err
			}
			ui.WriteSuccess(cmd.OutOrStdout(), "Signed out", a.noColor)
			return nil
		},
	}
}

func newWhoamiCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.sessions().Init(cmd.Context())
			if errors.Is(err, session.ErrUnauthenticated) {
				return fmt.Errorf("%w; run `iacgen login` first", err)
			}
			if err != nil {
				return err
			}
			pairs := [][2]string{{"User", sess.User.Display()}, {"Subject", sess.User.Subject}}
			if !sess.Token.Expiry.IsZero() {
				pairs = append(pairs, [2]string{"Expires", sess.Token.Expiry.Local().Format("2006-01-02 15:04")})
			}
			ui.KeyValue(cmd.OutOrStdout(), a.noColor, pairs...)
			return nil
		},
	}
}
