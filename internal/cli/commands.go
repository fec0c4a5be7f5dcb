package cli

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/logingate/internal/client"
)

// errorBanner は保護エンドポイントの呼び出しに失敗したときに表示する文言。
const errorBanner = "Error fetching data"

func newLoginCommand(opts *globalOptions) *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with Google",
		Long: `Open the auth provider's Google sign-in page in a browser and wait for the
redirect on a loopback address. The resulting session is cached locally.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.requireProvider(); err != nil {
				return err
			}
			c, _, err := opts.newClient()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(commandContext(cmd), wait)
			defer cancel()

			out := cmd.OutOrStdout()
			sess, err := c.Login(ctx, func(authURL string) error {
				fmt.Fprintf(out, "Opening browser to sign in. If it does not open, visit:\n  %s\n", authURL)
				if err := opts.openBrowser(authURL); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\n", err)
				}
				return nil
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Signed in as %s\n", sess.User.Email)
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 5*time.Minute, "How long to wait for the browser sign-in")
	return cmd
}

func newFetchCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "fetch",
		Aliases: []string{"home"},
		Short:   "Call the protected API with the cached session",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, store, err := opts.newClient()
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			sess, err := store.CurrentSession(ctx)
			if errors.Is(err, client.ErrNoSession) {
				return errors.New("ログインしていません。先に 'logingate login' を実行してください")
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", sess.User.Email)

			message, err := c.FetchProtected(ctx)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), errorBanner)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Response from protected API: %s\n", message)
			return nil
		},
	}
}

func newLogoutCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and delete the cached session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, err := opts.newClient()
			if err != nil {
				return err
			}
			if err := c.Logout(commandContext(cmd)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openBrowser はURLを既定のブラウザで開く。
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
