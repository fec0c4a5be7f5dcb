package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nao1215/logingate/internal/client"
)

// Version はビルド時にldflagsで設定する。
var Version = "dev"

// globalOptions はすべてのサブコマンドに共通のフラグ。
type globalOptions struct {
	apiURL      string
	providerURL string
	anonKey     string
	sessionFile string
	timeout     time.Duration
	verbose     bool

	// openBrowser は認可URLを開く。テストで差し替える。
	openBrowser func(url string) error
}

// NewRootCommand はlogingateコマンドを生成する。
func NewRootCommand() *cobra.Command {
	// .envが無いのは通常の状態。
	_ = godotenv.Load()
	return newRootCommand(&globalOptions{openBrowser: openBrowser})
}

func newRootCommand(opts *globalOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "logingate",
		Short: "Sign in with Google and call the protected API",
		Long: `logingate signs in through the hosted auth provider's Google OAuth flow,
caches the session locally and calls the protected API endpoint with the
cached access token.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}
	root.SetVersionTemplate("logingate version {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api-url", envOr("API_URL", client.DefaultAPIURL), "API server base URL")
	flags.StringVar(&opts.providerURL, "supabase-url", os.Getenv("SUPABASE_URL"), "Auth provider base URL")
	flags.StringVar(&opts.anonKey, "anon-key", os.Getenv("SUPABASE_ANON_KEY"), "Auth provider anon key")
	flags.StringVar(&opts.sessionFile, "session-file", "", "Session cache file (default: <user config dir>/logingate/session.json)")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Timeout for each HTTP request")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newLoginCommand(opts))
	root.AddCommand(newFetchCommand(opts))
	root.AddCommand(newLogoutCommand(opts))
	return root
}

// newClient はフラグからクライアントとセッションキャッシュを生成する。
func (o *globalOptions) newClient() (*client.Client, *client.FileSessionStore, error) {
	path := o.sessionFile
	if path == "" {
		p, err := client.DefaultSessionPath()
		if err != nil {
			return nil, nil, err
		}
		path = p
	}
	store := client.NewFileSessionStore(path)

	logger := zap.NewNop()
	if o.verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, nil, fmt.Errorf("ロガーの初期化に失敗: %w", err)
		}
		logger = l
	}

	c, err := client.New(client.Config{
		APIURL:      o.apiURL,
		ProviderURL: o.providerURL,
		AnonKey:     o.anonKey,
		Timeout:     o.timeout,
	}, store, client.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return c, store, nil
}

// requireProvider はプロバイダの設定が揃っているか検証する。
func (o *globalOptions) requireProvider() error {
	var errs []error
	if o.providerURL == "" {
		errs = append(errs, errors.New("--supabase-url（SUPABASE_URL）が指定されていません"))
	}
	if o.anonKey == "" {
		errs = append(errs, errors.New("--anon-key（SUPABASE_ANON_KEY）が指定されていません"))
	}
	return errors.Join(errs...)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
