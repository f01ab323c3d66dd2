package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/teemow/meetingbooker/internal/google"
	"github.com/teemow/meetingbooker/internal/mail"
)

var authEnvBindings = []envBinding{
	{"google-client-id", []string{"G_CLIENT_ID", "GOOGLE_CLIENT_ID"}},
	{"google-client-secret", []string{"G_CLIENT_SECRET", "GOOGLE_CLIENT_SECRET"}},
	{"google-redirect-uri", []string{"G_REDIRECT_URI"}},
	{"token-file", []string{"TOKEN_FILE"}},
	{"mail-transport", []string{"MAIL_TRANSPORT"}},
}

// authOptions configures the interactive authorization.
type authOptions struct {
	client        google.ClientConfig
	tokenFile     string
	mailTransport string
	printTokens   bool
	timeout       time.Duration
}

func newAuthCmd() *cobra.Command {
	var opts authOptions

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize the service identity with Google",
		Long: `Run the OAuth consent flow for the Google account that owns the calendar.

The command prints the consent URL, reads the authorization code from stdin and
stores the resulting token pair in the token file used by serve, schedule and mcp.
Calendar scopes are always requested; the Gmail send scope is added when
--mail-transport is gmail.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyEnv(cmd, authEnvBindings); err != nil {
				return err
			}
			opts.client.Scopes = google.Scopes(opts.mailTransport == mail.TransportGmail)
			if err := opts.client.Validate(); err != nil {
				return fmt.Errorf("invalid configuration:\n%w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			return runAuth(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.client.ClientID, "google-client-id", "", "Google OAuth client ID. Can also use G_CLIENT_ID env var.")
	cmd.Flags().StringVar(&opts.client.ClientSecret, "google-client-secret", "", "Google OAuth client secret. Can also use G_CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&opts.client.RedirectURL, "google-redirect-uri", "", "OAuth redirect URI registered for the client. Can also use G_REDIRECT_URI env var.")
	cmd.Flags().StringVar(&opts.tokenFile, "token-file", google.DefaultTokenFile(), "File receiving the token pair. Can also use TOKEN_FILE env var.")
	cmd.Flags().StringVar(&opts.mailTransport, "mail-transport", mail.TransportSMTP, "Mail transport the token will be used with. Can also use MAIL_TRANSPORT env var.")
	cmd.Flags().BoolVar(&opts.printTokens, "print-tokens", false, "Also print the tokens as G_ACCESS_TOKEN and G_REFRESH_TOKEN assignments")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Minute, "Time allowed to complete the consent flow")

	return cmd
}

func runAuth(ctx context.Context, in io.Reader, out io.Writer, opts authOptions) error {
	conf := opts.client.OAuthConfig()

	fmt.Fprintln(out, "Authorize this app by visiting this URL:")
	fmt.Fprintln(out, google.AuthURL(conf, uuid.NewString()))
	fmt.Fprintln(out)
	fmt.Fprint(out, "Enter the code from that page here: ")

	code, err := readCode(in)
	if err != nil {
		return err
	}

	tok, err := google.Exchange(ctx, conf, code)
	if err != nil {
		return err
	}
	if tok.RefreshToken == "" {
		fmt.Fprintln(out, "Warning: Google returned no refresh token; the authorization expires with the access token.")
	}

	store := google.NewFileTokenStore(opts.tokenFile)
	if err := store.Save(tok); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	fmt.Fprintf(out, "Token saved to %s\n", store.Path)

	if opts.printTokens {
		printTokens(out, tok)
	}
	return nil
}

// readCode reads one line and accepts either the bare code or the full
// redirect URL containing it.
func readCode(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read authorization code: %w", err)
	}
	code := strings.TrimSpace(line)
	if strings.Contains(code, "code=") {
		if u, err := url.Parse(code); err == nil && u.Query().Get("code") != "" {
			code = u.Query().Get("code")
		}
	}
	if code == "" {
		return "", errors.New("authorization code is required")
	}
	return code, nil
}

func printTokens(out io.Writer, tok *oauth2.Token) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "G_ACCESS_TOKEN=%s\n", tok.AccessToken)
	if tok.RefreshToken != "" {
		fmt.Fprintf(out, "G_REFRESH_TOKEN=%s\n", tok.RefreshToken)
	}
}
