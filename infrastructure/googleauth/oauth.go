package googleauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// CallbackAddr is where the local OAuth redirect listener binds
const CallbackAddr = "localhost:8085"

// Config holds the configuration for OAuth 2.0 user authentication
type Config struct {
	CredentialsFile string    // Path to OAuth client credentials JSON
	TokenFile       string    // Path to store/load token
	Scopes          []string  // API scopes to request
	Prompt          io.Writer // Where browser instructions are printed; nil means os.Stdout
}

// HTTPClient returns an authorized client, running the browser flow when no
// usable token is cached
func HTTPClient(ctx context.Context, cfg Config) (*http.Client, error) {
	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read OAuth credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, cfg.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse OAuth credentials: %w", err)
	}

	prompt := cfg.Prompt
	if prompt == nil {
		prompt = os.Stdout
	}

	token, err := getToken(ctx, config, cfg.TokenFile, prompt)
	if err != nil {
		return nil, fmt.Errorf("unable to get OAuth token: %w", err)
	}

	return config.Client(ctx, token), nil
}

// ServiceAccountClient returns a client authorized by a service account key
func ServiceAccountClient(ctx context.Context, credentialsFile string, scopes ...string) (*http.Client, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	return config.Client(ctx), nil
}

// getToken retrieves a token from file or initiates the OAuth flow
func getToken(ctx context.Context, config *oauth2.Config, tokenFile string, prompt io.Writer) (*oauth2.Token, error) {
	token, err := LoadToken(tokenFile)
	if err == nil {
		refreshed, err := config.TokenSource(ctx, token).Token()
		if err == nil {
			if refreshed.AccessToken != token.AccessToken {
				if err := SaveToken(tokenFile, refreshed); err != nil {
					fmt.Fprintf(prompt, "Warning: couldn't save refreshed token: %v\n", err)
				}
			}
			return refreshed, nil
		}
		// Refresh failed, fall through to re-authenticate
	}

	return getTokenFromWeb(ctx, config, tokenFile, prompt)
}

// LoadToken loads a token from a file
func LoadToken(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, err
	}
	return token, nil
}

// SaveToken writes a token readable only by the current user
func SaveToken(file string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(token)
}

// getTokenFromWeb runs the installed-app flow with a localhost redirect
func getTokenFromWeb(ctx context.Context, config *oauth2.Config, tokenFile string, prompt io.Writer) (*oauth2.Token, error) {
	config.RedirectURL = "http://" + CallbackAddr + "/callback"

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errChan <- errors.New("no code in callback")
			fmt.Fprint(w, "Error: No authorization code received")
			return
		}
		codeChan <- code
		fmt.Fprint(w, "<html><body><h1>Authorization successful!</h1><p>You can close this window and return to the terminal.</p></body></html>")
	})

	listener, err := net.Listen("tcp", CallbackAddr)
	if err != nil {
		return nil, fmt.Errorf("unable to start callback listener: %w", err)
	}
	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()
	defer server.Shutdown(context.Background())

	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	fmt.Fprintln(prompt)
	fmt.Fprintln(prompt, "Opening browser for Google authentication...")
	fmt.Fprintln(prompt, "If the browser doesn't open, please visit this URL:")
	fmt.Fprintln(prompt)
	fmt.Fprintln(prompt, authURL)
	fmt.Fprintln(prompt)

	openBrowser(authURL)

	var authCode string
	select {
	case authCode = <-codeChan:
	case err := <-errChan:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	token, err := config.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to exchange auth code: %w", err)
	}

	if err := SaveToken(tokenFile, token); err != nil {
		fmt.Fprintf(prompt, "Warning: couldn't save token: %v\n", err)
	}

	fmt.Fprintln(prompt, "Authentication successful!")
	return token, nil
}

// openBrowser opens a URL in the default browser
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux":
		if _, err := exec.LookPath("xdg-open"); err == nil {
			cmd = exec.Command("xdg-open", url)
		} else if _, err := exec.LookPath("wslview"); err == nil {
			cmd = exec.Command("wslview", url)
		}
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	}

	if cmd != nil {
		_ = cmd.Start()
	}
}
