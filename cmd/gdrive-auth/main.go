// Command gdrive-auth runs the OAuth consent flow once and prints the
// refresh token the api needs for STORAGE_PROVIDER=gdrive.
package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"

	"captionstudio/internal/config"
	"captionstudio/internal/pkg/errors"
	"captionstudio/internal/pkg/logger"
	"captionstudio/internal/util"
)

const authTimeout = 3 * time.Minute

func main() {
	log := logger.New(logger.Config{Level: "info", Format: "text", ServiceName: "gdrive-auth"})

	if err := config.LoadDotEnv(); err != nil {
		log.LogFatal("failed to load .env files", err)
	}
	if err := run(context.Background()); err != nil {
		log.LogFatal("authorization failed", err)
	}
}

func run(ctx context.Context) error {
	clientID := util.Env("GDRIVE_CLIENT_ID", "")
	clientSecret := util.Env("GDRIVE_CLIENT_SECRET", "")
	if clientID == "" {
		return errors.Configuration("GDRIVE_CLIENT_ID", "GDRIVE_CLIENT_ID is required")
	}
	if clientSecret == "" {
		return errors.Configuration("GDRIVE_CLIENT_SECRET", "GDRIVE_CLIENT_SECRET is required")
	}

	// Local callback on a free port.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	defer ln.Close()

	redirectURL := fmt.Sprintf("http://127.0.0.1:%d/callback", ln.Addr().(*net.TCPAddr).Port)

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
		RedirectURL:  redirectURL,
	}

	state := randomState()
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.Handle("/callback", callbackHandler(state, codeCh, errCh))

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		_ = srv.Serve(ln)
	}()
	defer srv.Close()

	// offline access plus forced consent so a refresh token is issued
	authURL := conf.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)

	fmt.Fprintf(os.Stdout, "\nOpen this URL in your browser:\n\n%s\n\nWaiting for authorization on %s\n", authURL, redirectURL)

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return err
	case <-time.After(authTimeout):
		return fmt.Errorf("timed out waiting for authorization")
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return errors.Wrap(err, "gdrive.exchange", "exchange authorization code")
	}

	if strings.TrimSpace(tok.RefreshToken) == "" {
		fmt.Fprintln(os.Stdout, "\nNo refresh token was returned.")
		fmt.Fprintln(os.Stdout, "Revoke the app's access at https://myaccount.google.com/permissions and run this again.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "\nGDRIVE_REFRESH_TOKEN=%s\n", tok.RefreshToken)
	return nil
}

// callbackHandler receives the OAuth redirect and forwards the code, or the
// reason there is none.
func callbackHandler(state string, codeCh chan<- string, errCh chan<- error) http.Handler {
	fail := func(w http.ResponseWriter, err error) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		select {
		case errCh <- err:
		default:
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			fail(w, fmt.Errorf("invalid state"))
			return
		}
		if e := q.Get("error"); e != "" {
			fail(w, fmt.Errorf("auth error: %s", e))
			return
		}
		code := q.Get("code")
		if code == "" {
			fail(w, fmt.Errorf("missing code"))
			return
		}

		fmt.Fprintln(w, "Authorized. You can close this window and return to the terminal.")
		select {
		case codeCh <- code:
		default:
		}
	})
}

func randomState() string {
	b := make([]byte, 18)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
