package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// ConsentFlow runs the installed-app authorization code flow against a
// loopback redirect and returns the resulting token, including the
// refresh token to store in the secret store.
type ConsentFlow struct {
	Config *oauth2.Config
	// Addr is the loopback listen address; "127.0.0.1:0" picks a free port.
	Addr string
	// Out receives the consent URL.
	Out io.Writer
}

func (f *ConsentFlow) Run(ctx context.Context) (*oauth2.Token, error) {
	addr := f.Addr
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for redirect: %w", err)
	}
	defer ln.Close()

	cfg := *f.Config
	cfg.RedirectURL = "http://" + ln.Addr().String() + "/"
	state := uuid.NewString()

	codes := make(chan string, 1)
	errs := make(chan error, 1)
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		case q.Get("error") != "":
			// Only the first redirect is acted on; repeats must not block.
			select {
			case errs <- fmt.Errorf("consent denied: %s", q.Get("error")):
			default:
			}
			io.WriteString(w, "Authorization failed. You can close this window.")
			return
		}
		select {
		case codes <- q.Get("code"):
		default:
		}
		io.WriteString(w, "Authorization complete. You can close this window.")
	})}
	go srv.Serve(ln)
	defer srv.Close()

	// Offline access plus forced approval makes Google return a refresh token
	// even when the user has consented before.
	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintf(f.Out, "Open this URL in a browser to authorize:\n\n%s\n\n", authURL)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-errs:
		return nil, err
	case code := <-codes:
		tok, err := cfg.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("exchange code: %w", err)
		}
		if tok.RefreshToken == "" {
			return nil, errors.New("no refresh token returned; revoke the app's access and retry")
		}
		return tok, nil
	}
}
