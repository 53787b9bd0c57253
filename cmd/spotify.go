package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/spotiq/internal/server"
	"github.com/desertthunder/spotiq/internal/shared"
)

const authTimeout = 2 * time.Minute

// SpotifyAuth performs OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server on the redirect address, opens the browser for user authorization, and saves the
// exchanged tokens to the config file.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	token, err := r.doOAuth(ctx)
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}
	r.spotify.UseToken(ctx, token)
	r.catalog = r.spotify

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	r.writePlain("You can now use: spotiq resolve <url>\n")
	return nil
}

// SpotifyWhoami prints the profile of the authenticated user.
func (r *Runner) SpotifyWhoami(ctx context.Context, cmd *cli.Command) error {
	if r.spotify == nil || r.catalog == nil {
		return fmt.Errorf("%w: run 'spotiq spotify auth' first", shared.ErrNotAuthenticated)
	}

	user, err := r.spotify.UserProfile(ctx)
	if errors.Is(err, shared.ErrTokenExpired) {
		r.writePlainln("⚠ Authentication token expired. Starting reauthorization...")
		if err := r.SpotifyAuth(ctx, cmd); err != nil {
			return fmt.Errorf("reauthorization failed: %w", err)
		}
		user, err = r.spotify.UserProfile(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch profile: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(user, true)
	}
	r.writePlain("%s (%s)\n", user.DisplayName, user.ID)
	return nil
}

// doOAuth runs the authorization code flow against a callback server bound to the redirect URI's address.
func (r *Runner) doOAuth(ctx context.Context) (*oauth2.Token, error) {
	config := r.spotify.Config()
	redirect, err := url.Parse(config.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid redirect_uri: %v", shared.ErrInvalidConfig, err)
	}

	state := shared.GenerateID()
	handler := server.NewOAuthHandler(config, state)
	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(handler)

	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(ctx, redirect.Host, router, r.logger) }()

	authURL := r.spotify.GetAuthURL(state)
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}
	r.writePlain("→ Waiting for authorization (%v timeout)...\n", authTimeout)

	type result struct {
		token *oauth2.Token
		err   error
	}
	done := make(chan result, 1)
	go func() {
		token, err := handler.Wait(ctx)
		done <- result{token, err}
	}()

	var res result
	select {
	case err := <-serveErr:
		if err == nil {
			err = ctx.Err()
		}
		return nil, authError(fmt.Errorf("callback server stopped: %w", err))
	case res = <-done:
	}

	cancel()
	if err := <-serveErr; err != nil {
		r.logger.Warn("callback server shutdown failed", "error", err)
	}
	if res.err != nil {
		return nil, authError(res.err)
	}
	return res.token, nil
}

func authError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: authorization timed out after %v", shared.ErrAuthFailed, authTimeout)
	}
	return err
}

// spotifyCommand handles Spotify account operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify account operations",
		Commands: []*cli.Command{
			{
				Name:   "auth",
				Usage:  "Authenticate with Spotify using OAuth2",
				Action: r.SpotifyAuth,
			},
			{
				Name:  "whoami",
				Usage: "Show the authenticated Spotify user",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.SpotifyWhoami,
			},
		},
	}
}
