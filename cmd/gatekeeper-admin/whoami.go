package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/clanhall/gatekeeper/internal/authstate"
	domainauth "github.com/clanhall/gatekeeper/internal/domain/auth"
	"github.com/clanhall/gatekeeper/internal/portalclient"
)

// defaultServer returns the portal URL, checking GATEKEEPER_SERVER first.
func defaultServer() string {
	if s := os.Getenv("GATEKEEPER_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

type whoamiOptions struct {
	server  string
	token   string
	refresh bool
	timeout time.Duration
}

func newWhoamiCmd() *cobra.Command {
	opts := whoamiOptions{}
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the auth state a running portal reports for a session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.token == "" {
				opts.token = os.Getenv("GATEKEEPER_TOKEN")
			}
			if opts.token == "" {
				return errors.New("a session token is required (--token or GATEKEEPER_TOKEN)")
			}
			client, err := portalclient.New(opts.server)
			if err != nil {
				return err
			}
			return runWhoami(cmd.Context(), cmd.OutOrStdout(), client, opts)
		},
	}
	cmd.Flags().StringVar(&opts.server, "server", defaultServer(), "Portal URL (or GATEKEEPER_SERVER env)")
	cmd.Flags().StringVar(&opts.token, "token", "", "Session token (or GATEKEEPER_TOKEN env)")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "Re-derive the rank from live Discord roles first")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 15*time.Second, "Request timeout")
	return cmd
}

func runWhoami(ctx context.Context, w io.Writer, src authstate.Source, opts whoamiOptions) error {
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	tracker := authstate.NewTracker(src, authstate.Options{LoadTimeout: opts.timeout})
	select {
	case <-tracker.OnSessionChange(opts.token):
	case <-ctx.Done():
		return ctx.Err()
	}

	snap := tracker.State()
	if opts.refresh {
		var err error
		snap, err = tracker.Refresh(ctx)
		if err != nil && !portalclient.IsRejection(err) {
			return fmt.Errorf("refresh roles: %w", err)
		}
	}
	return printSnapshot(w, snap)
}

func printSnapshot(w io.Writer, snap authstate.Snapshot) error {
	if snap.Err != nil && !portalclient.IsRejection(snap.Err) {
		if errors.Is(snap.Err, domainauth.ErrSessionNotFound) {
			return writef(w, "signed out: session expired or unknown\n")
		}
		return fmt.Errorf("load auth state: %w", snap.Err)
	}

	st := snap.State
	if err := writef(w, "authenticated: %t\naccess: %t\nadmin: %t\nrank: %s\n",
		st.IsAuthenticated, st.HasAccess, st.IsAdmin, rankLabel(st.Rank)); err != nil {
		return err
	}
	if snap.Profile != nil {
		if err := writef(w, "name: %s\ndiscord id: %s\n", snap.Profile.DisplayName, snap.Profile.ExternalID); err != nil {
			return err
		}
	}
	if snap.DaysUntilNextRank > 0 {
		if err := writef(w, "days until next rank: %d\n", snap.DaysUntilNextRank); err != nil {
			return err
		}
	}
	if snap.Err != nil {
		return writef(w, "rejected: %s\n", domainauth.Reason(snap.Err))
	}
	return nil
}
