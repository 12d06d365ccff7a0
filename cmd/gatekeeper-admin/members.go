package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/clanhall/gatekeeper/config"
	"github.com/clanhall/gatekeeper/internal/bootstrap"
	"github.com/clanhall/gatekeeper/internal/data"
	domainauth "github.com/clanhall/gatekeeper/internal/domain/auth"
	"github.com/clanhall/gatekeeper/internal/ports"
)

func newMapRolesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "map-roles <role-id>...",
		Short: "Show the rank the configured roles assign for the given Discord role IDs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			return printMapping(cmd.OutOrStdout(), cfg.Auth.Roles, args)
		},
	}
}

func printMapping(w io.Writer, roles config.RoleConfig, roleIDs []string) error {
	assignment, ok := bootstrap.RankMapper(roles).Map(roleIDs)
	if !ok {
		return writef(w, "no qualifying role: member would be rejected with no_role\n")
	}
	return writef(w, "rank: %s\nadmin: %t\n", assignment.Rank, assignment.IsAdmin)
}

func newProfileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profile <discord-id>",
		Short: "Show the stored profile for a Discord user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer a.closeDB(db)

			p, err := data.NewMemberRepo(db).GetProfileByExternalID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get profile: %w", err)
			}
			return printProfile(cmd.OutOrStdout(), p, time.Now())
		},
	}
}

func printProfile(w io.Writer, p domainauth.Profile, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"Account", p.AccountID},
		{"Discord ID", p.ExternalID},
		{"Name", p.DisplayName},
		{"Rank", rankLabel(p.Rank)},
		{"Admin", fmt.Sprintf("%t", p.IsAdmin)},
		{"Access", fmt.Sprintf("%t", p.HasAccess())},
	}
	if p.NextRankDeadline != nil {
		rows = append(rows,
			[2]string{"Next rank review", p.NextRankDeadline.UTC().Format(time.DateOnly)},
			[2]string{"Days remaining", fmt.Sprintf("%d", p.DaysUntilNextRank(now))},
		)
	}
	for _, r := range rows {
		if err := writef(tw, "%s:\t%s\n", r[0], r[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func newMembersCmd(a *app) *cobra.Command {
	var (
		limit  int
		offset int
		all    bool
	)
	cmd := &cobra.Command{
		Use:   "members",
		Short: "List member profiles ordered by display name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer a.closeDB(db)

			profiles, err := data.NewMemberRepo(db).ListProfiles(cmd.Context(), ports.ListProfilesOptions{
				Limit:      limit,
				Offset:     offset,
				OnlyAccess: !all,
			})
			if err != nil {
				return fmt.Errorf("list profiles: %w", err)
			}
			return printMembers(cmd.OutOrStdout(), profiles)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of members to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of members to skip")
	cmd.Flags().BoolVar(&all, "all", false, "Include profiles without access")
	return cmd
}

func printMembers(w io.Writer, profiles []domainauth.Profile) error {
	if len(profiles) == 0 {
		return writef(w, "no members\n")
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writef(tw, "DISCORD ID\tNAME\tRANK\tADMIN\n"); err != nil {
		return err
	}
	for _, p := range profiles {
		if err := writef(tw, "%s\t%s\t%s\t%t\n", p.ExternalID, p.DisplayName, rankLabel(p.Rank), p.IsAdmin); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func rankLabel(r domainauth.Rank) string {
	if r == domainauth.RankNone {
		return "-"
	}
	return string(r)
}
