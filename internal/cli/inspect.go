package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lazypower/companion/internal/store"
)

// --- state command ---

var stateCmd = &cobra.Command{
	Use:   "state [user-id]",
	Short: "Show relationship state for one user or all users",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runState,
}

func runState(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()

	var users []store.UserState
	if len(args) == 1 {
		u, err := db.GetUser(args[0])
		if err != nil {
			return err
		}
		if u == nil {
			fmt.Fprintf(out, "No state for %s.\n", args[0])
			return nil
		}
		users = append(users, *u)
	} else {
		users, err = db.ListUsers()
		if err != nil {
			return err
		}
	}

	if len(users) == 0 {
		fmt.Fprintln(out, "No users yet.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tSTYLE\tMOOD\tENERGY\tAFFECTION\tSOCIAL\tLAST ACTIVE")
	for _, u := range users {
		style, err := db.Attachment(u.UserID)
		if err != nil {
			return err
		}
		active := "never"
		if u.LastActive > 0 {
			active = time.UnixMilli(u.LastActive).Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			u.UserID, style, u.Mood, u.Energy, u.Affection, u.SocialBattery, active)
	}
	return tw.Flush()
}

// --- moods command ---

var moodsLimit int

var moodsCmd = &cobra.Command{
	Use:   "moods <user-id>",
	Short: "Show a user's daily mood history",
	Args:  cobra.ExactArgs(1),
	RunE:  runMoods,
}

func init() {
	moodsCmd.Flags().IntVarP(&moodsLimit, "limit", "n", 14, "Number of days to show")
}

func runMoods(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	samples, err := db.MoodHistory(args[0], moodsLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(samples) == 0 {
		fmt.Fprintf(out, "No mood history for %s.\n", args[0])
		return nil
	}
	for _, s := range samples {
		fmt.Fprintf(out, "%s  %-8s energy %3d  affection %3d\n", s.Day, s.Mood, s.Energy, s.Affection)
	}
	return nil
}

// --- recover command ---

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Apply the overnight energy recovery to every user now",
	RunE:  runRecover,
}

func runRecover(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.RecoverAll(cfg.Scheduler.RecoverEnergy, cfg.Scheduler.RecoverSocial)
	if err != nil {
		return err
	}
	log.Info().Int64("users", n).Msg("recovery applied")
	fmt.Fprintf(cmd.OutOrStdout(), "Recovered %d users (+%d energy, +%d social battery).\n",
		n, cfg.Scheduler.RecoverEnergy, cfg.Scheduler.RecoverSocial)
	return nil
}
