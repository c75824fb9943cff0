package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkowalchik/civicsignal/internal/store"
)

// --- orgs ---

var orgsCmd = &cobra.Command{
	Use:   "orgs",
	Short: "Manage monitored organizations and their boards",
}

var (
	orgFeedURL    string
	boardPosition int
)

var orgsAddCmd = &cobra.Command{
	Use:   "add <id> <name> <portal-url>",
	Short: "Add or update an organization",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		org := store.Organization{ID: args[0], Name: args[1], PortalURL: args[2]}
		if orgFeedURL != "" {
			org.FeedURL = &orgFeedURL
		}
		if err := db.UpsertOrganization(org); err != nil {
			return fmt.Errorf("saving organization: %w", err)
		}
		fmt.Printf("Saved organization %s (%s)\n", org.ID, org.Name)
		return nil
	},
}

var orgsAddBoardCmd = &cobra.Command{
	Use:   "add-board <org-id> <board-id> <name>",
	Short: "Add or update a board within an organization",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		org, err := db.GetOrganization(args[0])
		if err != nil {
			return err
		}
		if org == nil {
			return fmt.Errorf("organization %s not found", args[0])
		}

		if err := db.UpsertBoard(args[0], args[1], args[2], boardPosition); err != nil {
			return fmt.Errorf("saving board: %w", err)
		}
		fmt.Printf("Saved board %s/%s (%s)\n", args[0], args[1], args[2])
		return nil
	},
}

var orgsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List organizations with their boards and bookmarks",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		orgs, err := db.GetOrganizations()
		if err != nil {
			return err
		}
		if len(orgs) == 0 {
			fmt.Println("No organizations. Add one with 'civicsignal orgs add'.")
			return nil
		}

		for _, org := range orgs {
			source := org.PortalURL
			if org.FeedURL != nil && *org.FeedURL != "" {
				source = *org.FeedURL + " (feed)"
			}
			fmt.Printf("%s  %s\n  %s\n", org.ID, org.Name, source)

			boards, err := db.GetBoards(org.ID)
			if err != nil {
				return err
			}
			for _, b := range boards {
				mark := b.Bookmark
				if mark == "" {
					mark = "(never processed)"
				} else if len(mark) > 60 {
					mark = mark[:60] + "..."
				}
				fmt.Printf("    %-20s %s\n", b.BoardID, mark)
			}
		}
		return nil
	},
}

var orgsResetCmd = &cobra.Command{
	Use:   "reset <org-id>",
	Short: "Clear all bookmarks for an organization",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ResetBookmarks(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Reset %d bookmarks for %s; next cycle reprocesses every board\n", n, args[0])
		return nil
	},
}

// --- subscribers ---

var subscribersCmd = &cobra.Command{
	Use:     "subscribers",
	Aliases: []string{"subs"},
	Short:   "Manage alert subscribers",
}

var subscriberTier string

var subscribersAddCmd = &cobra.Command{
	Use:   "add <id> <email>",
	Short: "Add or update an active subscriber",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		sub := store.Subscriber{
			ID:     args[0],
			Email:  args[1],
			Status: "active",
			Tier:   subscriberTier,
		}
		if err := db.UpsertSubscriber(sub); err != nil {
			return fmt.Errorf("saving subscriber: %w", err)
		}
		fmt.Printf("Saved subscriber %s <%s> (%s)\n", sub.ID, sub.Email, sub.Tier)
		return nil
	},
}

var subscribersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List subscribers",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		subs, err := db.GetSubscribers()
		if err != nil {
			return err
		}
		if len(subs) == 0 {
			fmt.Println("No subscribers.")
			return nil
		}
		for _, s := range subs {
			fmt.Printf("%-16s %-30s %-8s %s\n", s.ID, s.Email, s.Status, s.Tier)
		}
		return nil
	},
}

// --- profiles ---

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage subscriber interest profiles",
}

var (
	profileKeywords   string
	profileExclusions string
)

var profilesAddCmd = &cobra.Command{
	Use:   "add <id> <subscriber-id> <industry>",
	Short: "Add or update an interest profile (created active)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		sub, err := db.GetSubscriber(args[1])
		if err != nil {
			return err
		}
		if sub == nil {
			return fmt.Errorf("subscriber %s not found", args[1])
		}

		p := store.InterestProfile{
			ID:           args[0],
			SubscriberID: args[1],
			Industry:     args[2],
			Keywords:     splitList(profileKeywords),
			Exclusions:   splitList(profileExclusions),
			Active:       true,
		}
		if err := db.UpsertProfile(p); err != nil {
			return fmt.Errorf("saving profile: %w", err)
		}
		fmt.Printf("Saved profile %s for %s (%s)\n", p.ID, p.SubscriberID, p.Industry)
		return nil
	},
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List interest profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		profiles, err := db.GetAllProfiles()
		if err != nil {
			return err
		}
		if len(profiles) == 0 {
			fmt.Println("No profiles.")
			return nil
		}
		for _, p := range profiles {
			state := "inactive"
			if p.Active {
				state = "active"
			}
			fmt.Printf("%-16s %-16s %-20s %-8s %s\n",
				p.ID, p.SubscriberID, p.Industry, state, strings.Join(p.Keywords, ", "))
		}
		return nil
	},
}

var profilesToggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Flip a profile between active and inactive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		p, err := db.GetProfile(args[0])
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("profile %s not found", args[0])
		}

		if err := db.ToggleProfile(args[0]); err != nil {
			return err
		}
		state := "active"
		if p.Active {
			state = "inactive"
		}
		fmt.Printf("Profile %s is now %s\n", args[0], state)
		return nil
	},
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func init() {
	orgsAddCmd.Flags().StringVar(&orgFeedURL, "feed-url", "", "RSS/Atom feed URL (used instead of portal scraping)")
	orgsAddBoardCmd.Flags().IntVar(&boardPosition, "position", 0, "Board ordering position")
	orgsCmd.AddCommand(orgsAddCmd)
	orgsCmd.AddCommand(orgsAddBoardCmd)
	orgsCmd.AddCommand(orgsListCmd)
	orgsCmd.AddCommand(orgsResetCmd)

	subscribersAddCmd.Flags().StringVar(&subscriberTier, "tier", "basic", "Subscriber tier (basic or pro)")
	subscribersCmd.AddCommand(subscribersAddCmd)
	subscribersCmd.AddCommand(subscribersListCmd)

	profilesAddCmd.Flags().StringVar(&profileKeywords, "keywords", "", "Comma-separated keywords")
	profilesAddCmd.Flags().StringVar(&profileExclusions, "exclusions", "", "Comma-separated exclusion terms")
	profilesCmd.AddCommand(profilesAddCmd)
	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesToggleCmd)
}
