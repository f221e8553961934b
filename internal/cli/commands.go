package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/johnrirwin/journalfeed/internal/journal"
	"github.com/johnrirwin/journalfeed/internal/pages"
)

func newHomeCommand(opts *options) *cobra.Command {
	var sections string

	cmd := &cobra.Command{
		Use:   "home",
		Short: "Show the homepage feeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			feeds, err := journal.ParseFeeds(sections)
			if err != nil {
				return err
			}

			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			res := pages.NewHomepage(a.Deps).LoadAggregatedFeeds(cmd.Context(), feeds)
			if opts.asJSON {
				if err := opts.printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else {
				renderHome(cmd.OutOrStdout(), feeds, res)
			}
			return resultError(res)
		},
	}
	cmd.Flags().StringVar(&sections, "sections", "", "comma separated feeds to load (recent, featured, popular, trending)")
	return cmd
}

func newVolumesCommand(opts *options) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "volumes",
		Short: "List journal volumes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			res := pages.NewVolumesList(a.Deps).Load(cmd.Context(), force)
			if opts.asJSON {
				if err := opts.printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else {
				renderVolumes(cmd.OutOrStdout(), res)
			}
			return resultError(res)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "bypass the cache")
	return cmd
}

func newVolumeCommand(opts *options) *cobra.Command {
	var sortBy string

	cmd := &cobra.Command{
		Use:   "volume <issue-id>",
		Short: "Show a volume and its articles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			order, err := journal.ParseArticleOrder(sortBy)
			if err != nil {
				return err
			}

			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			res := pages.NewVolumeDetail(a.Deps).LoadEntity(cmd.Context(), id)
			if res.Status != pages.StatusFailed {
				res.Value.Detail.Articles = journal.SortArticles(res.Value.Detail.Articles, order)
			}
			if opts.asJSON {
				if err := opts.printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else {
				renderVolume(cmd.OutOrStdout(), res)
			}
			return resultError(res)
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort", "", "article order: title, authors or date")
	return cmd
}

func newArticleCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "article <id>",
		Short: "Show an article with similar and recommended articles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			res := pages.NewArticleDetail(a.Deps).LoadEntity(cmd.Context(), id)
			if opts.asJSON {
				if err := opts.printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else {
				renderArticle(cmd.OutOrStdout(), res)
			}
			return resultError(res)
		},
	}
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show upstream status, cache status and health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			res := pages.NewSystemStatus(a.Deps).Load(cmd.Context())
			if opts.asJSON {
				if err := opts.printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else {
				renderSystem(cmd.OutOrStdout(), res)
			}
			return resultError(res)
		},
	}
}

func newConnectivityCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "connectivity",
		Aliases: []string{"ping"},
		Short:   "Check whether the recommendations API is reachable",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			conn := pages.NewVolumesList(a.Deps).CheckConnectivity(cmd.Context())
			if opts.asJSON {
				if err := opts.printJSON(cmd.OutOrStdout(), conn); err != nil {
					return err
				}
			} else {
				renderConnectivity(cmd.OutOrStdout(), conn)
			}
			if !conn.Online {
				return fmt.Errorf("API is offline (%s)", conn.Status)
			}
			return nil
		},
	}
}

func newCacheCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local result cache",
	}

	clearCmd := &cobra.Command{
		Use:   "clear [key...]",
		Short: "Remove cached results, or all of them when no key is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			a.Cache.Clear(cmd.Context(), args...)
			if len(args) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared all %s cache entries.\n", a.Cache.Backend())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d key(s) from the %s cache.\n", len(args), a.Cache.Backend())
			}
			return nil
		},
	}

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Drop expired entries past their stale retention",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			n := a.Cache.Prune(cmd.Context())
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to prune.")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d expired cache entries.\n", n)
			}
			return nil
		},
	}

	cmd.AddCommand(clearCmd, pruneCmd)
	return cmd
}

// resultError turns a failed page load into the command's error.
func resultError[T any](res pages.Result[T]) error {
	if res.Status != pages.StatusFailed {
		return nil
	}
	if res.Err == nil {
		return fmt.Errorf("load failed")
	}
	return res.Err
}
