package main

import (
	"fmt"
	"io"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"jobglob-engine/internal/domain"
	"jobglob-engine/internal/vendor"
)

// withEngine builds the engine for one command and closes it afterwards.
func withEngine(o *rootOptions, fn func(e *engine) error) error {
	e, err := newEngine(o)
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(e)
}

func newCrawlCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "crawl <homepage>",
		Short: "Crawl a company site for vendor board links",
		Example: heredoc.Doc(`
			$ engine crawl https://acme.com
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return withEngine(o, func(e *engine) error {
				res, err := e.crawl(c.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(c.OutOrStdout(), res)
			})
		},
	}
}

func newDetectCmd(o *rootOptions) *cobra.Command {
	var homepage string
	var save bool
	cmd := &cobra.Command{
		Use:   "detect <company> [jobs-page-url]",
		Short: "Find a company's vendor boards",
		Long: heredoc.Doc(`
			With a jobs page URL, classify that page and probe the matching
			vendor's candidate boards. Otherwise run the full discovery
			pipeline: crawl the homepage, follow weak signals, then brute force
			every vendor.
		`),
		Example: heredoc.Doc(`
			$ engine detect "Acme Corp" https://acme.com/careers
			$ engine detect "Acme Corp" --homepage https://acme.com --save
		`),
		Args: cobra.RangeArgs(1, 2),
		RunE: func(c *cobra.Command, args []string) error {
			return withEngine(o, func(e *engine) error {
				company := args[0]
				var boards []string
				var out any
				if len(args) == 2 {
					v, found := e.classifier.FindBoardFromJobsPage(c.Context(), company, args[1])
					boards = found
					out = map[string]any{"company": company, "vendor": v, "boards": found}
				} else {
					rep, err := e.discover.FindBoards(c.Context(), company, homepage)
					if err != nil {
						return err
					}
					if homepage == "" {
						homepage = rep.Homepage
					}
					boards = rep.Boards
					out = rep
				}
				if err := printJSON(c.OutOrStdout(), out); err != nil {
					return err
				}
				if save {
					return saveBoards(c, e, company, homepage, boards)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&homepage, "homepage", "", "Company homepage (looked up when empty)")
	cmd.Flags().BoolVar(&save, "save", false, "Record the company and the boards found")
	return cmd
}

func newBruteForceCmd(o *rootOptions) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "bruteforce <company>",
		Short: "Probe every vendor's board template for a company",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return withEngine(o, func(e *engine) error {
				boards := e.classifier.BruteForce(c.Context(), args[0])
				if err := printJSON(c.OutOrStdout(), boards); err != nil {
					return err
				}
				if save {
					return saveBoards(c, e, args[0], "", boards)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Record the company and the boards found")
	return cmd
}

func newAddBoardCmd(o *rootOptions) *cobra.Command {
	var vendorName string
	cmd := &cobra.Command{
		Use:   "add-board <company> <board-url>",
		Short: "Register a board URL for a company",
		Example: heredoc.Doc(`
			$ engine add-board "Acme Corp" https://boards.greenhouse.io/acme
		`),
		Args: cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			return withEngine(o, func(e *engine) error {
				v := vendor.Type(vendorName)
				if v == "" {
					var ok bool
					if v, ok = e.table.Match(args[1]); !ok {
						return fmt.Errorf("%s does not match any known vendor; pass --vendor", args[1])
					}
				}
				saved, err := e.db.SaveDiscovered(c.Context(), args[0], "", []domain.Board{{URL: args[1], Vendor: string(v)}})
				if err != nil {
					return err
				}
				return printJSON(c.OutOrStdout(), saved[0])
			})
		},
	}
	cmd.Flags().StringVar(&vendorName, "vendor", "", "Vendor name when the URL does not identify it")
	return cmd
}

func newScrapeCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Poll every active board once and reconcile listings",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return withEngine(o, func(e *engine) error {
				sum, err := e.poller.RunOnce(c.Context())
				if err != nil {
					return err
				}
				return printJSON(c.OutOrStdout(), sum)
			})
		},
	}
}

func newCheckListingsCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-listings",
		Short: "Probe every alive listing and mark gone ones dead",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return withEngine(o, func(e *engine) error {
				sum, err := e.poller.CheckListings(c.Context())
				if err != nil {
					return err
				}
				return printJSON(c.OutOrStdout(), sum)
			})
		},
	}
}

func newReviewCmd(o *rootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Show the latest poll's board outcomes by category",
		Long: heredoc.Doc(`
			Print the boards of the most recent poll grouped by outcome:
			redirects, 404s, boards with no listings, parse failures and other
			failures. Healthy boards are hidden unless --all is set.
		`),
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return withEngine(o, func(e *engine) error {
				outs, err := e.db.LatestOutcomes(c.Context())
				if err != nil {
					return err
				}
				printReview(c.OutOrStdout(), outs, all)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include boards that scraped fine")
	return cmd
}

func printReview(w io.Writer, outs []domain.ScrapeOutcome, all bool) {
	if len(outs) == 0 {
		fmt.Fprintln(w, "no poll has run yet")
		return
	}
	fmt.Fprintf(w, "run %s\n", outs[0].RunID)
	for _, cat := range domain.Categories {
		if cat == domain.OutcomeOK && !all {
			continue
		}
		var rows []domain.ScrapeOutcome
		for _, o := range outs {
			if o.Category == cat {
				rows = append(rows, o)
			}
		}
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s (%d)\n", cat, len(rows))
		for _, o := range rows {
			if o.Detail != "" {
				fmt.Fprintf(w, "  %-24s %s  %s\n", o.Company, o.BoardURL, o.Detail)
				continue
			}
			fmt.Fprintf(w, "  %-24s %s\n", o.Company, o.BoardURL)
		}
	}
}

func saveBoards(c *cobra.Command, e *engine, company, homepage string, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	boards := make([]domain.Board, 0, len(urls))
	for _, u := range urls {
		v, _ := e.table.Match(u)
		boards = append(boards, domain.Board{URL: u, Vendor: string(v)})
	}
	saved, err := e.db.SaveDiscovered(c.Context(), company, homepage, boards)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.ErrOrStderr(), "saved %d board(s) for %s\n", len(saved), company)
	return nil
}
