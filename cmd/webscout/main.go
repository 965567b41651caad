package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/webscoutlabs/webscout/internal/app"
	"github.com/webscoutlabs/webscout/internal/model"
)

func main() {
	root := &cobra.Command{
		Use:           "webscout",
		Short:         "Site crawler with live modal detection and training",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(crawlCmd(), recordCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func crawlCmd() *cobra.Command {
	var (
		startURL    string
		depth       int
		mode        string
		sample      bool
		rate        int
		concurrency int
		subdomains  bool
		allowed     []string
		username    string
		password    string
		headers     []string
		followTags  []string
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl a site and write the result document",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New()
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := model.CrawlConfig{
				StartURL:    startURL,
				MaxDepth:    depth,
				Mode:        model.CrawlMode(mode),
				SampleMode:  sample,
				RateLimit:   rate,
				Concurrency: concurrency,
				DomainRestrictions: model.DomainRestrictions{
					StayWithinDomain:  true,
					IncludeSubdomains: subdomains,
					AllowedDomains:    allowed,
				},
				FollowLinkTags:    followTags,
				CustomHeaders:     parseHeaders(headers),
				NavigationTimeout: a.Cfg.NavigationTimeout,
				SettleDelay:       a.Cfg.SettleDelay,
			}
			if concurrency <= 0 {
				cfg.Concurrency = a.Cfg.MaxConcurrentPages
			}
			if rate == 0 {
				cfg.RateLimit = a.Cfg.RateLimitPerMin
			}
			if username != "" || password != "" {
				cfg.LoginCredentials = &model.LoginCredentials{Username: username, Password: password}
			}

			a.Crawls.SetProgressCallback(func(p model.CrawlProgress) {
				a.Log.Info().Str("current", p.CurrentURL).Int("visited", p.Visited).
					Int("queued", p.Queued).Int("ok", p.Successful).Int("failed", p.Failed).
					Bool("done", p.Done).Msg("progress")
			})

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			go func() {
				<-ctx.Done()
				a.Crawls.Stop()
			}()

			result, err := a.Crawls.Start(ctx, cfg)
			if err != nil {
				return err
			}
			fmt.Printf("crawl %s: %d pages (%d ok, %d failed), %d links\n",
				result.Metadata.CrawlID, result.Metadata.TotalPages,
				result.Metadata.SuccessfulCrawls, result.Metadata.FailedCrawls,
				len(result.Links))
			return nil
		},
	}

	cmd.Flags().StringVar(&startURL, "url", "", "start URL (required)")
	cmd.Flags().IntVar(&depth, "depth", 2, "maximum crawl depth")
	cmd.Flags().StringVar(&mode, "mode", "crawl", "crawl or scrape")
	cmd.Flags().BoolVar(&sample, "sample", false, "follow only one link per page")
	cmd.Flags().IntVar(&rate, "rate", 0, "page starts per minute, 0 = unlimited")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "concurrent pages, 0 = config default")
	cmd.Flags().BoolVar(&subdomains, "subdomains", false, "include subdomains of the start host")
	cmd.Flags().StringSliceVar(&allowed, "allow", nil, "additional allowed domains")
	cmd.Flags().StringVar(&username, "username", "", "login username")
	cmd.Flags().StringVar(&password, "password", "", "login password")
	cmd.Flags().StringSliceVar(&headers, "header", nil, "custom header key=value, repeatable")
	cmd.Flags().StringSliceVar(&followTags, "tags", nil, "restrict followed links to these tag names")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func recordCmd() *cobra.Command {
	var startURL string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Open a live recording session with modal detection",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			id, err := a.Sessions.StartLiveSession(ctx, startURL)
			if err != nil {
				return err
			}
			fmt.Printf("session %s recording; commands: train, done, capture [selector], modals, stop\n", id)

			lines := make(chan string)
			go func() {
				sc := bufio.NewScanner(os.Stdin)
				for sc.Scan() {
					lines <- strings.TrimSpace(sc.Text())
				}
				close(lines)
			}()

		loop:
			for {
				select {
				case <-ctx.Done():
					break loop
				case line, ok := <-lines:
					if !ok {
						break loop
					}
					word, rest, _ := strings.Cut(line, " ")
					switch word {
					case "train":
						if err := a.Sessions.EnableTrainingMode(id); err != nil {
							fmt.Println("error:", err)
						}
					case "done":
						if err := a.Sessions.DisableTrainingMode(id); err != nil {
							fmt.Println("error:", err)
						}
					case "capture":
						ref, err := a.Sessions.ManualCapture(id, strings.TrimSpace(rest))
						if err != nil {
							fmt.Println("error:", err)
						} else {
							fmt.Println("saved", ref)
						}
					case "modals":
						modals, err := a.Sessions.SessionModals(id)
						if err != nil {
							fmt.Println("error:", err)
							continue
						}
						for _, m := range modals {
							fmt.Printf("  %s score=%d trigger=%s visible=%v\n",
								m.Selector, m.Score, m.TriggeredBy, m.Visible)
						}
					case "stop", "quit", "exit":
						break loop
					case "":
					default:
						fmt.Println("commands: train, done, capture [selector], modals, stop")
					}
				}
			}

			doc, err := a.Sessions.StopLiveSession(id)
			if err != nil {
				return err
			}
			fmt.Printf("session %s: %d actions, %d modals\n", doc.ID, len(doc.Actions), len(doc.Modals))
			for _, m := range doc.Modals {
				fmt.Printf("  modal %s score=%d trigger=%s path=%s\n", m.Selector, m.Score, m.TriggeredBy, m.PagePath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&startURL, "url", "", "start URL (required)")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

// parseHeaders turns key=value pairs into a header map.
func parseHeaders(pairs []string) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
