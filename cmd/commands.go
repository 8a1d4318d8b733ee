package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"rostercal/internal/caldav"
	"rostercal/internal/config"
	"rostercal/internal/feed"
	"rostercal/internal/google"
	"rostercal/internal/pipeline"
	"rostercal/internal/roster"
)

var sourceFlags = []cli.Flag{
	&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Roster CSV file."},
	&cli.StringFlag{Name: "sheet", Usage: "Google Sheets spreadsheet ID to read instead of a file."},
	&cli.StringFlag{Name: "range", Usage: "Sheet range, e.g. 'Roster!A:F'."},
}

var filterFlags = []cli.Flag{
	&cli.StringFlag{Name: "person", Aliases: []string{"p"}, Usage: "Only include events assigned to this person."},
	&cli.StringFlag{Name: "duty-type", Usage: "Only include events whose duty type contains this text."},
}

func flags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("timezone") {
		cfg.Timezone = c.String("timezone")
	}
	if c.IsSet("input") {
		cfg.Input = c.String("input")
	}
	if c.IsSet("sheet") {
		cfg.Sheets.SpreadsheetID = c.String("sheet")
		if !c.IsSet("input") {
			cfg.Input = ""
		}
	}
	if c.IsSet("range") {
		cfg.Sheets.Range = c.String("range")
	}
	if c.IsSet("utc") {
		cfg.UTC = c.Bool("utc")
	}
	if c.IsSet("calendar-name") {
		cfg.CalendarName = c.String("calendar-name")
	}
	return cfg, nil
}

func filterFrom(c *cli.Context) pipeline.Filter {
	return pipeline.Filter{
		Person:   c.String("person"),
		DutyType: c.String("duty-type"),
	}
}

// newPipeline builds the roster pipeline for the configured source. A CSV
// input wins over a spreadsheet when both are set.
func newPipeline(c *cli.Context, logger *slog.Logger, cfg *config.Config) (*pipeline.Pipeline, error) {
	if err := cfg.CheckSource(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	canon, err := cfg.Canonicalizer()
	if err != nil {
		return nil, fmt.Errorf("invalid strip rule: %w", err)
	}
	loader := roster.NewLoader(logger, canon, loc, !cfg.DisableNameLearning)

	var source pipeline.Source
	if cfg.Input != "" {
		source = pipeline.FileSource{Path: cfg.Input}
	} else {
		client, err := google.NewClient(c.Context, logger, cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Sheets.Account)
		if err != nil {
			return nil, fmt.Errorf("failed to create sheets client for account %s: %w", cfg.Sheets.Account, err)
		}
		source = pipeline.SheetSource{
			Client:        client,
			SpreadsheetID: cfg.Sheets.SpreadsheetID,
			Range:         cfg.Sheets.Range,
		}
	}
	logger.Debug("Using roster source.", "source", source)
	return pipeline.New(logger, source, loader), nil
}

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:  "convert",
		Usage: "Convert the roster to an .ics file.",
		Flags: flags(sourceFlags, filterFlags, []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write to this file instead of stdout."},
			&cli.BoolFlag{Name: "utc", Usage: "Write event times in UTC instead of floating local time."},
			&cli.StringFlag{Name: "calendar-name", Usage: "Calendar display name (X-WR-CALNAME)."},
			&cli.StringFlag{Name: "schedule", Usage: "Cron spec to regenerate --output on, e.g. '*/15 * * * *'."},
		}),
		Action: func(c *cli.Context) error {
			logger := setupLogger(c.String("log-level"))

			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			p, err := newPipeline(c, logger, cfg)
			if err != nil {
				return err
			}
			serializer := cfg.Serializer()
			filter := filterFrom(c)
			output := c.String("output")

			if spec := c.String("schedule"); spec != "" {
				if output == "" {
					return fmt.Errorf("--schedule requires --output")
				}
				return p.RunScheduled(c.Context, spec, filter, serializer, output)
			}

			if output != "" {
				return p.WriteFile(c.Context, filter, serializer, output)
			}

			events, err := p.Load(c.Context, filter)
			if err != nil {
				return err
			}
			return serializer.Encode(os.Stdout, events)
		},
	}
}

func peopleCommand() *cli.Command {
	return &cli.Command{
		Name:  "people",
		Usage: "List everyone on the roster with their event counts.",
		Flags: flags(sourceFlags, []cli.Flag{
			&cli.StringFlag{Name: "duty-type", Usage: "Only count events whose duty type contains this text."},
		}),
		Action: func(c *cli.Context) error {
			logger := setupLogger(c.String("log-level"))

			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			p, err := newPipeline(c, logger, cfg)
			if err != nil {
				return err
			}
			events, err := p.Load(c.Context, filterFrom(c))
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tEVENTS")
			for _, pc := range roster.People(events) {
				fmt.Fprintf(tw, "%s\t%d\n", pc.Name, pc.Events)
			}
			return tw.Flush()
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the roster as a subscribable calendar feed.",
		Flags: flags(sourceFlags, []cli.Flag{
			&cli.StringFlag{Name: "listen", Aliases: []string{"l"}, Usage: "Listen address (default :8080)."},
			&cli.BoolFlag{Name: "utc", Usage: "Write event times in UTC instead of floating local time."},
			&cli.StringFlag{Name: "calendar-name", Usage: "Calendar display name (X-WR-CALNAME)."},
		}),
		Action: func(c *cli.Context) error {
			logger := setupLogger(c.String("log-level"))

			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.IsSet("listen") {
				cfg.Server.Listen = c.String("listen")
			}
			p, err := newPipeline(c, logger, cfg)
			if err != nil {
				return err
			}

			return feed.NewServer(logger, p, cfg.Serializer(), cfg.Server.Listen, version).Run(c.Context)
		},
	}
}

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Upload roster events to a CalDAV calendar.",
		Flags: flags(sourceFlags, filterFlags, []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be published without making changes."},
		}),
		Action: func(c *cli.Context) error {
			logger := setupLogger(c.String("log-level"))
			dryRun := c.Bool("dry-run")
			if dryRun {
				logger.Info("Performing a dry run. No changes will be made.")
			}

			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			p, err := newPipeline(c, logger, cfg)
			if err != nil {
				return err
			}

			pub, err := caldav.NewPublisher(c.Context, logger, caldav.Options{
				Endpoint:  cfg.CalDAV.Endpoint,
				Username:  cfg.CalDAV.Username,
				Password:  cfg.CalDAV.Password,
				Calendar:  cfg.CalDAV.Calendar,
				ProductID: cfg.ProductID,
			})
			if err != nil {
				return fmt.Errorf("failed to create caldav publisher: %w", err)
			}

			n, err := p.Publish(c.Context, filterFrom(c), pub, dryRun)
			if err != nil {
				return fmt.Errorf("publish failed after %d events: %w", n, err)
			}
			logger.Info("Publish complete.", "events", n, "dryRun", dryRun)
			return nil
		},
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account so rosters can be read from Sheets.",
		Action: func(c *cli.Context) error {
			logger := setupLogger(c.String("log-level"))
			logger.Info("Starting Google authentication flow.")

			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			oauthConfig, err := google.GetOAuthConfigForAuthFlow(cfg.Google.ClientID, cfg.Google.ClientSecret)
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(c.Context, oauthConfig, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Printf("Enter a name for this account [%s]: ", cfg.Sheets.Account)
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)
			if accountName == "" {
				accountName = cfg.Sheets.Account
			}
			tokenFile := google.TokenFile(accountName)

			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			if accounts, err := google.GetTokenAccounts("."); err == nil {
				logger.Info("Accounts with stored tokens.", "accounts", accounts)
			}
			return nil
		},
	}
}
