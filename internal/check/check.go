// Package check verifies the local ReportViewer environment: the
// configuration file, the session journal and the reporting service.
// Run can create a missing configuration file interactively.
package check

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/verustcode/reportviewer/internal/config"
	"github.com/verustcode/reportviewer/internal/database"
	"github.com/verustcode/reportviewer/internal/reportapi"
	"github.com/verustcode/reportviewer/internal/store"
)

// Checker runs the environment checks for one configuration file
type Checker struct {
	configPath string
	out        io.Writer
	theme      *huh.Theme
}

// NewChecker creates a checker for the configuration at configPath
func NewChecker(configPath string, out io.Writer) *Checker {
	if configPath == "" {
		configPath = config.DefaultConfigPath
	}
	return &Checker{
		configPath: configPath,
		out:        out,
		theme:      huh.ThemeCharm(),
	}
}

// Run creates the configuration file when it is missing and the user agrees,
// then checks the environment and prints the report
func (c *Checker) Run(ctx context.Context) (*Report, error) {
	fmt.Fprintln(c.out, titleStyle.Render("ReportViewer Environment Check"))

	if !fileExists(c.configPath) {
		created, err := c.createConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("config creation failed: %w", err)
		}
		if created {
			fmt.Fprintf(c.out, "Created %s\n", c.configPath)
		}
	}

	report := c.RunNonInteractive(ctx)
	report.Print(c.out)
	return report, nil
}

// RunNonInteractive checks the environment without prompting or writing
// the configuration file
func (c *Checker) RunNonInteractive(ctx context.Context) *Report {
	report := NewReport()

	cfg, ok := c.checkConfig(report)
	if !ok {
		report.Suggest("Run 'reportviewer check' in a terminal to create " + c.configPath)
		return report
	}
	c.checkJournal(report, cfg)
	c.checkService(ctx, report, cfg)
	return report
}

// checkConfig loads and validates the configuration file
func (c *Checker) checkConfig(report *Report) (*config.Config, bool) {
	if !fileExists(c.configPath) {
		report.Add(Item{Name: "config", Status: StatusFailed, Detail: c.configPath + " not found"})
		return nil, false
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		report.Add(Item{Name: "config", Status: StatusFailed, Detail: err.Error()})
		return nil, false
	}
	if err := cfg.Validate(); err != nil {
		report.Add(Item{Name: "config", Status: StatusFailed, Detail: err.Error()})
		return nil, false
	}
	report.Add(Item{Name: "config", Status: StatusOK, Detail: c.configPath})
	return cfg, true
}

// checkJournal opens the journal and counts sessions left open
func (c *Checker) checkJournal(report *Report, cfg *config.Config) {
	if !cfg.Journal.Enabled {
		report.Add(Item{Name: "journal", Status: StatusWarning, Detail: "disabled, orphaned caches cannot be recovered"})
		return
	}
	db, err := database.Open(cfg.Journal.Path)
	if err != nil {
		report.Add(Item{Name: "journal", Status: StatusFailed, Detail: err.Error()})
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	open, err := store.NewStore(db).Session().ListOpen()
	if err != nil {
		report.Add(Item{Name: "journal", Status: StatusFailed, Detail: err.Error()})
		return
	}
	if len(open) > 0 {
		report.Add(Item{Name: "journal", Status: StatusWarning,
			Detail: fmt.Sprintf("%d session(s) left open", len(open))})
		report.Suggest("Run 'reportviewer recover' to release orphaned caches")
		return
	}
	report.Add(Item{Name: "journal", Status: StatusOK, Detail: cfg.Journal.Path})
}

// checkService lists the catalog root to prove the service answers
func (c *Checker) checkService(ctx context.Context, report *Report, cfg *config.Config) {
	client, err := reportapi.NewFromConfig(ctx, &cfg.Service)
	if err != nil {
		report.Add(Item{Name: "service", Status: StatusFailed, Detail: err.Error()})
		return
	}
	items, err := client.ListCatalog(ctx, "", false)
	if err != nil {
		report.Add(Item{Name: "service", Status: StatusFailed, Detail: err.Error()})
		if reportapi.IsUnauthorized(err) {
			report.Suggest("Check service.auth in " + c.configPath)
		}
		return
	}
	report.Add(Item{Name: "service", Status: StatusOK,
		Detail: fmt.Sprintf("%s (%d catalog item(s))", cfg.Service.URL, len(items))})
}

// createConfig asks for the service settings and writes a new file
func (c *Checker) createConfig(ctx context.Context) (bool, error) {
	var confirm bool
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("Create %s?", c.configPath)).
			Affirmative("Yes").
			Negative("No").
			Value(&confirm),
	)).WithTheme(c.theme).RunWithContext(ctx)
	if err != nil || !confirm {
		return false, err
	}

	cfg := config.Default()
	cfg.Service.URL = "http://localhost:8090"
	mode := string(config.AuthModeNone)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Reporting service URL").
				Value(&cfg.Service.URL).
				Validate(func(s string) error {
					if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
						return fmt.Errorf("must be an http(s) url")
					}
					return nil
				}),
			huh.NewInput().
				Title("Culture").
				Description("BCP 47 tag, e.g. en or de-DE").
				Value(&cfg.Service.Culture),
			huh.NewSelect[string]().
				Title("Authentication").
				Options(
					huh.NewOption("None", string(config.AuthModeNone)),
					huh.NewOption("Bearer token", string(config.AuthModeToken)),
					huh.NewOption("OAuth2 client credentials", string(config.AuthModeClientCredentials)),
				).
				Value(&mode),
		),
		huh.NewGroup(
			huh.NewInput().Title("Token").EchoMode(huh.EchoModePassword).Value(&cfg.Service.Auth.Token),
		).WithHideFunc(func() bool { return mode != string(config.AuthModeToken) }),
		huh.NewGroup(
			huh.NewInput().Title("Client ID").Value(&cfg.Service.Auth.ClientID),
			huh.NewInput().Title("Client secret").EchoMode(huh.EchoModePassword).Value(&cfg.Service.Auth.ClientSecret),
		).WithHideFunc(func() bool { return mode != string(config.AuthModeClientCredentials) }),
	).WithTheme(c.theme)

	if err := form.RunWithContext(ctx); err != nil {
		return false, err
	}
	cfg.Service.Auth.Mode = config.AuthMode(mode)

	if err := ensureDir(c.configPath); err != nil {
		return false, err
	}
	if err := config.Write(c.configPath, cfg); err != nil {
		return false, err
	}
	return true, nil
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
