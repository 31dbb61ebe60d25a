package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verustcode/reportviewer/internal/database"
	"github.com/verustcode/reportviewer/internal/document"
	"github.com/verustcode/reportviewer/internal/parameter"
	"github.com/verustcode/reportviewer/internal/recovery"
	"github.com/verustcode/reportviewer/internal/reportapi"
	"github.com/verustcode/reportviewer/internal/store"
	"github.com/verustcode/reportviewer/internal/tui"
	"github.com/verustcode/reportviewer/internal/viewer"
	"github.com/verustcode/reportviewer/pkg/errors"
	"github.com/verustcode/reportviewer/pkg/logger"
)

const closeTimeout = 10 * time.Second

// viewCmd opens a document and follows it until it is rendered
var viewCmd = &cobra.Command{
	Use:   "view <file-path>",
	Short: "Open a report, ask for its parameters and render it",
	Args:  cobra.ExactArgs(1),
	RunE:  runView,
}

func init() {
	addSourceFlags(viewCmd)
	viewCmd.Flags().StringArrayP("param", "p", nil, "initial parameter value as name=value (repeat for multi-value)")
	viewCmd.Flags().Bool("outline", true, "print the document outline when rendering completes")
}

// addSourceFlags registers the flags that select a document
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("report", "r", "", "report name inside a FlexReport file")
	cmd.Flags().Bool("no-paginate", false, "request a non-paginated render")
}

// sourceFromFlags builds the document source of cmd
func sourceFromFlags(cmd *cobra.Command, filePath string, paginated bool) document.ReportSource {
	reportName, _ := cmd.Flags().GetString("report")
	noPaginate, _ := cmd.Flags().GetBool("no-paginate")
	return document.ReportSource{
		FilePath:   filePath,
		ReportName: reportName,
		Paginated:  paginated && !noPaginate,
	}
}

// parseParamFlags turns name=value pairs into parameter values. A name given
// more than once becomes a multi-value.
func parseParamFlags(pairs []string) ([]reportapi.ParameterValue, error) {
	var order []string
	values := make(map[string][]any)
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.ErrValidation(fmt.Sprintf("invalid parameter %q, expected name=value", pair))
		}
		if _, seen := values[name]; !seen {
			order = append(order, name)
		}
		values[name] = append(values[name], value)
	}

	out := make([]reportapi.ParameterValue, 0, len(order))
	for _, name := range order {
		v := values[name]
		if len(v) == 1 {
			out = append(out, reportapi.ParameterValue{Name: name, Value: v[0]})
		} else {
			out = append(out, reportapi.ParameterValue{Name: name, Value: v})
		}
	}
	return out, nil
}

func runView(cmd *cobra.Command, args []string) error {
	a, err := setup(true)
	if err != nil {
		return err
	}
	defer a.shutdown()

	pairs, _ := cmd.Flags().GetStringArray("param")
	initial, err := parseParamFlags(pairs)
	if err != nil {
		return err
	}
	showOutline, _ := cmd.Flags().GetBool("outline")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := a.client(ctx)
	if err != nil {
		return err
	}

	st, err := a.journal()
	if err != nil {
		logger.Warn("Session journal unavailable, continuing without it", zap.Error(err))
	}
	if st != nil {
		defer database.Close()
		if _, err := recoverOrphans(ctx, st, client); err != nil {
			logger.Warn("Orphan recovery failed", zap.Error(err))
		}
		cleanup := store.NewCleanupService(st.Session(), a.cfg.Journal.RetentionDays)
		if err := cleanup.Start(); err != nil {
			logger.Warn("Failed to start journal cleanup", zap.Error(err))
		} else {
			defer cleanup.Stop()
		}
	}

	session := document.NewReportSession(client, sourceFromFlags(cmd, args[0], a.cfg.Viewer.Paginated))
	var tracker *recovery.Tracker
	if st != nil {
		tracker, err = recovery.Track(st.Session(), client.BaseURL(), session)
		if err != nil {
			logger.Warn("Failed to journal session", zap.Error(err))
		} else {
			defer tracker.Close()
		}
	}

	term := tui.NewTerminal(os.Stdout)
	ctrl := viewer.New(term,
		viewer.WithPollInterval(a.cfg.Viewer.PollInterval),
		viewer.WithEditorOptions(parameter.WithValidationDelay(a.cfg.Viewer.ValidationDelay)),
	)

	fmt.Println(tui.Title(session.Describe()))

	// The loop outlives an interrupt so that Close can still dispose the cache.
	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()
	runErr := make(chan error, 1)
	go func() { runErr <- ctrl.Run(runCtx) }()

	var req *reportapi.LoadRequest
	if len(initial) > 0 {
		req = &reportapi.LoadRequest{Parameters: initial}
	}
	ctrl.Bind(session)
	ctrl.Open(req)

	viewErr := follow(ctx, session, term, tracker, showOutline, runErr)

	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := ctrl.Close(closeCtx); err != nil {
		logger.Warn("Failed to close document", zap.Error(err))
	} else if tracker != nil {
		tracker.Disposed()
	}
	return viewErr
}

// follow answers parameter prompts until the document finishes, an error
// is shown or the user interrupts
func follow(ctx context.Context, session *document.ReportSession, term *tui.Terminal,
	tracker *recovery.Tracker, showOutline bool, runErr <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-runErr:
			return err

		case err := <-term.Errors():
			return err

		case editor := <-term.Prompts():
			values, err := prompt(ctx, editor)
			if err != nil {
				if stderrors.Is(err, huh.ErrUserAborted) || ctx.Err() != nil {
					return nil
				}
				return err
			}
			if tracker != nil {
				tracker.RecordParameters(values)
			}

		case snap := <-term.Finished():
			if snap.Status == reportapi.StatusCompleted && showOutline {
				printOutline(ctx, session)
			}
			return nil
		}
	}
}

// prompt runs the parameter form until the values pass validation
func prompt(ctx context.Context, editor *parameter.Editor) ([]reportapi.ParameterValue, error) {
	for {
		values, err := tui.NewForm(editor).Run(ctx)
		if err == nil {
			return values, nil
		}
		if !errors.IsCode(err, errors.ErrCodeValidation) {
			return nil, err
		}
		tui.PrintError(os.Stderr, err)
		for name, msg := range editor.Errors() {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", name, msg)
		}
	}
}

func printOutline(ctx context.Context, session *document.ReportSession) {
	nodes, err := session.Outlines(ctx)
	if err != nil {
		logger.Debug("No outline available", zap.Error(err))
		return
	}
	if len(nodes) == 0 {
		return
	}
	fmt.Println(tui.Section("Outline"))
	tui.PrintOutline(os.Stdout, nodes)
}
