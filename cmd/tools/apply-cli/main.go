// cmd/tools/apply-cli/main.go
package main

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"application-workflow/internal/common/config"
	"application-workflow/internal/common/logger"
	"application-workflow/internal/models"
	"application-workflow/internal/workflow/backend"
	"application-workflow/internal/workflow/draftsync"
	"application-workflow/internal/workflow/localdraft"
	"application-workflow/internal/workflow/postsubmit"
	"application-workflow/internal/workflow/wizard"

	"github.com/spf13/cobra"
)

type options struct {
	configPath  string
	postingID   string
	answersPath string
	noCache      bool
	interactive  bool
	analysisWait time.Duration
}

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "apply-cli",
		Short:         "Apply to a job posting from the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (defaults and env when empty)")

	apply := &cobra.Command{
		Use:   "apply",
		Short: "Fill and submit an application from a YAML answer file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runApply(ctx, opts, in, out)
		},
	}
	apply.Flags().StringVar(&opts.postingID, "posting", "", "posting id (overrides posting_id in the answer file)")
	apply.Flags().StringVarP(&opts.answersPath, "answers", "a", "", "YAML answer file")
	apply.Flags().BoolVar(&opts.noCache, "no-cache", false, "keep the local draft in memory only")
	apply.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "prompt for questions the answer file does not cover")
	apply.Flags().DurationVar(&opts.analysisWait, "analysis-wait", 30*time.Second, "how long to let the post-submission analysis finish before exiting")

	root.AddCommand(apply)
	return root
}

func runApply(ctx context.Context, opts *options, in io.Reader, out io.Writer) error {
	cfg, err := config.LoadWorkflow(opts.configPath)
	if err != nil {
		return err
	}
	log := logger.NewStructured(cfg.Logging.Level, "console")

	af := &AnswerFile{}
	if opts.answersPath != "" {
		if af, err = readAnswerFile(opts.answersPath); err != nil {
			return err
		}
	}
	postingID := opts.postingID
	if postingID == "" {
		postingID = af.PostingID
	}
	if postingID == "" {
		return fmt.Errorf("a posting id is required (--posting or posting_id in the answer file)")
	}

	var cache localdraft.Cache = localdraft.NewMemoryCache()
	if !opts.noCache && cfg.Workflow.LocalCachePath != "" {
		sqlite, err := localdraft.OpenSQLite(cfg.Workflow.LocalCachePath, log)
		if err != nil {
			log.Warn("local draft cache unavailable, using memory", map[string]interface{}{"error": err.Error()})
		} else {
			defer sqlite.Close()
			cache = sqlite
		}
	}

	client := backend.New(cfg.Workflow.ServerURL, config.GetDuration(cfg.Workflow.RequestTimeout))
	session := wizard.New(wizard.Config{
		PostingID: postingID,
		Drafts: draftsync.Config{
			Delay:             config.GetDuration(cfg.Workflow.DraftDebounce),
			PlaceholderDomain: cfg.Workflow.PlaceholderDomain,
		},
		Redirect: postsubmit.Config{
			AssessmentRoute: cfg.Workflow.ServerURL + cfg.Workflow.AssessmentRoute,
			PostingsRoute:   cfg.Workflow.ServerURL + cfg.Workflow.PostingsRoute,
			Delay:           config.GetDuration(cfg.Workflow.RedirectDelay),
		},
		RequestTimeout: config.GetDuration(cfg.Workflow.RequestTimeout),
	}, wizard.Deps{Backend: client, Cache: cache}, log)
	defer session.Close()

	if err := session.Open(ctx); err != nil {
		return fmt.Errorf("open posting %s: %w", postingID, err)
	}
	session.WaitAugmentation()

	view := session.View()
	fmt.Fprintf(out, "Vaga: %s (%d etapas)\n", view.Posting.Title, view.StepCount)
	if view.Step > 0 {
		fmt.Fprintf(out, "Rascunho recuperado na etapa %d\n", view.Step+1)
	}

	var applyErr error
	if err := session.Update(func(f *models.FormState) { applyErr = af.Apply(f) }); err != nil {
		return err
	}
	if applyErr != nil {
		return applyErr
	}

	if err := walkSteps(session, bufio.NewReader(in), out, opts.interactive); err != nil {
		return err
	}

	fmt.Fprintln(out, "Enviando candidatura...")
	decision, err := session.Submit(ctx)
	if err != nil {
		printFailure(out, session, err)
		return err
	}

	if decision.Modal != nil {
		m := decision.Modal
		fmt.Fprintf(out, "Você já se candidatou para %s (referência %s).\n", m.PostingTitle, m.MaskedReference)
		fmt.Fprintf(out, "Veja outras vagas: %s\n", m.PostingsURL)
		return nil
	}

	fmt.Fprintln(out, "Candidatura enviada! Redirecionando para o teste comportamental...")
	if err := session.Redirect(ctx, postsubmit.NavigatorFunc(func(_ context.Context, url string) error {
		fmt.Fprintln(out, url)
		return nil
	})); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, opts.analysisWait)
	defer cancel()
	if err := session.WaitAnalysis(waitCtx); err != nil {
		log.Warn("analysis still running, abandoning it", map[string]interface{}{"error": err.Error()})
	}
	return nil
}

// walkSteps advances from the current step to the last one, prompting for
// failing question steps when interactive.
func walkSteps(session *wizard.Session, in *bufio.Reader, out io.Writer, interactive bool) error {
	for {
		before := session.View()
		_, err := session.Next()

		var stepErr *wizard.StepError
		switch {
		case err == nil:
			if session.View().Step == before.Step {
				return nil
			}
			continue
		case !stderrors.As(err, &stepErr):
			return err
		}

		printFieldErrors(out, stepErr.FieldErrors)
		if !interactive || before.Question == nil {
			return err
		}
		answer, perr := prompt(in, out, *before.Question)
		if perr != nil {
			return perr
		}
		q := before.Question
		if uerr := session.Update(func(f *models.FormState) { f.SetAnswer(q.ID, answer) }); uerr != nil {
			return uerr
		}
	}
}

func prompt(in *bufio.Reader, out io.Writer, q models.Question) (models.AnswerValue, error) {
	fmt.Fprintf(out, "%s\n", q.Title)
	if q.Description != "" {
		fmt.Fprintf(out, "  %s\n", q.Description)
	}
	if len(q.Options) > 0 {
		fmt.Fprintf(out, "  opções: %s\n", strings.Join(q.Options, " | "))
	}
	if q.Type == models.QuestionCheckbox {
		fmt.Fprint(out, "  (separe por vírgulas) ")
	}
	fmt.Fprint(out, "> ")

	line, err := in.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return models.AnswerValue{}, fmt.Errorf("read answer: %w", err)
	}
	line = strings.TrimSpace(line)

	if q.Type == models.QuestionCheckbox {
		var items []string
		for _, item := range strings.Split(line, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return models.ListAnswer(items...), nil
	}
	return models.TextAnswer(line), nil
}

func printFieldErrors(out io.Writer, fieldErrors map[string]string) {
	for field, msg := range fieldErrors {
		fmt.Fprintf(out, "  %s: %s\n", field, msg)
	}
}

func printFailure(out io.Writer, session *wizard.Session, err error) {
	var stepErr *wizard.StepError
	if stderrors.As(err, &stepErr) {
		fmt.Fprintf(out, "Etapa %d incompleta:\n", stepErr.Step+1)
		printFieldErrors(out, stepErr.FieldErrors)
		return
	}
	if msg := session.View().Error; msg != "" {
		fmt.Fprintln(out, msg)
	}
}
