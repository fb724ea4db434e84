package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/untillpro/goutils/logger"

	"github.com/goliatone/go-formstate/internal/prompt"
	"github.com/goliatone/go-formstate/internal/store/sqlite"
	"github.com/goliatone/go-formstate/pkg/autosave"
	"github.com/goliatone/go-formstate/pkg/contextdata"
	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/session"
	"github.com/goliatone/go-formstate/pkg/store"
	"github.com/goliatone/go-formstate/pkg/templates"
)

func lintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint <template>...",
		Short: "Report authoring problems in templates",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := templates.NewLoader(templates.WithLenient())
			report := make(map[string][]schema.Issue, len(args))
			failed := 0
			for _, path := range args {
				_, issues, err := loader.Load(cmd.Context(), templates.SourceFromFile(path))
				if err != nil {
					return err
				}
				report[path] = issues
				if schema.HasErrors(issues) {
					failed++
				}
			}
			if viper.GetBool("json") {
				if err := printJSON(report); err != nil {
					return err
				}
			} else {
				tw := newTable()
				tw.AppendHeader(table.Row{"Template", "Severity", "Path", "Field", "Message"})
				for _, path := range args {
					for _, issue := range report[path] {
						tw.AppendRow(table.Row{path, issue.Severity, issue.Path, issue.Field, issue.Message})
					}
				}
				tw.Render()
			}
			if failed > 0 {
				return fmt.Errorf("%d template(s) have lint errors", failed)
			}
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	var valuesPath string
	cmd := &cobra.Command{
		Use:   "validate <template>",
		Short: "Validate a set of values against a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tpl, _, err := loadTemplate(ctx, args[0])
			if err != nil {
				return err
			}
			input, err := readValues(valuesPath)
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(ctx, tpl)
			if err != nil {
				return err
			}

			opts := []session.Option{session.WithDraft(store.Draft{
				TemplateID:      tpl.ID,
				TemplateVersion: tpl.Version,
				Values:          input.Values,
				Instances:       input.Instances,
			})}
			if catalog != nil {
				opts = append(opts, session.WithCatalog(catalog))
			}
			sess, err := session.New(tpl, opts...)
			if err != nil {
				return err
			}
			defer sess.Close()

			valid, err := sess.Validate()
			if err != nil {
				return err
			}
			st := sess.State()
			errs := st.Errors()

			if viper.GetBool("json") {
				sections := make([]string, 0, len(st.VisibleSections()))
				for _, section := range st.VisibleSections() {
					sections = append(sections, section.ID)
				}
				if err := printJSON(map[string]any{
					"valid":            valid,
					"errors":           errs,
					"completion":       st.Completion(),
					"visible_sections": sections,
				}); err != nil {
					return err
				}
			} else {
				keys := make([]string, 0, len(errs))
				for key := range errs {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				tw := newTable()
				tw.AppendHeader(table.Row{"Field", "Error"})
				for _, key := range keys {
					tw.AppendRow(table.Row{key, errs[key]})
				}
				tw.AppendFooter(table.Row{"Completion", fmt.Sprintf("%d%%", st.Completion())})
				tw.Render()
			}
			if !valid {
				return fmt.Errorf("%s: %d field(s) invalid", args[0], len(errs))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&valuesPath, "values", "", "values file (YAML or JSON)")
	_ = cmd.MarkFlagRequired("values")
	return cmd
}

func fillCmd() *cobra.Command {
	var (
		resume   string
		interval time.Duration
		draft    bool
	)
	cmd := &cobra.Command{
		Use:   "fill <template>",
		Short: "Fill a template interactively and submit it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tpl, _, err := loadTemplate(ctx, args[0])
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(ctx, tpl)
			if err != nil {
				return err
			}
			return withStore(func(db sqlite.Store) error {
				opts := []session.Option{session.WithStore(db)}
				if catalog != nil {
					opts = append(opts, session.WithCatalog(catalog))
				}
				var sess *session.Session
				if resume != "" {
					sess, err = session.Resume(ctx, tpl, db, resume, opts...)
				} else {
					sess, err = session.New(tpl, opts...)
				}
				if err != nil {
					return err
				}
				defer sess.Close()
				return runFill(ctx, sess, catalog, args[0], interval, draft)
			})
		},
	}
	cmd.Flags().StringVar(&resume, "resume", "", "session id of a saved draft to continue")
	cmd.Flags().DurationVar(&interval, "autosave", autosave.DefaultInterval, "autosave interval")
	cmd.Flags().BoolVar(&draft, "draft", false, "save a draft instead of submitting")
	cmd.Flags().Int("page-size", 10, "options shown at once in choice prompts")
	_ = viper.BindPFlag("page-size", cmd.Flags().Lookup("page-size"))
	return cmd
}

func runFill(ctx context.Context, sess *session.Session, catalog *contextdata.Catalog, tplPath string, interval time.Duration, draftOnly bool) error {
	scheduler := autosave.New(sess,
		autosave.WithInterval(interval),
		autosave.OnSave(func(out autosave.Outcome) {
			if out.Err != nil {
				logger.Warning("formstate: autosave failed:", out.Err)
			}
		}),
	)
	scheduler.Start(ctx)
	driver := prompt.NewSurveyDriver(
		prompt.WithStdio(os.Stdin, os.Stdout, os.Stderr),
		prompt.WithPageSize(viper.GetInt("page-size")),
	)
	fillErr := prompt.NewFiller(prompt.WithDriver(driver), prompt.WithCatalog(catalog)).Fill(ctx, sess)
	scheduler.Stop()

	resumeHint := func() error {
		if err := sess.SaveDraft(ctx); err != nil {
			return err
		}
		fmt.Printf("Draft saved. Continue with: formstate fill --resume %s %s\n", sess.ID(), tplPath)
		return nil
	}

	if fillErr != nil {
		if errors.Is(fillErr, prompt.ErrAborted) {
			return resumeHint()
		}
		return fillErr
	}
	if draftOnly {
		return resumeHint()
	}

	err := sess.Submit(ctx, sess.State().Attachments())
	var submitErr *session.SubmitError
	switch {
	case err == nil:
		fmt.Printf("Submitted %s (%d%% complete)\n", sess.ID(), sess.State().Completion())
		return nil
	case errors.Is(err, session.ErrInvalid):
		tw := newTable()
		tw.AppendHeader(table.Row{"Field", "Error"})
		for key, msg := range sess.State().VisibleErrors() {
			tw.AppendRow(table.Row{key, msg})
		}
		tw.SortBy([]table.SortBy{{Number: 1, Mode: table.Asc}})
		tw.Render()
		if saveErr := resumeHint(); saveErr != nil {
			logger.Error("formstate: save draft:", saveErr)
		}
		return err
	case errors.As(err, &submitErr):
		fmt.Println(submitErr.Message)
		if saveErr := resumeHint(); saveErr != nil {
			logger.Error("formstate: save draft:", saveErr)
		}
		return err
	default:
		return err
	}
}

func draftsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "List saved drafts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(db sqlite.Store) error {
				drafts, err := db.Drafts(cmd.Context())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(drafts)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"Session", "Template", "Version", "Instances", "Saved"})
				for _, d := range drafts {
					tw.AppendRow(table.Row{d.SessionID, d.TemplateID, d.TemplateVersion, len(d.Instances), d.SavedAt.Local().Format(time.DateTime)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <session-id>",
		Short: "Delete a saved draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(db sqlite.Store) error {
				return db.DeleteDraft(cmd.Context(), args[0])
			})
		},
	})
	return cmd
}

func templatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the templates in the --templates directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dir := viper.GetString("templates")
			if dir == "" {
				return fmt.Errorf("--templates is required")
			}
			reg, err := openRegistry(ctx, newLoader(), dir)
			if err != nil {
				return err
			}
			type row struct {
				ID      string `json:"id"`
				Name    string `json:"name"`
				Version int    `json:"version"`
				Error   string `json:"error,omitempty"`
			}
			var rows []row
			for _, id := range reg.IDs() {
				r := row{ID: id}
				if tpl, err := reg.Get(ctx, id); err != nil {
					r.Error = err.Error()
				} else {
					r.Name, r.Version = tpl.Name, tpl.Version
				}
				rows = append(rows, r)
			}
			if viper.GetBool("json") {
				return printJSON(rows)
			}
			tw := newTable()
			tw.AppendHeader(table.Row{"ID", "Name", "Version", "Error"})
			for _, r := range rows {
				tw.AppendRow(table.Row{r.ID, r.Name, r.Version, r.Error})
			}
			tw.Render()
			return nil
		},
	}
}

func submissionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submission <session-id>",
		Short: "Show a stored submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(db sqlite.Store) error {
				sub, err := db.Submission(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(sub)
				}
				codes := make([]string, 0, len(sub.Values))
				for code := range sub.Values {
					codes = append(codes, code)
				}
				sort.Strings(codes)
				tw := newTable()
				tw.SetTitle("%s v%d, submitted %s", sub.TemplateID, sub.TemplateVersion, sub.SubmittedAt.Local().Format(time.DateTime))
				tw.AppendHeader(table.Row{"Field", "Value"})
				for _, code := range codes {
					tw.AppendRow(table.Row{code, fmt.Sprint(sub.Values[code])})
				}
				for _, instance := range sub.Instances {
					for code, value := range instance.Values {
						tw.AppendRow(table.Row{fmt.Sprintf("%s/%s[%d]", instance.SectionID, code, instance.Ordinal), fmt.Sprint(value)})
					}
				}
				for _, a := range sub.Attachments {
					tw.AppendRow(table.Row{a.FieldCode, fmt.Sprintf("attachment %s (%s)", a.Name, a.Ref)})
				}
				tw.Render()
				return nil
			})
		},
	}
}
