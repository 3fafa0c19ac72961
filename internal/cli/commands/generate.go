package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-iacgen"
	"github.com/goliatone/go-iacgen/internal/cli/ui"
	"github.com/goliatone/go-iacgen/pkg/catalog"
	"github.com/goliatone/go-iacgen/pkg/client"
	"github.com/goliatone/go-iacgen/pkg/download"
	"github.com/goliatone/go-iacgen/pkg/forminput"
	"github.com/goliatone/go-iacgen/pkg/model"
	"github.com/goliatone/go-iacgen/pkg/prompt"
	"github.com/goliatone/go-iacgen/pkg/validation"
	"github.com/goliatone/go-iacgen/pkg/workflow"
)

type generateOptions struct {
	valuesFile string
	sets       []string
	outputDir  string
	stdout     bool
	noInput    bool
}

func newGenerateCommand(a *app) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate <id|path>",
		Short: "Fill in a generator form and save the artifact",
		Long: `Fill in a generator form and save the artifact.

Values come from a YAML/JSON file (--values) and --set key=value flags. On a
terminal, any field left out is asked for interactively unless --no-input is
given.`,
		Example: `  iacgen generate docker-install --set os=ubuntu --set environment=Docker
  iacgen generate /grafana/mysql -f mysql.yaml --stdout`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.generate(cmd, args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.valuesFile, "values", "f", "", "values file (YAML or JSON)")
	flags.StringArrayVar(&opts.sets, "set", nil, "set a field value (key=value, dotted keys for groups)")
	flags.StringVarP(&opts.outputDir, "output-dir", "o", "", "directory the artifact is saved in (default from config)")
	flags.BoolVar(&opts.stdout, "stdout", false, "write the artifact to stdout instead of a file")
	flags.BoolVar(&opts.noInput, "no-input", false, "never prompt; fail on missing values")
	return cmd
}

func (a *app) generate(cmd *cobra.Command, key string, opts *generateOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	reg, err := a.registry(ctx)
	if err != nil {
		return err
	}
	entry, err := reg.Lookup(key)
	if err != nil {
		return err
	}
	api, err := a.client(ctx)
	if err != nil {
		return err
	}

	raw := map[string]any{}
	if opts.valuesFile != "" {
		if raw, err = forminput.LoadFile(opts.valuesFile); err != nil {
			return err
		}
	}
	if raw, err = forminput.ApplyAssignments(raw, opts.sets); err != nil {
		return err
	}

	fetcher := catalog.NewOptionsFetcher(api, a.cfg.OptionsTTL)
	form := entry.Definition.Form.Clone()
	if mentionsDynamicField(form, raw) {
		if err := fetcher.Populate(ctx, &form, raw); err != nil {
			return err
		}
	}

	values, err := forminput.Decode(form, raw)
	if err != nil {
		return err
	}

	if !opts.noInput && isTerminal(cmd.InOrStdin()) {
		collector := prompt.New(
			prompt.WithOptionsProvider(fetcher),
			prompt.WithMissingOnly(len(raw) > 0),
			prompt.WithLogger(a.logger.Named("prompt")),
		)
		if values, err = collector.Collect(ctx, form, values); err != nil {
			return err
		}
		// Options fetched while prompting must be known to the validator.
		if err := fetcher.Populate(ctx, &form, plainValues(values)); err != nil {
			return err
		}
	} else {
		values = withDefaults(form, values)
	}

	def := entry.Definition
	def.Form = form

	var sink download.Sink
	if opts.stdout {
		sink = download.NewWriterSink(cmd.OutOrStdout())
	} else {
		dir := opts.outputDir
		if dir == "" {
			dir = a.cfg.OutputDir
		}
		sink = download.NewFileSink(dir)
	}

	stderr := cmd.ErrOrStderr()
	notifier := ui.NewNotifier(stderr, a.noColor)
	inst, err := iacgen.NewWorkflow(catalog.Entry{Route: entry.Route, Definition: def},
		workflow.WithTransport(api),
		workflow.WithSaver(download.NewExecutor(sink, download.WithLogger(a.logger.Named("download")))),
		workflow.WithNotifier(notifier),
		workflow.WithLogger(a.logger.Named("workflow")),
		workflow.WithObserver(func(tr workflow.Transition) {
			a.logger.Debug("workflow transition",
				zap.String("submission_id", tr.SubmissionID.String()),
				zap.String("state", string(tr.To)),
			)
		}),
	)
	if err != nil {
		return err
	}

	result, err := inst.Submit(ctx, values)
	if err != nil {
		return a.reportFailure(stderr, form, err)
	}
	if !opts.stdout {
		ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("Saved %s (%d bytes)", result.Location, result.Bytes), a.noColor)
	}
	return nil
}

// reportFailure prints what the notifier does not: per-field validation
// issues and server errors mapped onto form fields.
func (a *app) reportFailure(w io.Writer, form model.FormModel, err error) error {
	var invalid *validation.Error
	if errors.As(err, &invalid) {
		fmt.Fprintln(w, ui.FormatNotice(ui.LevelError, "The form has invalid values:", a.noColor))
		mapping := workflow.ErrorMapping{Fields: map[string][]string{}}
		for _, issue := range invalid.Result.Issues {
			mapping.Fields[issue.Field] = append(mapping.Fields[issue.Field], issue.Message)
		}
		ui.WriteFieldErrors(w, mapping, a.noColor)
		return ErrReported
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		if mapping := workflow.FieldErrors(form, apiErr); len(mapping.Fields) > 0 {
			ui.WriteFieldErrors(w, workflow.ErrorMapping{Fields: mapping.Fields}, a.noColor)
		}
	}
	return ErrReported
}

func mentionsDynamicField(form model.FormModel, raw map[string]any) bool {
	for _, field := range form.Fields {
		if _, ok := raw[field.Name]; ok && field.DynamicOptions() {
			return true
		}
	}
	return false
}

// withDefaults lays values over the form defaults. Groups merge key by key so
// a values file can set one field of a group and keep the other defaults.
func withDefaults(form model.FormModel, values forminput.Values) forminput.Values {
	return mergeValues(forminput.Defaults(form), values)
}

func mergeValues(base, over forminput.Values) forminput.Values {
	out := base.Clone()
	if out == nil {
		out = forminput.Values{}
	}
	for key, value := range over {
		switch typed := value.(type) {
		case forminput.Values:
			if prev, ok := out[key].(forminput.Values); ok {
				out[key] = mergeValues(prev, typed)
				continue
			}
		case forminput.Toggle:
			if prev, ok := out[key].(forminput.Toggle); ok && typed.Enabled {
				out[key] = forminput.On(mergeValues(prev.Fields, typed.Fields))
				continue
			}
		}
		out[key] = forminput.CloneValue(value)
	}
	return out
}

func plainValues(values forminput.Values) map[string]any {
	plain, _ := forminput.Plain(values).(map[string]any)
	return plain
}

func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
