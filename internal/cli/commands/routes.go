package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-iacgen/internal/cli/ui"
	"github.com/goliatone/go-iacgen/pkg/catalog"
	"github.com/goliatone/go-iacgen/pkg/model"
)

func newListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [group]",
		Short: "List the available generators",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry(cmd.Context())
			if err != nil {
				return err
			}

			entries := reg.Entries()
			if len(args) == 1 {
				entries = reg.InGroup(args[0])
				if len(entries) == 0 {
					return fmt.Errorf("no generators in group %q (groups: %s)", args[0], strings.Join(reg.Groups(), ", "))
				}
			}

			table := ui.NewTable(cmd.OutOrStdout(), a.noColor, "ID", "PATH", "GROUP", "TITLE")
			for _, entry := range entries {
				table.AddRow(entry.Route.ID, entry.Route.Path, entry.Route.Group, entry.Definition.Title)
			}
			table.Render()
			return nil
		},
	}
}

func newShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|path>",
		Short: "Describe a generator and its form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry(cmd.Context())
			if err != nil {
				return err
			}
			entry, err := reg.Lookup(args[0])
			if err != nil {
				return err
			}
			describe(cmd, a, entry)
			return nil
		},
	}
}

func describe(cmd *cobra.Command, a *app, entry catalog.Entry) {
	out := cmd.OutOrStdout()
	def := entry.Definition

	pairs := [][2]string{
		{"ID", def.ID},
		{"Title", def.Title},
		{"Request", def.Primary.String()},
		{"Response", string(def.Response)},
	}
	if def.Secondary != nil {
		pairs = append(pairs, [2]string{"Then", def.Secondary.Target.String()})
	}
	if def.Download != nil {
		pairs = append(pairs, [2]string{"Download", def.Download.Folder + "/" + def.Download.Source})
	}
	if def.Filename != "" {
		pairs = append(pairs, [2]string{"Filename", def.Filename})
	}
	if entry.Route.Description != "" {
		pairs = append(pairs, [2]string{"About", entry.Route.Description})
	}
	ui.KeyValue(out, a.noColor, pairs...)
	fmt.Fprintln(out)

	table := ui.NewTable(out, a.noColor, "FIELD", "TYPE", "REQUIRED", "DEFAULT", "CHOICES")
	addFieldRows(table, def.Form.Fields, "")
	table.Render()
}

func addFieldRows(table *ui.Table, fields []model.Field, prefix string) {
	for _, field := range fields {
		name := field.Name
		if prefix != "" {
			name = prefix + "." + name
		}
		required := ""
		if field.Required {
			required = "yes"
		}
		def := ""
		if field.Default != nil {
			def = fmt.Sprint(field.Default)
		}
		table.AddRow(name, fieldType(field), required, def, choices(field))

		switch {
		case field.Repeats():
			addFieldRows(table, field.Nested, name+"[]")
		case len(field.Nested) > 0:
			addFieldRows(table, field.Nested, name)
		}
	}
}

func fieldType(field model.Field) string {
	switch {
	case field.Metadata[model.MetadataSecret] == "true":
		return "secret"
	case field.Type == model.FieldTypeArray && field.Items != nil:
		return "list of " + string(field.Items.Type)
	case field.Repeats():
		return "rows"
	}
	return string(field.Type)
}

func choices(field model.Field) string {
	if field.DynamicOptions() {
		return "(listed by " + field.Metadata[model.MetadataOptionsSource] + ")"
	}
	options := field.Options
	if field.Items != nil && len(options) == 0 {
		options = field.Items.Options
	}
	labels := make([]string, 0, len(options))
	for _, opt := range options {
		labels = append(labels, fmt.Sprint(opt.Value))
	}
	return strings.Join(labels, ", ")
}
