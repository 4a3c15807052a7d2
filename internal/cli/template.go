package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// NewTemplateCmd создаёт группу команд для управления templates.
func NewTemplateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage workflow templates",
	}

	cmd.AddCommand(
		newTemplateListCmd(clientFn, outputFn),
		newTemplateCreateCmd(clientFn, outputFn),
		newTemplateShowCmd(clientFn, outputFn),
		newTemplateDeactivateCmd(clientFn, outputFn),
	)

	return cmd
}

func newTemplateListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			templates, err := client.ListTemplates()
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "CATEGORY", "PRIORITY", "STEPS", "ACTIVE", "CREATED"}
			rows := make([][]string, len(templates))
			for i, t := range templates {
				rows[i] = []string{
					t.ID, t.Name, t.Category, t.Priority,
					strconv.Itoa(len(t.Steps)), strconv.FormatBool(t.Active), t.CreatedAt,
				}
			}

			out.Print(headers, rows, templates)
			return nil
		},
	}
}

func newTemplateCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var specFile string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new template from JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := os.ReadFile(specFile)
			if err != nil {
				return fmt.Errorf("failed to read template file: %w", err)
			}

			// Валидируем что это валидный JSON
			if !json.Valid(data) {
				return fmt.Errorf("template file is not valid JSON")
			}

			tpl, err := client.CreateTemplate(json.RawMessage(data))
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Template created: %s", tpl.ID))
			out.Print(
				[]string{"ID", "NAME", "CATEGORY", "PRIORITY", "STEPS", "ACTIVE"},
				[][]string{{tpl.ID, tpl.Name, tpl.Category, tpl.Priority,
					strconv.Itoa(len(tpl.Steps)), strconv.FormatBool(tpl.Active)}},
				tpl,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&specFile, "file", "", "Path to template JSON file (required)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newTemplateShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show template details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			tpl, err := client.GetTemplate(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "NAME", "CATEGORY", "PRIORITY", "STEPS", "ACTIVE", "CREATED"},
				[][]string{{tpl.ID, tpl.Name, tpl.Category, tpl.Priority,
					strconv.Itoa(len(tpl.Steps)), strconv.FormatBool(tpl.Active), tpl.CreatedAt}},
				tpl,
			)
			return nil
		},
	}
}

func newTemplateDeactivateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate ID",
		Short: "Deactivate a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeactivateTemplate(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Template deactivated: %s", args[0]))
			return nil
		},
	}
}
