package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewInstanceCmd создаёт группу команд для управления instances.
func NewInstanceCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instance",
		Short: "Manage workflow instances",
	}

	cmd.AddCommand(
		newInstanceListCmd(clientFn, outputFn),
		newInstanceStartCmd(clientFn, outputFn),
		newInstanceShowCmd(clientFn, outputFn),
		newInstanceApproveCmd(clientFn, outputFn),
		newInstanceRejectCmd(clientFn, outputFn),
		newInstanceCancelCmd(clientFn, outputFn),
		newInstanceRecheckCmd(clientFn, outputFn),
		newInstanceAuditCmd(clientFn, outputFn),
	)

	return cmd
}

func newInstanceListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var templateID string
	var status string
	var priority string
	var sortDueAt bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			instances, err := client.ListInstances(ListInstancesOpts{
				TemplateID: templateID,
				Status:     status,
				Priority:   priority,
				SortDueAt:  sortDueAt,
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "TEMPLATE", "STATUS", "STEP", "PRIORITY", "DUE", "CREATED"}
			rows := make([][]string, len(instances))
			for i, inst := range instances {
				rows[i] = []string{
					inst.ID, inst.TemplateName, inst.Status,
					fmt.Sprintf("%d/%d", inst.CurrentStepIndex, len(inst.Steps)),
					inst.Priority, inst.DueAt, inst.CreatedAt,
				}
			}

			out.Print(headers, rows, instances)
			return nil
		},
	}

	cmd.Flags().StringVar(&templateID, "template-id", "", "Filter by template ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, IN_PROGRESS, COMPLETED, REJECTED, CANCELLED)")
	cmd.Flags().StringVar(&priority, "priority", "", "Filter by priority (LOW, MEDIUM, HIGH, CRITICAL)")
	cmd.Flags().BoolVar(&sortDueAt, "sort-due", false, "Sort by due date")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newInstanceStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var initiatedBy string
	var subject string
	var priority string
	var payload []string

	cmd := &cobra.Command{
		Use:   "start TEMPLATE_ID",
		Short: "Start a new instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := StartInstanceRequest{
				InitiatedBy: initiatedBy,
				Subject:     subject,
				Priority:    priority,
			}

			if len(payload) > 0 {
				req.Payload = make(map[string]any)
				for _, kv := range payload {
					parts := strings.SplitN(kv, "=", 2)
					if len(parts) != 2 {
						return fmt.Errorf("invalid payload format %q, expected KEY=VALUE", kv)
					}
					req.Payload[parts[0]] = parts[1]
				}
			}

			inst, err := client.StartInstance(args[0], req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Instance started: %s", inst.ID))
			out.Print(
				[]string{"ID", "TEMPLATE", "STATUS", "STEP", "PRIORITY"},
				[][]string{{inst.ID, inst.TemplateName, inst.Status,
					fmt.Sprintf("%d/%d", inst.CurrentStepIndex, len(inst.Steps)), inst.Priority}},
				inst,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&initiatedBy, "initiated-by", "", "Who initiates the instance (required)")
	cmd.Flags().StringVar(&subject, "subject", "", "Case description, e.g. employee name")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority (LOW, MEDIUM, HIGH, CRITICAL)")
	cmd.Flags().StringSliceVar(&payload, "payload", nil, "Payload values as KEY=VALUE (repeatable)")
	cmd.MarkFlagRequired("initiated-by")

	return cmd
}

func newInstanceShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show instance details with steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			inst, err := client.GetInstance(args[0])
			if err != nil {
				return err
			}

			headers := []string{"STEP_ID", "NAME", "KIND", "DONE", "BY", "COMMENT"}
			rows := make([][]string, len(inst.Steps))
			for i, s := range inst.Steps {
				rows[i] = []string{s.ID, s.Name, s.Kind, strconv.FormatBool(s.Completed), s.CompletedBy, s.Comment}
			}

			out.Success(fmt.Sprintf("Instance %s [%s] status=%s step=%d/%d",
				inst.ID, inst.TemplateName, inst.Status, inst.CurrentStepIndex, len(inst.Steps)))
			out.Print(headers, rows, inst)
			return nil
		},
	}
}

func newInstanceApproveCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var role string
	var comment string

	cmd := &cobra.Command{
		Use:   "approve ID",
		Short: "Approve the current approval step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			inst, err := client.ApproveInstance(args[0], DecisionRequest{Role: role, Comment: comment})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Approved: %s now %s at step %d/%d",
				inst.ID, inst.Status, inst.CurrentStepIndex, len(inst.Steps)))
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Acting role, must match the step's required role (required)")
	cmd.Flags().StringVar(&comment, "comment", "", "Optional comment")
	cmd.MarkFlagRequired("role")

	return cmd
}

func newInstanceRejectCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var role string
	var comment string

	cmd := &cobra.Command{
		Use:   "reject ID",
		Short: "Reject the instance at the current approval step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			inst, err := client.RejectInstance(args[0], DecisionRequest{Role: role, Comment: comment})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Rejected: %s", inst.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Acting role, must match the step's required role (required)")
	cmd.Flags().StringVar(&comment, "comment", "", "Optional comment")
	cmd.MarkFlagRequired("role")

	return cmd
}

func newInstanceCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var actor string
	var reason string

	cmd := &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			inst, err := client.CancelInstance(args[0], CancelRequest{Actor: actor, Reason: reason})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Cancelled: %s", inst.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "Who cancels the instance")
	cmd.Flags().StringVar(&reason, "reason", "", "Cancellation reason")

	return cmd
}

func newInstanceRecheckCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "recheck ID",
		Short: "Force re-evaluation of the current step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			inst, err := client.RecheckInstance(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Rechecked: %s status=%s step=%d/%d",
				inst.ID, inst.Status, inst.CurrentStepIndex, len(inst.Steps)))
			return nil
		},
	}
}

func newInstanceAuditCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "audit INSTANCE_ID",
		Short: "Show audit trail for an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			events, err := client.ListAudit(args[0])
			if err != nil {
				return err
			}

			headers := []string{"TIME", "KIND", "STEP", "ACTOR", "DETAIL"}
			rows := make([][]string, len(events))
			for i, e := range events {
				rows[i] = []string{e.CreatedAt, e.Kind, e.StepID, e.Actor, e.Detail}
			}

			out.Print(headers, rows, events)
			return nil
		},
	}
}
