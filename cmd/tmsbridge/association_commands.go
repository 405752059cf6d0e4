package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"tmsbridge/internal/api"
	"tmsbridge/internal/daemonrun"
)

func newAssociationCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newDisassociateCommand(ctx),
		newDisassociateAllCommand(ctx),
		newForgetCommand(ctx),
	}
}

func newDisassociateCommand(ctx *commandContext) *cobra.Command {
	var refs refFlags
	cmd := &cobra.Command{
		Use:   "disassociate",
		Short: "Drop the link between a unit and its TMS document",
		Long:  "Disassociate resets the unit to untracked and removes its targets. The TMS is not contacted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := refs.ref()
			if err != nil {
				return err
			}
			return ctx.withRuntime(func(rt *daemonrun.Runtime) error {
				if err := rt.Broker.Disassociate(cmd.Context(), ref); err != nil {
					return err
				}
				return ctx.reportAction(cmd, rt, "disassociate", ref, "")
			})
		},
	}
	refs.bind(cmd, true)
	return cmd
}

func newDisassociateAllCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "disassociate-all",
		Short: "Disassociate every tracked unit",
		Long:  "Failures are reported per unit and the run continues. Rerun the command to retry the remaining units.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *daemonrun.Runtime) error {
				report, runErr := rt.Broker.DisassociateAll(cmd.Context())
				view := api.FromReport(report)
				if err := ctx.emit(cmd, view, func(w io.Writer) error {
					return renderDisassociateReport(w, view)
				}); err != nil {
					return err
				}
				return runErr
			})
		},
	}
}

func newForgetCommand(ctx *commandContext) *cobra.Command {
	var refs refFlags
	cmd := &cobra.Command{
		Use:   "forget",
		Short: "Delete a unit's record after its host resource was deleted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := refs.ref()
			if err != nil {
				return err
			}
			return ctx.withRuntime(func(rt *daemonrun.Runtime) error {
				if err := rt.Broker.Forget(cmd.Context(), ref); err != nil {
					return err
				}
				return ctx.reportAction(cmd, rt, "forget", ref, "")
			})
		},
	}
	refs.bind(cmd, true)
	return cmd
}

func renderDisassociateReport(w io.Writer, report api.DisassociateReport) error {
	fmt.Fprintf(w, "Disassociated %d of %d tracked units\n", report.Disassociated, report.Total)
	if len(report.Failures) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(report.Failures))
	for _, failure := range report.Failures {
		rows = append(rows, []string{failure.Ref, failure.Error})
	}
	_, err := fmt.Fprintln(w, renderTable([]string{"Unit", "Error"}, rows, nil))
	return err
}
