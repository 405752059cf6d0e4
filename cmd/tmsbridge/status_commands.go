package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"tmsbridge/internal/api"
	"tmsbridge/internal/daemonrun"
	"tmsbridge/internal/metadata"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var refs refFlags
	var sources []string
	var trackedOnly bool
	var limit int
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show translation status for one unit or list units",
		RunE: func(cmd *cobra.Command, args []string) error {
			if refs.set() {
				ref, err := refs.ref()
				if err != nil {
					return err
				}
				return ctx.withRuntime(func(rt *daemonrun.Runtime) error {
					unit, err := rt.Broker.Status(cmd.Context(), ref)
					if err != nil {
						return err
					}
					view := api.FromUnit(unit)
					return ctx.emit(cmd, api.UnitResponse{Unit: view}, func(w io.Writer) error {
						return renderUnitDetail(w, view, shouldColorize(w))
					})
				})
			}
			statuses, err := api.ParseSourceFilter(sources)
			if err != nil {
				return err
			}
			filter := metadata.Filter{
				Kind:        strings.TrimSpace(refs.kind),
				Statuses:    statuses,
				TrackedOnly: trackedOnly,
				Limit:       limit,
			}
			return ctx.withRuntime(func(rt *daemonrun.Runtime) error {
				units, err := rt.Broker.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				views := api.FromUnits(units)
				return ctx.emit(cmd, api.UnitListResponse{Units: views}, func(w io.Writer) error {
					return renderUnitList(w, views, shouldColorize(w))
				})
			})
		},
	}
	refs.bind(cmd, false)
	cmd.Flags().StringSliceVar(&sources, "source", nil, "Only list units with these source statuses")
	cmd.Flags().BoolVar(&trackedOnly, "tracked", false, "Only list units linked to a TMS document")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of units to list")
	return cmd
}

func newProfilesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles [profile...]",
		Short: "Show effective automation policies per enabled locale",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *daemonrun.Runtime) error {
				ids := args
				if len(ids) == 0 {
					ids = rt.Broker.Profiles().IDs()
				}
				resp := make([]api.ProfileResponse, 0, len(ids))
				for _, id := range ids {
					resp = append(resp, api.ProfileResponse{
						ProfileID: id,
						Policies:  api.FromPolicies(rt.Broker.Policies(id)),
					})
				}
				return ctx.emit(cmd, resp, func(w io.Writer) error {
					return renderProfiles(w, resp)
				})
			})
		},
	}
}

// reportAction prints the unit as stored after a successful action.
func (c *commandContext) reportAction(cmd *cobra.Command, rt *daemonrun.Runtime, action string, ref metadata.Ref, documentID string) error {
	resp, err := actionResponse(cmd.Context(), rt, action, ref, documentID)
	if err != nil {
		return err
	}
	return c.emit(cmd, resp, func(w io.Writer) error {
		colorize := shouldColorize(w)
		if resp.Unit == nil {
			_, err := fmt.Fprintf(w, "%s %s: no record\n", action, ref)
			return err
		}
		fmt.Fprintf(w, "%s %s: ok\n", action, ref)
		return renderUnitDetail(w, *resp.Unit, colorize)
	})
}

func actionResponse(ctx context.Context, rt *daemonrun.Runtime, action string, ref metadata.Ref, documentID string) (api.ActionResponse, error) {
	resp := api.ActionResponse{Action: action, DocumentID: documentID}
	unit, err := rt.Store.FindByRef(ctx, ref)
	if err != nil {
		return resp, err
	}
	if unit != nil {
		view := api.FromUnit(unit)
		resp.Unit = &view
	}
	return resp, nil
}
