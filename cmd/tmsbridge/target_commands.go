package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tmsbridge/internal/config"
	"tmsbridge/internal/daemonrun"
	"tmsbridge/internal/fileutil"
)

func newTargetCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newRequestCommand(ctx),
		newCheckTargetCommand(ctx),
		newDownloadCommand(ctx),
	}
}

func newRequestCommand(ctx *commandContext) *cobra.Command {
	var refs refFlags
	var locale string
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Request a translation into one locale",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := refs.ref()
			if err != nil {
				return err
			}
			return ctx.withRuntime(func(rt *daemonrun.Runtime) error {
				if err := rt.Broker.RequestTarget(cmd.Context(), ref, locale); err != nil {
					return err
				}
				return ctx.reportAction(cmd, rt, "request", ref, "")
			})
		},
	}
	refs.bind(cmd, true)
	cmd.Flags().StringVar(&locale, "locale", "", "Target locale")
	_ = cmd.MarkFlagRequired("locale")
	return cmd
}

func newCheckTargetCommand(ctx *commandContext) *cobra.Command {
	var refs refFlags
	var locale string
	cmd := &cobra.Command{
		Use:   "check-target",
		Short: "Poll the TMS for one locale's translation status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := refs.ref()
			if err != nil {
				return err
			}
			return ctx.withRuntime(func(rt *daemonrun.Runtime) error {
				if err := rt.Broker.CheckTarget(cmd.Context(), ref, locale); err != nil {
					return err
				}
				return ctx.reportAction(cmd, rt, "check-target", ref, "")
			})
		},
	}
	refs.bind(cmd, true)
	cmd.Flags().StringVar(&locale, "locale", "", "Target locale")
	_ = cmd.MarkFlagRequired("locale")
	return cmd
}

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var refs refFlags
	var locale string
	var outPath string
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download a translation and mark it current",
		Long:  "Download fetches the translated payload. Without --out the raw payload is written to stdout.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := refs.ref()
			if err != nil {
				return err
			}
			return ctx.withRuntime(func(rt *daemonrun.Runtime) error {
				payload, err := rt.Broker.Download(cmd.Context(), ref, locale)
				if err != nil {
					return err
				}
				target := strings.TrimSpace(outPath)
				if target == "" {
					_, err := cmd.OutOrStdout().Write(payload)
					return err
				}
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve output path: %w", err)
				}
				if err := fileutil.WriteFile(expanded, payload); err != nil {
					return fmt.Errorf("write translation: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d bytes to %s\n", len(payload), expanded)
				return ctx.reportAction(cmd, rt, "download", ref, "")
			})
		},
	}
	refs.bind(cmd, true)
	cmd.Flags().StringVar(&locale, "locale", "", "Target locale")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the payload to this file")
	_ = cmd.MarkFlagRequired("locale")
	return cmd
}
