package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tmsbridge/internal/broker"
	"tmsbridge/internal/daemonrun"
	"tmsbridge/internal/fileutil"
)

const maxPayloadBytes = 64 << 20

type sourceFlags struct {
	revision string
	payload  string
	title    string
	locale   string
	profile  string
	job      string
}

func (s *sourceFlags) bind(cmd *cobra.Command, full bool) {
	cmd.Flags().StringVar(&s.revision, "revision", "", "Host revision id the payload was extracted from")
	cmd.Flags().StringVar(&s.payload, "payload", "", "File holding the extracted source payload")
	cmd.Flags().StringVar(&s.title, "title", "", "Document title shown in the TMS")
	if full {
		cmd.Flags().StringVar(&s.locale, "locale", "", "Source locale (defaults to content.source_locale)")
		cmd.Flags().StringVar(&s.profile, "profile", "", "Automation profile for a new unit")
		cmd.Flags().StringVar(&s.job, "job", "", "TMS job to attach the document to")
	}
}

func (s *sourceFlags) given() bool {
	return strings.TrimSpace(s.payload) != "" || strings.TrimSpace(s.revision) != ""
}

func (s *sourceFlags) load() (broker.SourceData, error) {
	if strings.TrimSpace(s.payload) == "" {
		return broker.SourceData{}, fmt.Errorf("--payload is required")
	}
	content, err := fileutil.ReadFileLimited(s.payload, maxPayloadBytes)
	if err != nil {
		return broker.SourceData{}, fmt.Errorf("read payload: %w", err)
	}
	return broker.SourceData{
		Title:        s.title,
		Content:      content,
		RevisionID:   strings.TrimSpace(s.revision),
		SourceLocale: s.locale,
		JobID:        s.job,
		ProfileID:    s.profile,
	}, nil
}

func newSourceCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newUploadCommand(ctx),
		newCheckCommand(ctx),
		newUpdateCommand(ctx),
		newEditedCommand(ctx),
		newCancelCommand(ctx),
	}
}

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var refs refFlags
	var src sourceFlags
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a unit's source content to the TMS",
		Long:  "Upload creates the TMS document for an untracked unit. A unit that is already tracked is updated instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := refs.ref()
			if err != nil {
				return err
			}
			data, err := src.load()
			if err != nil {
				return err
			}
			return ctx.withRuntime(func(rt *daemonrun.Runtime) error {
				docID, err := rt.Broker.Upload(cmd.Context(), ref, data)
				if err != nil {
					return err
				}
				return ctx.reportAction(cmd, rt, "upload", ref, docID)
			})
		},
	}
	refs.bind(cmd, true)
	src.bind(cmd, true)
	_ = cmd.MarkFlagRequired("payload")
	return cmd
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var refs refFlags
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Poll the TMS for the source import status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := refs.ref()
			if err != nil {
				return err
			}
			return ctx.withRuntime(func(rt *daemonrun.Runtime) error {
				if err := rt.Broker.CheckUpload(cmd.Context(), ref); err != nil {
					return err
				}
				return ctx.reportAction(cmd, rt, "check", ref, "")
			})
		},
	}
	refs.bind(cmd, true)
	return cmd
}

func newUpdateCommand(ctx *commandContext) *cobra.Command {
	var refs refFlags
	var src sourceFlags
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Send new source content for a tracked unit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := refs.ref()
			if err != nil {
				return err
			}
			data, err := src.load()
			if err != nil {
				return err
			}
			return ctx.withRuntime(func(rt *daemonrun.Runtime) error {
				if err := rt.Broker.Update(cmd.Context(), ref, data); err != nil {
					return err
				}
				return ctx.reportAction(cmd, rt, "update", ref, "")
			})
		},
	}
	refs.bind(cmd, true)
	src.bind(cmd, false)
	_ = cmd.MarkFlagRequired("payload")
	return cmd
}

func newEditedCommand(ctx *commandContext) *cobra.Command {
	var refs refFlags
	var src sourceFlags
	cmd := &cobra.Command{
		Use:   "edited",
		Short: "Record a host-side content edit",
		Long: "Edited marks the source and current targets as edited. With --payload, " +
			"a unit whose profile uploads automatically sends the new content right away.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := refs.ref()
			if err != nil {
				return err
			}
			var data *broker.SourceData
			if src.given() {
				loaded, err := src.load()
				if err != nil {
					return err
				}
				data = &loaded
			}
			return ctx.withRuntime(func(rt *daemonrun.Runtime) error {
				if err := rt.Broker.ContentChanged(cmd.Context(), ref, data); err != nil {
					return err
				}
				return ctx.reportAction(cmd, rt, "edited", ref, "")
			})
		},
	}
	refs.bind(cmd, true)
	src.bind(cmd, false)
	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	var refs refFlags
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the unit's document in the TMS",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := refs.ref()
			if err != nil {
				return err
			}
			return ctx.withRuntime(func(rt *daemonrun.Runtime) error {
				if err := rt.Broker.Cancel(cmd.Context(), ref); err != nil {
					return err
				}
				return ctx.reportAction(cmd, rt, "cancel", ref, "")
			})
		},
	}
	refs.bind(cmd, true)
	return cmd
}
