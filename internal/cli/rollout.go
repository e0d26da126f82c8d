package cli

import (
	"github.com/spf13/cobra"

	"bankcompare/internal/app"
)

var rolloutOpts app.RolloutOptions

var rolloutCmd = &cobra.Command{
	Use:   "rollout",
	Short: "Inspect and drive staged experiment rollouts",
}

var rolloutStatusCmd = &cobra.Command{
	Use:   "status [experiment]",
	Short: "Show one or all rollouts",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := rolloutOpts
		if len(args) == 1 {
			opts.ExperimentID = args[0]
		}
		return getApp().RolloutStatus(cmd.Context(), opts)
	},
}

var rolloutCheckCmd = &cobra.Command{
	Use:   "check <experiment> <identifier>",
	Short: "Report whether an identifier is exposed at the current stage",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := rolloutOpts
		opts.ExperimentID = args[0]
		opts.Identifier = args[1]
		return getApp().RolloutCheck(cmd.Context(), opts)
	},
}

func rolloutActionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <experiment>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := rolloutOpts
			opts.ExperimentID = args[0]
			return getApp().RolloutAction(cmd.Context(), action, opts)
		},
	}
}

func init() {
	create := rolloutActionCmd(app.RolloutCreate, "Create a ready rollout")
	start := rolloutActionCmd(app.RolloutStart, "Activate a ready rollout at its first stage")
	advance := rolloutActionCmd(app.RolloutAdvance, "Move to the next stage")
	complete := rolloutActionCmd(app.RolloutComplete, "Complete a rollout on its last stage")

	for _, cmd := range []*cobra.Command{create, start, advance} {
		cmd.Flags().IntSliceVar(&rolloutOpts.Stages, "stages", nil, "Stage percentages when the rollout does not exist yet (defaults to config)")
	}
	complete.Flags().StringVar(&rolloutOpts.Winner, "winner", "", "Winning variant")

	rolloutCmd.AddCommand(
		rolloutStatusCmd,
		rolloutCheckCmd,
		create,
		start,
		advance,
		rolloutActionCmd(app.RolloutPause, "Freeze exposure at the current stage"),
		rolloutActionCmd(app.RolloutResume, "Resume a paused rollout"),
		rolloutActionCmd(app.RolloutAbort, "Abort a rollout and drop exposure to zero"),
		complete,
	)
}
