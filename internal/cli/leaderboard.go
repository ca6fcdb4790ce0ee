package cli

import (
	"encoding/json"
	"fmt"

	"gamification-engine/internal/config"
	"gamification-engine/internal/domain"
	"gamification-engine/internal/logger"
	"github.com/spf13/cobra"
)

type leaderboardOptions struct {
	classID string
	quizID  string
	mode    string
	basis   string
	record  bool
}

// NewLeaderboardCmd prints a ranking as JSON from the configured stores.
func NewLeaderboardCmd(configPath *string) *cobra.Command {
	opts := &leaderboardOptions{}
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print a leaderboard as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			scope, err := opts.scope()
			if err != nil {
				return err
			}

			log := logger.Setup(cfg.Log.Level, cfg.Log.Format)
			eng, err := buildEngine(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer eng.Close()

			var ranking domain.Ranking
			if opts.record {
				ranking, err = eng.service.Rank(cmd.Context(), scope)
			} else {
				ranking, err = eng.service.Leaderboard(cmd.Context(), scope)
			}
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(ranking, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.classID, "class", "", "class id (empty with --basis=experience means platform-wide)")
	cmd.Flags().StringVar(&opts.quizID, "quiz", "", "quiz id for a single-quiz leaderboard")
	cmd.Flags().StringVar(&opts.mode, "mode", string(domain.ModeSolo), "solo, team or classroom")
	cmd.Flags().StringVar(&opts.basis, "basis", string(domain.BasisPercentage), "percentage or experience")
	cmd.Flags().BoolVar(&opts.record, "record-placements", false, "credit podium placements toward badges")
	return cmd
}

func (o *leaderboardOptions) scope() (domain.Scope, error) {
	mode, err := domain.ParseMode(o.mode)
	if err != nil {
		return domain.Scope{}, err
	}
	return domain.Scope{Mode: mode, QuizID: o.quizID, ClassID: o.classID, Basis: domain.Basis(o.basis)}.Normalize(), nil
}
