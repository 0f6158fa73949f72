package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lawnchairsociety/battalionsim/internal/battalion"
	"github.com/lawnchairsociety/battalionsim/internal/battle"
	"github.com/lawnchairsociety/battalionsim/internal/config"
	"github.com/lawnchairsociety/battalionsim/internal/gamedata"
	"github.com/lawnchairsociety/battalionsim/internal/logger"
	"github.com/lawnchairsociety/battalionsim/internal/strategy"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries the flags and data shared by every subcommand.
type app struct {
	dataDir    string
	configPath string
	asJSON     bool
	verbose    bool

	data    *gamedata.GameData
	advisor strategy.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "battlesim",
		Short: "Offline battalion calculator, battle simulator and advisor",
		Long: `Evaluates scenario files against the game data tables: aggregated battalion
stats, a simulated fight, a counter troop mix and ranked enforcer teams.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}
	root.PersistentFlags().StringVar(&a.dataDir, "data", "data", "Path to game data directory")
	root.PersistentFlags().StringVar(&a.configPath, "config", "data/server.yaml", "Path to config YAML (advisor section is used)")
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "Print results as JSON")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log buff and lookup details to stderr")

	root.AddCommand(a.statsCmd(), a.fightCmd(), a.counterCmd(), a.enforcersCmd())
	return root
}

func (a *app) load(cmd *cobra.Command, _ []string) error {
	level := "WARN"
	if a.verbose {
		level = "DEBUG"
	}
	logger.SetOutput(cmd.ErrOrStderr(), "text", level)

	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	a.advisor = cfg.Advisor.Strategy()

	data, report := gamedata.LoadDir(a.dataDir)
	if data.TroopStats == nil {
		return fmt.Errorf("troop stats could not be loaded from %s: %v", a.dataDir, report.Failed[gamedata.TableTroopStats])
	}
	a.data = data
	return nil
}

func (a *app) aggregate(side Side) (battalion.Result, error) {
	return battalion.Aggregate(a.data, side.Troops, side.Enforcers, side.MiscBuffs)
}

func (a *app) statsCmd() *cobra.Command {
	var showBuffs bool
	cmd := &cobra.Command{
		Use:   "stats <scenario.yaml>",
		Short: "Show aggregated stats for each side",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadScenario(args[0])
			if err != nil {
				return err
			}

			results := map[string]battalion.Result{}
			for _, s := range []struct {
				name string
				side Side
			}{{"attacker", sc.Attacker}, {"defender", sc.Defender}} {
				if len(s.side.Troops) == 0 {
					continue
				}
				r, err := a.aggregate(s.side)
				if err != nil {
					return err
				}
				results[s.name] = r
			}

			out := cmd.OutOrStdout()
			if a.asJSON {
				return writeJSON(out, results)
			}
			for _, name := range []string{"attacker", "defender"} {
				r, ok := results[name]
				if !ok {
					continue
				}
				if err := renderBattalion(out, "Battalion: "+name, r); err != nil {
					return err
				}
				if showBuffs {
					if err := renderBuffs(out, r); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showBuffs, "buffs", false, "List every applied buff")
	return cmd
}

func (a *app) fightCmd() *cobra.Command {
	var showLog bool
	cmd := &cobra.Command{
		Use:   "fight <scenario.yaml>",
		Short: "Simulate the attacker against the defender",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadScenario(args[0])
			if err != nil {
				return err
			}
			attacker, err := a.aggregate(sc.Attacker)
			if err != nil {
				return err
			}
			defender, err := a.aggregate(sc.Defender)
			if err != nil {
				return err
			}
			outcome := battle.Simulate(a.data, attacker, defender)

			out := cmd.OutOrStdout()
			if a.asJSON {
				if !showLog {
					outcome.Log = nil
				}
				return writeJSON(out, outcome)
			}
			if showLog {
				for _, line := range outcome.Log {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out)
			}
			return renderOutcome(out, outcome, "Attacker", "Defender")
		},
	}
	cmd.Flags().BoolVar(&showLog, "log", false, "Print the round-by-round battle log")
	return cmd
}

func (a *app) counterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "counter <scenario.yaml>",
		Short: "Recommend a troop mix that counters the defender",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadScenario(args[0])
			if err != nil {
				return err
			}
			rec, err := strategy.New(a.data, a.advisor).RecommendTroopMix(sc.Defender.Troops, sc.Defender.Enforcers, sc.Defender.MiscBuffs)
			if err != nil {
				return recommendError(err)
			}

			if a.asJSON {
				return writeJSON(cmd.OutOrStdout(), rec)
			}
			return renderTroopMix(cmd.OutOrStdout(), rec)
		},
	}
}

func (a *app) enforcersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enforcers <scenario.yaml>",
		Short: "Rank enforcer teams for the attacker against the defender",
		Long: `Searches enforcer teams for the attacker's troops against the defender.
The scenario's available_enforcers list is the pool; when it is empty every
known enforcer is considered at the configured default tier.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadScenario(args[0])
			if err != nil {
				return err
			}
			rec, err := strategy.New(a.data, a.advisor).RecommendEnforcerSetup(
				sc.Attacker.Troops, sc.Attacker.MiscBuffs,
				sc.Defender.Troops, sc.Defender.Enforcers, sc.Defender.MiscBuffs,
				sc.AvailableEnforcers,
			)
			if err != nil {
				return recommendError(err)
			}

			if a.asJSON {
				return writeJSON(cmd.OutOrStdout(), rec)
			}
			return renderEnforcerSetups(cmd.OutOrStdout(), rec)
		},
	}
}

func recommendError(err error) error {
	var se *strategy.Error
	if errors.As(err, &se) {
		return fmt.Errorf("no recommendation, stopped at %s: %w", se.Stage, se.Err)
	}
	return err
}
