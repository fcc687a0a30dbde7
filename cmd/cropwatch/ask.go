package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cropwatch/cropwatch/internal/assistant"
	"github.com/cropwatch/cropwatch/internal/farm"
)

type askOptions struct {
	moisture    float64
	temperature float64
	ph          float64
	nitrogen    float64
	phosphorus  float64
	potassium   float64
	risk        string
	soilOnly    bool
	jsonOutput  bool
}

var askOpts askOptions

var askCmd = &cobra.Command{
	Use:   "ask [question...]",
	Short: "Ask the farm assistant a question",
	Long: `Answer a question against the sample farm readings.

Flags override individual readings. With no question the command reads one
question per line from stdin until EOF.

Examples:
  cropwatch ask "How is my nitrogen?"
  cropwatch ask --ph 6.0 "What about pH?"
  cropwatch ask --soil-only "what should I plant"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := askSnapshot(cmd, askOpts)
		if err != nil {
			return err
		}
		if len(args) > 0 {
			return answer(cmd.OutOrStdout(), strings.Join(args, " "), snap, askOpts.jsonOutput)
		}
		return askLoop(cmd.InOrStdin(), cmd.OutOrStdout(), snap, askOpts.jsonOutput)
	},
}

func init() {
	f := askCmd.Flags()
	f.Float64Var(&askOpts.moisture, "moisture", farm.DefaultSoilData.Moisture, "soil moisture percent")
	f.Float64Var(&askOpts.temperature, "temperature", farm.DefaultSoilData.Temperature, "soil temperature in celsius")
	f.Float64Var(&askOpts.ph, "ph", farm.DefaultSoilData.PH, "soil pH")
	f.Float64Var(&askOpts.nitrogen, "nitrogen", farm.DefaultSoilData.Nitrogen, "nitrogen in ppm")
	f.Float64Var(&askOpts.phosphorus, "phosphorus", farm.DefaultSoilData.Phosphorus, "phosphorus in ppm")
	f.Float64Var(&askOpts.potassium, "potassium", farm.DefaultSoilData.Potassium, "potassium in ppm")
	f.StringVar(&askOpts.risk, "risk", "", "pest risk level (low, medium, high)")
	f.BoolVar(&askOpts.soilOnly, "soil-only", false, "answer from soil readings only")
	f.BoolVar(&askOpts.jsonOutput, "json", false, "print the reply as JSON")
	rootCmd.AddCommand(askCmd)
}

// askSnapshot builds the snapshot for the ask command from opts.
func askSnapshot(cmd *cobra.Command, opts askOptions) (farm.MetricsSnapshot, error) {
	snap := farm.MetricsSnapshot{Soil: farm.SoilData{
		Moisture:    opts.moisture,
		Temperature: opts.temperature,
		PH:          opts.ph,
		Nitrogen:    opts.nitrogen,
		Phosphorus:  opts.phosphorus,
		Potassium:   opts.potassium,
	}}
	if opts.soilOnly {
		if cmd.Flags().Changed("risk") {
			return snap, fmt.Errorf("--risk cannot be combined with --soil-only")
		}
		return snap, nil
	}

	snap = snap.WithDefaults()
	if opts.risk != "" {
		level, err := farm.ParseRiskLevel(opts.risk)
		if err != nil {
			return snap, err
		}
		snap.Pest.RiskLevel = level
	}
	return snap, nil
}

func answer(out io.Writer, question string, snap farm.MetricsSnapshot, asJSON bool) error {
	reply, err := assistant.Answer(assistant.Request{Message: question}, snap)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(reply)
	}
	_, err = fmt.Fprintln(out, reply.Text)
	return err
}

func askLoop(in io.Reader, out io.Writer, snap farm.MetricsSnapshot, asJSON bool) error {
	interactive := false
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		interactive = true
		fmt.Fprintln(out, assistant.Greeting(snap, assistant.FeaturesFor(snap)))
	}

	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(out, "> ")
		}
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if err := answer(out, question, snap, asJSON); err != nil {
			return err
		}
		if interactive {
			fmt.Fprintln(out)
		}
	}
	return scanner.Err()
}
