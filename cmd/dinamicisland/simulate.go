package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nomis52/dinamicisland/bridge"
	"github.com/nomis52/dinamicisland/bridge/simulator"
	"github.com/nomis52/dinamicisland/metrics"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// script is a sequence of bridge calls run against a simulated device.
//
//	device:
//	  os_version: "17.0"
//	steps:
//	  - start: {activity_id: music-player, title: Now Playing, progress: 0}
//	  - update: {progress: 0.5}
//	  - dismiss: true
//	  - end: {policy: immediate}
type script struct {
	Device device `yaml:"device"`
	Steps  []step `yaml:"steps"`
}

type device struct {
	OSVersion         string `yaml:"os_version"`
	ActivitiesEnabled *bool  `yaml:"activities_enabled"`
}

// step holds exactly one action.
type step struct {
	Supported bool                    `yaml:"supported"`
	Start     *bridge.ActivityRequest `yaml:"start"`
	Update    *bridge.ActivityPatch   `yaml:"update"`
	End       *endAction              `yaml:"end"`
	Dismiss   bool                    `yaml:"dismiss"`
}

type endAction struct {
	Policy string `yaml:"policy"`
}

func (s step) action() (string, error) {
	var names []string
	if s.Supported {
		names = append(names, "supported")
	}
	if s.Start != nil {
		names = append(names, "start")
	}
	if s.Update != nil {
		names = append(names, "update")
	}
	if s.End != nil {
		names = append(names, "end")
	}
	if s.Dismiss {
		names = append(names, "dismiss")
	}
	if len(names) != 1 {
		return "", fmt.Errorf("step must have exactly one action, got %d", len(names))
	}
	return names[0], nil
}

func (e endAction) policy() (bridge.DismissalPolicy, error) {
	switch strings.ToLower(e.Policy) {
	case "", "immediate":
		return bridge.DismissImmediate, nil
	case "default":
		return bridge.DismissDefault, nil
	default:
		return 0, fmt.Errorf("unknown dismissal policy %q", e.Policy)
	}
}

func loadScript(r io.Reader) (*script, error) {
	var s script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("script is empty")
		}
		return nil, err
	}
	for i, st := range s.Steps {
		if _, err := st.action(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		if st.End != nil {
			if _, err := st.End.policy(); err != nil {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
		}
	}
	return &s, nil
}

type simulateArgs struct {
	osVersion string
	metrics   bool
}

func newSimulateCommand(c *cli) *cobra.Command {
	args := &simulateArgs{}
	cmd := &cobra.Command{
		Use:   "simulate SCRIPT",
		Short: "Run a Live Activity script against a simulated device",
		Long: `Run a YAML script of start, update, end and dismiss steps through the
bridge session against an in-memory device, printing each outcome.

Use "-" to read the script from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, positional []string) error {
			return runSimulate(cmd, c, args, positional[0])
		},
	}
	cmd.Flags().StringVar(&args.osVersion, "os-version", "", "simulated OS version (overrides device.os_version)")
	cmd.Flags().BoolVar(&args.metrics, "metrics", false, "print bridge metrics after the run")
	return cmd
}

func runSimulate(cmd *cobra.Command, c *cli, args *simulateArgs, path string) error {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer f.Close()
		r = f
	}
	s, err := loadScript(r)
	if err != nil {
		return fmt.Errorf("failed to load script %s: %w", path, err)
	}

	var simOpts []simulator.Option
	if v := firstNonEmpty(args.osVersion, s.Device.OSVersion); v != "" {
		simOpts = append(simOpts, simulator.WithOSVersion(v))
	}
	if s.Device.ActivitiesEnabled != nil {
		simOpts = append(simOpts, simulator.WithActivitiesEnabled(*s.Device.ActivitiesEnabled))
	}
	sim := simulator.New(simOpts...)

	registry, err := metrics.NewScrapeRegistry()
	if err != nil {
		return err
	}
	session, err := bridge.NewSession(sim,
		bridge.WithLogger(c.logger),
		bridge.WithMetricsRegistry(registry))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := runSteps(cmd, session, sim, s.Steps, out)

	fmt.Fprintf(out, "\n%d activities running\n", len(sim.Activities()))
	if args.metrics {
		fmt.Fprintln(out)
		if err := registry.WriteText(out); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d steps failed", failed, len(s.Steps))
	}
	return nil
}

// runSteps prints one line per step and returns the number of steps that
// returned an error.
func runSteps(cmd *cobra.Command, session *bridge.Session, sim *simulator.Simulator, steps []step, out io.Writer) int {
	ctx := cmd.Context()
	failed := 0
	for i, st := range steps {
		action, _ := st.action()
		var (
			result string
			err    error
		)
		switch action {
		case "supported":
			result = fmt.Sprintf("supported=%t", session.Supported(ctx))
		case "start":
			var h bridge.Handle
			h, err = session.Start(ctx, *st.Start)
			result = fmt.Sprintf("handle=%s", h)
		case "update":
			var ok bool
			ok, err = session.Update(ctx, *st.Update)
			result = fmt.Sprintf("updated=%t", ok)
		case "end":
			policy, _ := st.End.policy()
			var ok bool
			ok, err = session.End(ctx, policy)
			result = fmt.Sprintf("ended=%t", ok)
		case "dismiss":
			_, h, active := session.Current()
			result = fmt.Sprintf("dismissed=%t", active && sim.Dismiss(h))
		}

		if err != nil {
			failed++
			fmt.Fprintf(out, "%d %-9s error: %v\n", i+1, action, err)
			continue
		}
		fmt.Fprintf(out, "%d %-9s %s\n", i+1, action, result)
	}
	return failed
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
