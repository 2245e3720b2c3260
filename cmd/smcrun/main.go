// Command smcrun loads a session file describing a protocol spec and each
// participant's cleartext inputs, runs every participant concurrently
// against an in-memory board and trusted parameter generator, and prints the
// reconstructed result (spec.md §6). Grounded on
// _examples/luxfi-threshold/cmd/threshold-cli/main.go for the cobra
// root-command shape, and on _examples/original_source/Application.py's
// smc_client/run_processes for the driver this replaces: the original spawns
// one OS process per party, this spawns one goroutine per party via
// github.com/republicprotocol/co-go.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/republicprotocol/co-go"
	"github.com/spf13/cobra"

	"github.com/luciehof/smpc-go/core/board/memboard"
	"github.com/luciehof/smpc-go/core/field"
	"github.com/luciehof/smpc-go/core/party"
	"github.com/luciehof/smpc-go/core/protocol"
	"github.com/luciehof/smpc-go/core/tpg"
)

var sessionPath string

var rootCmd = &cobra.Command{
	Use:   "smcrun",
	Short: "Run a secure multi-party computation session",
	Long: "smcrun reads a session file describing a protocol spec and each\n" +
		"participant's private inputs, evaluates the jointly-agreed expression\n" +
		"under additive secret sharing and Beaver-triple multiplication, and\n" +
		"prints the cleartext result every participant reconstructs.",
	RunE: runSession,
}

func init() {
	rootCmd.Flags().StringVarP(&sessionPath, "session", "s", "", "path to the session JSON file (required)")
	rootCmd.MarkFlagRequired("session")
}

func runSession(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(sessionPath)
	if err != nil {
		return fmt.Errorf("read session file: %w", err)
	}

	f := field.Default()
	participants, spec, inputs, err := decodeSession(data, f)
	if err != nil {
		return err
	}

	gen := tpg.NewGenerator(f)
	for _, id := range participants {
		if err := gen.AddParticipant(id); err != nil {
			return err
		}
	}
	gen.Finalize()
	b := memboard.New(gen)

	results := make([]field.Element, len(participants))
	statsByParty := make([]party.Stats, len(participants))
	errs := make([]error, len(participants))

	ctx := context.Background()
	co.ParForAll(participants, func(i int) {
		id := participants[i]
		pt, err := party.New(id, spec, inputs[id], b, f)
		if err != nil {
			errs[i] = err
			return
		}
		result, stats, err := pt.Run(ctx)
		results[i] = result
		statsByParty[i] = stats
		errs[i] = err
	})

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("participant %q: %w", participants[i], err)
		}
	}

	reportResults(participants, spec, results, statsByParty)
	return nil
}

func reportResults(participants []protocol.ParticipantID, spec protocol.ProtocolSpec, results []field.Element, statsByParty []party.Stats) {
	fmt.Printf("result: %s\n", results[0].String())
	for i, id := range participants {
		s := statsByParty[i]
		fmt.Printf("  %s: in=%d bytes out=%d bytes elapsed=%s\n", id, s.InBytes, s.OutBytes, s.Elapsed)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("[error] %v", err)
		os.Exit(1)
	}
}
