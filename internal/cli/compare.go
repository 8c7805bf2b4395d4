package cli

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xlnnetwork/xln/internal/canon"
	"github.com/xlnnetwork/xln/internal/replay"
	storagepebble "github.com/xlnnetwork/xln/internal/storage/pebble"
)

var compareGenesis string

// compareCmd rebuilds the same tick from two frame logs (e.g. a
// primary node's log and a replica's, or the same log before/after a
// migration) and reports whether their canonical state hashes match —
// the CLI-accessible form of spec.md §8 Scenario F's determinism
// check. Grounded on the teacher's compare.go two-file diff command,
// replacing state-dump JSON diffing with canonical hash comparison
// since XLN's replay hash already canonicalizes map ordering.
var compareCmd = &cobra.Command{
	Use:   "compare <data-dir-1> <data-dir-2>",
	Short: "Compare rebuilt state hashes from two frame logs at a tick",
	Args:  cobra.ExactArgs(2),
	Run:   runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().StringVar(&compareGenesis, "genesis", "", "genesis entity list JSON shared by both logs (required)")
	compareCmd.Flags().Uint64Var(&replayUpToTick, "tick", 0, "tick to rebuild through (0 = latest persisted in each log)")
	compareCmd.MarkFlagRequired("genesis")
}

func runCompare(cmd *cobra.Command, args []string) {
	hash1, tick1, err := rebuildHash(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "xlnd compare: %s: %v\n", args[0], err)
		os.Exit(1)
	}
	hash2, tick2, err := rebuildHash(args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "xlnd compare: %s: %v\n", args[1], err)
		os.Exit(1)
	}

	fmt.Printf("%s: tick %d, hash %s\n", args[0], tick1, hex.EncodeToString(hash1[:]))
	fmt.Printf("%s: tick %d, hash %s\n", args[1], tick2, hex.EncodeToString(hash2[:]))

	if hash1 == hash2 && tick1 == tick2 {
		fmt.Println("MATCH")
		return
	}
	fmt.Println("MISMATCH")
	os.Exit(1)
}

func rebuildHash(dataDir string) (canon.Hash, uint64, error) {
	fresh, err := freshServerFromGenesis(compareGenesis)
	if err != nil {
		return canon.Hash{}, 0, err
	}
	store, err := storagepebble.Open(dataDir)
	if err != nil {
		return canon.Hash{}, 0, fmt.Errorf("opening frame log: %w", err)
	}
	defer store.Close()

	upTo := replayUpToTick
	if upTo == 0 {
		upTo = ^uint64(0)
	}
	st, err := replay.Rebuild(context.Background(), fresh, store, upTo)
	if err != nil {
		return canon.Hash{}, 0, fmt.Errorf("rebuild failed: %w", err)
	}
	return replay.Hash(st), st.Tick, nil
}
