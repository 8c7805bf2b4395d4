package cli

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xlnnetwork/xln/internal/replay"
	"github.com/xlnnetwork/xln/internal/server"
	storagepebble "github.com/xlnnetwork/xln/internal/storage/pebble"
	"github.com/xlnnetwork/xln/internal/types"
)

// genesisEntity names one entity to pre-register in the fresh server a
// replay reconstructs into, since entities are registered out-of-band
// (RegisterEntity/CreateEntity) rather than through the ingress queue
// the frame log persists.
type genesisEntity struct {
	EntityId  string   `json:"entity_id"`
	Signers   []string `json:"signers"`
	Threshold int      `json:"threshold"`
}

var (
	replayDataDir  string
	replayGenesis  string
	replayUpToTick uint64
)

// replayCmd rebuilds state from a durable frame log up to a tick and
// reports its canonical hash, the offline form of the time-travel read
// internal/rpcapi.GetState performs for a live daemon. Grounded on the
// teacher's replay.go fixture-driven state-transition check, adapted
// from rippled-fixture replay to internal/replay.Rebuild's contract.
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Rebuild state from a frame log up to a tick and print its hash",
	Long: `replay loads a genesis entity list and a durable frame log,
replays every persisted RuntimeInput from tick 1 through --tick into a
fresh server, and prints the resulting canonical state hash
(spec.md §4.5, §8 Scenario F: a from-scratch replay must match the
originally captured State bit-for-bit).`,
	Run: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVar(&replayDataDir, "data-dir", "", "frame log directory (required)")
	replayCmd.Flags().StringVar(&replayGenesis, "genesis", "", "genesis entity list JSON (required)")
	replayCmd.Flags().Uint64Var(&replayUpToTick, "tick", 0, "tick to rebuild through (0 = latest persisted)")
	replayCmd.MarkFlagRequired("data-dir")
	replayCmd.MarkFlagRequired("genesis")
}

func runReplay(cmd *cobra.Command, args []string) {
	fresh, err := freshServerFromGenesis(replayGenesis)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xlnd replay: %v\n", err)
		os.Exit(1)
	}

	store, err := storagepebble.Open(replayDataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xlnd replay: failed to open frame log: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	upTo := replayUpToTick
	if upTo == 0 {
		upTo = ^uint64(0)
	}

	st, err := replay.Rebuild(context.Background(), fresh, store, upTo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xlnd replay: rebuild failed: %v\n", err)
		os.Exit(1)
	}

	h := replay.Hash(st)
	fmt.Printf("rebuilt through tick %d\n", st.Tick)
	fmt.Printf("state hash: %s\n", hex.EncodeToString(h[:]))
}

func freshServerFromGenesis(path string) (*server.Server, error) {
	srv := server.New(server.DefaultConfig())
	if err := registerGenesisEntities(srv, path); err != nil {
		return nil, err
	}
	return srv, nil
}

// registerGenesisEntities reads path's entity list and calls
// CreateEntity on srv for each one, since entities are registered
// out-of-band rather than through the ingress queue a frame log
// persists.
func registerGenesisEntities(srv *server.Server, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading genesis file: %w", err)
	}
	var entities []genesisEntity
	if err := json.Unmarshal(data, &entities); err != nil {
		return fmt.Errorf("parsing genesis file: %w", err)
	}

	for _, ge := range entities {
		id, err := decodeEntityId(ge.EntityId)
		if err != nil {
			return fmt.Errorf("entity %q: %w", ge.EntityId, err)
		}
		signers := make([]types.SignerId, len(ge.Signers))
		for i, s := range ge.Signers {
			sid, err := decodeSignerId(s)
			if err != nil {
				return fmt.Errorf("entity %q signer %d: %w", ge.EntityId, i, err)
			}
			signers[i] = sid
		}
		srv.CreateEntity(id, signers, ge.Threshold)
	}
	return nil
}

func decodeEntityId(s string) (types.EntityId, error) {
	var id types.EntityId
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("expected %d bytes, got %d", len(id), len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

func decodeSignerId(s string) (types.SignerId, error) {
	var id types.SignerId
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("expected %d bytes, got %d", len(id), len(raw))
	}
	copy(id[:], raw)
	return id, nil
}
