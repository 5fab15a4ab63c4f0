package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nbd-wtf/go-nostr"
	redis "github.com/redis/go-redis/v9"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"timelock/engine/actors"
	"timelock/engine/helpers"
	"timelock/engine/library"
	"timelock/state/blocks"
	"timelock/state/ledger"
	"timelock/state/replay"
)

const usage = `usage: event-tool <lock|withdraw|block> [flags]

lock      --amount N --unlock-in 2m | --unlock-at <unix>
withdraw
block     --height H --hash <hex> --mediantime <unix>   (clock oracles only)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(2)
	}
	command := os.Args[1]

	flags := flag.NewFlagSet(command, flag.ExitOnError)
	flags.Uint64("amount", 0, "value to lock")
	flags.Duration("unlock-in", 0, "lock duration from now")
	flags.Int64("unlock-at", 0, "absolute unlock time in unix seconds")
	flags.String("replay", "", "replay hash to present, defaults to the last request this tool published")
	flags.Int64("height", 0, "block height")
	flags.String("hash", "", "block hash")
	flags.Int64("mediantime", 0, "block median time in unix seconds")
	flags.Bool("dry-run", false, "print the signed event instead of publishing it")
	if err := flags.Parse(os.Args[2:]); err != nil {
		library.LogCLI(err.Error(), 0)
		os.Exit(2)
	}

	conf := viper.New()
	// Now we initialise this configuration with basic settings that are required on startup.
	actors.InitConfig(conf)
	if err := conf.BindPFlags(flags); err != nil {
		library.LogCLI(err.Error(), 0)
		os.Exit(1)
	}
	// make the config accessible globally
	actors.SetConfig(conf)
	library.SetLogLevel(conf.GetInt("logLevel"))

	ctx := context.Background()
	event, confirmed, err := createEvent(ctx, command, conf)
	if err != nil {
		library.LogCLI(err.Error(), 0)
		os.Exit(1)
	}
	if conf.GetBool("dry-run") || conf.GetBool("doNotPublish") {
		b, err := json.MarshalIndent(event, "", " ")
		if err != nil {
			library.LogCLI(err.Error(), 0)
			os.Exit(1)
		}
		fmt.Printf("%s\n", b)
		return
	}
	sendChan, wait := actors.StartRelaysForPublishing(ctx, conf.GetStringSlice("relays"))
	sendChan <- event
	wait()
	if event.Kind != blocks.KindBlockHeader {
		if err := actors.WriteFlatFile("event-tool", "replay", []byte(event.ID)); err != nil {
			library.LogCLI(err.Error(), 1)
		}
		if !confirmed {
			r, _ := library.GetFirstTag(event, "r")
			library.LogCLI(fmt.Sprintf("presented replay hash %s without reading the engine's ledger. If the engine rejects %s, "+
				"the next request must present %s again: check with the engine console (r key) and pass --replay", r, event.ID, r), 2)
		}
	}
	fmt.Println(event.ID)
}

// createEvent signs the request for command. confirmed reports whether its
// replay hash is known to match the engine's chain.
func createEvent(ctx context.Context, command string, conf *viper.Viper) (e nostr.Event, confirmed bool, err error) {
	w := actors.MyWallet()
	switch command {
	case "lock":
		unlockTime := conf.GetInt64("unlock-at")
		if d := conf.GetDuration("unlock-in"); d > 0 {
			unlockTime = time.Now().Add(d).Unix()
		}
		h, ok := replayHash(ctx, conf, w.Account)
		e, err = helpers.InitializeLockRequest(w, conf.GetUint64("amount"), unlockTime, h)
		return e, ok, err
	case "withdraw":
		h, ok := replayHash(ctx, conf, w.Account)
		e, err = helpers.WithdrawRequest(w, h)
		return e, ok, err
	case "block":
		e, err = helpers.BlockHeaderEvent(w, blocks.Block{
			Height:     conf.GetInt64("height"),
			Hash:       conf.GetString("hash"),
			MedianTime: time.Unix(conf.GetInt64("mediantime"), 0),
			MinerTime:  time.Now(),
		})
		return e, true, err
	}
	return nostr.Event{}, false, fmt.Errorf("unknown command %q\n%s", command, usage)
}

// replayHash is the r tag account presents next. An explicit --replay wins.
// When the engine keeps its ledger in redis the tool reads the chain from
// there; otherwise it can only assume its last published request was
// accepted, and reports the hash as unconfirmed.
func replayHash(ctx context.Context, conf *viper.Viper, account library.Account) (library.Sha256, bool) {
	if h := conf.GetString("replay"); len(h) > 0 {
		return h, true
	}
	if conf.GetString("store") == "redis" {
		store := ledger.NewRedisStore(redis.NewClient(&redis.Options{Addr: conf.GetString("redisAddr")}))
		defer store.Close()
		// record reads never consult the clock
		h, err := replay.GetCurrentHashForAccount(ctx, ledger.NewRuntime(store, nil), account)
		if err == nil {
			return h, true
		}
		library.LogCLI("could not read replay hash from redis: "+err.Error(), 2)
	}
	b, ok, err := actors.ReadFlatFile("event-tool", "replay")
	if err != nil {
		library.LogCLI(err.Error(), 2)
	}
	if ok {
		return strings.TrimSpace(string(b)), false
	}
	return actors.ReplayGenesis, false
}
