package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tendermint/tendermint/libs/log"

	"github.com/iov-one/promissory"
	"github.com/iov-one/promissory/cash"
	"github.com/iov-one/promissory/coin"
	"github.com/iov-one/promissory/crypto"
	"github.com/iov-one/promissory/errors"
	"github.com/iov-one/promissory/flow"
	"github.com/iov-one/promissory/notary"
)

var (
	flagTimeout = "timeout"
	varTimeout  *time.Duration
	flagAmount  = "amount"
	varAmount   = coin.NewCoin(100, 0, "USD")
)

func init() {
	varTimeout = flag.Duration(flagTimeout, 10*time.Second, "deadline for every protocol run")
	flag.Var(&varAmount, flagAmount, "face amount of the demo record, human format")
}

func helpMessage() {
	fmt.Println("ioud")
	fmt.Println("        Promissory record network demo")
	fmt.Println("")
	fmt.Println("help    Print this message")
	fmt.Println("demo    Run a full record lifecycle between three parties")
	fmt.Println("version Print the app version")
	fmt.Println(`
  -amount coin
        face amount of the demo record, human format (default "100 USD")
  -timeout duration
        deadline for every protocol run (default 10s)`)
}

func main() {
	logger := log.NewTMLogger(log.NewSyncWriter(os.Stdout)).
		With("module", "ioud")

	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Println("Missing command:")
		helpMessage()
		os.Exit(1)
	}

	switch cmd := flag.Arg(0); cmd {
	case "help":
		helpMessage()
	case "demo":
		if err := demoCmd(logger, *varTimeout, varAmount); err != nil {
			fmt.Fprintf(os.Stderr, "demo failed: %+v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Println(promissory.Version)
	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		helpMessage()
		os.Exit(1)
	}
}

// demoCmd spins up an in process network of three parties and walks one
// record through its whole lifecycle: issue, transfer, full settlement.
func demoCmd(logger log.Logger, timeout time.Duration, amount coin.Coin) error {
	if err := amount.Validate(); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return errors.ErrAmount.Newf("face amount must be positive: %s", amount)
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	net := flow.NewNetwork()
	fin := notary.New(logger)
	ledger := cash.NewKeeper()

	alice := flow.NewNode("alice", crypto.GenPrivKeyEd25519(), net, fin, ledger, logger)
	bob := flow.NewNode("bob", crypto.GenPrivKeyEd25519(), net, fin, ledger, logger)
	carol := flow.NewNode("carol", crypto.GenPrivKeyEd25519(), net, fin, ledger, logger)
	alice.Start(ctx)
	bob.Start(ctx)
	carol.Start(ctx)

	if err := ledger.Deposit(bob.Condition(), amount); err != nil {
		return err
	}

	rec, err := alice.Issue(ctx, bob.Condition(), amount)
	if err != nil {
		return err
	}
	fmt.Printf("issued: %s\n", rec)

	rec, err = alice.Transfer(ctx, rec.LinearID, carol.Condition())
	if err != nil {
		return err
	}
	fmt.Printf("transferred: %s\n", rec)

	id := rec.LinearID
	rec, err = bob.Settle(ctx, id, amount)
	if err != nil {
		return err
	}
	if rec != nil {
		return fmt.Errorf("record still alive: %s", rec)
	}
	fmt.Printf("settled in full, record %s terminated\n", id)

	// Give the responders a moment to record the outcome.
	time.Sleep(100 * time.Millisecond)

	for name, node := range map[string]*flow.Node{"alice": alice, "bob": bob, "carol": carol} {
		live, err := node.Vault().ListUnconsumed()
		if err != nil {
			return err
		}
		balance, err := ledger.Balance(node.Condition(), amount.Ticker)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d live records, %s\n", name, len(live), balance)
	}
	return nil
}
