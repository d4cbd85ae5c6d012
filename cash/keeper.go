/*
Package cash is the payment asset collaborator. It keeps per party wallets,
answers balance queries, generates the payment outputs that fund a
settlement and moves the balances once a settlement is finalized.

The payment asset's own transfer rules are out of scope here, this keeper is
the narrow interface the obligation ledger consumes.
*/
package cash

import (
	"sync"

	amino "github.com/tendermint/go-amino"

	"github.com/iov-one/promissory"
	"github.com/iov-one/promissory/coin"
	"github.com/iov-one/promissory/errors"
	"github.com/iov-one/promissory/iou"
	"github.com/iov-one/promissory/store"
)

var walletPrefix = []byte("wallet:")

var cdc = amino.NewCodec()

// Keeper manages wallets of the payment asset, safe for concurrent use.
type Keeper struct {
	mu sync.RWMutex
	db store.KVStore
}

var _ iou.CashKeeper = (*Keeper)(nil)

// NewKeeper returns a keeper backed by a fresh in-memory store.
func NewKeeper() *Keeper {
	return NewKeeperWithStore(store.MemStore())
}

// NewKeeperWithStore returns a keeper persisting into the given store.
func NewKeeperWithStore(db store.KVStore) *Keeper {
	return &Keeper{db: db}
}

// Balance returns the holdings of the owner in the given currency. An owner
// without a wallet holds zero.
func (k *Keeper) Balance(owner promissory.Condition, ticker string) (coin.Coin, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	wallet, err := k.wallet(owner)
	if err != nil {
		return coin.Coin{}, err
	}
	return wallet.AmountOf(ticker), nil
}

// Deposit credits the owner's wallet. Use it to seed demo balances.
func (k *Keeper) Deposit(owner promissory.Condition, amount coin.Coin) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !amount.IsPositive() {
		return errors.Wrapf(errors.ErrAmount, "deposit: %s", amount)
	}
	wallet, err := k.wallet(owner)
	if err != nil {
		return err
	}
	wallet, err = wallet.Add(amount)
	if err != nil {
		return err
	}
	return k.saveWallet(owner, wallet)
}

// GenerateSpend produces the payment outputs moving the amount from one
// party to another. The move itself happens in Apply once the transition
// carrying these outputs is finalized.
func (k *Keeper) GenerateSpend(from, to promissory.Condition, amount coin.Coin) ([]promissory.Payment, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if !amount.IsPositive() {
		return nil, errors.Wrapf(errors.ErrAmount, "spend: %s", amount)
	}
	wallet, err := k.wallet(from)
	if err != nil {
		return nil, err
	}
	if !wallet.Contains(amount) {
		return nil, errors.Wrapf(errors.ErrInsufficientAmount,
			"holding %s, spending %s", wallet.AmountOf(amount.Ticker), amount)
	}
	return []promissory.Payment{
		{Recipient: to, Amount: amount},
	}, nil
}

// Apply moves the balances of a finalized settlement: every payment amount
// is withdrawn from the payer and credited to its recipient. All wallet
// changes are staged first and persisted only once the whole payment list
// cleared, so a failing payment leaves every balance untouched.
func (k *Keeper) Apply(payer promissory.Condition, payments []promissory.Payment) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	staged := map[string]coin.Coins{}
	load := func(owner promissory.Condition) (coin.Coins, error) {
		if w, ok := staged[string(owner)]; ok {
			return w, nil
		}
		return k.wallet(owner)
	}

	wallet, err := load(payer)
	if err != nil {
		return err
	}
	staged[string(payer)] = wallet

	for _, p := range payments {
		if p.Recipient.Equals(payer) {
			// Moving coins to yourself is a no-op.
			continue
		}
		wallet := staged[string(payer)]
		if !wallet.Contains(p.Amount) {
			return errors.Wrapf(errors.ErrInsufficientAmount,
				"holding %s, moving %s", wallet.AmountOf(p.Amount.Ticker), p.Amount)
		}
		wallet, err = wallet.Subtract(p.Amount)
		if err != nil {
			return err
		}
		staged[string(payer)] = wallet

		recipient, err := load(p.Recipient)
		if err != nil {
			return err
		}
		recipient, err = recipient.Add(p.Amount)
		if err != nil {
			return err
		}
		staged[string(p.Recipient)] = recipient
	}

	for owner, wallet := range staged {
		if err := k.saveWallet(promissory.Condition(owner), wallet); err != nil {
			return err
		}
	}
	return nil
}

func (k *Keeper) wallet(owner promissory.Condition) (coin.Coins, error) {
	raw, err := k.db.Get(walletKey(owner))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var wallet coin.Coins
	if err := cdc.UnmarshalBinaryBare(raw, &wallet); err != nil {
		return nil, errors.Wrap(err, "unmarshal wallet")
	}
	return wallet, nil
}

func (k *Keeper) saveWallet(owner promissory.Condition, wallet coin.Coins) error {
	raw, err := cdc.MarshalBinaryBare(wallet)
	if err != nil {
		return errors.Wrap(err, "marshal wallet")
	}
	return k.db.Set(walletKey(owner), raw)
}

func walletKey(owner promissory.Condition) []byte {
	return append(append([]byte(nil), walletPrefix...), owner.Address()...)
}
