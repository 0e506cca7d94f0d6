// Package token implements the fungible value token: balances, controlled
// minting and burning through the wired payment contract, and standard
// allowance semantics.
package token

import (
	"context"
	"fmt"
	"time"

	"github.com/tokencart/settlement/internal/domain"
	"github.com/tokencart/settlement/internal/ledger"
	"github.com/tokencart/settlement/internal/store"
)

// Config holds token parameters.
type Config struct {
	// FeeRateBPS is the entry/exit fee in basis points; zero falls back to
	// the default 2.5%
	FeeRateBPS int64
}

// Ledger is the value token over a store.
type Ledger struct {
	store      store.Store
	feeRateBPS int64
}

// NewLedger creates a token ledger bound to st.
func NewLedger(st store.Store, cfg Config) *Ledger {
	rate := cfg.FeeRateBPS
	if rate == 0 {
		rate = domain.DefaultFeeRateBPS
	}
	return &Ledger{store: st, feeRateBPS: rate}
}

// FeeRateBPS returns the configured entry/exit fee rate.
func (l *Ledger) FeeRateBPS() int64 {
	return l.feeRateBPS
}

// BalanceOf returns the balance of an account, zero for unknown accounts.
func (l *Ledger) BalanceOf(ctx context.Context, account domain.Identity) (int64, error) {
	return l.store.GetBalance(ctx, account)
}

// TotalMinted returns the cumulative amount ever minted.
func (l *Ledger) TotalMinted(ctx context.Context) (int64, error) {
	minted, _, err := l.store.GetTokenStats(ctx)
	return minted, err
}

// TotalBurned returns the cumulative amount ever burned.
func (l *Ledger) TotalBurned(ctx context.Context) (int64, error) {
	_, burned, err := l.store.GetTokenStats(ctx)
	return burned, err
}

// Allowance returns the remaining amount spender may move on behalf of owner.
func (l *Ledger) Allowance(ctx context.Context, owner, spender domain.Identity) (int64, error) {
	return l.store.GetAllowance(ctx, owner, spender)
}

// Deposit mints gross minus the entry fee to buyer and routes the fee to the
// wired collector. Only the wired payment contract identity may call it; it is
// invoked after an external card payment is confirmed, which this ledger does
// not verify. Returns the audit event recorded for the mint.
func (l *Ledger) Deposit(ctx context.Context, caller, buyer domain.Identity, gross int64) (*domain.LedgerEvent, error) {
	if gross <= 0 {
		return nil, fmt.Errorf("deposit amount %d: %w", gross, domain.ErrInvalidAmount)
	}
	if !buyer.Valid() {
		return nil, fmt.Errorf("buyer: %w", domain.ErrInvalidIdentity)
	}

	var event *domain.LedgerEvent
	err := l.store.Atomically(ctx, func(st store.Store) error {
		if err := ledger.RequireWiredIdentity(ctx, st, domain.WiringTokenPaymentContract, caller); err != nil {
			return err
		}

		fee, err := domain.Fee(gross, l.feeRateBPS)
		if err != nil {
			return err
		}
		net := gross - fee

		if err := Credit(ctx, st, buyer, net); err != nil {
			return err
		}

		collector, err := st.GetWiring(ctx, domain.WiringTokenFeeCollector)
		if err != nil {
			return err
		}
		if err := Credit(ctx, st, collector, fee); err != nil {
			return err
		}

		if err := st.AddTokenStats(ctx, gross, 0); err != nil {
			return err
		}

		now := time.Now().UTC()
		event = &domain.LedgerEvent{
			EventID:   ledger.NewEventID(now),
			EventType: domain.EventTypeTokenMinted,
			Subject:   buyer,
			Amount:    net,
			Fee:       fee,
			Timestamp: now,
		}
		return ledger.RecordEvent(ctx, st, event)
	})
	if err != nil {
		return nil, err
	}

	return event, nil
}

// Withdraw burns amount from seller's balance. The exit fee is skimmed from
// the off-ledger release: the event's Amount is the burned total and its Fee
// the share retained, so the external disbursement is Amount - Fee. Only the
// wired payment contract identity may call it.
func (l *Ledger) Withdraw(ctx context.Context, caller, seller domain.Identity, amount int64) (*domain.LedgerEvent, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("withdraw amount %d: %w", amount, domain.ErrInvalidAmount)
	}

	var event *domain.LedgerEvent
	err := l.store.Atomically(ctx, func(st store.Store) error {
		if err := ledger.RequireWiredIdentity(ctx, st, domain.WiringTokenPaymentContract, caller); err != nil {
			return err
		}

		if err := Debit(ctx, st, seller, amount); err != nil {
			return err
		}

		fee, err := domain.Fee(amount, l.feeRateBPS)
		if err != nil {
			return err
		}

		if err := st.AddTokenStats(ctx, 0, amount); err != nil {
			return err
		}

		now := time.Now().UTC()
		event = &domain.LedgerEvent{
			EventID:   ledger.NewEventID(now),
			EventType: domain.EventTypeTokenBurned,
			Subject:   seller,
			Amount:    amount,
			Fee:       fee,
			Timestamp: now,
		}
		return ledger.RecordEvent(ctx, st, event)
	})
	if err != nil {
		return nil, err
	}

	return event, nil
}

// Transfer moves amount from caller to recipient.
func (l *Ledger) Transfer(ctx context.Context, caller, to domain.Identity, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("transfer amount %d: %w", amount, domain.ErrInvalidAmount)
	}
	if !to.Valid() {
		return fmt.Errorf("recipient: %w", domain.ErrInvalidIdentity)
	}

	return l.store.Atomically(ctx, func(st store.Store) error {
		if err := Debit(ctx, st, caller, amount); err != nil {
			return err
		}
		return Credit(ctx, st, to, amount)
	})
}

// Approve sets the absolute amount spender may move on behalf of caller.
// Approvals replace any prior value; they are not incremental.
func (l *Ledger) Approve(ctx context.Context, caller, spender domain.Identity, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("approval amount %d: %w", amount, domain.ErrInvalidAmount)
	}
	if !spender.Valid() {
		return fmt.Errorf("spender: %w", domain.ErrInvalidIdentity)
	}

	return l.store.SetAllowance(ctx, caller, spender, amount)
}

// TransferFrom moves amount from owner to recipient on behalf of caller,
// consuming caller's allowance.
func (l *Ledger) TransferFrom(ctx context.Context, caller, owner, to domain.Identity, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("transfer amount %d: %w", amount, domain.ErrInvalidAmount)
	}

	return l.store.Atomically(ctx, func(st store.Store) error {
		allowance, err := st.GetAllowance(ctx, owner, caller)
		if err != nil {
			return err
		}
		if allowance < amount {
			return fmt.Errorf("allowance %d < %d: %w", allowance, amount, domain.ErrInsufficientBalance)
		}

		if err := Debit(ctx, st, owner, amount); err != nil {
			return err
		}
		if err := Credit(ctx, st, to, amount); err != nil {
			return err
		}

		return st.SetAllowance(ctx, owner, caller, allowance-amount)
	})
}

// Credit adds amount to an account balance within the given store scope. The
// settlement orchestrator uses it inside its own transaction. The store
// applies the change relatively, so concurrent credits to the same account
// never lose each other.
func Credit(ctx context.Context, st store.Store, account domain.Identity, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("credit amount %d: %w", amount, domain.ErrInvalidAmount)
	}

	return st.AddBalance(ctx, account, amount)
}

// Debit subtracts amount from an account balance within the given store
// scope, failing with ErrInsufficientBalance before any mutation.
func Debit(ctx context.Context, st store.Store, account domain.Identity, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("debit amount %d: %w", amount, domain.ErrInvalidAmount)
	}

	return st.AddBalance(ctx, account, -amount)
}
