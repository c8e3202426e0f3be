package engine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"ammEngine/internal/amm"
	"ammEngine/internal/curve"
	"ammEngine/internal/fees"
	"ammEngine/internal/ledger"
	"ammEngine/internal/metrics"
)

const (
	startReserve = 1_000_000
	startBalance = 10_000_000
)

func as(signer string) amm.Authorization {
	return amm.Authorization{Signer: signer}
}

func fund(t *testing.T, l *ledger.Ledger, owner string, mints ...string) {
	t.Helper()
	for _, mint := range mints {
		if err := l.Mint(context.Background(), mint, owner, startBalance); err != nil {
			t.Fatalf("fund %s %s: %v", owner, mint, err)
		}
	}
}

func newTestEngine(t *testing.T, tokens TokenTransfer, l *ledger.Ledger, schedule fees.Schedule) (*Engine, string) {
	t.Helper()
	fund(t, l, "alice", "x", "y")
	e := New(tokens, WithMetrics(metrics.New(prometheus.NewRegistry())))
	id, err := e.InitializePool(context.Background(), as("alice"), InitParams{
		MintX:     "x",
		MintY:     "y",
		Depositor: "alice",
		FeeOwner:  "treasury",
		ReserveX:  startReserve,
		ReserveY:  startReserve,
		Fees:      schedule,
		Curve:     curve.ConstantProduct,
	})
	if err != nil {
		t.Fatalf("initialize pool: %v", err)
	}
	return e, id
}

func noFees() fees.Schedule {
	return fees.Schedule{Trade: fees.Rate{Numerator: 0, Denominator: 10000}}
}

func TestInitializePoolMovesReserves(t *testing.T) {
	l := ledger.New(nil)
	e, id := newTestEngine(t, l, l, noFees())

	st, err := e.Pool(id)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if st.ID != PoolID("x", "y", curve.ConstantProduct) {
		t.Fatalf("pool id mismatch: %s", st.ID)
	}
	if l.Balance("x", st.Authority) != startReserve || l.Balance("y", st.Authority) != startReserve {
		t.Fatalf("vaults not funded")
	}
	if l.Balance("x", "alice") != startBalance-startReserve {
		t.Fatalf("depositor balance mismatch: %d", l.Balance("x", "alice"))
	}
	if l.Balance(st.LPMint, "alice") != curve.InitialPoolSupply || st.LPSupply != curve.InitialPoolSupply {
		t.Fatalf("initial lp supply mismatch")
	}
}

func TestInitializePoolTwice(t *testing.T) {
	l := ledger.New(nil)
	e, _ := newTestEngine(t, l, l, noFees())

	_, err := e.InitializePool(context.Background(), as("alice"), InitParams{
		MintX: "x", MintY: "y", Depositor: "alice", ReserveX: 10, ReserveY: 10, Fees: noFees(),
	})
	if !errors.Is(err, amm.ErrAlreadyInitialized) {
		t.Fatalf("expected AlreadyInitialized, got %v", err)
	}
	if l.Balance("x", "alice") != startBalance-startReserve {
		t.Fatalf("failed init moved tokens")
	}
}

func TestInitializePoolRollsBackOnTransferFailure(t *testing.T) {
	ctx := context.Background()
	l := ledger.New(nil)
	if err := l.Mint(ctx, "x", "bob", 100); err != nil {
		t.Fatalf("mint: %v", err)
	}
	e := New(l)
	params := InitParams{MintX: "x", MintY: "y", Depositor: "bob", ReserveX: 100, ReserveY: 100, Fees: noFees()}

	_, err := e.InitializePool(ctx, as("bob"), params)
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if l.Balance("x", "bob") != 100 {
		t.Fatalf("x transfer not rolled back: %d", l.Balance("x", "bob"))
	}
	id := PoolID("x", "y", curve.ConstantProduct)
	if _, err := e.Pool(id); !errors.Is(err, amm.ErrPoolUninitialized) {
		t.Fatalf("expected PoolUninitialized, got %v", err)
	}

	if err := l.Mint(ctx, "y", "bob", 100); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := e.InitializePool(ctx, as("bob"), params); err != nil {
		t.Fatalf("retry initialize: %v", err)
	}
}

func TestExecuteSwapNoFee(t *testing.T) {
	l := ledger.New(nil)
	e, id := newTestEngine(t, l, l, noFees())
	fund(t, l, "bob", "x")

	res, err := e.ExecuteSwap(context.Background(), as("bob"), SwapParams{
		PoolID: id, Direction: amm.XToY, AmountIn: 1000, MinAmountOut: 999, Trader: "bob",
	})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if res.AmountOut != 999 {
		t.Fatalf("amount out mismatch: %d", res.AmountOut)
	}
	st, _ := e.Pool(id)
	if l.Balance("y", "bob") != 999 || l.Balance("x", "bob") != startBalance-1000 {
		t.Fatalf("trader balances mismatch")
	}
	if l.Balance("x", st.Authority) != st.ReserveX || l.Balance("y", st.Authority) != st.ReserveY {
		t.Fatalf("vaults %d/%d differ from reserves %d/%d",
			l.Balance("x", st.Authority), l.Balance("y", st.Authority), st.ReserveX, st.ReserveY)
	}
}

func TestExecuteSwapRoutesFees(t *testing.T) {
	l := ledger.New(nil)
	schedule := fees.Schedule{
		Trade:      fees.Rate{Numerator: 30, Denominator: 10000},
		OwnerTrade: fees.Rate{Numerator: 5, Denominator: 10000},
		Host:       fees.Rate{Numerator: 20, Denominator: 100},
	}
	e, id := newTestEngine(t, l, l, schedule)
	fund(t, l, "bob", "x")

	res, err := e.ExecuteSwap(context.Background(), as("bob"), SwapParams{
		PoolID: id, Direction: amm.XToY, AmountIn: 100_000, Trader: "bob", Recipient: "dave", Host: "carol",
	})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if res.TradeFee != 300 || res.OwnerFee != 50 || res.HostFee != 60 || res.AmountOut != 90_619 {
		t.Fatalf("result mismatch: %+v", res)
	}
	st, _ := e.Pool(id)
	if st.ReserveX != 1_099_890 || st.ReserveY != 909_381 {
		t.Fatalf("reserves mismatch: %d/%d", st.ReserveX, st.ReserveY)
	}
	if l.Balance("x", "treasury") != 50 || l.Balance("x", "carol") != 60 || l.Balance("y", "dave") != 90_619 {
		t.Fatalf("fee routing mismatch")
	}
	if l.Balance("x", st.Authority) != st.ReserveX {
		t.Fatalf("vault x %d differs from reserve %d", l.Balance("x", st.Authority), st.ReserveX)
	}
}

func TestExecuteSwapSlippageLeavesState(t *testing.T) {
	l := ledger.New(nil)
	e, id := newTestEngine(t, l, l, noFees())
	fund(t, l, "bob", "x")
	before, _ := e.Pool(id)

	_, err := e.ExecuteSwap(context.Background(), as("bob"), SwapParams{
		PoolID: id, Direction: amm.XToY, AmountIn: 1000, MinAmountOut: 1000, Trader: "bob",
	})
	if !errors.Is(err, amm.ErrSlippageExceeded) {
		t.Fatalf("expected SlippageExceeded, got %v", err)
	}
	after, _ := e.Pool(id)
	if before != after {
		t.Fatalf("pool changed after rejected swap")
	}
	if l.Balance("x", "bob") != startBalance {
		t.Fatalf("tokens moved after rejected swap")
	}
}

func TestExecuteSwapErrors(t *testing.T) {
	l := ledger.New(nil)
	e, id := newTestEngine(t, l, l, noFees())
	fund(t, l, "bob", "x")
	ctx := context.Background()

	cases := []struct {
		name   string
		signer string
		params SwapParams
		want   error
	}{
		{"unknown pool", "bob", SwapParams{PoolID: "0xmissing", Direction: amm.XToY, AmountIn: 1, Trader: "bob"}, amm.ErrPoolUninitialized},
		{"zero amount", "bob", SwapParams{PoolID: id, Direction: amm.XToY, Trader: "bob"}, amm.ErrZeroAmount},
		{"wrong signer", "mallory", SwapParams{PoolID: id, Direction: amm.XToY, AmountIn: 1, Trader: "bob"}, amm.ErrUnauthorized},
		{"no signer", "", SwapParams{PoolID: id, Direction: amm.XToY, AmountIn: 1, Trader: "bob"}, amm.ErrUnauthorized},
		{"unfunded", "erin", SwapParams{PoolID: id, Direction: amm.XToY, AmountIn: 1000, Trader: "erin"}, ledger.ErrInsufficientFunds},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.ExecuteSwap(ctx, as(tc.signer), tc.params)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

// failingTokens fails transfers into one account.
type failingTokens struct {
	*ledger.Ledger
	failTo string
}

var errInjected = errors.New("injected failure")

func (f *failingTokens) Transfer(ctx context.Context, mint, from, to string, amount uint64) error {
	if to == f.failTo {
		return errInjected
	}
	return f.Ledger.Transfer(ctx, mint, from, to, amount)
}

func TestExecuteSwapRollsBackEarlierTransfers(t *testing.T) {
	l := ledger.New(nil)
	tokens := &failingTokens{Ledger: l, failTo: "dave"}
	e, id := newTestEngine(t, tokens, l, noFees())
	fund(t, l, "bob", "x")
	before, _ := e.Pool(id)

	_, err := e.ExecuteSwap(context.Background(), as("bob"), SwapParams{
		PoolID: id, Direction: amm.XToY, AmountIn: 1000, Trader: "bob", Recipient: "dave",
	})
	if !errors.Is(err, errInjected) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	after, _ := e.Pool(id)
	if before != after {
		t.Fatalf("pool changed after failed settlement")
	}
	if l.Balance("x", "bob") != startBalance || l.Balance("x", before.Authority) != startReserve {
		t.Fatalf("input transfer not rolled back")
	}
}

func TestQuoteDoesNotMutate(t *testing.T) {
	l := ledger.New(nil)
	e, id := newTestEngine(t, l, l, fees.Schedule{Trade: fees.Rate{Numerator: 30, Denominator: 10000}})
	before, _ := e.Pool(id)

	res, err := e.Quote(id, amm.XToY, 1000, false)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if res.AmountOut != 996 {
		t.Fatalf("amount out mismatch: %d", res.AmountOut)
	}
	after, _ := e.Pool(id)
	if before != after {
		t.Fatalf("quote changed the pool")
	}
}

func TestDepositAndWithdraw(t *testing.T) {
	ctx := context.Background()
	l := ledger.New(nil)
	e, id := newTestEngine(t, l, l, fees.Schedule{
		Trade:         fees.Rate{Numerator: 0, Denominator: 10000},
		OwnerWithdraw: fees.Rate{Numerator: 1, Denominator: 100},
	})
	fund(t, l, "bob", "x", "y")
	st, _ := e.Pool(id)

	dep, err := e.Deposit(ctx, as("bob"), DepositParams{
		PoolID: id, Owner: "bob", PoolTokens: 100_000_000, MaxX: 100_000, MaxY: 100_000,
	})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if dep.AmountX != 100_000 || dep.AmountY != 100_000 {
		t.Fatalf("deposit amounts mismatch: %+v", dep)
	}
	if l.Balance(st.LPMint, "bob") != 100_000_000 {
		t.Fatalf("lp not minted")
	}

	wd, err := e.Withdraw(ctx, as("bob"), WithdrawParams{PoolID: id, Owner: "bob", PoolTokens: 100_000_000})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if wd.WithdrawFee != 1_000_000 {
		t.Fatalf("withdraw fee mismatch: %d", wd.WithdrawFee)
	}
	if l.Balance(st.LPMint, "bob") != 0 || l.Balance(st.LPMint, "treasury") != 1_000_000 {
		t.Fatalf("lp balances mismatch")
	}
	if l.Balance("x", "bob") != startBalance-dep.AmountX+wd.AmountX {
		t.Fatalf("x balance mismatch")
	}

	after, _ := e.Pool(id)
	if l.Supply(st.LPMint) != after.LPSupply {
		t.Fatalf("lp supply %d differs from ledger %d", after.LPSupply, l.Supply(st.LPMint))
	}
	if l.Balance("x", st.Authority) != after.ReserveX || l.Balance("y", st.Authority) != after.ReserveY {
		t.Fatalf("vaults differ from reserves")
	}
}

func TestWithdrawUnauthorized(t *testing.T) {
	l := ledger.New(nil)
	e, id := newTestEngine(t, l, l, noFees())
	_, err := e.Withdraw(context.Background(), as("mallory"), WithdrawParams{PoolID: id, Owner: "alice", PoolTokens: 1})
	if !errors.Is(err, amm.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

func TestPoolAuthorityCannotTrade(t *testing.T) {
	ctx := context.Background()
	l := ledger.New(nil)
	e, id := newTestEngine(t, l, l, noFees())
	fund(t, l, "bob", "x", "y")
	st, _ := e.Pool(id)
	vault := st.Authority

	swaps := map[string]SwapParams{
		"trader":           {Trader: vault, Recipient: "mallory"},
		"lowercase trader": {Trader: strings.ToLower(vault), Recipient: "mallory"},
		"recipient":        {Trader: "bob", Recipient: vault},
		"host":             {Trader: "bob", Host: vault},
	}
	for name, params := range swaps {
		params.PoolID = id
		params.Direction = amm.XToY
		params.AmountIn = 1000
		_, err := e.ExecuteSwap(ctx, as(NormalizeAccount(params.Trader)), params)
		if !errors.Is(err, amm.ErrInvalidInput) {
			t.Fatalf("%s: expected InvalidInput, got %v", name, err)
		}
	}

	_, err := e.Deposit(ctx, as(vault), DepositParams{
		PoolID: id, Owner: vault, PoolTokens: 500_000_000, MaxX: startReserve, MaxY: startReserve,
	})
	if !errors.Is(err, amm.ErrInvalidInput) {
		t.Fatalf("deposit: expected InvalidInput, got %v", err)
	}
	_, err = e.Withdraw(ctx, as(vault), WithdrawParams{PoolID: id, Owner: vault, PoolTokens: 1})
	if !errors.Is(err, amm.ErrInvalidInput) {
		t.Fatalf("withdraw: expected InvalidInput, got %v", err)
	}

	after, _ := e.Pool(id)
	if !reflect.DeepEqual(after, st) {
		t.Fatalf("pool changed: %+v", after)
	}
	if l.Balance("x", vault) != after.ReserveX || l.Balance("y", vault) != after.ReserveY {
		t.Fatalf("vaults differ from reserves")
	}
	if l.Balance("y", "mallory") != 0 || l.Supply(st.LPMint) != after.LPSupply {
		t.Fatalf("tokens leaked")
	}
}

func TestInitializePoolRejectsAuthorityParties(t *testing.T) {
	ctx := context.Background()
	l := ledger.New(nil)
	e := New(l)
	vault := AuthorityOf(PoolID("a", "b", curve.ConstantProduct))
	fund(t, l, "carol", "a", "b")
	fund(t, l, vault, "a", "b")

	cases := map[string]InitParams{
		"depositor": {Depositor: vault},
		"fee owner": {Depositor: "carol", FeeOwner: vault},
	}
	for name, params := range cases {
		params.MintX, params.MintY = "a", "b"
		params.ReserveX, params.ReserveY = 1000, 1000
		params.Fees = noFees()
		_, err := e.InitializePool(ctx, as(NormalizeAccount(params.Depositor)), params)
		if !errors.Is(err, amm.ErrInvalidInput) {
			t.Fatalf("%s: expected InvalidInput, got %v", name, err)
		}
	}
	if len(e.Pools()) != 0 {
		t.Fatalf("rejected pool was registered")
	}
}

func TestConcurrentSwapsKeepVaultsInSync(t *testing.T) {
	l := ledger.New(nil)
	e, id := newTestEngine(t, l, l, fees.Schedule{Trade: fees.Rate{Numerator: 30, Denominator: 10000}})
	start, _ := e.Pool(id)

	const traders = 8
	const swapsEach = 25
	for i := 0; i < traders; i++ {
		fund(t, l, fmt.Sprintf("trader-%d", i), "x", "y")
	}

	var wg sync.WaitGroup
	errs := make(chan error, traders*swapsEach)
	for i := 0; i < traders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			trader := fmt.Sprintf("trader-%d", i)
			for j := 0; j < swapsEach; j++ {
				dir := amm.XToY
				if (i+j)%2 == 1 {
					dir = amm.YToX
				}
				_, err := e.ExecuteSwap(context.Background(), as(trader), SwapParams{
					PoolID: id, Direction: dir, AmountIn: 1000, Trader: trader,
				})
				if err != nil {
					errs <- err
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("swap: %v", err)
	}

	end, _ := e.Pool(id)
	if l.Balance("x", end.Authority) != end.ReserveX || l.Balance("y", end.Authority) != end.ReserveY {
		t.Fatalf("vaults %d/%d differ from reserves %d/%d",
			l.Balance("x", end.Authority), l.Balance("y", end.Authority), end.ReserveX, end.ReserveY)
	}
	if curve.Invariant(end.ReserveX, end.ReserveY).Cmp(curve.Invariant(start.ReserveX, start.ReserveY)) < 0 {
		t.Fatalf("invariant decreased")
	}
}

func TestRestore(t *testing.T) {
	l := ledger.New(nil)
	e, id := newTestEngine(t, l, l, fees.DefaultSchedule())
	saved := e.Pools()

	restored := New(l)
	if err := restored.Restore(saved); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got, err := restored.Pool(id)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if !reflect.DeepEqual(got, saved[0]) {
		t.Fatalf("restored pool mismatch: %+v != %+v", got, saved[0])
	}

	bad := saved[0]
	bad.ReserveX = 0
	if err := restored.Restore(append(saved, bad)); err == nil {
		t.Fatalf("expected error restoring invalid pool")
	}
}

func TestPoolIdentity(t *testing.T) {
	a := PoolID("x", "y", curve.ConstantProduct)
	if a != PoolID(" x", "y", curve.ConstantProduct) {
		t.Fatalf("pool id not stable")
	}
	if a == PoolID("y", "x", curve.ConstantProduct) {
		t.Fatalf("pool id ignores mint order")
	}
	if len(AuthorityOf(a)) != 42 || AuthorityOf(a) == LPMintOf(a) {
		t.Fatalf("derived accounts malformed")
	}

	lower := "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	if got := NormalizeAccount(lower); got != "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed" {
		t.Fatalf("normalize mismatch: %s", got)
	}
	if got := NormalizeAccount("alice"); got != "alice" {
		t.Fatalf("normalize changed plain account: %s", got)
	}
}
