package amm

import "context"

// Operation names a mutating engine call for authorization checks.
type Operation string

const (
	OpInitialize Operation = "initialize"
	OpSwap       Operation = "swap"
	OpDeposit    Operation = "deposit"
	OpWithdraw   Operation = "withdraw"
)

// Authorization is the host-validated context of a mutating call. The engine
// does not verify signatures; it only hands this to the host's Authorizer.
type Authorization struct {
	Signer string
}

// Authorizer is implemented by the host boundary.
type Authorizer interface {
	Authorize(ctx context.Context, auth Authorization, op Operation, owner string) error
}

// SignerMatchesOwner allows an operation only when the signer is the account
// owner whose tokens move.
type SignerMatchesOwner struct{}

func (SignerMatchesOwner) Authorize(_ context.Context, auth Authorization, op Operation, owner string) error {
	if auth.Signer == "" {
		return ErrUnauthorized.Wrap("%s: missing signer", op)
	}
	if owner != "" && auth.Signer != owner {
		return ErrUnauthorized.Wrap("%s: signer %s does not own %s", op, auth.Signer, owner)
	}
	return nil
}

// AllowAll authorizes every call. Used by hosts that validate upstream.
type AllowAll struct{}

func (AllowAll) Authorize(context.Context, Authorization, Operation, string) error {
	return nil
}
