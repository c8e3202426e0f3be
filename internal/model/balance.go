package model

// Balance is one ledger account: the amount of Mint held by Owner.
type Balance struct {
	Mint   string `json:"mint"`
	Owner  string `json:"owner"`
	Amount uint64 `json:"amount,string"`
}
