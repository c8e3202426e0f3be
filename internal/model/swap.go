package model

// SwapInput is one line of a replay file.
type SwapInput struct {
	PoolID       string `json:"pool_id"`
	Direction    string `json:"direction"`
	AmountIn     uint64 `json:"amount_in,string"`
	MinAmountOut uint64 `json:"min_amount_out,string,omitempty"`
	Trader       string `json:"trader"`
	Recipient    string `json:"recipient,omitempty"`
	Host         string `json:"host,omitempty"`
}

// SwapRecord is an executed or rejected swap for the swap log.
type SwapRecord struct {
	ID           string `json:"id"`
	PoolID       string `json:"pool_id"`
	Direction    string `json:"direction"`
	Trader       string `json:"trader"`
	Recipient    string `json:"recipient"`
	Host         string `json:"host,omitempty"`
	AmountIn     uint64 `json:"amount_in,string"`
	MinAmountOut uint64 `json:"min_amount_out,string"`
	AmountOut    uint64 `json:"amount_out,string"`
	TradeFee     uint64 `json:"trade_fee,string"`
	OwnerFee     uint64 `json:"owner_fee,string"`
	HostFee      uint64 `json:"host_fee,string"`
	ReserveX     uint64 `json:"reserve_x,string"`
	ReserveY     uint64 `json:"reserve_y,string"`
	Error        string `json:"error,omitempty"`
	ExecutedAt   string `json:"executed_at"`
}
