package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestSwapRecordJSONStringAmounts(t *testing.T) {
	record := SwapRecord{
		ID:         "6f1c6a52-0c1e-4a43-9d0b-6d1b0f2f3c11",
		PoolID:     "0xabc",
		Direction:  "x-to-y",
		Trader:     "alice",
		Recipient:  "alice",
		AmountIn:   18446744073709551615,
		AmountOut:  996,
		TradeFee:   3,
		ReserveX:   2000,
		ReserveY:   1004,
		ExecutedAt: "2024-01-01T00:00:00Z",
	}

	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if v, ok := decoded["amount_in"].(string); !ok || v != "18446744073709551615" {
		t.Fatalf("amount_in should be a decimal string, got %v", decoded["amount_in"])
	}
	if _, ok := decoded["reserve_y"].(string); !ok {
		t.Fatalf("reserve_y should be string")
	}
	if _, ok := decoded["host"]; ok {
		t.Fatalf("empty host should be omitted")
	}

	var back SwapRecord
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal record failed: %v", err)
	}
	if !reflect.DeepEqual(record, back) {
		t.Fatalf("round-trip mismatch: %+v != %+v", record, back)
	}
}

func TestSwapInputDecode(t *testing.T) {
	line := `{"pool_id":"0xabc","direction":"y-to-x","amount_in":"1000","min_amount_out":"990","trader":"bob"}`
	var in SwapInput
	if err := json.Unmarshal([]byte(line), &in); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if in.AmountIn != 1000 || in.MinAmountOut != 990 || in.Direction != "y-to-x" || in.Trader != "bob" {
		t.Fatalf("unexpected input: %+v", in)
	}
}
