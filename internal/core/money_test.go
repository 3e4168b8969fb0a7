package core

import (
	"encoding/json"
	"testing"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half away from zero
		{" 2.50 ", 250, true},
		{"1.234,56", 123456, true},
		{"-1", -100, true},
		{"0", 0, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyJSONCoercion(t *testing.T) {
	cases := []struct {
		in  string
		out int64
	}{
		{`1000`, 100000},
		{`12.5`, 1250},
		{`"90"`, 9000},
		{`"90,10"`, 9010},
		{`"abc"`, 0},
		{`null`, 0},
		{`true`, 0},
		{`{}`, 0},
	}
	for _, tc := range cases {
		var m Money
		if err := json.Unmarshal([]byte(tc.in), &m); err != nil {
			t.Fatalf("%s: unexpected error %v", tc.in, err)
		}
		if m.Cents != tc.out {
			t.Errorf("%s: got %d cents, want %d", tc.in, m.Cents, tc.out)
		}
	}
}

func TestMoneyMarshalJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		V Money `json:"v"`
	}{V: Cents(1050)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"v":10.5}` {
		t.Fatalf("got %s", b)
	}
}

func TestMoneyBRLSign(t *testing.T) {
	if got := Cents(1250).BRL(); got != "R$ 12,50" {
		t.Errorf("positive: got %q", got)
	}
	if got := Cents(-1250).BRL(); got != "-R$ 12,50" {
		t.Errorf("negative: got %q", got)
	}
}
