package domain

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    Amount
		wantErr error
	}{
		{"30", 3000, nil},
		{"30.00", 3000, nil},
		{"30,5", 3050, nil},
		{"R$ 1.234,56", 123456, nil},
		{" 0,01 ", 1, nil},
		{"0", 0, ErrAmountMustBePositive},
		{"-10", 0, ErrAmountMustBePositive},
		{"10.001", 0, ErrInvalidAmount},
		{"abc", 0, ErrInvalidAmount},
		{"", 0, ErrInvalidAmount},
		{"92233720368547758.07", MaxAmount, nil},
		{"92233720368547758.08", 0, ErrInvalidAmount},
		{"200000000000000000", 0, ErrInvalidAmount},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if !errors.Is(err, tt.wantErr) {
			t.Fatalf("ParseAmount(%q) err=%v want=%v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseAmount(%q)=%d want=%d", tt.in, got, tt.want)
		}
	}
}

func TestAmountFormatting(t *testing.T) {
	tests := []struct {
		a   Amount
		str string
		brl string
	}{
		{NewAmount(70, 0), "70.00", "R$ 70,00"},
		{123456, "1234.56", "R$ 1.234,56"},
		{5, "0.05", "R$ 0,05"},
		{NewAmount(1000000, 0), "1000000.00", "R$ 1.000.000,00"},
		{-3000, "-30.00", "-R$ 30,00"},
	}
	for _, tt := range tests {
		if got := tt.a.String(); got != tt.str {
			t.Fatalf("String()=%q want=%q", got, tt.str)
		}
		if got := tt.a.FormatBRL(); got != tt.brl {
			t.Fatalf("FormatBRL()=%q want=%q", got, tt.brl)
		}
	}
}

// 存提款維持餘額非負
func TestAccountDepositWithdraw(t *testing.T) {
	a := &Account{Balance: NewAmount(10, 0)}
	if err := a.Withdraw(NewAmount(50, 0)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("want ErrInsufficientBalance, got %v", err)
	}
	if a.Balance != NewAmount(10, 0) {
		t.Fatalf("balance changed on failed withdraw: %s", a.Balance)
	}
	if err := a.Deposit(0); !errors.Is(err, ErrAmountMustBePositive) {
		t.Fatalf("want ErrAmountMustBePositive, got %v", err)
	}
	if err := a.Deposit(NewAmount(200, 0)); err != nil {
		t.Fatal(err)
	}
	if a.Balance != NewAmount(210, 0) {
		t.Fatalf("balance=%s want=210.00", a.Balance)
	}
}

func TestAccountDepositOverflow(t *testing.T) {
	tests := []struct {
		balance Amount
		amount  Amount
		wantErr error
	}{
		{0, MaxAmount, nil},
		{MaxAmount - 1, 1, nil},
		{MaxAmount - 1, 2, ErrBalanceOverflow},
		{5_000_000_000_000_000_000, 5_000_000_000_000_000_000, ErrBalanceOverflow},
		{10, 0, ErrAmountMustBePositive},
	}
	for _, tt := range tests {
		acc := &Account{Balance: tt.balance}
		err := acc.Deposit(tt.amount)
		if !errors.Is(err, tt.wantErr) {
			t.Fatalf("Deposit(%d) on %d err=%v want=%v", tt.amount, tt.balance, err, tt.wantErr)
		}
		want := tt.balance
		if err == nil {
			want += tt.amount
		}
		if acc.Balance != want {
			t.Fatalf("balance=%d want=%d", acc.Balance, want)
		}
	}
}
