package domain

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// amount 使用 int64 以最小貨幣單位 (centavos) 儲存，精度：小數點後 2 位
const (
	CurrencyScale    = 100
	currencyExponent = -2
)

// Amount 金額 (最小貨幣單位)，禁止使用浮點數運算
type Amount int64

// MaxAmount 可表示的最大金額
const MaxAmount = Amount(math.MaxInt64)

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// CanAdd a + b 不會溢位 (a、b 皆為非負)
func (a Amount) CanAdd(b Amount) bool {
	return b <= MaxAmount-a
}

// NewAmount 由整數元與分組成金額，例如 NewAmount(30, 0) = R$ 30,00
func NewAmount(units, cents int64) Amount {
	return Amount(units*CurrencyScale + cents)
}

// ParseAmount 解析使用者輸入的金額字串
//
// 接受 "30", "30.00", "30,00", "1.234,56", "R$ 1.234,56"。
// 超過兩位小數或非數字回傳 ErrInvalidAmount；<= 0 回傳 ErrAmountMustBePositive。
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// pt-BR: "." 是千分位, "," 是小數點
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return AmountFromDecimal(d)
}

// AmountFromDecimal 將 decimal 轉為最小貨幣單位，不允許捨入
func AmountFromDecimal(d decimal.Decimal) (Amount, error) {
	minor := d.Shift(-currencyExponent)
	if !minor.IsInteger() {
		return 0, ErrInvalidAmount
	}
	if !minor.IsPositive() {
		return 0, ErrAmountMustBePositive
	}
	// IntPart 超出 int64 會直接截斷
	if minor.GreaterThan(maxMinorUnits) {
		return 0, ErrInvalidAmount
	}
	return Amount(minor.IntPart()), nil
}

// Decimal 回傳對應的 decimal 值 (元)
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), currencyExponent)
}

// String 固定兩位小數，例如 "70.00"
func (a Amount) String() string {
	return a.Decimal().StringFixed(2)
}

// FormatBRL 以巴西格式顯示，例如 "R$ 1.234,56"
func (a Amount) FormatBRL() string {
	sign := ""
	if a < 0 {
		sign = "-"
		a = -a
	}
	fixed := a.Decimal().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + "R$ " + b.String() + "," + frac
}
