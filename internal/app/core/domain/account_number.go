package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	// AccountNumberPrefix 帳號固定前綴
	AccountNumberPrefix = "NOX"
	accountDigits       = 10
)

// AccountNumber 帳號，顯示格式為 NOX-XXXXX-XXXXX
type AccountNumber string

// FormatAccountNumber 將 10 位數字組成 NOX-XXXXX-XXXXX
func FormatAccountNumber(digits string) AccountNumber {
	return AccountNumber(fmt.Sprintf("%s-%s-%s", AccountNumberPrefix, digits[:5], digits[5:]))
}

// ParseAccountNumber 解析使用者輸入的帳號，允許省略 NOX 前綴、空白與 "-"
func ParseAccountNumber(s string) (AccountNumber, bool) {
	digits := AccountNumberDigits(s)
	if len(digits) != accountDigits || !isDigits(digits) {
		return "", false
	}
	return FormatAccountNumber(digits), true
}

// Key 正規化後的索引鍵，例如 "NOX0000100002"
func (n AccountNumber) Key() string {
	return AccountNumberPrefix + AccountNumberDigits(string(n))
}

// AccountNumberDigits 去除空白、"-"、"_" 與 NOX 前綴後的部分 (大寫)
func AccountNumberDigits(s string) string {
	cleaned := cleanTerm(s)
	return strings.TrimPrefix(cleaned, AccountNumberPrefix)
}

func cleanTerm(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '-', '_':
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// AccountNumberGenerator 產生新的帳號，唯一性由儲存層保證 (重複時重試)
type AccountNumberGenerator interface {
	Next() (AccountNumber, error)
}

// RandomAccountNumbers 使用 crypto/rand 產生帳號
type RandomAccountNumbers struct{}

func (RandomAccountNumbers) Next() (AccountNumber, error) {
	var b strings.Builder
	ten := big.NewInt(10)
	for i := 0; i < accountDigits; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return FormatAccountNumber(b.String()), nil
}
