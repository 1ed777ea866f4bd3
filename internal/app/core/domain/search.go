package domain

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

const (
	// MinSearchLength 正規化後少於 2 個字元不查詢
	MinSearchLength = 2
	// DefaultSearchLimit 單次搜尋最多回傳筆數
	DefaultSearchLimit = 10
)

// MatchRank 搜尋相關度，數字越小越相關
type MatchRank int

const (
	RankNone MatchRank = iota - 1
	RankExact
	RankPrefix
	RankSubstring
)

// SearchQuery 正規化後的搜尋條件
type SearchQuery struct {
	Raw string
	// Digits: 帳號數字部分 (已去除 NOX、空白、"-")，非純數字時為空
	Digits string
	// Username: 小寫且去除 "@" 與空白
	Username string
}

// ParseSearchQuery 正規化搜尋字串，太短時回傳 false (呼叫端回傳空結果，不是錯誤)
func ParseSearchQuery(raw string) (SearchQuery, bool) {
	q := SearchQuery{Raw: raw}

	username := strings.Join(strings.Fields(raw), "")
	username = strings.ToLower(strings.TrimPrefix(username, "@"))

	digits := AccountNumberDigits(raw)
	if isDigits(digits) && len(digits) >= MinSearchLength {
		q.Digits = digits
	}
	if len(username) >= MinSearchLength {
		q.Username = username
	}
	return q, q.Digits != "" || q.Username != ""
}

// likeEscaper 跳脫 LIKE 的萬用字元，"_" 在使用者名稱中是合法字元
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike 跳脫 s，使用時搭配 ESCAPE '\'
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func likePattern(term, prefix, suffix string) string {
	if term == "" {
		return ""
	}
	return prefix + EscapeLike(term) + suffix
}

// DigitsPattern SQL LIKE 用，例如 "%00001%"
func (q SearchQuery) DigitsPattern() string {
	return likePattern(q.Digits, "%", "%")
}

// UsernamePattern SQL LIKE 用，例如 "%ali%"，"_" 會被跳脫
func (q SearchQuery) UsernamePattern() string {
	return likePattern(q.Username, "%", "%")
}

// DigitsPrefix SQL LIKE 用，例如 "00001%"
func (q SearchQuery) DigitsPrefix() string {
	return likePattern(q.Digits, "", "%")
}

// UsernamePrefix SQL LIKE 用，例如 "ali%"
func (q SearchQuery) UsernamePrefix() string {
	return likePattern(q.Username, "", "%")
}

// Match 計算帳戶與搜尋條件的相關度
func (q SearchQuery) Match(a *Account) MatchRank {
	best := RankNone
	consider := func(r MatchRank) {
		if r != RankNone && (best == RankNone || r < best) {
			best = r
		}
	}
	if q.Digits != "" {
		consider(rankOf(AccountNumberDigits(string(a.Number)), q.Digits))
	}
	if q.Username != "" {
		consider(rankOf(a.Username, q.Username))
	}
	return best
}

func rankOf(value, term string) MatchRank {
	switch {
	case value == term:
		return RankExact
	case strings.HasPrefix(value, term):
		return RankPrefix
	case strings.Contains(value, term):
		return RankSubstring
	}
	return RankNone
}

// RankAccounts 排除搜尋者本人後排序；只要有完全符合就只回傳完全符合的結果
func RankAccounts(q SearchQuery, candidates []*Account, searcher uuid.UUID, limit int) []*Account {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	type ranked struct {
		acc  *Account
		rank MatchRank
	}
	matches := make([]ranked, 0, len(candidates))
	seen := make(map[uuid.UUID]struct{}, len(candidates))
	hasExact := false
	for _, acc := range candidates {
		if acc.ID == searcher {
			continue
		}
		if _, dup := seen[acc.ID]; dup {
			continue
		}
		r := q.Match(acc)
		if r == RankNone {
			continue
		}
		seen[acc.ID] = struct{}{}
		hasExact = hasExact || r == RankExact
		matches = append(matches, ranked{acc, r})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].rank != matches[j].rank {
			return matches[i].rank < matches[j].rank
		}
		return matches[i].acc.Username < matches[j].acc.Username
	})

	out := make([]*Account, 0, len(matches))
	for _, m := range matches {
		if hasExact && m.rank != RankExact {
			break
		}
		if len(out) == limit {
			break
		}
		out = append(out, m.acc)
	}
	return out
}
