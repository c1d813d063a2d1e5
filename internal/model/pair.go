package model

import (
	"sort"
	"strconv"
	"strings"
)

// Pair 无序用户对，Low <= High（字典序）
// 用户ID由身份提供方给出，可能包含任意字符，因此两端分列存储，不拼接成单个键
type Pair struct {
	Low  string
	High string
}

// NewPair 规范化用户对，(a,b) 与 (b,a) 得到同一个 Pair
func NewPair(a, b string) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{Low: a, High: b}
}

// Other 返回 userID 在用户对中的另一方
func (p Pair) Other(userID string) (string, bool) {
	switch userID {
	case p.Low:
		return p.High, true
	case p.High:
		return p.Low, true
	}
	return "", false
}

// ParticipantSetKey 任意人数参与者集合的规范键
// 每个ID带长度前缀，不同集合不会得到相同的键
func ParticipantSetKey(ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	var b strings.Builder
	for _, id := range sorted {
		b.WriteString(strconv.Itoa(len(id)))
		b.WriteByte(':')
		b.WriteString(id)
	}
	return b.String()
}
