package service

import (
	"errors"
	"strings"
	"unicode/utf8"

	"imin-server/internal/repository"
	"imin-server/pkg/apperr"
)

// storeErr 将存储层错误转换为业务错误，ErrNotFound 转为带说明的 NotFound
func storeErr(err error, notFound string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(notFound)
	}
	return apperr.Internal(err)
}

// normalizeText 去除首尾空白并校验长度，空字符串返回 ValidationError
func normalizeText(field, value string, maxRunes int) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", apperr.Validation(field + " must not be empty")
	}
	if maxRunes > 0 && utf8.RuneCountInString(v) > maxRunes {
		return "", apperr.Validation(field + " is too long")
	}
	return v, nil
}

// dedupe 去重并保持原有顺序，忽略空字符串
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
