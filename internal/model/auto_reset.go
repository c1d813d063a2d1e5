package model

import (
	"time"
)

// AutoReset 用户"In"状态自动重置的时长选项
type AutoReset string

const (
	AutoReset30Min   AutoReset = "30m"
	AutoReset1Hour   AutoReset = "1h"
	AutoReset2Hours  AutoReset = "2h"
	AutoReset4Hours  AutoReset = "4h"
	AutoResetTonight AutoReset = "tonight"
	AutoResetNever   AutoReset = "never"
)

// AutoResetOptions 所有合法取值
var AutoResetOptions = []AutoReset{
	AutoReset30Min, AutoReset1Hour, AutoReset2Hours, AutoReset4Hours, AutoResetTonight, AutoResetNever,
}

// Valid 是否为合法取值
func (a AutoReset) Valid() bool {
	for _, o := range AutoResetOptions {
		if a == o {
			return true
		}
	}
	return false
}

// ExpiresAt 根据当前时间计算过期时间，never 返回 nil
// tonight：当天 tonightHour 点，若已过则为次日同一时间（按 loc 时区）
func (a AutoReset) ExpiresAt(now time.Time, tonightHour int, loc *time.Location) *time.Time {
	var t time.Time
	switch a {
	case AutoReset30Min:
		t = now.Add(30 * time.Minute)
	case AutoReset1Hour:
		t = now.Add(time.Hour)
	case AutoReset2Hours:
		t = now.Add(2 * time.Hour)
	case AutoReset4Hours:
		t = now.Add(4 * time.Hour)
	case AutoResetTonight:
		if loc == nil {
			loc = time.Local
		}
		local := now.In(loc)
		t = time.Date(local.Year(), local.Month(), local.Day(), tonightHour, 0, 0, 0, loc)
		if !local.Before(t) {
			t = time.Date(local.Year(), local.Month(), local.Day()+1, tonightHour, 0, 0, 0, loc)
		}
	case AutoResetNever:
		return nil
	default:
		t = now.Add(time.Hour)
	}
	return &t
}
