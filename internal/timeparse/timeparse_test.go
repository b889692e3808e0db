package timeparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedParser(now time.Time) (*Parser, *[]string) {
	var reported []string
	return &Parser{
		Now:    func() time.Time { return now },
		Report: func(text string) { reported = append(reported, text) },
	}, &reported
}

func TestParseRelative(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 30, 0, 0, time.Local)
	p, reported := fixedParser(now)

	testCases := []struct {
		text string
		want time.Time
	}{
		{"刚刚", now},
		{"just now", now},
		{"5分钟前", now.Add(-5 * time.Minute)},
		{"5 minutes ago", now.Add(-5 * time.Minute)},
		{"2小时前", now.Add(-2 * time.Hour)},
		{"2 hours ago", now.Add(-2 * time.Hour)},
		{"昨天", now.Add(-24 * time.Hour)},
		{"Yesterday", now.Add(-24 * time.Hour)},
		{"3天前", now.Add(-72 * time.Hour)},
		{"3天前·广东", now.Add(-72 * time.Hour)},
		{"10 days ago", now.Add(-240 * time.Hour)},
	}

	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			got, ok := p.TryParse(tc.text)
			require.True(t, ok)
			assert.True(t, tc.want.Equal(got), "got %v want %v", got, tc.want)
		})
	}
	assert.Empty(t, *reported)
}

func TestParseWallClockTolerance(t *testing.T) {
	p := New(nil)

	got := p.Parse("5分钟前")
	assert.WithinDuration(t, time.Now().Add(-5*time.Minute), got, 5*time.Second)

	got = p.Parse("2小时前")
	assert.WithinDuration(t, time.Now().Add(-2*time.Hour), got, 5*time.Second)

	got = p.Parse("昨天")
	y1, m1, d1 := got.Date()
	y2, m2, d2 := time.Now().Add(-24 * time.Hour).Date()
	assert.Equal(t, []int{y2, int(m2), d2}, []int{y1, int(m1), d1})
}

func TestParseDates(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)
	p, reported := fixedParser(now)

	got := p.Parse("2023-01-01")
	assert.Equal(t, 2023, got.Year())
	assert.Equal(t, time.January, got.Month())
	assert.Equal(t, 1, got.Day())
	assert.Equal(t, 0, got.Hour())

	got = p.Parse("11-20")
	assert.Equal(t, time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC), got)

	got = p.Parse("2023-01-01·北京")
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), got)

	assert.Empty(t, *reported)
}

func TestParseDegradesToNow(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)
	p, reported := fixedParser(now)

	for _, text := range []string{"", "sometime", "02-30", "2023-13-01", "分钟前"} {
		got := p.Parse(text)
		assert.Equal(t, now, got, text)
	}
	assert.Equal(t, []string{"", "sometime", "02-30", "2023-13-01", "分钟前"}, *reported)
}

func TestRecognize(t *testing.T) {
	testCases := []struct {
		text string
		want bool
	}{
		{"1小时前", true},
		{"3 天前", true},
		{"2023-05-06", true},
		{"03-14", true},
		{"02-30", true},
		{"Yesterday", true},
		{"10 days ago", true},
		{" 刚刚 ", true},
		{"小明", false},
		{"多少钱", false},
		{"3-15到货的话多少钱", false},
		{"saw it yesterday, 多少钱", false},
		{"昨天买的多少钱", false},
	}

	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, Recognize(tc.text))
		})
	}
}

func TestParseRejectsOverflowingCounts(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)
	p, reported := fixedParser(now)

	for _, text := range []string{"99999999天前", "99999999999分钟前", "999999999999999999999小时前"} {
		got, ok := p.TryParse(text)
		assert.False(t, ok, text)
		assert.Equal(t, now, got, text)
		assert.False(t, got.After(now), text)
	}

	got := p.Parse("36500天前")
	assert.Equal(t, now.Add(-36500*24*time.Hour), got)
	assert.Empty(t, *reported)

	p.Parse("99999999天前")
	assert.Equal(t, []string{"99999999天前"}, *reported)
}
