package report

import (
	"strings"
	"unicode"

	"github.com/abdullahdiaa/garabic"
)

// rtl prepares one Arabic line for a left-to-right PDF text engine: shape
// letters into their joined presentation forms, then lay the runs out in
// visual order (Arabic runs reversed, Latin/digit runs kept as-is).
func rtl(text string) string {
	shaped := garabic.Shape(text)
	runs := splitDirectionalRuns(shaped)

	var b strings.Builder
	for i := len(runs) - 1; i >= 0; i-- {
		run := runs[i]
		if run.arabic {
			b.WriteString(reverseRunes(run.text))
		} else {
			b.WriteString(run.text)
		}
	}
	return b.String()
}

type directionalRun struct {
	text   string
	arabic bool
}

func splitDirectionalRuns(s string) []directionalRun {
	var runs []directionalRun
	var current []rune
	currentArabic := true

	flush := func() {
		if len(current) > 0 {
			runs = append(runs, directionalRun{text: string(current), arabic: currentArabic})
			current = nil
		}
	}

	for _, r := range s {
		// Whitespace and shared punctuation are neutral: they stay in
		// whatever run is open.
		if unicode.IsSpace(r) || isArabicPunct(r) {
			current = append(current, r)
			continue
		}
		arabic := isArabicRune(r)
		if len(current) > 0 && arabic != currentArabic {
			flush()
		}
		currentArabic = arabic
		current = append(current, r)
	}
	flush()
	return runs
}

func isArabicRune(r rune) bool {
	return (r >= 0x0600 && r <= 0x06FF) || (r >= 0xFB50 && r <= 0xFDFF) || (r >= 0xFE70 && r <= 0xFEFF)
}

func isArabicPunct(r rune) bool {
	switch r {
	case '،', '؟', '!', '-', ':', '(', ')', '«', '»':
		return true
	}
	return false
}

func reverseRunes(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
