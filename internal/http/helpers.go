package http

import (
	"html/template"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cards/internal/core"
)

const (
	dateLayout      = "2006-01-02"
	shortDateLayout = "1/2/06"
)

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"amount":      func(d decimal.Decimal) string { return core.FormatAmount(d) },
		"shortDate":   func(t time.Time) string { return t.Local().Format(shortDateLayout) },
		"isoDate":     func(t time.Time) string { return t.Local().Format(dateLayout) },
		"cardStyle":   cardStyle,
		"chipStyle":   chipStyle,
		"months":      months,
		"cardTypes":   core.CardTypes,
		"toggleURL":   toggleURL,
		"toggleList":  toggleListURL,
		"filterURL":   filterURL,
		"selectedIDs": selectedIDs,
	}
}

// cardStyle paints the card face with its color as a gradient.
func cardStyle(c core.Card) template.CSS {
	col := c.DisplayColor()
	return template.CSS("background: linear-gradient(135deg, " + col.CSS(1) + ", " + col.CSS(0.6) + ")")
}

func chipStyle(c core.TransactionCategory) template.CSS {
	col := c.DisplayColor()
	return template.CSS("background-color: " + col.CSS(0.2) + "; border-color: " + col.CSS(1))
}

func months() []int {
	m := make([]int, 12)
	for i := range m {
		m[i] = i + 1
	}
	return m
}

// selectedIDs returns the set as a sorted slice for stable links.
func selectedIDs(sel core.CategorySet) []int64 {
	ids := make([]int64, 0, len(sel))
	for id := range sel {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// indexURL links to the main screen for a card and category selection.
func indexURL(cardID int64, sel core.CategorySet) string {
	q := url.Values{}
	if cardID > 0 {
		q.Set("card", strconv.FormatInt(cardID, 10))
	}
	for _, id := range selectedIDs(sel) {
		q.Add("category", strconv.FormatInt(id, 10))
	}
	if len(q) == 0 {
		return "/"
	}
	return "/?" + q.Encode()
}

// toggleURL links to the main screen with id flipped in the selection.
func toggleURL(cardID int64, sel core.CategorySet, id int64) string {
	next := core.NewCategorySet(selectedIDs(sel)...)
	next.Toggle(id)
	return indexURL(cardID, next)
}

// toggleListURL is toggleURL for the transactions partial of a card.
func toggleListURL(cardID int64, sel core.CategorySet, id int64) string {
	next := core.NewCategorySet(selectedIDs(sel)...)
	next.Toggle(id)
	q := url.Values{}
	for _, c := range selectedIDs(next) {
		q.Add("category", strconv.FormatInt(c, 10))
	}
	u := "/cards/" + strconv.FormatInt(cardID, 10) + "/transactions"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// filterURL opens the category picker with the current selection ticked.
func filterURL(cardID int64, sel core.CategorySet) string {
	u := "/cards/" + strconv.FormatInt(cardID, 10) + "/filter"
	q := url.Values{}
	for _, id := range selectedIDs(sel) {
		q.Add("category", strconv.FormatInt(id, 10))
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// sanitizeInput removes control characters except tab, newline and carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
