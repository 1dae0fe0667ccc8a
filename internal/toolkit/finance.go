package toolkit

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	guestCountRe = regexp.MustCompile(`(\d+)\s*(?:people|guests)`)
	budgetRe     = regexp.MustCompile(`\$\s*(\d+)`)
)

type budgetLine struct {
	item string
	pct  float64
}

var budgetPlans = map[string][]budgetLine{
	"birthday_party": {
		{"Food & catering", 0.40},
		{"Decorations", 0.20},
		{"Entertainment", 0.20},
		{"Cake & desserts", 0.15},
		{"Miscellaneous", 0.05},
	},
	"wedding": {
		{"Venue & catering", 0.50},
		{"Photography", 0.15},
		{"Flowers & decor", 0.15},
		{"Music & entertainment", 0.10},
		{"Miscellaneous", 0.10},
	},
	"general": {
		{"Food & beverages", 0.45},
		{"Venue & equipment", 0.25},
		{"Decorations", 0.15},
		{"Miscellaneous", 0.15},
	},
}

func (tk *Toolkit) finance(query string) string {
	q := strings.ToLower(query)

	budget := 500
	if m := budgetRe.FindStringSubmatch(q); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			budget = v
		}
	}
	guests := 20
	if m := guestCountRe.FindStringSubmatch(q); m != nil {
		// "for 0 people" would divide the budget by zero below.
		if v, err := strconv.Atoi(m[1]); err == nil && v > 0 {
			guests = v
		}
	}

	kind := "general"
	switch {
	case strings.Contains(q, "birthday"):
		kind = "birthday_party"
	case strings.Contains(q, "wedding"):
		kind = "wedding"
	}

	perGuest := float64(budget) / float64(guests)
	var b strings.Builder
	fmt.Fprintf(&b, "Budget analysis for %s event:\n", strings.ReplaceAll(kind, "_", " "))
	fmt.Fprintf(&b, "Total budget: $%d for %d guests ($%.2f per guest)\n\nBreakdown:\n", budget, guests, perGuest)
	for _, line := range budgetPlans[kind] {
		fmt.Fprintf(&b, "- %s: $%.0f (%.0f%%)\n", line.item, float64(budget)*line.pct, line.pct*100)
	}
	if perGuest < 10 {
		b.WriteString("\nNote: budget is tight for this guest count. Consider a potluck style or trimming the guest list.")
	} else {
		b.WriteString("\nBudget looks comfortable for this guest count.")
	}
	return b.String()
}
