package catalog

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"bankcompare/internal/table"
)

// Page names accepted by List.
const (
	PageCredits    = "credits"
	PageCards      = "cards"
	PageFees       = "fees"
	PagePromotions = "promotions"
)

// variableFeeAmount is the amount a variable fee counts as when bucketed.
const variableFeeAmount = 999999

// Query is the user's selection on a comparison page. Kind is the type or
// category filter and Bucket names an amount range.
type Query struct {
	Search string
	Kind   string
	Bucket string
	Sort   table.SortState
	Page   int
}

// Listing is a rendered page ready for tabular output.
type Listing struct {
	Page    string
	Headers []string
	Sort    table.SortState
	Result  table.Page[[]string]
}

type page[T any] struct {
	fields      table.Fields[T]
	defaultSort table.SortState
	search      []func(T) string
	kind        func(T) string
	amount      func(T) (float64, bool)
	buckets     map[string]table.Range
	headers     []string
	row         func(T) []string
}

func (p page[T]) view(q Query, perPage int) table.View[T] {
	v := table.NewView(p.fields, p.defaultSort, perPage)
	if q.Sort.Key != "" {
		v = v.WithSort(q.Sort)
	}
	v = v.WithFilters(
		table.Contains(q.Search, p.search...),
		table.Equals(q.Kind, p.kind),
		table.Bucketed(q.Bucket, p.buckets, p.amount),
	)
	return v.GoTo(q.Page)
}

func (p page[T]) render(name string, records []T, q Query, perPage int) Listing {
	v := p.view(q, perPage)
	result := v.Render(records)
	rows := make([][]string, 0, len(result.Records))
	for _, rec := range result.Records {
		rows = append(rows, p.row(rec))
	}
	return Listing{
		Page:    name,
		Headers: p.headers,
		Sort:    v.Sort(),
		Result: table.Page[[]string]{
			Records:      rows,
			CurrentPage:  result.CurrentPage,
			TotalPages:   result.TotalPages,
			TotalItems:   result.TotalItems,
			ItemsPerPage: result.ItemsPerPage,
		},
	}
}

func (p page[T]) bucketNames() []string {
	names := make([]string, 0, len(p.buckets))
	for name := range p.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var creditsPage = page[Credit]{
	fields: table.Fields[Credit]{
		"bank":         func(c Credit) table.Value { return table.Str(c.Bank) },
		"type":         func(c Credit) table.Value { return table.Str(c.Type) },
		"interestRate": func(c Credit) table.Value { return table.Num(c.InterestRate) },
		"maxAmount":    func(c Credit) table.Value { return table.Num(c.MaxAmount) },
		"maxTerm":      func(c Credit) table.Value { return table.Num(float64(c.MaxTerm)) },
	},
	defaultSort: table.SortBy("interestRate", table.Ascending),
	search:      []func(Credit) string{func(c Credit) string { return c.Bank }, func(c Credit) string { return c.Type }},
	kind:        func(c Credit) string { return c.Type },
	amount:      func(c Credit) (float64, bool) { return c.MaxAmount, true },
	buckets: map[string]table.Range{
		"low":    {Max: 100000},
		"medium": {Min: 100000, Max: 500000, OpenMin: true},
		"high":   {Min: 500000, Max: math.Inf(1), OpenMin: true},
	},
	headers: []string{"BANK", "TYPE", "RATE", "MAX AMOUNT", "MAX TERM"},
	row: func(c Credit) []string {
		return []string{c.Bank, c.Type, "%" + formatAmount(c.InterestRate), formatAmount(c.MaxAmount) + " TL", strconv.Itoa(c.MaxTerm) + " ay"}
	},
}

var cardTypeLabels = map[string]string{
	"standard": "Standart",
	"gold":     "Gold",
	"platinum": "Platinum",
	"world":    "World",
	"infinite": "Infinite",
}

var cardsPage = page[Card]{
	fields: table.Fields[Card]{
		"bank":       func(c Card) table.Value { return table.Str(c.Bank) },
		"name":       func(c Card) table.Value { return table.Str(c.Name) },
		"type":       func(c Card) table.Value { return table.Str(c.Type) },
		"annualFee":  func(c Card) table.Value { return table.Num(c.AnnualFee) },
		"rewardRate": func(c Card) table.Value { return table.Num(c.RewardRate) },
	},
	defaultSort: table.SortBy("annualFee", table.Ascending),
	search:      []func(Card) string{func(c Card) string { return c.Bank }, func(c Card) string { return c.Name }},
	kind:        func(c Card) string { return c.Type },
	amount:      func(c Card) (float64, bool) { return c.AnnualFee, true },
	buckets: map[string]table.Range{
		"free": {Max: 0},
		"low":  {Min: 0, Max: 100, OpenMin: true},
		"high": {Min: 100, Max: math.Inf(1), OpenMin: true},
	},
	headers: []string{"BANK", "CARD", "LEVEL", "ANNUAL FEE", "REWARD"},
	row: func(c Card) []string {
		return []string{c.Bank, c.Name, label(cardTypeLabels, c.Type), feeText(&c.AnnualFee), "%" + formatAmount(c.RewardRate)}
	},
}

var frequencyLabels = map[string]string{
	"monthly":         "Aylık",
	"yearly":          "Yıllık",
	"per-transaction": "İşlem Başı",
	"one-time":        "Tek Seferlik",
}

var feesPage = page[Fee]{
	fields: table.Fields[Fee]{
		"bank":      func(f Fee) table.Value { return table.Str(f.Bank) },
		"name":      func(f Fee) table.Value { return table.Str(f.Name) },
		"category":  func(f Fee) table.Value { return table.Str(f.Category) },
		"amount":    func(f Fee) table.Value { return table.OptNum(f.Amount) },
		"frequency": func(f Fee) table.Value { return table.Str(f.Frequency) },
	},
	defaultSort: table.SortBy("amount", table.Ascending),
	search:      []func(Fee) string{func(f Fee) string { return f.Bank }, func(f Fee) string { return f.Name }},
	kind:        func(f Fee) string { return f.Category },
	amount: func(f Fee) (float64, bool) {
		if f.Amount == nil {
			return variableFeeAmount, true
		}
		return *f.Amount, true
	},
	buckets: map[string]table.Range{
		"free":   {Max: 0},
		"low":    {Min: 0, Max: 20, OpenMin: true},
		"medium": {Min: 20, Max: 100, OpenMin: true},
		"high":   {Min: 100, Max: math.Inf(1), OpenMin: true},
	},
	headers: []string{"BANK", "FEE", "CATEGORY", "AMOUNT", "FREQUENCY"},
	row: func(f Fee) []string {
		return []string{f.Bank, f.Name, f.Category, feeText(f.Amount), label(frequencyLabels, f.Frequency)}
	},
}

var promotionTypeLabels = map[string]string{
	"pension": "Emekli",
	"salary":  "Maaş",
	"deposit": "Mevduat",
	"digital": "Dijital",
	"student": "Genç",
	"special": "Özel",
}

var promotionsPage = page[Promotion]{
	fields: table.Fields[Promotion]{
		"bank":       func(p Promotion) table.Value { return table.Str(p.Bank) },
		"title":      func(p Promotion) table.Value { return table.Str(p.Title) },
		"type":       func(p Promotion) table.Value { return table.Str(p.Type) },
		"amount":     func(p Promotion) table.Value { return table.Num(p.Amount) },
		"validUntil": func(p Promotion) table.Value { return table.Str(p.ValidUntil) },
	},
	defaultSort: table.SortBy("amount", table.Descending),
	search:      []func(Promotion) string{func(p Promotion) string { return p.Bank }, func(p Promotion) string { return p.Title }},
	kind:        func(p Promotion) string { return p.Type },
	amount:      func(p Promotion) (float64, bool) { return p.Amount, true },
	buckets: map[string]table.Range{
		"low":    {Max: 8000},
		"medium": {Min: 8000, Max: 15000, OpenMin: true},
		"high":   {Min: 15000, Max: math.Inf(1), OpenMin: true},
	},
	headers: []string{"BANK", "PROMOTION", "TYPE", "AMOUNT", "VALID UNTIL"},
	row: func(p Promotion) []string {
		return []string{p.Bank, p.Title, label(promotionTypeLabels, p.Type), formatAmount(p.Amount) + " TL", p.ValidUntil}
	},
}

// Pages lists the comparison pages in display order.
func Pages() []string {
	return []string{PageCredits, PageCards, PageFees, PagePromotions}
}

// Buckets lists the amount bucket names of a page.
func Buckets(name string) ([]string, error) {
	switch name {
	case PageCredits:
		return creditsPage.bucketNames(), nil
	case PageCards:
		return cardsPage.bucketNames(), nil
	case PageFees:
		return feesPage.bucketNames(), nil
	case PagePromotions:
		return promotionsPage.bucketNames(), nil
	}
	return nil, fmt.Errorf("unknown page %q", name)
}

// List filters, sorts and paginates one comparison page.
func (c *Catalog) List(name string, q Query, perPage int) (Listing, error) {
	switch name {
	case PageCredits:
		return creditsPage.render(name, c.Credits, q, perPage), nil
	case PageCards:
		return cardsPage.render(name, c.Cards, q, perPage), nil
	case PageFees:
		return feesPage.render(name, c.Fees, q, perPage), nil
	case PagePromotions:
		return promotionsPage.render(name, c.Promotions, q, perPage), nil
	}
	return Listing{}, fmt.Errorf("unknown page %q", name)
}

func feeText(amount *float64) string {
	switch {
	case amount == nil:
		return "Değişken"
	case *amount == 0:
		return "ÜCRETSİZ"
	}
	return formatAmount(*amount) + " TL"
}

func formatAmount(v float64) string {
	return decimal.NewFromFloat(v).String()
}

func label(labels map[string]string, key string) string {
	if l, ok := labels[key]; ok {
		return l
	}
	return key
}
