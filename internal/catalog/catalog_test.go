package catalog

import (
	"testing"

	"bankcompare/internal/table"
)

func mustLoad(t *testing.T) *Catalog {
	t.Helper()
	c, err := Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return c
}

func TestLoadFixtures(t *testing.T) {
	c := mustLoad(t)
	if len(c.Credits) != 24 || len(c.Cards) != 20 || len(c.Fees) != 25 || len(c.Promotions) != 20 || len(c.Banks) != 13 {
		t.Fatalf("unexpected fixture sizes: %d credits, %d cards, %d fees, %d promotions, %d banks",
			len(c.Credits), len(c.Cards), len(c.Fees), len(c.Promotions), len(c.Banks))
	}
	if b, ok := c.BankBySlug("isbank"); !ok || b.Name != "Türkiye İş Bankası" {
		t.Fatalf("unexpected bank lookup %+v %v", b, ok)
	}

	variable := 0
	for _, f := range c.Fees {
		if f.Amount == nil {
			variable++
		}
	}
	if variable != 1 {
		t.Fatalf("expected one variable fee, got %d", variable)
	}
}

func TestCreditsDefaultSortAndPaging(t *testing.T) {
	c := mustLoad(t)
	l, err := c.List(PageCredits, Query{}, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if l.Sort != table.SortBy("interestRate", table.Ascending) {
		t.Fatalf("unexpected default sort %+v", l.Sort)
	}
	if l.Result.TotalItems != 24 || l.Result.TotalPages != 3 || len(l.Result.Records) != 10 {
		t.Fatalf("unexpected page %+v", l.Result)
	}
	if first := l.Result.Records[0]; first[0] != "Garanti BBVA" || first[2] != "%1.89" {
		t.Fatalf("lowest rate should come first, got %v", first)
	}

	last, _ := c.List(PageCredits, Query{Page: 99}, 10)
	if last.Result.CurrentPage != 3 || len(last.Result.Records) != 4 {
		t.Fatalf("out of range page should clamp to the last one: %+v", last.Result)
	}
}

func TestCreditsFilters(t *testing.T) {
	c := mustLoad(t)

	medium, _ := c.List(PageCredits, Query{Bucket: "medium"}, 50)
	high, _ := c.List(PageCredits, Query{Bucket: "high"}, 50)
	low, _ := c.List(PageCredits, Query{Bucket: "low"}, 50)
	if medium.Result.TotalItems != 9 || high.Result.TotalItems != 15 || low.Result.TotalItems != 0 {
		t.Fatalf("unexpected bucket sizes low=%d medium=%d high=%d",
			low.Result.TotalItems, medium.Result.TotalItems, high.Result.TotalItems)
	}

	ziraat, _ := c.List(PageCredits, Query{Search: "ZİRAAT"}, 50)
	if ziraat.Result.TotalItems != 2 {
		t.Fatalf("expected both Ziraat credits, got %d", ziraat.Result.TotalItems)
	}

	housing, _ := c.List(PageCredits, Query{Search: "ziraat", Kind: "housing"}, 50)
	if housing.Result.TotalItems != 1 || housing.Result.Records[0][1] != "housing" {
		t.Fatalf("filters must combine: %+v", housing.Result)
	}

	all, _ := c.List(PageCredits, Query{Kind: table.All, Bucket: table.All}, 50)
	if all.Result.TotalItems != 24 {
		t.Fatalf("'all' selections must be inactive, got %d", all.Result.TotalItems)
	}
}

func TestTurkishSearchMatchesDottedCapital(t *testing.T) {
	c := mustLoad(t)
	l, _ := c.List(PageCards, Query{Search: "iş bankası"}, 50)
	if l.Result.TotalItems != 2 {
		t.Fatalf("expected two İş Bankası cards, got %d", l.Result.TotalItems)
	}
}

func TestSearchMatchesASCIICapitalI(t *testing.T) {
	c := mustLoad(t)

	lower, _ := c.List(PageCredits, Query{Search: "ing"}, 50)
	upper, _ := c.List(PageCredits, Query{Search: "ING"}, 50)
	if lower.Result.TotalItems != upper.Result.TotalItems {
		t.Fatalf("search must ignore case: %d for ing, %d for ING", lower.Result.TotalItems, upper.Result.TotalItems)
	}

	ing := 0
	for _, rec := range lower.Result.Records {
		if rec[0] == "ING" {
			ing++
		}
	}
	if ing != 2 {
		t.Fatalf("expected both ING credits for \"ing\", got %d in %v", ing, lower.Result.Records)
	}
}

func TestFeesVariableAmount(t *testing.T) {
	c := mustLoad(t)

	asc, _ := c.List(PageFees, Query{}, 50)
	rows := asc.Result.Records
	if rows[0][3] != "ÜCRETSİZ" {
		t.Fatalf("free fees should lead an ascending sort, got %v", rows[0])
	}
	if rows[len(rows)-1][3] != "Değişken" {
		t.Fatalf("variable fee should trail an ascending sort, got %v", rows[len(rows)-1])
	}

	desc, _ := c.List(PageFees, Query{Sort: table.SortBy("amount", table.Descending)}, 50)
	if desc.Result.Records[0][3] != "Değişken" {
		t.Fatalf("variable fee should lead a descending sort, got %v", desc.Result.Records[0])
	}

	high, _ := c.List(PageFees, Query{Bucket: "high"}, 50)
	if high.Result.TotalItems != 5 {
		t.Fatalf("variable fee counts as high, expected 5 got %d", high.Result.TotalItems)
	}
	free, _ := c.List(PageFees, Query{Bucket: "free"}, 50)
	if free.Result.TotalItems != 5 {
		t.Fatalf("expected 5 free fees, got %d", free.Result.TotalItems)
	}
}

func TestPromotionsDefaultDescending(t *testing.T) {
	c := mustLoad(t)
	l, _ := c.List(PagePromotions, Query{}, 10)
	if l.Result.Records[0][3] != "18000 TL" {
		t.Fatalf("largest promotion should come first, got %v", l.Result.Records[0])
	}
}

func TestUnknownPage(t *testing.T) {
	c := mustLoad(t)
	if _, err := c.List("deposits", Query{}, 10); err == nil {
		t.Fatal("expected error for unknown page")
	}
	if _, err := Buckets("deposits"); err == nil {
		t.Fatal("expected error for unknown page")
	}
	names, _ := Buckets(PageFees)
	if len(names) != 4 || names[0] != "free" {
		t.Fatalf("unexpected bucket names %v", names)
	}
}
