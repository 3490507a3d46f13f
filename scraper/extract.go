package scraper

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/use-agent/dealsearch/models"
)

// Result page markers.
const (
	dealGridSelector  = `[data-testid="deal-grid"]`
	emptyListSelector = `[data-bhw="EmptyDealList"]`
	dealLinkSelector  = `[data-testid="deal-grid"] a[data-bhd]`
)

var (
	emptyListMatcher = cascadia.MustCompile(emptyListSelector)
	dealLinkMatcher  = cascadia.MustCompile(dealLinkSelector)
)

// ErrNoResults means the site rendered its empty-result marker.
var ErrNoResults = errors.New("no deals matched the search")

// dealCard is the JSON carried in a deal link's data-bhd attribute.
type dealCard struct {
	Body struct {
		Section1 struct {
			Content string `json:"content"`
		} `json:"section1"`
		Section2 struct {
			Content *cardPrices `json:"content"`
		} `json:"section2"`
		Section3 struct {
			Content string `json:"content"`
		} `json:"section3"`
	} `json:"body"`
}

type cardPrices struct {
	ListPrice        float64 `json:"list_price"`
	SellPrice        float64 `json:"sell_price"`
	Discount         float64 `json:"discount"`
	IsoCodeCurrency  string  `json:"isocode_currency"`
	CurrencyExponent float64 `json:"currency_exponent"`
}

// ExtractDeal returns the first deal on a rendered result page, or
// ErrNoResults. A page matching neither shape is an ErrCodeScrape error.
func ExtractDeal(html string) (*models.Deal, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeScrape, "failed to parse result page", err)
	}

	if doc.FindMatcher(emptyListMatcher).Length() > 0 {
		return nil, ErrNoResults
	}

	link := doc.FindMatcher(dealLinkMatcher).First()
	raw, ok := link.Attr("data-bhd")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, models.NewScrapeError(models.ErrCodeScrape, "result page has no deal card", nil)
	}

	var card dealCard
	if err := json.Unmarshal([]byte(raw), &card); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeScrape, "deal card is not valid JSON", err)
	}

	p := card.Body.Section2.Content
	if card.Body.Section1.Content == "" || p == nil {
		return nil, models.NewScrapeError(models.ErrCodeScrape,
			fmt.Sprintf("deal card is missing fields (name=%t, prices=%t)",
				card.Body.Section1.Content != "", p != nil), nil)
	}

	return &models.Deal{
		Name: card.Body.Section1.Content,
		Prices: models.Prices{
			ListPrice:        round(p.ListPrice),
			SellPrice:        round(p.SellPrice),
			Discount:         round(p.Discount),
			IsoCodeCurrency:  p.IsoCodeCurrency,
			CurrencyExponent: round(p.CurrencyExponent),
		},
		Supplier: card.Body.Section3.Content,
	}, nil
}

func round(f float64) int {
	return int(math.Round(f))
}
