package classifier

import (
	"context"
	"math"
	"strings"

	"github.com/Jaikumar96/fincategorizer/internal/model"
)

// unmatchedConfidence is the score given to merchants no pattern recognizes.
const unmatchedConfidence = 0.50

// MerchantPattern maps a merchant keyword to a category.
type MerchantPattern struct {
	Keyword    string
	CategoryID int
	Confidence float64
}

// DefaultPatterns returns the built-in merchant keywords for the default categories.
func DefaultPatterns() []MerchantPattern {
	return []MerchantPattern{
		// Food & Dining
		{Keyword: "swiggy", CategoryID: 1, Confidence: 0.98},
		{Keyword: "zomato", CategoryID: 1, Confidence: 0.98},
		{Keyword: "dominos", CategoryID: 1, Confidence: 0.95},
		{Keyword: "mcdonald", CategoryID: 1, Confidence: 0.95},
		{Keyword: "kfc", CategoryID: 1, Confidence: 0.95},
		{Keyword: "starbucks", CategoryID: 1, Confidence: 0.92},
		{Keyword: "pizza hut", CategoryID: 1, Confidence: 0.95},
		{Keyword: "restaurant", CategoryID: 1, Confidence: 0.80},
		{Keyword: "cafe", CategoryID: 1, Confidence: 0.75},

		// Groceries
		{Keyword: "zepto", CategoryID: 2, Confidence: 0.98},
		{Keyword: "blinkit", CategoryID: 2, Confidence: 0.98},
		{Keyword: "bigbasket", CategoryID: 2, Confidence: 0.98},
		{Keyword: "dmart", CategoryID: 2, Confidence: 0.97},
		{Keyword: "reliance fresh", CategoryID: 2, Confidence: 0.97},
		{Keyword: "grocery", CategoryID: 2, Confidence: 0.80},
		{Keyword: "supermarket", CategoryID: 2, Confidence: 0.78},

		// Transportation
		{Keyword: "uber", CategoryID: 3, Confidence: 0.98},
		{Keyword: "ola", CategoryID: 3, Confidence: 0.98},
		{Keyword: "rapido", CategoryID: 3, Confidence: 0.97},
		{Keyword: "bmtc", CategoryID: 3, Confidence: 0.99},
		{Keyword: "metro", CategoryID: 3, Confidence: 0.95},
		{Keyword: "irctc", CategoryID: 3, Confidence: 0.98},
		{Keyword: "taxi", CategoryID: 3, Confidence: 0.80},

		// Shopping
		{Keyword: "amazon", CategoryID: 4, Confidence: 0.90},
		{Keyword: "flipkart", CategoryID: 4, Confidence: 0.95},
		{Keyword: "myntra", CategoryID: 4, Confidence: 0.98},
		{Keyword: "ajio", CategoryID: 4, Confidence: 0.98},

		// Entertainment
		{Keyword: "bookmyshow", CategoryID: 5, Confidence: 0.99},
		{Keyword: "pvr", CategoryID: 5, Confidence: 0.99},
		{Keyword: "inox", CategoryID: 5, Confidence: 0.99},

		// Healthcare
		{Keyword: "apollo", CategoryID: 6, Confidence: 0.93},
		{Keyword: "pharmacy", CategoryID: 6, Confidence: 0.90},
		{Keyword: "hospital", CategoryID: 6, Confidence: 0.92},

		// Bills & Utilities
		{Keyword: "electricity", CategoryID: 7, Confidence: 0.99},
		{Keyword: "water bill", CategoryID: 7, Confidence: 0.99},
		{Keyword: "paytm", CategoryID: 7, Confidence: 0.85},
		{Keyword: "phonepe", CategoryID: 7, Confidence: 0.85},

		// Travel
		{Keyword: "makemytrip", CategoryID: 8, Confidence: 0.96},
		{Keyword: "indigo", CategoryID: 8, Confidence: 0.94},

		// Subscriptions
		{Keyword: "netflix", CategoryID: 12, Confidence: 0.99},
		{Keyword: "prime", CategoryID: 12, Confidence: 0.98},
		{Keyword: "spotify", CategoryID: 12, Confidence: 0.99},
		{Keyword: "hotstar", CategoryID: 12, Confidence: 0.99},

		// Fuel
		{Keyword: "petrol", CategoryID: 13, Confidence: 0.98},
		{Keyword: "diesel", CategoryID: 13, Confidence: 0.98},
		{Keyword: "indian oil", CategoryID: 13, Confidence: 0.98},
		{Keyword: "hp", CategoryID: 13, Confidence: 0.97},
	}
}

// PatternClient is an in-process keyword classifier over the default
// categories. It is used when no remote classifier is configured.
type PatternClient struct {
	names    map[int]string
	patterns []MerchantPattern
}

// NewPatternClient creates a keyword classifier. A nil patterns slice selects
// DefaultPatterns.
func NewPatternClient(patterns []MerchantPattern) *PatternClient {
	if patterns == nil {
		patterns = DefaultPatterns()
	}

	names := make(map[int]string)
	for _, cat := range model.DefaultCategories() {
		names[cat.ID] = cat.Name
	}

	return &PatternClient{patterns: patterns, names: names}
}

// Categorize matches the normalized merchant against the keyword list. The
// best keyword wins; runner-up categories become alternatives. Unknown
// merchants fall back to Others.
func (p *PatternClient) Categorize(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	merchant := req.MerchantNormalized
	if merchant == "" {
		merchant = strings.ToLower(req.MerchantName)
	}

	best := make(map[int]float64)
	for _, pat := range p.patterns {
		if !containsWord(merchant, pat.Keyword) {
			continue
		}
		if pat.Confidence > best[pat.CategoryID] {
			best[pat.CategoryID] = pat.Confidence
		}
	}

	if len(best) == 0 {
		return Response{
			CategoryID:      model.OthersCategoryID,
			CategoryName:    p.names[model.OthersCategoryID],
			ConfidenceScore: unmatchedConfidence,
			Alternatives:    model.Alternatives{},
		}, nil
	}

	ranked := make(model.Alternatives, 0, len(best)+1)
	for id, score := range best {
		ranked = append(ranked, model.AlternativeCategory{
			CategoryID:   id,
			CategoryName: p.names[id],
			Score:        score,
		})
	}
	ranked.Sort()

	top := ranked[0]
	alternatives := ranked[1:]
	if len(alternatives) == 0 && top.CategoryID != model.OthersCategoryID {
		alternatives = model.Alternatives{{
			CategoryID:   model.OthersCategoryID,
			CategoryName: p.names[model.OthersCategoryID],
			Score:        math.Round((1-top.Score)*1000) / 1000,
		}}
	}

	return Response{
		CategoryID:      top.CategoryID,
		CategoryName:    top.CategoryName,
		ConfidenceScore: top.Score,
		Alternatives:    alternatives,
	}, nil
}

// containsWord reports whether keyword occurs in s starting at a word
// boundary, so "ola" matches "ola cabs" but not "granola".
func containsWord(s, keyword string) bool {
	if keyword == "" {
		return false
	}
	for offset := 0; offset < len(s); {
		idx := strings.Index(s[offset:], keyword)
		if idx < 0 {
			return false
		}
		pos := offset + idx
		if pos == 0 || s[pos-1] == ' ' {
			end := pos + len(keyword)
			// Keywords of three letters or fewer must also end on a boundary.
			if len(keyword) > 3 || end == len(s) || s[end] == ' ' {
				return true
			}
		}
		offset = pos + 1
	}
	return false
}
