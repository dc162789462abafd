package fetcher

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/example/slotwatch/internal/classifier"
	"github.com/example/slotwatch/internal/common"
	"github.com/rs/zerolog"
)

// fieldSelectors maps a RawSlot field to the selectors tried in order. The
// portals vary between table layouts and card layouts, so each field accepts
// several shapes.
var fieldSelectors = map[string][]string{
	"date":     {"[data-date]", ".date", ".exam-date", "td.date", ".slot-date"},
	"time":     {"[data-time]", ".time", ".exam-time", "td.time", ".slot-time"},
	"location": {"[data-location]", ".location", ".center", "td.location", ".exam-center"},
	"category": {"[data-category]", ".category", ".exam-type", "td.category", ".exam-model"},
	"region":   {"[data-region]", ".region", ".city", "td.city"},
	"price":    {"[data-price]", ".price", ".cost", "td.price"},
}

// PageParser extracts raw slot rows from a fetched portal page.
type PageParser struct {
	rowSelector string
	logger      zerolog.Logger
}

// NewPageParser creates a parser using the configured row selector.
func NewPageParser(rowSelector string, logger zerolog.Logger) *PageParser {
	return &PageParser{
		rowSelector: rowSelector,
		logger:      logger.With().Str("component", "PageParser").Logger(),
	}
}

// Parse extracts every slot row from the page. A page with no matching rows
// is a valid no-slots result, not an error; only unparsable input fails.
func (p *PageParser) Parse(pageHTML string) ([]*classifier.RawSlot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, common.NewParsingError("portal page", "html parse failed", err)
	}

	var slots []*classifier.RawSlot
	doc.Find(p.rowSelector).Each(func(i int, row *goquery.Selection) {
		slot := p.extractSlot(i, row)
		if slot != nil {
			slots = append(slots, slot)
		}
	})

	p.logger.Debug().Int("rows", len(slots)).Msg("Slot rows extracted")
	return slots, nil
}

func (p *PageParser) extractSlot(index int, row *goquery.Selection) *classifier.RawSlot {
	fragment, err := goquery.OuterHtml(row)
	if err != nil {
		p.logger.Warn().Err(err).Int("row", index).Msg("Row markup unreadable, skipped")
		return nil
	}

	slot := &classifier.RawSlot{
		ID:        rowID(index, row),
		Date:      p.extractField(row, "date"),
		TimeRange: p.extractField(row, "time"),
		Location:  p.extractField(row, "location"),
		Category:  p.extractField(row, "category"),
		Region:    p.extractField(row, "region"),
		Price:     p.extractField(row, "price"),
		Fragment:  fragment,
	}
	slot.RegistrationRef = registrationRef(row)

	// Rows with no slot content at all (separator rows, headers) are noise.
	if slot.Date == "" && slot.TimeRange == "" && strings.TrimSpace(row.Text()) == "" {
		return nil
	}
	return slot
}

// extractField tries each selector shape, preferring data attributes over
// element text.
func (p *PageParser) extractField(row *goquery.Selection, field string) string {
	for _, selector := range fieldSelectors[field] {
		found := row.Find(selector).First()
		if found.Length() == 0 {
			continue
		}
		if strings.HasPrefix(selector, "[data-") {
			attr := strings.Trim(selector, "[]")
			if value, ok := found.Attr(attr); ok && value != "" {
				return strings.TrimSpace(value)
			}
		}
		if text := strings.TrimSpace(found.Text()); text != "" {
			return text
		}
	}
	// The row element itself may carry the data attribute.
	if value, ok := row.Attr("data-" + field); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

// rowID prefers the portal's own row identity when present. These IDs are
// volatile across renders; identity for dedup comes from semantic fields.
func rowID(index int, row *goquery.Selection) string {
	if id, ok := row.Attr("id"); ok && id != "" {
		return id
	}
	if id, ok := row.Attr("data-id"); ok && id != "" {
		return id
	}
	return "row-" + strconv.Itoa(index)
}

// registrationRef finds a live registration link in the row.
func registrationRef(row *goquery.Selection) string {
	var ref string
	row.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if href == "" || href == "#" {
			return true
		}
		lower := strings.ToLower(href)
		if strings.Contains(lower, "regist") || strings.Contains(lower, "sabt") ||
			strings.Contains(lower, "reserve") || strings.Contains(lower, "book") {
			ref = href
			return false
		}
		return true
	})
	return ref
}
