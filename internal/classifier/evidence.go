package classifier

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// RawSlot is one appointment row as extracted by the fetch collaborator,
// before classification. Fragment carries the slot's markup verbatim and is
// retained on the classified appointment for audit.
type RawSlot struct {
	ID              string
	Date            string
	TimeRange       string
	Location        string
	Category        string
	Region          string
	Price           string
	RegistrationRef string
	Fragment        string
}

// controlEvidence describes one interactive element found in a slot fragment.
type controlEvidence struct {
	tag       string
	text      string
	disabled  bool
	clickable bool
}

// slotEvidence is the structured view of a RawSlot the rule table evaluates.
type slotEvidence struct {
	raw      *RawSlot
	text     string // full fragment text, whitespace-collapsed, lowercased
	controls []controlEvidence

	hasDisabledClass   bool
	disabledClassValue string
	hasRegistrationRef bool
	hasClickAffordance bool
	hasDateTimeShape   bool
}

var (
	disabledClassPattern = regexp.MustCompile(`(?:^|[\s-])(disabled|inactive|closed|full|expired)(?:$|[\s-])`)
	// Matches Gregorian and Jalali date shapes plus HH:MM time ranges.
	dateShapePattern = regexp.MustCompile(`\d{2,4}[/\-.]\d{1,2}[/\-.]\d{1,4}`)
	timeShapePattern = regexp.MustCompile(`\d{1,2}:\d{2}`)
)

// gatherEvidence parses a slot fragment into the structured evidence the rule
// table consumes. Parsing never fails the classification: a fragment goquery
// cannot parse just yields empty evidence, which falls through to Unknown.
func gatherEvidence(raw *RawSlot) *slotEvidence {
	ev := &slotEvidence{raw: raw}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw.Fragment))
	if err != nil {
		ev.text = normalizeText(raw.Fragment)
	} else {
		ev.text = normalizeText(doc.Text())
		ev.inspectClasses(doc)
		ev.inspectControls(doc)
	}

	if raw.RegistrationRef != "" {
		ev.hasRegistrationRef = true
	}

	ev.hasDateTimeShape = dateShapePattern.MatchString(ev.text) ||
		timeShapePattern.MatchString(ev.text) ||
		dateShapePattern.MatchString(raw.Date) ||
		timeShapePattern.MatchString(raw.TimeRange)

	return ev
}

// inspectClasses scans every element's class attribute for disabling markers.
func (ev *slotEvidence) inspectClasses(doc *goquery.Document) {
	doc.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, exists := s.Attr("class")
		if !exists {
			return true
		}
		if disabledClassPattern.MatchString(strings.ToLower(class)) {
			ev.hasDisabledClass = true
			ev.disabledClassValue = class
			return false
		}
		return true
	})
}

// inspectControls collects interactive elements and their enabled state,
// working on the underlying html.Node for attribute-level checks goquery's
// selector language doesn't cover (aria-disabled, inline handlers).
func (ev *slotEvidence) inspectControls(doc *goquery.Document) {
	doc.Find("button, input[type='button'], input[type='submit'], a").Each(func(_ int, s *goquery.Selection) {
		ctrl := controlEvidence{
			tag:  goquery.NodeName(s),
			text: normalizeText(s.Text()),
		}

		for _, node := range s.Nodes {
			ctrl.disabled = ctrl.disabled || nodeDisabled(node)
			ctrl.clickable = ctrl.clickable || nodeClickable(node)
		}
		if class, ok := s.Attr("class"); ok && disabledClassPattern.MatchString(strings.ToLower(class)) {
			ctrl.disabled = true
		}

		ev.controls = append(ev.controls, ctrl)
		if ctrl.clickable && !ctrl.disabled {
			ev.hasClickAffordance = true
		}
	})
}

func nodeDisabled(node *html.Node) bool {
	for _, attr := range node.Attr {
		switch strings.ToLower(attr.Key) {
		case "disabled":
			return true
		case "aria-disabled":
			if strings.EqualFold(attr.Val, "true") {
				return true
			}
		}
	}
	return false
}

func nodeClickable(node *html.Node) bool {
	for _, attr := range node.Attr {
		key := strings.ToLower(attr.Key)
		if key == "onclick" {
			return true
		}
		if key == "href" && attr.Val != "" && attr.Val != "#" {
			return true
		}
	}
	return node.Data == "button" || node.Data == "input"
}

// enabledControls returns controls that are interactive and not disabled.
func (ev *slotEvidence) enabledControls() []controlEvidence {
	var out []controlEvidence
	for _, c := range ev.controls {
		if c.clickable && !c.disabled {
			out = append(out, c)
		}
	}
	return out
}

// disabledControls returns controls carrying a disabling attribute or class.
func (ev *slotEvidence) disabledControls() []controlEvidence {
	var out []controlEvidence
	for _, c := range ev.controls {
		if c.disabled {
			out = append(out, c)
		}
	}
	return out
}

// containsAny reports the first phrase found in the evidence text.
func (ev *slotEvidence) containsAny(phrases []string) (string, bool) {
	for _, p := range phrases {
		if p == "" {
			continue
		}
		if strings.Contains(ev.text, strings.ToLower(p)) {
			return p, true
		}
	}
	return "", false
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
