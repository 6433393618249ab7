package services

import (
	"fmt"
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"

	"rocktheauction/internal/domain"
)

// lotField coerces one raw JSON value, stores it on the lot and returns the
// coerced value for the audit payload.
type lotField func(l *domain.Lot, raw any) any

// editableLotFields is the allow-list for lot writes. Keys outside it are
// dropped before anything reaches the store.
var editableLotFields = map[string]lotField{
	"lotNumber":       func(l *domain.Lot, raw any) any { l.LotNumber = toString(raw); return l.LotNumber },
	"title":           func(l *domain.Lot, raw any) any { l.Title = toString(raw); return l.Title },
	"subtitle":        func(l *domain.Lot, raw any) any { l.Subtitle = toString(raw); return l.Subtitle },
	"description":     func(l *domain.Lot, raw any) any { l.Description = toString(raw); return l.Description },
	"descriptionText": func(l *domain.Lot, raw any) any { l.DescriptionText = toString(raw); return l.DescriptionText },
	"category":        func(l *domain.Lot, raw any) any { l.Category = toString(raw); return l.Category },
	"condition":       func(l *domain.Lot, raw any) any { l.Condition = strings.ToLower(toString(raw)); return l.Condition },
	"status":          func(l *domain.Lot, raw any) any { l.Status = strings.ToLower(toString(raw)); return l.Status },
	"quantity":        func(l *domain.Lot, raw any) any { l.Quantity = toInt(raw); return l.Quantity },
	"sequence":        func(l *domain.Lot, raw any) any { l.Sequence = toInt(raw); return l.Sequence },
	"estimateLow":     func(l *domain.Lot, raw any) any { l.EstimateLow = toNumber(raw); return l.EstimateLow },
	"estimateHigh":    func(l *domain.Lot, raw any) any { l.EstimateHigh = toNumber(raw); return l.EstimateHigh },
	"startingBid":     func(l *domain.Lot, raw any) any { l.StartingBid = toNumber(raw); return l.StartingBid },
	"reservePrice":    func(l *domain.Lot, raw any) any { l.ReservePrice = toNumber(raw); return l.ReservePrice },
	"featured":        func(l *domain.Lot, raw any) any { l.Featured = toBool(raw); return l.Featured },
	"requiresApproval": func(l *domain.Lot, raw any) any {
		l.RequiresApproval = toBool(raw)
		return l.RequiresApproval
	},
	"images":    func(l *domain.Lot, raw any) any { l.Images = toStrings(raw); return []string(l.Images) },
	"documents": func(l *domain.Lot, raw any) any { l.Documents = toStrings(raw); return []string(l.Documents) },
	"approval":  applyApproval,
}

// applyLotFields copies the allow-listed keys of body onto l and returns the
// sanitized payload.
func applyLotFields(l *domain.Lot, body map[string]any) map[string]any {
	payload := map[string]any{}
	for key, raw := range body {
		set, ok := editableLotFields[key]
		if !ok {
			continue
		}
		payload[key] = set(l, raw)
	}
	return payload
}

func applyApproval(l *domain.Lot, raw any) any {
	obj, ok := raw.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	out := map[string]any{}
	if v, ok := obj["status"]; ok {
		if s := strings.ToLower(toString(v)); s != "" {
			l.Approval.Status = s
			out["status"] = s
		}
	}
	if v, ok := obj["notes"]; ok {
		l.Approval.Notes = toString(v)
		out["notes"] = l.Approval.Notes
	}
	return out
}

// applyApprovalRule couples requiresApproval to approval.status: true always
// means pending; false means approved unless the same payload set a status.
// An approval object in payload is rewritten to the status actually stored.
func applyApprovalRule(l *domain.Lot, payload map[string]any) {
	v, ok := payload["requiresApproval"]
	if !ok {
		return
	}
	a, hasApproval := payload["approval"].(map[string]any)
	switch required, _ := v.(bool); {
	case required:
		l.Approval.Status = domain.ApprovalPending
	case hasApproval && a["status"] != nil:
	default:
		l.Approval.Status = domain.ApprovalApproved
	}
	if hasApproval {
		out := make(map[string]any, len(a)+1)
		for k, v := range a {
			out[k] = v
		}
		out["status"] = l.Approval.Status
		payload["approval"] = out
	}
}

// clampLot forces every numeric field to max(0, v).
func clampLot(l *domain.Lot) {
	l.EstimateLow = math.Max(0, l.EstimateLow)
	l.EstimateHigh = math.Max(0, l.EstimateHigh)
	l.StartingBid = math.Max(0, l.StartingBid)
	l.ReservePrice = math.Max(0, l.ReservePrice)
	if l.Quantity < 0 {
		l.Quantity = 0
	}
	if l.Sequence < 0 {
		l.Sequence = 0
	}
}

var (
	reBlockTags = regexp.MustCompile(`(?i)</?(p|div|br|li|ul|ol|h[1-6]|tr|td|th|blockquote|pre)\b[^>]*>`)
	reTags      = regexp.MustCompile(`(?s)<[^>]*>`)
	reSpace     = regexp.MustCompile(`\s+`)
)

// plainText derives the plain-text twin of a rich-text description. Block
// tags become word breaks, inline tags vanish.
func plainText(rich string) string {
	s := reBlockTags.ReplaceAllString(rich, " ")
	s = reTags.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.TrimSpace(reSpace.ReplaceAllString(s, " "))
}

func toString(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// toNumber parses numbers and numeric strings; anything else is 0.
func toNumber(raw any) float64 {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		f = p
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// maxWholeField caps quantity and sequence so the int conversion is defined
// on every platform.
const maxWholeField = math.MaxInt32

// toInt coerces like toNumber, drops any fraction and saturates at
// ±maxWholeField.
func toInt(raw any) int {
	f := math.Trunc(toNumber(raw))
	switch {
	case f > maxWholeField:
		return maxWholeField
	case f < -maxWholeField:
		return -maxWholeField
	}
	return int(f)
}

func toBool(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "on":
			return true
		}
	}
	return false
}

// toStrings keeps the non-empty string elements of an array; non-arrays become
// an empty list.
func toStrings(raw any) domain.StringList {
	out := domain.StringList{}
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			if s := toString(item); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, item := range v {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
