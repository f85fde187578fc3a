package subscription

import (
	"github.com/samber/lo"
)

type DedupPolicy int

const (
	// DedupFirst keeps the first outbound seen for each tag.
	DedupFirst DedupPolicy = iota
	// DedupLast keeps the last outbound seen for each tag, at the position
	// of that last occurrence.
	DedupLast
)

// Dedupe drops outbounds whose tag was already accepted and returns the
// accepted outbounds together with their tags, both in link order.
func Dedupe(outs []Outbound, policy DedupPolicy) ([]Outbound, []string) {
	byTag := func(o Outbound) string { return o.Tag() }

	var kept []Outbound
	switch policy {
	case DedupLast:
		kept = lo.Reverse(lo.UniqBy(lo.Reverse(append([]Outbound(nil), outs...)), byTag))
	default:
		kept = lo.UniqBy(outs, byTag)
	}
	return kept, lo.Map(kept, func(o Outbound, _ int) string { return o.Tag() })
}

// DropReserved removes outbounds whose tag is already taken outside the
// subscription, such as by a template entry. It returns the kept and the
// dropped outbounds, both in link order.
func DropReserved(outs []Outbound, reserved []string) (kept, dropped []Outbound) {
	taken := make(map[string]struct{}, len(reserved))
	for _, tag := range reserved {
		taken[tag] = struct{}{}
	}
	for _, o := range outs {
		if _, ok := taken[o.Tag()]; ok {
			dropped = append(dropped, o)
			continue
		}
		kept = append(kept, o)
	}
	return kept, dropped
}
