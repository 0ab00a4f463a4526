package domain

import "strings"

// Order-source discriminator for order_tracking rows: orders issued by this
// system, orders detected post-hoc from receiving records, and orders
// managed by an external channel.
const (
	OrderSourceAuto     = 0
	OrderSourceManual   = 1
	OrderSourceExternal = 2
)

var orderSourceLabels = map[int]string{
	OrderSourceAuto:     "Auto",
	OrderSourceManual:   "Manual",
	OrderSourceExternal: "External",
}

var orderSourceCodes = map[string]int{
	"auto":     OrderSourceAuto,
	"manual":   OrderSourceManual,
	"external": OrderSourceExternal,
}

// OrderSourceLabel returns a human-readable label for an order source code.
func OrderSourceLabel(source int) string {
	if label, ok := orderSourceLabels[source]; ok {
		return label
	}

	return "Unknown"
}

// ParseOrderSource returns the source code for a given label (case-insensitive).
func ParseOrderSource(label string) (int, bool) {
	code, ok := orderSourceCodes[strings.ToLower(label)]

	return code, ok
}
