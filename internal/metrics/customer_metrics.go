package metrics

import (
	"strings"

	"github.com/shopspring/decimal"
)

// UnassignedCustomer labels lines that appeared before any customer header
const UnassignedCustomer = "未填寫客戶"

// CustomerMetric represents calculated metrics for a single customer
type CustomerMetric struct {
	Customer string
	Summary
}

// CalculateCustomerMetrics groups lines by customer and sorts the groups by
// profit, highest first
func CalculateCustomerMetrics(lines []LineData) []CustomerMetric {
	index := make(map[string]int)
	var results []CustomerMetric

	for _, line := range lines {
		key := strings.TrimSpace(line.Customer)
		if key == "" {
			key = UnassignedCustomer
		}

		i, ok := index[key]
		if !ok {
			i = len(results)
			index[key] = i
			results = append(results, CustomerMetric{Customer: key})
		}
		results[i].add(line)
	}

	for i := range results {
		results[i].finalize()
	}

	sortByProfitDesc(results, func(m CustomerMetric) decimal.Decimal { return m.Profit })
	return results
}
