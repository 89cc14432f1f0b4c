package metrics

import "github.com/shopspring/decimal"

// ItemMetric represents calculated metrics for one item code + name pair
type ItemMetric struct {
	ItemCode string
	Name     string
	Summary
}

type itemKey struct {
	code string
	name string
}

// CalculateItemMetrics groups lines by item code and name and sorts the
// groups by profit, highest first
func CalculateItemMetrics(lines []LineData) []ItemMetric {
	index := make(map[itemKey]int)
	var results []ItemMetric

	for _, line := range lines {
		key := itemKey{code: line.ItemCode, name: line.Name}

		i, ok := index[key]
		if !ok {
			i = len(results)
			index[key] = i
			results = append(results, ItemMetric{ItemCode: line.ItemCode, Name: line.Name})
		}
		results[i].add(line)
	}

	for i := range results {
		results[i].finalize()
	}

	sortByProfitDesc(results, func(m ItemMetric) decimal.Decimal { return m.Profit })
	return results
}
