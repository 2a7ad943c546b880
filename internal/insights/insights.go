// Package insights prints a short end-of-run summary over the listing
// records a worker produced, adapted from the teacher's
// service/scraper_service.go printInsights/parseCity.
package insights

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rhan/realtor-worker-fleet/internal/model"
)

// Print writes a summary report of records to stdout: total count, price
// range/average, and a per-city breakdown sorted by listing count.
func Print(records []*model.ListingRecord) {
	total := len(records)
	if total == 0 {
		fmt.Println("No listings recorded this run.")
		return
	}

	var sumPrice float64
	var priced int
	var minPrice, maxPrice float64
	listingsPerCity := make(map[string]int)

	for _, r := range records {
		if r.Price != nil {
			p := *r.Price
			if priced == 0 {
				minPrice, maxPrice = p, p
			}
			if p < minPrice {
				minPrice = p
			}
			if p > maxPrice {
				maxPrice = p
			}
			sumPrice += p
			priced++
		}

		city := cityOf(r)
		listingsPerCity[city]++
	}

	fmt.Println()
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("                 SCRAPING INSIGHTS REPORT")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\nTotal records: %d\n", total)
	if priced > 0 {
		fmt.Printf("Price range:   $%.0f - $%.0f (avg $%.0f, %d priced)\n", minPrice, maxPrice, sumPrice/float64(priced), priced)
	} else {
		fmt.Println("Price range:   no priced listings")
	}

	type cityCount struct {
		City  string
		Count int
	}
	var cities []cityCount
	for c, n := range listingsPerCity {
		cities = append(cities, cityCount{City: c, Count: n})
	}
	sort.Slice(cities, func(i, j int) bool { return cities[i].Count > cities[j].Count })

	fmt.Println("\nLISTINGS PER CITY")
	fmt.Println(strings.Repeat("-", 60))
	for _, c := range cities {
		fmt.Printf("  %-30s %d\n", c.City, c.Count)
	}
	fmt.Println(strings.Repeat("=", 60))
}

func cityOf(r *model.ListingRecord) string {
	if r.AddressCity != nil && *r.AddressCity != "" {
		return *r.AddressCity
	}
	return "unknown"
}
