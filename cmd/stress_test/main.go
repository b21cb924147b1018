package main

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rl1809/marketplace/internal/core/domain"
	"github.com/rl1809/marketplace/internal/core/service"
)

const (
	capacity        = 20
	producerCount   = 8
	consumerCount   = 32
	cartsPerBuyer   = 200
	publishAttempts = 2000
)

var item = domain.Product{Type: "Coffee", Name: "flash-sale-roast", Price: 10}

func main() {
	exchange, err := service.NewExchange(capacity)
	if err != nil {
		log.Fatalf("failed to create exchange: %v", err)
	}

	// Counters
	var published atomic.Int64
	var sold atomic.Int64
	var rejected atomic.Int64

	var wg sync.WaitGroup
	start := time.Now()

	producerIDs := make([]int, producerCount)
	for i := range producerIDs {
		producerIDs[i] = exchange.Register()
	}

	for _, id := range producerIDs {
		wg.Add(1)
		go func(producerID int) {
			defer wg.Done()
			for i := 0; i < publishAttempts; i++ {
				ok, err := exchange.Publish(producerID, item)
				if err != nil {
					log.Fatalf("publish: %v", err)
				}
				if ok {
					published.Add(1)
				} else {
					rejected.Add(1)
				}
			}
		}(id)
	}

	for i := 0; i < consumerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := 0; c < cartsPerBuyer; c++ {
				cartID := exchange.OpenCart()
				exchange.AddToCart(cartID, item)
				exchange.AddToCart(cartID, item)
				exchange.RemoveFromCart(cartID, item)
				items, err := exchange.Checkout(cartID)
				if err != nil {
					log.Fatalf("checkout: %v", err)
				}
				sold.Add(int64(len(items)))
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	var outstanding int
	var overCapacity bool
	for _, id := range producerIDs {
		n, err := exchange.Outstanding(id)
		if err != nil {
			log.Fatalf("outstanding: %v", err)
		}
		if n < 0 || n > capacity {
			overCapacity = true
		}
		outstanding += n
	}
	available := exchange.Available(item)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Capacity/Producer: %d\n", capacity)
	fmt.Printf("Published:         %d\n", published.Load())
	fmt.Printf("Rejected:          %d\n", rejected.Load())
	fmt.Printf("Sold:              %d\n", sold.Load())
	fmt.Printf("Outstanding:       %d\n", outstanding)
	fmt.Printf("Available:         %d\n", available)
	fmt.Printf("Duration:          %v\n", elapsed)
	fmt.Println("==========================================")

	if published.Load()-sold.Load() == int64(outstanding) {
		fmt.Println("PASS: published - sold == outstanding")
	} else {
		fmt.Printf("FAIL: published %d - sold %d != outstanding %d\n", published.Load(), sold.Load(), outstanding)
	}

	if outstanding == available {
		fmt.Println("PASS: every outstanding unit is back in inventory")
	} else {
		fmt.Printf("FAIL: outstanding %d != available %d\n", outstanding, available)
	}

	if overCapacity {
		fmt.Println("FAIL: a producer exceeded its capacity")
	} else {
		fmt.Println("PASS: no producer exceeded its capacity")
	}
}
