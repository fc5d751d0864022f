// Package workload holds the task bodies run by the futurepool demos: a
// CPU-bound trial-division factorizer and an I/O-bound page fetcher.
package workload

import (
	"math/rand/v2"
)

// Primes are the large primes the factoring demo multiplies together.
var Primes = []uint64{86008889, 89937917, 59935801, 11056459, 41969321, 35655967, 25739201, 70792549, 74259431, 88809541}

// GenerateProducts returns count numbers, each the product of perProduct
// primes drawn at random from Primes. perProduct above 2 overflows uint64.
func GenerateProducts(r *rand.Rand, count, perProduct int) []uint64 {
	products := make([]uint64, count)
	for i := range products {
		n := uint64(1)
		for range perProduct {
			n *= Primes[r.IntN(len(Primes))]
		}
		products[i] = n
	}
	return products
}

// TrivialFactors factorizes n by trial division and returns its prime factors
// in ascending order. Deliberately slow: it is the CPU-bound workload.
func TrivialFactors(n uint64) []uint64 {
	var factors []uint64
	if n < 2 {
		return factors
	}

	for n%2 == 0 {
		factors = append(factors, 2)
		n /= 2
	}
	for i := uint64(3); i <= n/i; i += 2 {
		for n%i == 0 {
			factors = append(factors, i)
			n /= i
		}
	}
	if n > 1 {
		factors = append(factors, n)
	}
	return factors
}
