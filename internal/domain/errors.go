package domain

import "errors"

var (
	// ErrValidation is returned when request parameters are missing or malformed
	ErrValidation = errors.New("invalid request parameters")

	// ErrUpstream is returned when a discovery provider is unreachable or answers with an error status
	ErrUpstream = errors.New("upstream service request failed")

	// ErrFetch is returned when a restaurant page cannot be retrieved
	ErrFetch = errors.New("page fetch failed")

	// ErrTimeout is returned when a page fetch exceeds its deadline
	ErrTimeout = errors.New("page fetch timed out")

	// ErrExtraction is returned when menu items cannot be extracted from a page
	ErrExtraction = errors.New("menu extraction failed")

	// ErrAggregation is returned when the final synthesis call fails or returns unusable output
	ErrAggregation = errors.New("result aggregation failed")

	// ErrNoRestaurants is returned when discovery and scraping yield no usable restaurant
	ErrNoRestaurants = errors.New("no restaurants with menu data found")

	// ErrProviderStatus is returned when a text-generation provider call fails
	ErrProviderStatus = errors.New("text generation provider error")

	// ErrMalformedOutput is returned when a text-generation result does not have the expected shape
	ErrMalformedOutput = errors.New("malformed text generation output")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrRateLimited is returned when a client exceeds its request budget
	ErrRateLimited = errors.New("rate limit exceeded")
)
