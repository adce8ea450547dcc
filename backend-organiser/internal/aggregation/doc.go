// Package aggregation derives event financial and ticket statistics from
// order, ticket and purchaser records. Every function is pure: inputs are
// never mutated and no state is kept between calls.
package aggregation
