// Package convert owns the transcoders between bus frame payloads and
// broker message payloads.
//
// Every converter is a value of the closed Converter type; behavior is
// selected by its Kind and, for the integer family, by bit width and
// instance count. Converters are immutable after construction and are
// shared by pointer across route tables.
//
// Conversions are total: any input either converts or yields an *Error
// wrapping one of the package sentinels. No input panics.
package convert
