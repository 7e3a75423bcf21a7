// Package report derives read-only views from raw transaction records:
// the filtered, sorted and paginated list, the per-type time series used
// by line charts and the expense breakdown used by pie charts.
//
// Every function here is pure. Inputs are never modified and the same
// records with the same parameters always produce the same output.
package report
