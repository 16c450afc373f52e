// Package domain models the NO₂ prediction map: coordinates, the static
// catalog of high-concentration areas, prediction failures, and the display
// state shown for the active map selection.
//
// # Units
//
// The prediction service answers in raw model units. Everything shown to a
// user is scaled by 1e6 and rendered with one decimal as µg/m³:
//
//	0.00015  →  "150.0 µg/m³"
//
// Area concentrations in the catalog are already in µg/m³ and are not scaled.
//
// # Coordinates
//
// Latitude and longitude are rounded to six decimal places (about 0.11 m at
// the equator) before they leave the process. Rounding is decimal, the same
// as formatting with six fractional digits and parsing the text back, so it is
// idempotent. See [Round6].
//
// # Regions
//
// Areas belong to one of five coarse regions of the Indian subcontinent:
// North, South, East, West and Central. Central is a valid filter value that
// currently matches no catalog entries.
package domain
