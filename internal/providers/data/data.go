// Package data embeds the sample data served by the demo provider.
package data

import _ "embed"

//go:embed flights.json
var Flights []byte

//go:embed airports.json
var Airports []byte
