// Package data holds the tariff dataset compiled into the binary.
package data

import _ "embed"

// TariffsJSON is the default jurisdiction -> category -> table dataset
//
//go:embed tariffs.json
var TariffsJSON []byte
