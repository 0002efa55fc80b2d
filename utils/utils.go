package utils

import (
	"github.com/templestuart/lotkeeper/env"
)

// Dev returns true if lotkeeper is in development mode
func Dev() bool {
	return env.GetVar("LOTKEEPER_MODE") == "DEV"
}

// Stg returns true if lotkeeper is in staging mode
func Stg() bool {
	return env.GetVar("LOTKEEPER_MODE") == "STG"
}

// Prod returns true if lotkeeper is in production mode
func Prod() bool {
	return env.GetVar("LOTKEEPER_MODE") == "PROD"
}

var (
	Sha1hash string
	Version  string = "dev"
)
