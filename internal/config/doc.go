// Package config loads settings for library-due-dates.
//
// Values come from, in increasing precedence: struct-tag defaults, an
// optional YAML file, a .env file in the working directory, and
// environment variables prefixed DUEDATES_ (DUEDATES_LIBRARY_PIN maps to
// library.pin). Library credentials may also be read from a two-line
// credentials file holding the username and then the PIN.
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
