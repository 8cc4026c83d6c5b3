// Package hcl reads dagwatch settings files written in HCL. It implements
// config.Loader.
//
// A settings file holds top-level attributes named like the command line
// flags, plus an optional scheduler block labelled with the scheduler kind:
//
//	interval         = "5s"
//	max_retries      = 10
//	exit_code_policy = "sentinel"
//
//	scheduler "restd" {
//	  url    = env.RESTD_URL
//	  schedd = "schedd.example.org"
//	}
//
// Expressions can read the process environment through the env object.
// Durations accept Go duration strings or a number of seconds.
package hcl
