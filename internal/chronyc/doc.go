// Package chronyc invokes the chronyc command-line tool and turns its three
// text reports into typed records.
//
// The report grammar is an unversioned, best-effort external contract: all
// field extraction and tolerance for malformed lines lives here, so a format
// drift in chrony is a one-package fix. Parsers skip garbled rows and return
// whatever well-formed rows remain (partial success); an empty or
// unrecognizable report returns ok=false instead, which upstream treats the
// same as a failed query.
//
// Cache rate-limits the queries per kind (tracking 1s, sources 5s,
// sourcestats 20s by default) and falls back to the last successful output
// when a query fails, exposing the result's age so staleness can be alerted
// on. Due queries within one refresh run concurrently via errgroup; each
// only writes its own slot.
package chronyc
