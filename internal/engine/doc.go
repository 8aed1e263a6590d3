// Package engine ties the pipeline together: refresh the chronyc cache,
// parse the reports, merge and score sources, detect noise, read
// temperature, evaluate alerts and publish one immutable Snapshot per tick.
package engine
