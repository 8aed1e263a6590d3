// Package health evaluates each tick's snapshot into the active alert set:
// daemon reachability, source-set condition, sync quality and clock
// jump/suspend anomalies.
package health
