// Package thermal discovers CPU temperature sensors under sysfs, reads them
// once per tick, and correlates temperature movement with the daemon's
// frequency correction.
//
// Discovery prefers coretemp package sensors and degrades through CPU-wide
// labels, any coretemp input, x86_pkg_temp thermal zones and finally any
// thermal zone. A machine with no readable sensor is a supported
// configuration, not an error.
package thermal
