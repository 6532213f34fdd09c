// Package registry links in every controller package so their feed formats
// register themselves.
package registry

import (
	_ "github.com/Alia5/ds4dsu/device/dualshock4" // Register ds4, ds4hid and ds4bt feed formats
)
