package testing

import "github.com/Alia5/ds4dsu/device"

// Controller is a controller handle with a fixed identity.
type Controller struct {
	ID device.Identity
}

// NewController returns a handle reporting the given address and connection.
func NewController(address string, conn device.Connection) *Controller {
	return &Controller{ID: device.Identity{Address: address, Connection: conn}}
}

func (c *Controller) Identity() device.Identity { return c.ID }
