package core

import "time"

// Clock tracks elapsed wall time for the render loop and the idle gate.
type Clock struct {
	StartTime   time.Time
	ElapsedTime float64
}

func (c *Clock) Start() {
	c.StartTime = time.Now()
	c.ElapsedTime = 0
}

// Update refreshes ElapsedTime, in seconds, since Start.
func (c *Clock) Update() {
	if !c.StartTime.IsZero() {
		c.ElapsedTime = time.Since(c.StartTime).Seconds()
	}
}

func (c *Clock) Stop() {
	c.StartTime = time.Time{}
}
