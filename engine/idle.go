package engine

// Fixed hysteresis policy.
const (
	// PromoteIdleTicks is the number of consecutive idle ticks required on
	// both axes before a device moves one level deeper.
	PromoteIdleTicks = 6
	// DemoteStep is how many levels a device drops on renewed activity.
	DemoteStep = 2
)

// IdleState is the controller state of one device.
type IdleState struct {
	Level          int
	ReadIdleTicks  int
	WriteIdleTicks int
}

// IdleLevelController decides power level transitions from per-tick load.
// Promotion is slow (sustained idleness on both axes), demotion is fast.
type IdleLevelController struct {
	levels int
	state  IdleState
}

// NewIdleLevelController creates a controller at level 0 for a profile of
// the given number of levels.
func NewIdleLevelController(levels int) *IdleLevelController {
	if levels < 1 {
		levels = 1
	}
	return &IdleLevelController{levels: levels}
}

// Tick feeds one tick of load and returns the new level and whether it
// changed.
func (c *IdleLevelController) Tick(readLoad, writeLoad float64) (int, bool) {
	c.state.ReadIdleTicks = nextIdle(c.state.ReadIdleTicks, readLoad)
	c.state.WriteIdleTicks = nextIdle(c.state.WriteIdleTicks, writeLoad)

	switch {
	case c.state.Level < c.levels-1 &&
		c.state.ReadIdleTicks >= PromoteIdleTicks &&
		c.state.WriteIdleTicks >= PromoteIdleTicks:
		c.state.Level++
		return c.state.Level, true
	case c.state.Level > 0 && (c.state.ReadIdleTicks == 0 || c.state.WriteIdleTicks == 0):
		c.state.Level -= DemoteStep
		if c.state.Level < 0 {
			c.state.Level = 0
		}
		return c.state.Level, true
	}
	return c.state.Level, false
}

func nextIdle(ticks int, load float64) int {
	if load == 0 {
		return ticks + 1
	}
	return 0
}

// Level returns the current level.
func (c *IdleLevelController) Level() int { return c.state.Level }

// Levels returns the size of the level range.
func (c *IdleLevelController) Levels() int { return c.levels }

// State returns a copy of the controller state.
func (c *IdleLevelController) State() IdleState { return c.state }

// Reset puts the controller back to level 0 keeping the idle counters.
func (c *IdleLevelController) Reset() { c.state.Level = 0 }
