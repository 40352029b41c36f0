package core

const metricsAvgCount = 30

// Metrics tracks frame pacing for the interaction loop. Each engine owns
// one instance; nothing here is shared global state.
type Metrics struct {
	frameAvgCounter    uint8
	msTimes            [metricsAvgCount]float64
	msAvg              float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// Update folds one frame's elapsed seconds into the running averages.
func (m *Metrics) Update(frameElapsedTime float64) {
	// Calculate frame ms average
	frameMS := frameElapsedTime * 1000.0
	m.msTimes[m.frameAvgCounter] = frameMS
	if m.frameAvgCounter == metricsAvgCount-1 {
		sum := 0.0
		for i := 0; i < metricsAvgCount; i++ {
			sum += m.msTimes[i]
		}
		m.msAvg = sum / float64(metricsAvgCount)
	}
	m.frameAvgCounter++
	m.frameAvgCounter %= metricsAvgCount

	// Calculate frames per second.
	m.accumulatedFrameMS += frameMS
	if m.accumulatedFrameMS > 1000 {
		m.fps = float64(m.frames)
		m.accumulatedFrameMS -= 1000
		m.frames = 0
	}

	// Count all frames.
	m.frames++
}

func (m *Metrics) FPS() float64 {
	return m.fps
}

func (m *Metrics) FrameTime() float64 {
	return m.msAvg
}

// Frame returns the FPS and average frame time in one call.
func (m *Metrics) Frame() (float64, float64) {
	return m.fps, m.msAvg
}
