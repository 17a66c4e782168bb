// Package simulator provides the random-walk sensors feeding the demo edge
// node.
package simulator

import (
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// Sensor emits a gaussian random walk around a mean on its Data channel.
type Sensor struct {
	SensorID string

	mean              float64
	standardDeviation float64
	currentValue      float64

	// Delay between data points; a fixed delayMin unless randomize is set.
	delayMin  int
	delayMax  int
	randomize bool

	Data     chan float64
	Shutdown chan bool

	running bool
}

// NewSensor builds a sensor around the given mean and deviation.
func NewSensor(id string, mean, standardDeviation float64, delayMin, delayMax int, randomize bool) *Sensor {
	return &Sensor{
		SensorID:          id,
		mean:              mean,
		standardDeviation: math.Abs(standardDeviation),
		currentValue:      mean - rand.Float64(),
		delayMin:          delayMin,
		delayMax:          delayMax,
		randomize:         randomize,
		Data:              make(chan float64),
		Shutdown:          make(chan bool, 1),
	}
}

func (s *Sensor) nextValue() float64 {
	valueChange := rand.Float64() * s.standardDeviation / 10
	s.currentValue += valueChange * s.factor()
	return s.currentValue
}

// factor decides the walk direction: the further from the mean, the likelier
// the walk turns back towards it.
func (s *Sensor) factor() float64 {
	var (
		continueDirection, changeDirection float64
		distance                           float64
	)
	if s.currentValue > s.mean {
		distance = s.currentValue - s.mean
		continueDirection = 1
		changeDirection = -1
	} else {
		distance = s.mean - s.currentValue
		continueDirection = -1
		changeDirection = 1
	}
	chance := (s.standardDeviation / 2) - (distance / 50)
	if s.standardDeviation*rand.Float64() < chance {
		return continueDirection
	}
	return changeDirection
}

// Run starts the sensor goroutine; Shutdown stops it.
func (s *Sensor) Run(log *logrus.Logger) {
	if s.running {
		log.WithField("sensor", s.SensorID).Debugln("Sensor already running")
		return
	}
	s.running = true
	if s.delayMin <= 0 {
		s.delayMin = 1
	}

	go func() {
		delay := s.delayMin
		log.WithField("sensor", s.SensorID).Debugln("Sensor started")
		s.Data <- s.nextValue()
		for {
			select {
			case <-s.Shutdown:
				log.WithField("sensor", s.SensorID).Debugln("Sensor stopped")
				s.running = false
				close(s.Data)
				return
			case <-time.After(time.Duration(delay) * time.Second):
				if s.randomize && s.delayMax > s.delayMin {
					delay = rand.Intn(s.delayMax-s.delayMin) + s.delayMin
				}
				s.Data <- s.nextValue()
			}
		}
	}()
}
