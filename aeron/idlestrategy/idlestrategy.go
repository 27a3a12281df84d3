/*
Copyright 2016 Stanislav Liberman

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package idlestrategy provides the backoff strategies the agent runner and
// the conductor's await loop use between ticks that found no work.
package idlestrategy

import (
	"runtime"
	"time"
)

// Idler is invoked once per agent duty-cycle tick with the amount of work
// done on that tick (0 meaning nothing to do).
type Idler interface {
	Idle(workCount int)
}

// Busy never sleeps; appropriate only for dedicated cores.
type Busy struct{}

func (Busy) Idle(int) {}

// Yielding calls runtime.Gosched() when there was no work.
type Yielding struct{}

func (Yielding) Idle(workCount int) {
	if workCount > 0 {
		return
	}
	runtime.Gosched()
}

// Sleeping sleeps a fixed duration when there was no work.
type Sleeping struct {
	Duration time.Duration
}

func NewSleeping(d time.Duration) Sleeping { return Sleeping{Duration: d} }

func (s Sleeping) Idle(workCount int) {
	if workCount > 0 {
		return
	}
	time.Sleep(s.Duration)
}

// Backoff escalates through spin -> yield -> short sleep -> long sleep,
// resetting to spin as soon as there is work again. This is the strategy
// used by the await loop in production.
type Backoff struct {
	MaxSpins   int
	MaxYields  int
	MinSleep   time.Duration
	MaxSleep   time.Duration
	spins      int
	yields     int
	sleepTime  time.Duration
}

// NewBackoff returns a Backoff with the conventional Aeron defaults.
func NewBackoff() *Backoff {
	return &Backoff{
		MaxSpins:  10,
		MaxYields: 5,
		MinSleep:  time.Microsecond,
		MaxSleep:  time.Millisecond,
	}
}

func (b *Backoff) Idle(workCount int) {
	if workCount > 0 {
		b.reset()
		return
	}

	switch {
	case b.spins < b.MaxSpins:
		b.spins++
	case b.yields < b.MaxYields:
		b.yields++
		runtime.Gosched()
	default:
		if b.sleepTime == 0 {
			b.sleepTime = b.MinSleep
		}
		time.Sleep(b.sleepTime)
		if b.sleepTime < b.MaxSleep {
			b.sleepTime *= 2
			if b.sleepTime > b.MaxSleep {
				b.sleepTime = b.MaxSleep
			}
		}
	}
}

func (b *Backoff) reset() {
	b.spins = 0
	b.yields = 0
	b.sleepTime = 0
}
