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

package aeron

import "time"

// NanoClock returns a monotonically increasing nanosecond timestamp. It has
// no relation to wall-clock time; two readings are only meaningful as a
// difference.
type NanoClock interface {
	Now() int64
}

// EpochClock returns the current wall-clock time in milliseconds since the
// Unix epoch.
type EpochClock interface {
	Time() int64
}

// SystemNanoClock is the default NanoClock, backed by time.Now's monotonic
// reading.
type SystemNanoClock struct{}

func (SystemNanoClock) Now() int64 { return time.Now().UnixNano() }

// SystemEpochClock is the default EpochClock.
type SystemEpochClock struct{}

func (SystemEpochClock) Time() int64 { return time.Now().UnixMilli() }
