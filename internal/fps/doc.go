// Package fps turns frame-arrival events into per-interval frame rate reports.
//
// A Monitor counts frames and, whenever Tick observes that an interval
// boundary has been crossed, hands the count of the closed interval to a
// Reporter. The first interval after streaming starts is a warm-up interval:
// its count is skewed by pipeline startup latency and is discarded.
//
// The monitor performs no I/O, does not read the clock itself and is not
// safe for concurrent use. It is meant to be owned by the goroutine that
// polls the acquisition source:
//
//	mon := fps.New(time.Now(), reporter)
//	for ctx.Err() == nil {
//		img, err := cam.NextImage()
//		if err != nil {
//			return err
//		}
//		img.Release()
//		mon.Tick(time.Now())
//		mon.FrameArrived()
//	}
//
// # Boundary policies
//
// PolicyFixed (the default) advances the interval start by exactly one
// interval per rollover. When Tick is called late, for example because the
// camera stalled inside a blocking acquisition call, every missed rollover
// is processed and the intervals after the first report zero frames. Over N
// elapsed intervals the monitor therefore emits N-1 reports.
//
// PolicyElastic restarts the interval at the time Tick noticed the
// rollover. Late calls produce a single report and the schedule drifts with
// the caller.
package fps
