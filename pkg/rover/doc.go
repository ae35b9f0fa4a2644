// Package rover coordinates a rover's operating mode, motion and camera
// commands, and its event history.
//
// A single Coordinator owns the rover state (identity, mode, battery and
// camera angles) and the event log. Three kinds of callers share it:
//
//   - command handlers (Move, Camera, SetMode, SubmitHeartbeat, SubmitEvent),
//     any number of them concurrently;
//   - the autonomous drive loop, one per coordinator, started by Run;
//   - observers reading Status, Page and the latest event.
//
// Every state mutation and the actuation calls that belong to it happen
// under one mutex, so a reader never sees a mode change without the stop
// that goes with it, and a manual command can never interleave with an
// autonomous maneuver. Blocking waits (the backup pulses) release the mutex
// and re-check the mode before each pulse.
//
// Hardware and the battery model are injected, so tests drive the loop with
// deterministic fakes.
package rover
