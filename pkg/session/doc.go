/*
Package session implements the cooking session state machine.

A Registry stores one Session per recipe plus a single "active" pointer. The Machine
owns the registry and applies events (start, pause, resume, tick, skip, advance, end)
to it. Every event is applied atomically under the Machine lock, callers only ever
receive value snapshots, and subscribers are notified after the lock is released.

The Machine never schedules anything on its own: step completion is observed and acted
upon by the ticking driver (package runner), which keeps the Machine a pure reducer.

# Timing Model

Elapsed time is derived from wall-clock deltas between ticks rather than from counting
callbacks, so late callbacks lose precision but never accumulate drift. Deltas are
truncated to whole seconds and a non-positive delta is ignored, so a clock that goes
backwards never adds time back.
*/
package session
