/*
Package domain contains the core models of the cooking session engine.

It defines recipes (the read-only input), session snapshots (the ephemeral progress of
cooking one recipe) and the events emitted while a session moves through its steps.
This package is kept pure and free of external dependencies like I/O or persistence.

# Key Entities

  - Recipe / Step: an ordered list of timed steps, each with a kind (instruction or cooking).
  - Session: remaining time for the current step and for the whole recipe, plus the
    running flag and the wall-clock reference of the last tick.
  - SessionEvent: what happened to a session, with before/after snapshots.
*/
package domain
