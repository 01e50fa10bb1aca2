/*
Package runner implements the ticking driver of cooking sessions.

The Runner owns a single periodic callback that exists only while the active
session is running. Each firing reads the clock, ticks the session and, when the
current step has run out, either advances to the next step or ends the session.
Every firing is applied as one Machine batch, so a completion is acted upon at
most once.

The callback is reconciled on every Machine event: pausing cancels it, resuming
re-arms it and focusing another recipe replaces it. Close cancels it for good and
waits until no firing can touch the Machine anymore.

# Usage

	machine := session.NewMachine()
	r := runner.New(machine, store, runner.WithLogger(logger))

	go r.Run(ctx)

	machine.Start(recipe, time.Now())
*/
package runner
