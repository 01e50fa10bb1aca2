/*
Package mise runs real-time cooking sessions over a recipe book.

A Kitchen ties together a recipe store, the session state machine and the ticking
driver. Users start a recipe, pause, resume or skip steps, and the Kitchen counts
time down per step and for the whole recipe, advancing through steps on its own
and ending the session after the last one. Sessions live in memory only; recipes
live in whichever ports.RecipeStore the Kitchen was given.

# Usage

	k := mise.New(memory.NewStore(recipes...), mise.WithLogger(logger))
	defer k.Close()

	if _, err := k.Start(ctx, "carbonara"); err != nil {
		log.Fatal(err)
	}

	progress, _ := k.Progress(ctx, "carbonara")
	fmt.Println(progress.StepRemaining, progress.OverallPercent)

Only one session is active at a time: starting or focusing another recipe pauses
the previous one, which stays in the registry until it is resumed or ended.
*/
package mise
