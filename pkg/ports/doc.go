/*
Package ports defines the driven ports (interfaces) of the kitchen.

These interfaces decouple cooking sessions and the recipe book from concrete
storage, so the same code runs against memory, a flat JSON file, SQLite or Redis.

# Key Interfaces

  - RecipeStore: Persists recipes in insertion order.
  - DistributedLocker: Serializes recipe edits across replicas sharing a store.

RunRecipeStoreContract verifies an adapter against the RecipeStore contract.
*/
package ports
