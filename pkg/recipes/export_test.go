package recipes

// ActiveLocks exposes the lock table size to tests.
func (b *Book) ActiveLocks() int { return b.activeLocks() }
