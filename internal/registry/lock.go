package registry

// escalate trades the caller's read lock for the write lock, runs mutate
// if recheck still holds, and returns with the read lock held again.
//
// recheck runs under the write lock because another goroutine may have
// done the work while this one waited. sync.RWMutex cannot downgrade
// atomically, so writers may run between the write unlock and the read
// lock; results needed after escalate must be captured inside mutate or
// recheck.
func (r *Registry[T]) escalate(recheck func() bool, mutate func()) {
	r.mu.RUnlock()
	r.mu.Lock()
	defer func() {
		r.mu.Unlock()
		r.mu.RLock()
	}()

	if recheck() {
		mutate()
	}
}
