package coordinator

// Exit shuts the cluster down: every live worker receives EXIT, the
// coordinator waits for each worker's Serve loop to return, and the
// allocation policy releases its resources. cleanup controls whether
// workers delete their on-disk blobs before exiting.
//
// Exit is idempotent against already-dead workers: a dead worker is simply
// skipped rather than treated as an error, since its absence was already
// logged when it was marked dead.
func (c *Coordinator) Exit(cleanup bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for _, h := range c.workers {
		if h.dead {
			continue
		}
		if err := c.rpcExit(h, cleanup); err != nil {
			c.log.Error("worker rejected exit", "worker", h.id, "cause", err)
			if firstErr == nil {
				firstErr = err
			}
		}
		_ = h.ch.Close()
		h.dead = true
	}
	for _, h := range c.workers {
		if h.done != nil {
			<-h.done
			h.done = nil
		}
	}

	if c.allocPolicy != nil {
		c.allocPolicy.Destroy()
		c.allocPolicy = nil
	}

	c.log.Info("coordinator exited", "cleanup", cleanup)
	if firstErr != nil {
		return c.wrapFail("exit", firstErr)
	}
	return nil
}
