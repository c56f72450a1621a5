package auth

import "sync"

// notifier fans session changes out to subscribers. Listeners run outside
// the lock, in subscription order.
type notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]func(*Session)
	ids  []int
}

func (n *notifier) subscribe(fn func(*Session)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = map[int]func(*Session){}
	}
	id := n.next
	n.next++
	n.subs[id] = fn
	n.ids = append(n.ids, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subs, id)
			for i, x := range n.ids {
				if x == id {
					n.ids = append(n.ids[:i:i], n.ids[i+1:]...)
					break
				}
			}
		})
	}
}

func (n *notifier) publish(s *Session) {
	n.mu.Lock()
	fns := make([]func(*Session), 0, len(n.ids))
	for _, id := range n.ids {
		fns = append(fns, n.subs[id])
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}
