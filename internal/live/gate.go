package live

import "sync"

// Sink receives frames from a Connection's reader goroutine.
type Sink interface {
	Deliver(Frame)
}

// Gate orders live frames behind a room's history. While held it queues
// frames; Release flushes the queue in arrival order and lets later frames
// pass straight through. Frames for another room, or from a connection older
// than the one the gate was held for, are discarded.
//
// deliver runs with the gate lock held and must not call back into the gate.
type Gate struct {
	mu      sync.Mutex
	deliver func(Frame)
	dropped func(Frame)

	held    bool
	roomID  int64
	minGen  uint64
	pending []Frame
}

func NewGate(deliver func(Frame)) *Gate {
	return &Gate{deliver: deliver}
}

// OnDrop registers a callback for discarded frames.
func (g *Gate) OnDrop(fn func(Frame)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dropped = fn
}

// Hold starts buffering for roomID, accepting only frames whose generation is
// at least minGen. Anything still queued from a previous hold is discarded.
func (g *Gate) Hold(roomID int64, minGen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, f := range g.pending {
		g.drop(f)
	}
	g.pending = nil
	g.held = true
	g.roomID = roomID
	g.minGen = minGen
}

func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	pending := g.pending
	g.pending = nil
	g.held = false
	for _, f := range pending {
		g.deliver(f)
	}
}

// Deliver implements Sink.
func (g *Gate) Deliver(f Frame) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if f.RoomID != g.roomID || f.Generation < g.minGen {
		g.drop(f)
		return
	}
	if g.held {
		g.pending = append(g.pending, f)
		return
	}
	g.deliver(f)
}

func (g *Gate) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}

func (g *Gate) drop(f Frame) {
	if g.dropped != nil {
		g.dropped(f)
	}
}
