// ABOUTME: Bridge connecting controller snapshots to the Bubble Tea message loop.
// ABOUTME: Coalesces bursts to the latest snapshot so a slow renderer never blocks ingestion.
package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/tickertape/engine"
)

// SnapshotBridge forwards snapshots to a tea.Program. Observe never blocks:
// if the renderer has not taken the previous snapshot yet, it is replaced.
type SnapshotBridge struct {
	send    func(msg tea.Msg)
	pending chan engine.Snapshot
	stop    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// NewSnapshotBridge starts the forwarding goroutine. Typically called with
// program.Send.
func NewSnapshotBridge(send func(msg tea.Msg)) *SnapshotBridge {
	b := &SnapshotBridge{
		send:    send,
		pending: make(chan engine.Snapshot, 1),
		stop:    make(chan struct{}),
	}
	b.wg.Add(1)
	go b.forward()
	return b
}

// Observe is the controller subscriber.
func (b *SnapshotBridge) Observe(snap engine.Snapshot) {
	for {
		select {
		case b.pending <- snap:
			return
		default:
		}
		select {
		case <-b.pending:
		default:
		}
	}
}

// Close stops forwarding. Snapshots not yet delivered are discarded.
func (b *SnapshotBridge) Close() {
	b.once.Do(func() { close(b.stop) })
	b.wg.Wait()
}

func (b *SnapshotBridge) forward() {
	defer b.wg.Done()
	for {
		select {
		case <-b.stop:
			return
		case snap := <-b.pending:
			b.send(SnapshotMsg{Snapshot: snap})
		}
	}
}

// TickCmd sends a TickMsg after interval.
func TickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
