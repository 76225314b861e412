package review

import (
	"fmt"
	"sync"
)

const (
	SubmitLabel     = "Submit to HubSpot"
	SubmittingLabel = "Submitting..."
)

// Control is the state of the submit button.
type Control struct {
	Enabled bool   `json:"enabled"`
	Label   string `json:"label"`
}

func idleControl() Control {
	return Control{Enabled: true, Label: SubmitLabel}
}

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a message surfaced to the reviewer.
type Notice struct {
	Level NoticeLevel `json:"level"`
	Title string      `json:"title,omitempty"`
	Text  string      `json:"text"`
}

func (n Notice) String() string {
	if n.Title == "" {
		return n.Text
	}
	return fmt.Sprintf("%s: %s", n.Title, n.Text)
}

// Presenter renders session state. Implementations must not call back into
// the Session.
type Presenter interface {
	RenderTotal(Evaluation)
	RenderItem(Item)
	SubmitControl(Control)
	Notify(Notice)
	Navigate(path string)
}

type NopPresenter struct{}

func (NopPresenter) RenderTotal(Evaluation) {}
func (NopPresenter) RenderItem(Item) {}
func (NopPresenter) SubmitControl(Control) {}
func (NopPresenter) Notify(Notice) {}
func (NopPresenter) Navigate(path string) {}

// Snapshot is what a SnapshotPresenter has rendered so far.
type Snapshot struct {
	Evaluation  Evaluation `json:"evaluation"`
	Control     Control    `json:"control"`
	Notices     []Notice   `json:"notices,omitempty"`
	Redirect    string     `json:"redirect,omitempty"`
	Navigations int        `json:"-"`
}

// SnapshotPresenter keeps the latest rendered state so it can be served to a
// polling browser.
type SnapshotPresenter struct {
	mu   sync.Mutex
	snap Snapshot
}

func NewSnapshotPresenter() *SnapshotPresenter {
	return &SnapshotPresenter{snap: Snapshot{Control: idleControl()}}
}

func (p *SnapshotPresenter) RenderTotal(ev Evaluation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Evaluation = ev
}

func (p *SnapshotPresenter) RenderItem(Item) {}

func (p *SnapshotPresenter) SubmitControl(c Control) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Control = c
}

func (p *SnapshotPresenter) Notify(n Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Notices = append(p.snap.Notices, n)
}

func (p *SnapshotPresenter) Navigate(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Redirect = path
	p.snap.Navigations++
}

// Snapshot returns a copy of the rendered state.
func (p *SnapshotPresenter) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	snap := p.snap
	snap.Notices = append([]Notice(nil), p.snap.Notices...)
	return snap
}

// DrainNotices returns and forgets the notices rendered so far.
func (p *SnapshotPresenter) DrainNotices() []Notice {
	p.mu.Lock()
	defer p.mu.Unlock()
	notices := p.snap.Notices
	p.snap.Notices = nil
	return notices
}
