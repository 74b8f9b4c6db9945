package framework

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Loop runs controllers by priority level on a fixed interval, e.g.
// chain pollers before telemetry publishers. Controllers of one
// iteration share a message store which is dropped when it ends.
type Loop struct {
	Interval time.Duration
	// OnError receives controller errors. They are logged if nil.
	OnError func(level int, err error)

	levels  [PriorityLevels]level
	runners []Runnable
	count   uint64
	lock    sync.Mutex
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

type level struct {
	hooks       []Controller
	controllers []Controller
}

// DefaultInterval is the interval of loops created by NewLoop.
const DefaultInterval = 100 * time.Millisecond

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{Interval: DefaultInterval}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers controllers run in every iteration.
func (l *Loop) AddController(priorityLevel int, ctls ...Controller) *Loop {
	l.lock.Lock()
	defer l.lock.Unlock()
	lv := &l.levels[priorityLevel]
	lv.controllers = append(lv.controllers, ctls...)
	for _, ctl := range ctls {
		if runner, ok := ctl.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddRunnable adds Runnables started and stopped with the loop.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.lock.Lock()
	l.runners = append(l.runners, runnables...)
	l.lock.Unlock()
	return l
}

// PreRunAt injects one-shot hooks run before the controllers of the
// level in the next iteration.
func (l *Loop) PreRunAt(priorityLevel int, hooks ...Controller) {
	l.lock.Lock()
	lv := &l.levels[priorityLevel]
	lv.hooks = append(lv.hooks, hooks...)
	l.lock.Unlock()
}

// Iterations returns the number of completed iterations.
func (l *Loop) Iterations() uint64 {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.count
}

// Run implements Runnable. The first iteration starts immediately.
func (l *Loop) Run(ctx context.Context) error {
	l.lock.Lock()
	runners := append([]Runnable(nil), l.runners...)
	l.lock.Unlock()
	runner := NewRunnerWith(ctx).Go(runners...)
	defer runner.Wait()

	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		l.runIteration(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Loop) runIteration(ctx context.Context) {
	iter := &iteration{ctx: ctx, time: time.Now()}
	for i := range l.levels {
		iter.level = i
		l.lock.Lock()
		lv := &l.levels[i]
		hooks, ctls := lv.hooks, lv.controllers
		lv.hooks = nil
		l.lock.Unlock()
		l.runControllers(iter, hooks)
		l.runControllers(iter, ctls)
	}
	l.lock.Lock()
	l.count++
	l.lock.Unlock()
}

func (l *Loop) runControllers(iter *iteration, ctls []Controller) {
	for _, ctl := range ctls {
		if err := ctl.Control(iter); err != nil {
			if l.OnError != nil {
				l.OnError(iter.level, err)
			} else {
				glog.Errorf("controller error at level %d: %v", iter.level, err)
			}
		}
	}
}

type iteration struct {
	ctx      context.Context
	time     time.Time
	level    int
	messages []Message
}

func (t *iteration) Context() context.Context { return t.ctx }
func (t *iteration) Time() time.Time          { return t.time }
func (t *iteration) PriorityLevel() int       { return t.level }
func (t *iteration) Messages() MessageStore   { return t }

func (t *iteration) AddMessages(msgs ...Message) {
	t.messages = append(t.messages, msgs...)
}

type processing struct {
	msg   Message
	taken bool
	stop  bool
}

func (p *processing) CurrentMessage() Message { return p.msg }
func (p *processing) MessageTaken()           { p.taken = true }
func (p *processing) StopProcessing()         { p.stop = true }

// ProcessMessages implements MessageStore. Messages added by the
// processor are appended after the remaining ones.
func (t *iteration) ProcessMessages(proc MessageProcessor) {
	msgs := t.messages
	t.messages = nil
	remains := make([]Message, 0, len(msgs))
	for i, msg := range msgs {
		p := &processing{msg: msg}
		proc.ProcessMessage(p)
		if !p.taken {
			remains = append(remains, msg)
		}
		if p.stop {
			remains = append(remains, msgs[i+1:]...)
			break
		}
	}
	t.messages = append(remains, t.messages...)
}
