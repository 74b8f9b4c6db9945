package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// Message is a value passed between controllers of one loop
// iteration, or out of the loop as telemetry.
type Message interface {
	// NewMessage creates an empty message of the same type.
	NewMessage() Message
}

// MessageHandler processes a message.
type MessageHandler interface {
	HandleMessage(context.Context, Message)
}

// HandleMessageFunc is the func form of MessageHandler.
type HandleMessageFunc func(context.Context, Message)

// HandleMessage implements MessageHandler.
func (f HandleMessageFunc) HandleMessage(ctx context.Context, msg Message) {
	f(ctx, msg)
}

// Controller is run once per loop iteration at its priority level.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc defines the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(ctx ControlContext) error {
	return f(ctx)
}

// ControlContext is the state of the current iteration.
type ControlContext interface {
	// Context is canceled when the loop stops.
	Context() context.Context
	// Time is when the iteration started. Readings taken in the
	// iteration are stamped with it.
	Time() time.Time
	// PriorityLevel gets the level being run.
	PriorityLevel() int
	// Messages holds the messages produced so far in the iteration.
	Messages() MessageStore
}

// Priority levels, run in increasing order.
const (
	// PrLvAcquire is the level of controllers talking to the chain.
	PrLvAcquire int = iota
	// PrLvProcess is the level of controllers consuming readings.
	PrLvProcess
	// PrLvPublish is the level of controllers emitting telemetry.
	PrLvPublish
	// PriorityLevels is the number of levels.
	PriorityLevels
)

// MessageStore provides read/write access to a list of messages.
type MessageStore interface {
	// ProcessMessages passes every message to the processor in order.
	ProcessMessages(MessageProcessor)

	MessageAppender
}

// MessageAppender appends message to store.
type MessageAppender interface {
	AddMessages(msgs ...Message)
}

// MessageProcessor is used by MessageStore to process messages.
type MessageProcessor interface {
	ProcessMessage(MessageProcessingContext)
}

// ProcessMessageFunc is the func form of MessageProcessor.
type ProcessMessageFunc func(MessageProcessingContext)

// ProcessMessage implements MessageProcessor.
func (f ProcessMessageFunc) ProcessMessage(mc MessageProcessingContext) {
	f(mc)
}

// MessageProcessingContext provides context for current message.
type MessageProcessingContext interface {
	// CurrentMessage gets the current message being processed.
	CurrentMessage() Message
	// MessageTaken removes the message from the store.
	MessageTaken()
	// StopProcessing skips the remaining messages.
	StopProcessing()
}
