package utils

import (
	"github.com/sasha-s/go-deadlock"
)

// Topic fans values out to every subscriber. Publish blocks until each
// subscriber has room for the value.
type Topic[T any] struct {
	subscribers map[chan T]struct{}
	mutex       deadlock.Mutex
}

func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{
		subscribers: make(map[chan T]struct{}),
	}
}

func (t *Topic[T]) Publish(value T) {
	t.mutex.Lock()
	for subscriber := range t.subscribers {
		subscriber <- value
	}
	t.mutex.Unlock()
}

type Subscriber[T any] struct {
	channel chan T
	topic   *Topic[T]
}

func (t *Topic[T]) Subscribe(buffer int) *Subscriber[T] {
	channel := make(chan T, buffer)
	t.mutex.Lock()
	t.subscribers[channel] = struct{}{}
	t.mutex.Unlock()

	return &Subscriber[T]{channel, t}
}

func (t *Subscriber[T]) Recv() <-chan T {
	return t.channel
}

// Done unsubscribes and closes the channel. Values that were published but
// not yet received are discarded, so once Done returns Recv only reports
// the closed channel.
func (t *Subscriber[T]) Done() {
	// Publish may hold the topic lock while blocked on this channel.
	stop := make(chan struct{})
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for {
			select {
			case <-t.channel:
			case <-stop:
				return
			}
		}
	}()

	topic := t.topic
	topic.mutex.Lock()
	delete(topic.subscribers, t.channel)
	topic.mutex.Unlock()

	close(stop)
	<-drained

	for {
		select {
		case <-t.channel:
			continue
		default:
		}
		break
	}

	close(t.channel)
}
