package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testTopic = NewTopic[int]("test:int")

func TestBusDeliversTypedPayloadInOrder(t *testing.T) {
	b := NewBus()
	var got []int
	Subscribe(b, testTopic, func(v int) { got = append(got, v) })
	Subscribe(b, testTopic, func(v int) { got = append(got, v*10) })

	Publish(b, testTopic, 3)
	assert.Equal(t, []int{3, 30}, got)
}

func TestBusCancel(t *testing.T) {
	b := NewBus()
	calls := 0
	cancel := Subscribe(b, testTopic, func(int) { calls++ })
	Publish(b, testTopic, 1)
	cancel()
	cancel()
	Publish(b, testTopic, 1)

	assert.Equal(t, 1, calls)
	assert.Zero(t, Listeners(b, testTopic))
}

func TestBusTopicsAreIsolated(t *testing.T) {
	b := NewBus()
	other := NewTopic[string]("test:string")
	called := false
	Subscribe(b, other, func(string) { called = true })
	Publish(b, testTopic, 1)
	assert.False(t, called)
	assert.NotEqual(t, testTopic.Type, other.Type)
}

func TestBusReentrantPublish(t *testing.T) {
	b := NewBus()
	second := NewTopic[int]("test:second")
	var got int
	Subscribe(b, second, func(v int) { got = v })
	Subscribe(b, testTopic, func(v int) { Publish(b, second, v+1) })

	Publish(b, testTopic, 41)
	assert.Equal(t, 42, got)
}
